package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleModel 调用 Gemini 的 embedContent / batchEmbedContents。
type GoogleModel struct {
	name   string
	single func(ctx context.Context, text string) (*genai.EmbedContentResponse, error)
	batch  func(ctx context.Context, texts []string) (*genai.BatchEmbedContentsResponse, error)
}

// NewGoogleModel 创建 GoogleModel。
func NewGoogleModel(apiKey, modelName string) (*GoogleModel, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	em := client.EmbeddingModel(modelName)
	return &GoogleModel{
		name: modelName,
		single: func(ctx context.Context, text string) (*genai.EmbedContentResponse, error) {
			return em.EmbedContent(ctx, genai.Text(text))
		},
		batch: func(ctx context.Context, texts []string) (*genai.BatchEmbedContentsResponse, error) {
			b := em.NewBatch()
			for _, text := range texts {
				b.AddContent(genai.Text(text))
			}
			return em.BatchEmbedContents(ctx, b)
		},
	}, nil
}

func (m *GoogleModel) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := m.single(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("gemini embed %s: %w", m.name, err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, nil
	}
	return res.Embedding.Values, nil
}

func (m *GoogleModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	res, err := m.batch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed %s: %w", m.name, err)
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, fmt.Errorf("gemini batch embed %s: expected %d vectors, got %d", m.name, len(texts), got)
	}
	out := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if emb != nil && len(emb.Values) > 0 {
			out[i] = emb.Values
		}
	}
	return out, nil
}
