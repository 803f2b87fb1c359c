package embedding

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIModel 调用 OpenAI 兼容服务的 /embeddings。
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel 创建 OpenAIModel；baseURL 为空时使用官方地址。
func NewOpenAIModel(apiKey, modelName, baseURL string) (*OpenAIModel, error) {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(cfg), model: modelName}, nil
}

func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return firstVector(vecs), nil
}

// EmbedBatch 按响应里的 index 放回结果，服务端乱序返回也不会错位。
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := m.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed %s: %w", m.model, err)
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai embed %s: index %d out of range", m.model, d.Index)
		}
		if len(d.Embedding) > 0 {
			out[d.Index] = d.Embedding
		}
	}
	return out, nil
}
