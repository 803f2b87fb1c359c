package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaModel 调用本地 Ollama 的 /api/embed。
type OllamaModel struct {
	client *ollama.Client
	model  string
}

// NewOllamaModel 创建 OllamaModel；baseURL 为空时连接本机默认端口。
func NewOllamaModel(model, baseURL string) (*OllamaModel, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid ollama url %q", baseURL)
	}
	hc := &http.Client{Timeout: 2 * time.Minute}
	return &OllamaModel{client: ollama.NewClient(u, hc), model: model}, nil
}

func (m *OllamaModel) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.embed(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return firstVector(vecs), nil
}

func (m *OllamaModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return m.embed(ctx, texts, len(texts))
}

// embed 发送一次请求。Ollama 对空结果返回空数组，这里补齐为 want 个 nil。
func (m *OllamaModel) embed(ctx context.Context, input interface{}, want int) ([][]float32, error) {
	resp, err := m.client.Embed(ctx, &ollama.EmbedRequest{Model: m.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("ollama embed %s: %w", m.model, err)
	}
	if len(resp.Embeddings) == 0 {
		return make([][]float32, want), nil
	}
	if len(resp.Embeddings) != want {
		return nil, fmt.Errorf("ollama embed %s: expected %d vectors, got %d", m.model, want, len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}
