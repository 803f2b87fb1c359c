package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Synapse/backend/go/internal/models"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于 Ollama API 的 LLM 客户端。
type Ollama struct {
	client *olla.Client
	model  string
}

// NewOllama 创建一个新的 Ollama 客户端。
// baseURL 为空时默认为 "http://localhost:11434"。
func NewOllama(model, baseURL string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	hc := &http.Client{Timeout: 120 * time.Second}
	return &Ollama{client: olla.NewClient(parsedURL, hc), model: model}, nil
}

// GenerateContent 以非流式方式调用 Generate。
func (o *Ollama) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	var sb strings.Builder
	for _, content := range req.Content {
		for _, part := range content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
	}

	stream := false
	var result olla.GenerateResponse
	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:  o.model,
		Prompt: sb.String(),
		Stream: &stream,
	}, func(resp olla.GenerateResponse) error {
		result = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with ollama: %w", err)
	}

	return &models.GenerateContentResponse{
		Content: []models.Content{{
			Parts: []*models.Part{{Text: result.Response}},
			Role:  models.SpeakerModel,
		}},
		ModelVersion: result.Model,
	}, nil
}
