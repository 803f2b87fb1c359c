package llm

import (
	"context"
	"fmt"

	"Synapse/backend/go/internal/models"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI 是一个用于 OpenAI 兼容 API 的 LLM 客户端。
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI 创建一个新的 OpenAI 客户端。baseURL 为空时使用官方地址。
func NewOpenAI(model, apiKey, baseURL string) (*OpenAI, error) {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// GenerateContent 使用 Chat Completions 接口生成内容。
func (o *OpenAI) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.toOpenAIRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	var content []models.Content
	for _, choice := range resp.Choices {
		content = append(content, models.Content{
			Parts: []*models.Part{{Text: choice.Message.Content}},
			Role:  models.SpeakerModel,
		})
	}
	return &models.GenerateContentResponse{
		Content:      content,
		ResponseID:   resp.ID,
		ModelVersion: resp.Model,
	}, nil
}

// toOpenAIRequest 将内部请求格式转换为 OpenAI 格式。
func (o *OpenAI) toOpenAIRequest(req *models.GenerateContentRequest) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	for _, content := range req.Content {
		role := openai.ChatMessageRoleUser
		switch content.Role {
		case models.SpeakerSystem:
			role = openai.ChatMessageRoleSystem
		case models.SpeakerModel:
			role = openai.ChatMessageRoleAssistant
		}
		for _, part := range content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    role,
				Content: part.Text,
			})
		}
	}
	return openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}
}
