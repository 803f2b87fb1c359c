package llm

import (
	"context"
	"fmt"
	"time"

	"Synapse/backend/go/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于控制客户端的生命周期。
//	model: 要使用的 Gemini 模型名称。
//	apiKey: Gemini API 密钥。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{
		client: client,
		model:  client.GenerativeModel(model),
	}, nil
}

// GenerateContent 向 Gemini API 发送一次性请求并返回响应。
// 与聊天会话不同，这里不会累积历史，两次调用之间互不影响。
func (g *Gemini) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	parts := toGenaiParts(req.Content)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty request")
	}
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, err
	}
	return fromGenaiResponse(resp), nil
}

// Close 释放底层的 gRPC 连接。
func (g *Gemini) Close() error {
	return g.client.Close()
}

// toGenaiParts 将内部 Content 结构体转换为 GenAI Part 切片。
func toGenaiParts(content []models.Content) []genai.Part {
	var parts []genai.Part
	for _, c := range content {
		for _, p := range c.Parts {
			if p != nil && p.Text != "" {
				parts = append(parts, genai.Text(p.Text))
			}
		}
	}
	return parts
}

// fromGenaiResponse 将 GenAI 响应转换为内部响应结构体，只保留文本部分。
func fromGenaiResponse(resp *genai.GenerateContentResponse) *models.GenerateContentResponse {
	if resp == nil {
		return nil
	}
	var content []models.Content
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		var parts []*models.Part
		for _, p := range cand.Content.Parts {
			if text, ok := p.(genai.Text); ok {
				parts = append(parts, &models.Part{Text: string(text)})
			}
		}
		content = append(content, models.Content{
			Parts: parts,
			Role:  models.SpeakerModel,
		})
	}
	return &models.GenerateContentResponse{
		Content:    content,
		CreateTime: time.Now().UTC(),
	}
}
