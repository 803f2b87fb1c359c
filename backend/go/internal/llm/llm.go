package llm

import (
	"context"
	"fmt"

	"Synapse/backend/go/internal/config"
	"Synapse/backend/go/internal/models"
)

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
// 每次调用都是无状态的，不保留对话历史。
type LLM interface {
	GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error)
}

// NewClient 是一个工厂函数，根据配置中的 provider 创建对应的 LLM 客户端。
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "gemini":
		if cfg.Gemini.Model == "" {
			return nil, fmt.Errorf("no model configured for gemini provider")
		}
		return NewGemini(ctx, cfg.Gemini.Model, cfg.Gemini.APIKey)
	case "openai":
		if cfg.OpenAI.Model == "" {
			return nil, fmt.Errorf("no model configured for openai provider")
		}
		return NewOpenAI(cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	case "ollama":
		return NewOllama(cfg.Ollama.Model, cfg.Ollama.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
