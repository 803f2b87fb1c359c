package embedding

import (
	"fmt"

	"Synapse/backend/go/internal/config"
)

// NewEmdModel 根据指定的提供商、模型、API 密钥和基础 URL 创建一个 Embedding 模型实例。
//
// 参数:
//
//	provider: Embedding 模型的提供商 ("gemini", "openai", "huggingface", "ollama")。
//	model: 要使用的模型名称。
//	apiKey: 模型的 API 密钥。
//	baseURL: 模型的服务基础 URL (可选，某些提供商不需要)。
func NewEmdModel(provider, model, apiKey, baseURL string) (Embedding, error) {
	switch ModelType(provider) {
	case Gemini:
		return NewGoogleModel(apiKey, model)
	case OpenAI:
		return NewOpenAIModel(apiKey, model, baseURL)
	case HuggingFace:
		return NewHuggingFaceModel(apiKey, model, baseURL)
	case Ollama:
		return NewOllamaModel(model, baseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// NewFromConfig 按配置创建模型。
func NewFromConfig(cfg config.EmbeddingConfig) (Embedding, error) {
	return NewEmdModel(cfg.Provider, cfg.Model, cfg.APIKey, cfg.BaseURL)
}
