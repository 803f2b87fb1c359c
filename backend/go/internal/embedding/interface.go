package embedding

import "context"

// Embedding 把卡片标题等短文本映射为向量。
//
// 模型没有给出向量时返回 (nil, nil)：这不是错误，调用方把对应卡片视为不可聚类。
// 只有请求本身失败（网络、鉴权、响应无法解析）才返回 error。
type Embedding interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch 的结果与 texts 一一对应，没有向量的位置为 nil。
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelType 是 embedding.provider 配置项的取值。
type ModelType string

const (
	Gemini      ModelType = "gemini"
	OpenAI      ModelType = "openai"
	Ollama      ModelType = "ollama"
	HuggingFace ModelType = "huggingface"
)

// firstVector 取单条请求的结果；空结果按“没有向量”处理。
func firstVector(vecs [][]float32) []float32 {
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil
	}
	return vecs[0]
}
