package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Synapse/backend/go/internal/models"
)

// ErrDimensionMismatch 表示模型返回的向量维度与约定的维度不一致。
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// FixedDimension 包装一个 Embedding，保证它产出的所有向量维度一致。
// 维度可以预先配置；为 0 时由第一次成功的调用确定。
// 模型返回空向量时结果为 nil，调用方据此把卡片视为不可聚类；
// 其余失败都会转换为 EmbeddingFailed。
type FixedDimension struct {
	inner   Embedding
	timeout time.Duration

	mu  sync.RWMutex
	dim int
}

// NewFixedDimension 创建一个固定维度的 Embedding。
func NewFixedDimension(inner Embedding, dim int, timeout time.Duration) *FixedDimension {
	return &FixedDimension{inner: inner, dim: dim, timeout: timeout}
}

// Dimension 返回当前约定的维度，尚未确定时为 0。
func (f *FixedDimension) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dim
}

// Embed 为单个文本生成嵌入向量。空结果返回 (nil, nil)。
func (f *FixedDimension) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	vec, err := f.inner.Embed(ctx, text)
	if err != nil {
		return nil, models.NewPipelineError(models.KindEmbeddingFailed, "embed", err)
	}
	if len(vec) == 0 {
		return nil, nil
	}
	if err := f.check(vec); err != nil {
		return nil, models.NewPipelineError(models.KindEmbeddingFailed, "embed", err)
	}
	return vec, nil
}

// EmbedBatch 为一批文本生成嵌入向量；空向量对应位置为 nil，
// 维度不合格则整批失败。
func (f *FixedDimension) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	vecs, err := f.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, models.NewPipelineError(models.KindEmbeddingFailed, "embed_batch", err)
	}
	if len(vecs) != len(texts) {
		return nil, models.NewPipelineError(models.KindEmbeddingFailed, "embed_batch",
			fmt.Errorf("expected %d vectors, got %d", len(texts), len(vecs)))
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		if len(v) == 0 {
			continue
		}
		if err := f.check(v); err != nil {
			return nil, models.NewPipelineError(models.KindEmbeddingFailed, "embed_batch",
				fmt.Errorf("vector %d: %w", i, err))
		}
		out[i] = v
	}
	return out, nil
}

func (f *FixedDimension) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}

// check 校验非空向量的维度；第一次遇到合法向量时记录维度。
func (f *FixedDimension) check(vec []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dim == 0 {
		f.dim = len(vec)
		return nil
	}
	if len(vec) != f.dim {
		return fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, f.dim, len(vec))
	}
	return nil
}
