package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/circuitbreaker"
	"Synapse/backend/go/pkg/logger"
)

// Generator 是卡片流水线使用的最小文本生成接口。
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyResponse 表示模型返回了空文本。
var ErrEmptyResponse = errors.New("empty response from model")

// GuardedGenerator 把任意 LLM 适配为 Generator：
// 每次调用带超时，可选地经过熔断器，失败统一转换为 GenerationFailed。
// 不做自动重试。
type GuardedGenerator struct {
	model   LLM
	timeout time.Duration
	breaker circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

// NewGenerator 创建 GuardedGenerator。breaker 可以为 nil。
func NewGenerator(model LLM, timeout time.Duration, breaker circuitbreaker.CircuitBreaker, log *logger.Logger) *GuardedGenerator {
	return &GuardedGenerator{
		model:   model,
		timeout: timeout,
		breaker: breaker,
		log:     log,
	}
}

// Generate 发送 prompt 并返回去除首尾空白后的文本。
func (g *GuardedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	call := func() (interface{}, error) {
		resp, err := g.model.GenerateContent(ctx, models.NewTextRequest(prompt))
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return nil, ErrEmptyResponse
		}
		return text, nil
	}

	var (
		out interface{}
		err error
	)
	if g.breaker != nil {
		out, err = g.breaker.Execute(call)
	} else {
		out, err = call()
	}
	if err != nil {
		g.log.WithErr(err).WithPayload(map[string]interface{}{"prompt_chars": len(prompt)}).Warn("text generation failed")
		return "", models.NewPipelineError(models.KindGenerationFailed, "generate", err)
	}
	return out.(string), nil
}
