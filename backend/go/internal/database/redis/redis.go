package redis

import (
	"context"
	"fmt"

	"Synapse/backend/go/internal/config"
	"Synapse/backend/go/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// Connect 创建 Redis 客户端并 Ping 确认可用。
// cfg.Address 为空时返回 (nil, nil)，表示未启用 Redis。
func Connect(ctx context.Context, cfg *config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("无法连接到 Redis: %w", err)
	}
	log.WithField("address", cfg.Address).Info("成功连接到 Redis")
	return rdb, nil
}
