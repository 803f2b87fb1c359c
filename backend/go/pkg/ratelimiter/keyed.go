package ratelimiter

import (
	"Synapse/backend/go/pkg/util"
)

// KeyedLimiter 为每个 key（通常是用户 ID）维护一个独立的限流器。
// 限流器保存在 LRU 中，长期不活跃的 key 会被淘汰。
type KeyedLimiter struct {
	factory func() RateLimiter
	cache   *util.LRUCache[string, RateLimiter]
}

// NewKeyedLimiter 创建一个按 key 限流的限流器，最多同时跟踪 maxKeys 个 key。
func NewKeyedLimiter(maxKeys int, factory func() RateLimiter) (*KeyedLimiter, error) {
	cache, err := util.NewWithConfig(util.CacheConfig[string, RateLimiter]{Capacity: maxKeys})
	if err != nil {
		return nil, err
	}
	return &KeyedLimiter{factory: factory, cache: cache}, nil
}

// AllowKey 判断 key 对应的请求是否放行。
func (k *KeyedLimiter) AllowKey(key string) bool {
	limiter := k.cache.GetOrCreate(key, k.factory)
	return limiter.Allow()
}
