package util

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// CacheConfig 用于配置LRU缓存的行为。
type CacheConfig[K comparable, V any] struct {
	// Capacity 是缓存的最大元素数量。如果为0，则不限制数量。
	Capacity int
	// MaxWeight 是缓存中所有元素的最大权重总和。如果为0，则不限制权重。
	MaxWeight int
	// TTL 是元素的存活时间。如果为0，则元素永不过期。
	TTL time.Duration
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	weight     int
	expiration time.Time
}

// LRUCache 是一个支持泛型、可配置且线程安全的LRU缓存。
type LRUCache[K comparable, V any] struct {
	config        CacheConfig[K, V]
	ll            *list.List
	cache         map[K]*list.Element
	currentWeight int
	now           func() time.Time
	lock          sync.Mutex
}

// NewWithConfig 使用指定的配置创建一个LRU缓存实例。
func NewWithConfig[K comparable, V any](config CacheConfig[K, V]) (*LRUCache[K, V], error) {
	// 至少要有一个限制条件
	if config.Capacity <= 0 && config.MaxWeight <= 0 {
		return nil, fmt.Errorf("必须设置 Capacity 或 MaxWeight 中的至少一个")
	}
	return &LRUCache[K, V]{
		config: config,
		ll:     list.New(),
		cache:  make(map[K]*list.Element),
		now:    time.Now,
	}, nil
}

// Get 方法根据键获取一个值。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.get(key)
}

// Put 方法向缓存中添加或更新一个键值对，并指定其权重。
// 如果使用基于容量的淘汰，可以为 weight 传入 1。
func (c *LRUCache[K, V]) Put(key K, value V, weight int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.put(key, value, weight)
}

// GetOrCreate 返回已有的值；不存在时调用 create 生成并以权重 1 写入。
// create 在持有锁的情况下执行，不能回调缓存本身。
func (c *LRUCache[K, V]) GetOrCreate(key K, create func() V) V {
	c.lock.Lock()
	defer c.lock.Unlock()
	if v, ok := c.get(key); ok {
		return v
	}
	v := create()
	c.put(key, v, 1)
	return v
}

// Len 返回当前缓存中的条目数量。
func (c *LRUCache[K, V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.ll.Len()
}

// 以下方法假设已持有锁。

func (c *LRUCache[K, V]) get(key K) (V, bool) {
	var zero V
	element, ok := c.cache[key]
	if !ok {
		return zero, false
	}
	e := element.Value.(*entry[K, V])
	// 被动淘汰过期元素
	if c.config.TTL > 0 && c.now().After(e.expiration) {
		c.removeElement(element)
		return zero, false
	}
	c.ll.MoveToFront(element)
	return e.value, true
}

func (c *LRUCache[K, V]) put(key K, value V, weight int) {
	if element, ok := c.cache[key]; ok {
		e := element.Value.(*entry[K, V])
		c.currentWeight += weight - e.weight
		e.weight = weight
		e.value = value
		if c.config.TTL > 0 {
			e.expiration = c.now().Add(c.config.TTL)
		}
		c.ll.MoveToFront(element)
	} else {
		e := &entry[K, V]{key: key, value: value, weight: weight}
		if c.config.TTL > 0 {
			e.expiration = c.now().Add(c.config.TTL)
		}
		c.cache[key] = c.ll.PushFront(e)
		c.currentWeight += weight
	}

	// 一个大的新元素可能需要淘汰多个旧元素
	for c.isOverCapacity() {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}
}

func (c *LRUCache[K, V]) isOverCapacity() bool {
	if c.config.Capacity > 0 && c.ll.Len() > c.config.Capacity {
		return true
	}
	return c.config.MaxWeight > 0 && c.currentWeight > c.config.MaxWeight
}

func (c *LRUCache[K, V]) removeElement(e *list.Element) {
	c.ll.Remove(e)
	ent := e.Value.(*entry[K, V])
	delete(c.cache, ent.key)
	c.currentWeight -= ent.weight
}
