package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem[V any] struct {
	Data      V
	ExpiresAt time.Time
}

// Cache 本地 LRU 缓存，条目带 TTL
type Cache[V any] struct {
	lruCache *lru.Cache[string, CacheItem[V]]
	ttl      time.Duration
}

func NewCache[V any](size int, ttl time.Duration) (*Cache[V], error) {
	if size <= 0 {
		size = 1
	}
	l, err := lru.New[string, CacheItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lruCache: l, ttl: ttl}, nil
}

// Set 使用默认 TTL 写入
func (c *Cache[V]) Set(key string, data V) {
	c.SetWithTTL(key, data, c.ttl)
}

func (c *Cache[V]) SetWithTTL(key string, data V, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem[V]{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Get 获取缓存，若不存在或已过期则返回 false
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.lruCache.Get(key)
	if !ok {
		return zero, false
	}

	// 检查过期
	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return zero, false
	}

	return val.Data, true
}

// Delete 删除指定缓存
func (c *Cache[V]) Delete(key string) {
	c.lruCache.Remove(key)
}

func (c *Cache[V]) Len() int {
	return c.lruCache.Len()
}
