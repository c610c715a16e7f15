package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem[V any] struct {
	value    V
	expireAt time.Time
}

// Memory is an unbounded in-process Store with lazy expiry on read.
type Memory[V any] struct {
	data  map[string]memoryItem[V]
	mutex sync.RWMutex
	now   func() time.Time

	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

// NewMemory creates an in-memory cache.
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	cfg := &MemoryConfig{Now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &Memory[V]{
		data: make(map[string]memoryItem[V]),
		now:  cfg.Now,
		done: make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		mc.cleanupTicker = time.NewTicker(cfg.CleanupInterval)
		go mc.cleanupExpired()
	}
	return mc
}

func (mc *Memory[V]) Get(_ context.Context, key string) (V, error) {
	mc.mutex.RLock()
	item, ok := mc.data[key]
	mc.mutex.RUnlock()

	var zero V
	if !ok {
		return zero, ErrCacheMiss
	}
	if !mc.now().Before(item.expireAt) {
		mc.mutex.Lock()
		if cur, ok := mc.data[key]; ok && !mc.now().Before(cur.expireAt) {
			delete(mc.data, key)
		}
		mc.mutex.Unlock()
		return zero, ErrCacheMiss
	}
	return item.value, nil
}

// TTL returns the remaining lifetime of key, or ErrCacheMiss.
func (mc *Memory[V]) TTL(_ context.Context, key string) (time.Duration, error) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	item, ok := mc.data[key]
	if !ok {
		return 0, ErrCacheMiss
	}
	left := item.expireAt.Sub(mc.now())
	if left <= 0 {
		return 0, ErrCacheMiss
	}
	return left, nil
}

func (mc *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	mc.mutex.Lock()
	mc.data[key] = memoryItem[V]{value: value, expireAt: mc.now().Add(ttl)}
	mc.mutex.Unlock()
	return nil
}

func (mc *Memory[V]) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (mc *Memory[V]) Len() int {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	return len(mc.data)
}

func (mc *Memory[V]) cleanupExpired() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.cleanupTicker.C:
			mc.mutex.Lock()
			now := mc.now()
			for key, item := range mc.data {
				if !now.Before(item.expireAt) {
					delete(mc.data, key)
				}
			}
			mc.mutex.Unlock()
		}
	}
}

// Close stops the cleanup sweep if one is running.
func (mc *Memory[V]) Close() error {
	mc.closeOnce.Do(func() {
		close(mc.done)
		if mc.cleanupTicker != nil {
			mc.cleanupTicker.Stop()
		}
	})
	return nil
}
