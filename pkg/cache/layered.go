package cache

import (
	"context"
	"time"
)

// ttlStore is a Store that can report a value's remaining lifetime.
type ttlStore[V any] interface {
	Store[V]
	GetWithTTL(ctx context.Context, key string) (V, time.Duration, error)
}

// Layered is a two-level cache (L1: Memory, L2: shared store such as Redis).
// L2 failures degrade to L1-only behaviour rather than surfacing.
type Layered[V any] struct {
	l1 *Memory[V]
	l2 ttlStore[V]
}

// NewLayered creates a layered cache.
func NewLayered[V any](l1 *Memory[V], l2 ttlStore[V]) *Layered[V] {
	return &Layered[V]{l1: l1, l2: l2}
}

func (lc *Layered[V]) Get(ctx context.Context, key string) (V, error) {
	if v, err := lc.l1.Get(ctx, key); err == nil {
		return v, nil
	}

	v, ttl, err := lc.l2.GetWithTTL(ctx, key)
	if err != nil {
		var zero V
		return zero, ErrCacheMiss
	}

	// Backfill L1 with the remaining L2 lifetime so TTLs are not extended.
	_ = lc.l1.Set(ctx, key, v, ttl)
	return v, nil
}

func (lc *Layered[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	_ = lc.l1.Set(ctx, key, value, ttl)
	return lc.l2.Set(ctx, key, value, ttl)
}

func (lc *Layered[V]) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}
