package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache is a two-level cache (L1: Memory, L2: any Service, usually Redis).
type LayeredCache struct {
	mem    *MemoryCache
	remote Service
	memTTL time.Duration
}

// NewLayeredCache wraps remote with an in-process L1.
func NewLayeredCache(remote Service, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		MemoryTTL:     time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		mem:    NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize), WithMemoryDefaultTTL(cfg.MemoryTTL)),
		remote: remote,
		memTTL: cfg.MemoryTTL,
	}
}

// Set writes through: remote first, then memory.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, value, lc.l1TTL(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	var raw []byte
	if err := lc.mem.Get(ctx, key, &raw); err == nil {
		return decode(raw, dest)
	}

	if err := lc.remote.Get(ctx, key, &raw); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, raw, lc.memTTL)
	return decode(raw, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.mem.Exists(ctx, keys...); ok {
		return true, nil
	}
	return lc.remote.Exists(ctx, keys...)
}

func (lc *LayeredCache) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	_ = lc.mem.Delete(ctx, key)
	return lc.remote.Expire(ctx, key, expiration)
}

// MGet serves what it can from memory and asks remote for the rest.
func (lc *LayeredCache) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	out, _ := lc.mem.MGet(ctx, keys...)

	missing := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := out[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	remote, err := lc.remote.MGet(ctx, missing...)
	if err != nil {
		return nil, err
	}
	for key, val := range remote {
		out[key] = val
		_ = lc.mem.Set(ctx, key, val, lc.memTTL)
	}
	return out, nil
}

// Remote returns the L2 cache.
func (lc *LayeredCache) Remote() Service {
	return lc.remote
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	return errors.Join(lc.mem.Close(), lc.remote.Close())
}

func (lc *LayeredCache) l1TTL(expiration time.Duration) time.Duration {
	if expiration > 0 && expiration < lc.memTTL {
		return expiration
	}
	return lc.memTTL
}
