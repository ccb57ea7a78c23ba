package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	"SignalEngine/pkg/cache"
)

const snapshotKeyPrefix = "snapshot:"

// CacheSnapshotStore keeps the last normalized snapshot per symbol in any
// cache.Service (memory, Redis or layered) with a TTL.
type CacheSnapshotStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheSnapshotStore(c cache.Service, ttl time.Duration) *CacheSnapshotStore {
	return &CacheSnapshotStore{cache: c, ttl: ttl}
}

func (s *CacheSnapshotStore) Previous(ctx context.Context, symbol string) (*models.IndicatorSnapshot, error) {
	var snap models.IndicatorSnapshot
	if err := s.cache.Get(ctx, snapshotKey(symbol), &snap); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot %s: %w", symbol, err)
	}
	return &snap, nil
}

func (s *CacheSnapshotStore) PreviousMany(ctx context.Context, symbols []string) (map[string]models.IndicatorSnapshot, error) {
	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = snapshotKey(sym)
	}

	byKey, err := cache.MGetTyped[models.IndicatorSnapshot](ctx, s.cache, keys...)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	out := make(map[string]models.IndicatorSnapshot, len(byKey))
	for i, sym := range symbols {
		if snap, ok := byKey[keys[i]]; ok {
			out[sym] = snap
		}
	}
	return out, nil
}

func (s *CacheSnapshotStore) Save(ctx context.Context, symbol string, snap models.IndicatorSnapshot) error {
	if err := s.cache.Set(ctx, snapshotKey(symbol), snap, s.ttl); err != nil {
		return fmt.Errorf("save snapshot %s: %w", symbol, err)
	}
	return nil
}

func snapshotKey(symbol string) string {
	return snapshotKeyPrefix + strings.ToUpper(strings.TrimSpace(symbol))
}

var _ domrepo.SnapshotStore = (*CacheSnapshotStore)(nil)
