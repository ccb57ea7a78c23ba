package repository

import (
	"context"

	"SignalEngine/internal/domain/models"
)

// SnapshotStore keeps the last snapshot seen per symbol. It only feeds the
// stale flag.
type SnapshotStore interface {
	// Previous returns nil, nil when nothing is stored for symbol.
	Previous(ctx context.Context, symbol string) (*models.IndicatorSnapshot, error)
	// PreviousMany returns the stored snapshots keyed by symbol; missing
	// symbols are absent from the map.
	PreviousMany(ctx context.Context, symbols []string) (map[string]models.IndicatorSnapshot, error)
	Save(ctx context.Context, symbol string, snap models.IndicatorSnapshot) error
}

type ResultStore interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, r *models.SignalResult) error
	StoreBatch(ctx context.Context, rs []*models.SignalResult) error
	Query(ctx context.Context, q models.HistoryQuery) ([]*models.SignalResult, error)
	Health(ctx context.Context) error
	Close() error
}

type ResultPublisher interface {
	Publish(ctx context.Context, r *models.SignalResult) error
	PublishBatch(ctx context.Context, rs []*models.SignalResult) error
	Close() error
}

type Metrics interface {
	RecordEvaluation(family, signal string, confidence int)
	RecordStale(family string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
