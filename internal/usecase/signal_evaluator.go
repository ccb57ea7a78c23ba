package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	domsvc "SignalEngine/internal/domain/service"
	applogger "SignalEngine/pkg/logger"
	"SignalEngine/pkg/queue"
	"SignalEngine/pkg/util"

	"golang.org/x/sync/errgroup"
)

// ErrHistoryUnavailable is returned by History when no result store is wired.
var ErrHistoryUnavailable = errors.New("signal history is not enabled")

// Persistence modes. Sync writes before returning, async writes from a
// goroutine, queue defers to the Redis work queue and falls back to sync
// when enqueueing fails.
const (
	PersistSync  = "sync"
	PersistAsync = "async"
	PersistQueue = "queue"
)

type EvaluatorConfig struct {
	DefaultFamily  string
	BatchWorkers   int
	PersistMode    string
	PersistTimeout time.Duration
	HistoryWindow  time.Duration
}

// SignalEvaluator runs the engine around the previous-snapshot store and
// hands results to the history store and the results topic. Store,
// publisher and queue are optional.
type SignalEvaluator struct {
	engine    domsvc.SignalEngine
	snapshots domrepo.SnapshotStore
	results   domrepo.ResultStore
	publisher domrepo.ResultPublisher
	queue     queue.Enqueuer
	metrics   domrepo.Metrics
	log       *applogger.Logger
	cfg       EvaluatorConfig
	now       func() time.Time
	pending   sync.WaitGroup
}

func NewSignalEvaluator(
	engine domsvc.SignalEngine,
	snapshots domrepo.SnapshotStore,
	results domrepo.ResultStore,
	publisher domrepo.ResultPublisher,
	q queue.Enqueuer,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg EvaluatorConfig,
) *SignalEvaluator {
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 1
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 24 * time.Hour
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &SignalEvaluator{
		engine:    engine,
		snapshots: snapshots,
		results:   results,
		publisher: publisher,
		queue:     q,
		metrics:   metrics,
		log:       l.Component("evaluator"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Families lists the configured family tables.
func (uc *SignalEvaluator) Families() []models.FamilyConfig {
	return uc.engine.Families()
}

// Evaluate scores one raw snapshot. The symbol falls back to the one inside
// the snapshot. Snapshot-store and persistence failures are logged, never
// returned: the result is still valid without them.
func (uc *SignalEvaluator) Evaluate(ctx context.Context, symbol, family string, raw models.RawSnapshot) (*models.SignalResult, error) {
	start := time.Now()
	family, err := uc.family(family)
	if err != nil {
		return nil, err
	}

	snap := uc.engine.Normalize(raw)
	symbol = normalizeSymbol(symbol, snap.Symbol)

	var prev *models.IndicatorSnapshot
	if symbol != "" {
		prev, err = uc.snapshots.Previous(ctx, symbol)
		if err != nil {
			uc.warn("snapshot_load", err, symbol)
			prev = nil
		}
	}

	res, err := uc.evaluate(ctx, symbol, family, snap, prev)
	if err != nil {
		return nil, err
	}

	uc.persist(ctx, []*models.SignalResult{res})
	uc.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	return res, nil
}

// EvaluateBatch scores items with at most BatchWorkers goroutines. Results
// come back in request order; a failing item carries its error instead of
// failing the batch.
func (uc *SignalEvaluator) EvaluateBatch(ctx context.Context, family string, items []models.BatchItem) ([]models.BatchResult, error) {
	start := time.Now()
	family, err := uc.family(family)
	if err != nil {
		return nil, err
	}

	snaps := make([]models.IndicatorSnapshot, len(items))
	symbols := make([]string, len(items))
	lookup := make([]string, 0, len(items))
	for i, it := range items {
		snaps[i] = uc.engine.Normalize(it.Snapshot)
		symbols[i] = normalizeSymbol(it.Symbol, snaps[i].Symbol)
		if symbols[i] != "" {
			lookup = append(lookup, symbols[i])
		}
	}

	prevs, err := uc.snapshots.PreviousMany(ctx, lookup)
	if err != nil {
		uc.warn("snapshot_load", err, "")
		prevs = nil
	}

	out := make([]models.BatchResult, len(items))
	var g errgroup.Group
	g.SetLimit(uc.cfg.BatchWorkers)

	for i := range items {
		g.Go(func() error {
			out[i].Symbol = symbols[i]
			if err := ctx.Err(); err != nil {
				out[i].Error = err.Error()
				return nil
			}

			var prev *models.IndicatorSnapshot
			if p, ok := prevs[symbols[i]]; ok {
				prev = &p
			}
			res, err := uc.evaluate(ctx, symbols[i], family, snaps[i], prev)
			if err != nil {
				out[i].Error = err.Error()
				return nil
			}
			out[i].Result = res
			return nil
		})
	}
	_ = g.Wait()

	done := make([]*models.SignalResult, 0, len(out))
	for _, r := range out {
		if r.Result != nil {
			done = append(done, r.Result)
		}
	}
	uc.persist(ctx, done)

	uc.metrics.RecordLatency("evaluate_batch", time.Since(start).Seconds())
	return out, nil
}

// History reads stored results. Missing bounds default to the last
// HistoryWindow.
func (uc *SignalEvaluator) History(ctx context.Context, req models.HistoryRequest) ([]*models.SignalResult, error) {
	if uc.results == nil {
		return nil, ErrHistoryUnavailable
	}
	if req.Family != "" && !uc.engine.HasFamily(req.Family) {
		return nil, fmt.Errorf("%w: %q", domsvc.ErrUnknownFamily, req.Family)
	}

	from, to := util.ParseRange(req.From, req.To, uc.cfg.HistoryWindow, uc.now())
	start := time.Now()
	rs, err := uc.results.Query(ctx, models.HistoryQuery{
		Symbol: normalizeSymbol(req.Symbol, ""),
		Family: req.Family,
		From:   from,
		To:     to,
		Limit:  req.Limit,
	})
	uc.metrics.RecordLatency("history", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("history_query")
		return nil, fmt.Errorf("history: %w", err)
	}
	return rs, nil
}

// Wait blocks until asynchronous persistence has finished or ctx is done.
func (uc *SignalEvaluator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (uc *SignalEvaluator) evaluate(ctx context.Context, symbol, family string, snap models.IndicatorSnapshot, prev *models.IndicatorSnapshot) (*models.SignalResult, error) {
	res, err := uc.engine.Evaluate(symbol, family, snap, prev)
	if err != nil {
		uc.metrics.RecordError("evaluate")
		return nil, err
	}
	res.EvaluatedAt = uc.now().UTC()

	uc.metrics.RecordEvaluation(res.Family, string(res.Signal), res.Confidence)
	if res.Stale {
		uc.metrics.RecordStale(res.Family)
	}

	if symbol != "" {
		if err := uc.snapshots.Save(ctx, symbol, snap); err != nil {
			uc.warn("snapshot_save", err, symbol)
		}
	}
	return &res, nil
}

func (uc *SignalEvaluator) persist(ctx context.Context, rs []*models.SignalResult) {
	if len(rs) == 0 || (uc.results == nil && uc.publisher == nil) {
		return
	}

	switch {
	case uc.cfg.PersistMode == PersistQueue && uc.queue != nil:
		uc.enqueue(ctx, rs)
	case uc.cfg.PersistMode == PersistAsync:
		uc.pending.Add(1)
		go func() {
			defer uc.pending.Done()
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.PersistTimeout)
			defer cancel()
			uc.storeResults(ctx, rs)
			uc.publishResults(ctx, rs)
		}()
	default:
		uc.storeResults(ctx, rs)
		uc.publishResults(ctx, rs)
	}
}

func (uc *SignalEvaluator) enqueue(ctx context.Context, rs []*models.SignalResult) {
	if uc.results != nil {
		if err := uc.queue.Enqueue(ctx, JobStoreResults, rs); err != nil {
			uc.warn("queue_enqueue", err, "")
			uc.storeResults(ctx, rs)
		}
	}
	if uc.publisher != nil {
		if err := uc.queue.Enqueue(ctx, JobPublishResults, rs); err != nil {
			uc.warn("queue_enqueue", err, "")
			uc.publishResults(ctx, rs)
		}
	}
}

func (uc *SignalEvaluator) storeResults(ctx context.Context, rs []*models.SignalResult) {
	if uc.results == nil {
		return
	}
	start := time.Now()
	if err := uc.results.StoreBatch(ctx, rs); err != nil {
		uc.warn("result_store", err, "")
	}
	uc.metrics.RecordLatency("result_store", time.Since(start).Seconds())
}

func (uc *SignalEvaluator) publishResults(ctx context.Context, rs []*models.SignalResult) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishBatch(ctx, rs); err != nil {
		uc.warn("result_publish", err, "")
	}
}

func (uc *SignalEvaluator) family(name string) (string, error) {
	if name == "" {
		name = uc.cfg.DefaultFamily
	}
	if !uc.engine.HasFamily(name) {
		uc.metrics.RecordError("unknown_family")
		return "", fmt.Errorf("%w: %q", domsvc.ErrUnknownFamily, name)
	}
	return name, nil
}

func (uc *SignalEvaluator) warn(kind string, err error, symbol string) {
	uc.metrics.RecordError(kind)
	fields := []applogger.Field{applogger.String("kind", kind), applogger.Error(err)}
	if symbol != "" {
		fields = append(fields, applogger.String("symbol", symbol))
	}
	uc.log.Warn("evaluation side effect failed", fields...)
}

func normalizeSymbol(symbol, fallback string) string {
	if s := strings.ToUpper(strings.TrimSpace(symbol)); s != "" {
		return s
	}
	return strings.ToUpper(strings.TrimSpace(fallback))
}
