package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	pkgch "SignalEngine/pkg/clickhouse"
	applogger "SignalEngine/pkg/logger"
)

const (
	resultsTable = "signal_results"
	insertChunk  = 2000
)

const resultsColumns = "evaluated_at, symbol, family, signal, confidence, zone, zone_classifier, bias, cpr_class, status, stale, " +
	"prediction, up_probability, down_probability, prediction_score, prediction_max_score, zones, factors"

const resultsPlaceholders = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

// CHResultStore keeps every SignalResult in a MergeTree table ordered by
// symbol, family and time.
type CHResultStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client, l *applogger.Logger) *CHResultStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHResultStore{
		ch:    ch,
		db:    ch.DB(),
		table: ch.Database() + "." + resultsTable,
		l:     l.Component("result-store"),
	}
}

// SchemaStatements is the idempotent DDL for database.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    evaluated_at         DateTime64(3, 'UTC'),
    symbol               LowCardinality(String),
    family               LowCardinality(String),
    signal               LowCardinality(String),
    confidence           UInt8,
    zone                 LowCardinality(String),
    zone_classifier      LowCardinality(String),
    bias                 LowCardinality(String),
    cpr_class            LowCardinality(String),
    status               LowCardinality(String),
    stale                Bool,
    prediction           LowCardinality(String),
    up_probability       UInt8,
    down_probability     UInt8,
    prediction_score     Int8,
    prediction_max_score UInt8,
    zones                String,
    factors              String
) ENGINE = MergeTree
PARTITION BY toYYYYMM(evaluated_at)
ORDER BY (symbol, family, evaluated_at)
TTL toDateTime(evaluated_at) + INTERVAL 90 DAY`, database, resultsTable),
	}
}

func (s *CHResultStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, SchemaStatements(s.ch.Database()))
}

func (s *CHResultStore) Store(ctx context.Context, r *models.SignalResult) error {
	return s.StoreBatch(ctx, []*models.SignalResult{r})
}

// StoreBatch inserts with multi-row VALUES in chunks to reduce round trips.
func (s *CHResultStore) StoreBatch(ctx context.Context, rs []*models.SignalResult) error {
	for start := 0; start < len(rs); start += insertChunk {
		end := min(start+insertChunk, len(rs))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*18)
		for _, r := range rs[start:end] {
			if r == nil || r.Symbol == "" {
				continue
			}
			row, err := toRow(r)
			if err != nil {
				return err
			}
			values = append(values, resultsPlaceholders)
			args = append(args, row.args()...)
		}
		if len(values) == 0 {
			continue
		}

		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, resultsColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("insert signal results", applogger.Int("rows", len(values)), applogger.Error(err))
			return fmt.Errorf("insert signal results: %w", err)
		}
	}
	return nil
}

func (s *CHResultStore) Query(ctx context.Context, hq models.HistoryQuery) ([]*models.SignalResult, error) {
	start := time.Now()
	q, args := historyQuery(s.table, hq)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query signal results: %w", err)
	}
	defer rows.Close()

	out := make([]*models.SignalResult, 0, hq.Limit)
	for rows.Next() {
		var row resultRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("scan signal result: %w", err)
		}
		r, err := row.result()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("history query",
		applogger.String("symbol", hq.Symbol),
		applogger.String("family", hq.Family),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHResultStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

// Close is a no-op; the pool belongs to the clickhouse client.
func (s *CHResultStore) Close() error {
	return nil
}

func historyQuery(table string, hq models.HistoryQuery) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE symbol = ?", resultsColumns, table)
	args := []interface{}{hq.Symbol}

	if hq.Family != "" {
		b.WriteString(" AND family = ?")
		args = append(args, hq.Family)
	}
	if !hq.From.IsZero() {
		b.WriteString(" AND evaluated_at >= ?")
		args = append(args, hq.From.UTC())
	}
	if !hq.To.IsZero() {
		b.WriteString(" AND evaluated_at <= ?")
		args = append(args, hq.To.UTC())
	}
	b.WriteString(" ORDER BY evaluated_at DESC LIMIT ?")
	args = append(args, hq.Limit)
	return b.String(), args
}

// resultRow mirrors one signal_results row.
type resultRow struct {
	EvaluatedAt     time.Time
	Symbol          string
	Family          string
	Signal          string
	Confidence      uint8
	Zone            string
	ZoneClassifier  string
	Bias            string
	CPRClass        string
	Status          string
	Stale           bool
	Prediction      string
	UpProbability   uint8
	DownProbability uint8
	PredictionScore int8
	PredictionMax   uint8
	Zones           string
	Factors         string
}

func toRow(r *models.SignalResult) (resultRow, error) {
	zones, err := json.Marshal(r.Zones)
	if err != nil {
		return resultRow{}, fmt.Errorf("encode zones: %w", err)
	}
	factors, err := json.Marshal(r.Factors)
	if err != nil {
		return resultRow{}, fmt.Errorf("encode factors: %w", err)
	}
	return resultRow{
		EvaluatedAt:     r.EvaluatedAt.UTC(),
		Symbol:          r.Symbol,
		Family:          r.Family,
		Signal:          string(r.Signal),
		Confidence:      uint8(r.Confidence),
		Zone:            r.Zone,
		ZoneClassifier:  r.ZoneClassifier,
		Bias:            string(r.Bias),
		CPRClass:        string(r.CPRClass),
		Status:          string(r.Status),
		Stale:           r.Stale,
		Prediction:      string(r.Prediction5m.Direction),
		UpProbability:   uint8(r.Prediction5m.UpProbability),
		DownProbability: uint8(r.Prediction5m.DownProbability),
		PredictionScore: int8(r.Prediction5m.Score),
		PredictionMax:   uint8(r.Prediction5m.MaxScore),
		Zones:           string(zones),
		Factors:         string(factors),
	}, nil
}

func (row *resultRow) args() []interface{} {
	return []interface{}{
		row.EvaluatedAt, row.Symbol, row.Family, row.Signal, row.Confidence,
		row.Zone, row.ZoneClassifier, row.Bias, row.CPRClass, row.Status, row.Stale,
		row.Prediction, row.UpProbability, row.DownProbability, row.PredictionScore, row.PredictionMax,
		row.Zones, row.Factors,
	}
}

func (row *resultRow) dest() []interface{} {
	return []interface{}{
		&row.EvaluatedAt, &row.Symbol, &row.Family, &row.Signal, &row.Confidence,
		&row.Zone, &row.ZoneClassifier, &row.Bias, &row.CPRClass, &row.Status, &row.Stale,
		&row.Prediction, &row.UpProbability, &row.DownProbability, &row.PredictionScore, &row.PredictionMax,
		&row.Zones, &row.Factors,
	}
}

// result rebuilds the SignalResult. Prediction confidence is derived, not
// stored.
func (row *resultRow) result() (*models.SignalResult, error) {
	r := &models.SignalResult{
		Symbol:         row.Symbol,
		Family:         row.Family,
		Signal:         models.Signal(row.Signal),
		Confidence:     int(row.Confidence),
		Zone:           row.Zone,
		ZoneClassifier: row.ZoneClassifier,
		Bias:           models.Trend(row.Bias),
		CPRClass:       models.CPRClass(row.CPRClass),
		Status:         models.DataStatus(row.Status),
		Stale:          row.Stale,
		EvaluatedAt:    row.EvaluatedAt,
		Prediction5m: models.Prediction{
			Direction:       models.PredictionLabel(row.Prediction),
			Confidence:      int(max(row.UpProbability, row.DownProbability)),
			UpProbability:   int(row.UpProbability),
			DownProbability: int(row.DownProbability),
			Score:           int(row.PredictionScore),
			MaxScore:        int(row.PredictionMax),
		},
	}
	if row.Zones != "" {
		if err := json.Unmarshal([]byte(row.Zones), &r.Zones); err != nil {
			return nil, fmt.Errorf("decode zones: %w", err)
		}
	}
	if row.Factors != "" {
		if err := json.Unmarshal([]byte(row.Factors), &r.Factors); err != nil {
			return nil, fmt.Errorf("decode factors: %w", err)
		}
	}
	return r, nil
}

var _ domrepo.ResultStore = (*CHResultStore)(nil)
