package signals

import (
	"fmt"

	"SignalEngine/internal/domain/models"
	domsvc "SignalEngine/internal/domain/service"
)

// ErrUnknownFamily is returned when a caller names a family the engine was
// not configured with.
var ErrUnknownFamily = domsvc.ErrUnknownFamily

// Engine evaluates snapshots against a fixed catalog. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	thresholds ZoneThresholds
	predictor  PredictorConfig
	families   map[string]models.FamilyConfig
	order      []string
}

func NewEngine(cat Catalog) *Engine {
	e := &Engine{
		thresholds: cat.Thresholds,
		predictor:  cat.Predictor,
		families:   make(map[string]models.FamilyConfig, len(cat.Families)),
	}
	for _, f := range cat.Families {
		if _, dup := e.families[f.Name]; !dup {
			e.order = append(e.order, f.Name)
		}
		e.families[f.Name] = f
	}
	return e
}

// Normalize exposes the payload normalizer through the engine.
func (e *Engine) Normalize(raw models.RawSnapshot) models.IndicatorSnapshot {
	return Normalize(raw)
}

// Families lists the configured families in catalog order.
func (e *Engine) Families() []models.FamilyConfig {
	out := make([]models.FamilyConfig, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.families[name])
	}
	return out
}

func (e *Engine) HasFamily(name string) bool {
	_, ok := e.families[name]
	return ok
}

// Evaluate runs the full pipeline for one snapshot. prev, when given, only
// decides the stale flag. EvaluatedAt is left for the caller to stamp.
func (e *Engine) Evaluate(symbol, family string, snap models.IndicatorSnapshot, prev *models.IndicatorSnapshot) (models.SignalResult, error) {
	f, ok := e.families[family]
	if !ok {
		return models.SignalResult{}, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}
	if symbol == "" {
		symbol = snap.Symbol
	}

	zones := Classify(snap, e.thresholds)
	r := newReading(snap, zones, f)
	conf := scoreReading(r, f)
	bias := snap.Bias()
	sig := Synthesize(SynthesisInput{
		Zone:       r.primary,
		Bias:       bias,
		Confidence: conf.Value,
		CPR:        zones.CPR,
		Candle:     zones.Candle,
		Status:     snap.Status,
	}, f)

	return models.SignalResult{
		Symbol:         symbol,
		Family:         f.Name,
		Signal:         sig,
		Confidence:     conf.Value,
		Zone:           r.primary.Value,
		ZoneClassifier: r.primary.Classifier,
		Bias:           bias,
		CPRClass:       zones.CPR,
		Zones:          zones,
		Prediction5m:   Predict(snap, zones, e.predictor),
		Factors:        conf.Factors,
		Stale:          prev != nil && snap.SameMarket(*prev),
		Status:         snap.Status,
	}, nil
}

var _ domsvc.SignalEngine = (*Engine)(nil)
