package signals

import (
	"math"

	"SignalEngine/internal/domain/models"
)

// PredictorConfig holds the momentum buckets of the 5-minute outlook.
type PredictorConfig struct {
	MomentumStrong float64 `yaml:"momentum_strong" json:"momentumStrong" default:"0.5" validate:"gtfield=MomentumMild"`
	MomentumMild   float64 `yaml:"momentum_mild" json:"momentumMild" default:"0.15" validate:"gt=0"`
}

func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{MomentumStrong: 0.5, MomentumMild: 0.15}
}

// Largest possible |score|: zone 3 + cpr 2 + bias 2 + ema 2 + momentum 2.
const predictorMaxScore = 11

// Predict scores the 5-minute outlook. It shares inputs with the signal but
// none of its decisions, so the two may disagree.
func Predict(s models.IndicatorSnapshot, zones models.ZoneSet, cfg PredictorConfig) models.Prediction {
	score := 0

	pos, _ := zonePosition(predictorZone(s, zones))
	score += pos
	if zones.CPR == models.CPRNarrow {
		score += 2 * sign(pos)
	}

	score += 2 * s.Bias().Sign()

	if e := s.Trend.EMA.Sign(); e != 0 {
		score += e
		if signf(s.Trend.EMADistancePercent) == e {
			score += e
		}
	}

	cp := s.ChangePercent
	switch {
	case cp >= cfg.MomentumStrong:
		score += 2
	case cp >= cfg.MomentumMild:
		score++
	case cp <= -cfg.MomentumStrong:
		score -= 2
	case cp <= -cfg.MomentumMild:
		score--
	}

	up := clamp(int(math.Round(50+50*float64(score)/predictorMaxScore)), 5, 95)
	down := 100 - up
	return models.Prediction{
		Direction:       predictionLabel(score),
		Confidence:      max(up, down),
		UpProbability:   up,
		DownProbability: down,
		Score:           score,
		MaxScore:        predictorMaxScore,
	}
}

// predictorZone prefers Camarilla when the snapshot carries its levels or a
// hint, and falls back to the classic pivot partition.
func predictorZone(s models.IndicatorSnapshot, zones models.ZoneSet) (string, string) {
	c := s.Camarilla
	if (c.H3 > 0 && c.L3 > 0) || c.ZoneHint.Valid() {
		return models.ClassifierCamarilla, string(zones.Camarilla)
	}
	return models.ClassifierPivot, string(zones.Pivot)
}

func predictionLabel(score int) models.PredictionLabel {
	switch {
	case score >= 7:
		return models.PredStrongUp
	case score >= 3:
		return models.PredLikelyUp
	case score >= -2:
		return models.PredNeutral
	case score >= -6:
		return models.PredLikelyDown
	default:
		return models.PredStrongDown
	}
}
