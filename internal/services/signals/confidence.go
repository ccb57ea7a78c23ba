package signals

import (
	"SignalEngine/internal/domain/models"
)

// Score runs the family's factor table over one snapshot. The result is the
// clamped sum of the base and every delta; each row is reported even when it
// contributes nothing.
func Score(s models.IndicatorSnapshot, zones models.ZoneSet, f models.FamilyConfig) models.Confidence {
	return scoreReading(newReading(s, zones, f), f)
}

func scoreReading(r reading, f models.FamilyConfig) models.Confidence {
	c := models.Confidence{
		Base:    f.BaseConfidence,
		Min:     f.MinConfidence,
		Max:     f.MaxConfidence,
		Factors: make([]models.FactorContribution, 0, len(f.Factors)),
	}
	raw := f.BaseConfidence
	for _, w := range f.Factors {
		delta, note := 0, "unsupported factor"
		if fn, ok := factorFuncs[w.Kind]; ok {
			delta, note = fn(r, w)
		}
		raw += delta
		c.Factors = append(c.Factors, models.FactorContribution{Factor: string(w.Kind), Delta: delta, Note: note})
	}
	c.Raw = raw
	c.Value = clamp(raw, f.MinConfidence, f.MaxConfidence)
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
