package signals

import (
	"math"

	"SignalEngine/internal/domain/models"
)

// ZoneThresholds holds every band boundary used by the classifiers.
type ZoneThresholds struct {
	// CPR width below this percentage of the pivot is a NARROW (trend) session.
	CPRNarrowPercent float64 `yaml:"cpr_narrow_percent" json:"cprNarrowPercent" default:"0.3" validate:"gt=0"`
	// Half-width of the Camarilla core band around the pivot when no CPR band is known.
	CoreBandPercent float64 `yaml:"core_band_percent" json:"coreBandPercent" default:"0.1" validate:"gte=0"`

	FakeSpikeVolumeRatio float64 `yaml:"fake_spike_volume_ratio" json:"fakeSpikeVolumeRatio" default:"2.5" validate:"gt=0"`
	FakeSpikeBodyPercent float64 `yaml:"fake_spike_body_percent" json:"fakeSpikeBodyPercent" default:"40" validate:"gt=0,lte=100"`
	DojiBodyPercent      float64 `yaml:"doji_body_percent" json:"dojiBodyPercent" default:"10" validate:"gte=0,lte=100"`
	StrongBodyPercent    float64 `yaml:"strong_body_percent" json:"strongBodyPercent" default:"60" validate:"gtfield=DojiBodyPercent,lte=100"`
	StrongVolumeRatio    float64 `yaml:"strong_volume_ratio" json:"strongVolumeRatio" default:"1.2" validate:"gte=0"`

	// PCR ladder, ascending from call wall to put wall.
	PCRExtremeBear float64 `yaml:"pcr_extreme_bear" json:"pcrExtremeBear" default:"0.5" validate:"gt=0"`
	PCRBear        float64 `yaml:"pcr_bear" json:"pcrBear" default:"0.7" validate:"gtfield=PCRExtremeBear"`
	PCRMildBear    float64 `yaml:"pcr_mild_bear" json:"pcrMildBear" default:"0.9" validate:"gtfield=PCRBear"`
	PCRMildBull    float64 `yaml:"pcr_mild_bull" json:"pcrMildBull" default:"1.1" validate:"gtfield=PCRMildBear"`
	PCRBull        float64 `yaml:"pcr_bull" json:"pcrBull" default:"1.3" validate:"gtfield=PCRMildBull"`
	PCRExtremeBull float64 `yaml:"pcr_extreme_bull" json:"pcrExtremeBull" default:"1.6" validate:"gtfield=PCRBull"`
}

func DefaultZoneThresholds() ZoneThresholds {
	return ZoneThresholds{
		CPRNarrowPercent:     0.3,
		CoreBandPercent:      0.1,
		FakeSpikeVolumeRatio: 2.5,
		FakeSpikeBodyPercent: 40,
		DojiBodyPercent:      10,
		StrongBodyPercent:    60,
		StrongVolumeRatio:    1.2,
		PCRExtremeBear:       0.5,
		PCRBear:              0.7,
		PCRMildBear:          0.9,
		PCRMildBull:          1.1,
		PCRBull:              1.3,
		PCRExtremeBull:       1.6,
	}
}

// Classify runs every classifier over s.
func Classify(s models.IndicatorSnapshot, t ZoneThresholds) models.ZoneSet {
	return models.ZoneSet{
		Camarilla: ClassifyCamarilla(s, t),
		CPR:       ClassifyCPR(s, t),
		Pivot:     ClassifyPivot(s),
		OIProfile: ClassifyOIProfile(s, t),
		Candle:    ClassifyCandle(s, t),
		PCR:       ClassifyPCR(s, t),
	}
}

// ClassifyCamarilla places price among the Camarilla bands. Extremes are
// tested first. Without H3/L3 the payload's hint is used, else RANGE_BOUND.
func ClassifyCamarilla(s models.IndicatorSnapshot, t ZoneThresholds) models.CamarillaZone {
	c, p := s.Camarilla, s.Price
	if c.H3 <= 0 || c.L3 <= 0 || p <= 0 {
		if c.ZoneHint.Valid() {
			return c.ZoneHint
		}
		return models.CamRangeBound
	}
	switch {
	case c.H4 > 0 && p > c.H4:
		return models.CamBreakoutUp
	case c.L4 > 0 && p < c.L4:
		return models.CamBreakdown
	case p >= c.H3:
		return models.CamSellZone
	case p <= c.L3:
		return models.CamBuyZone
	}

	center := firstNonZero(s.CPR.Pivot, s.Pivots.Pivot, (c.H3+c.L3)/2)
	if inCore(s, center, t) {
		return models.CamRangeBound
	}
	if p > center {
		return models.CamNeutralHigh
	}
	return models.CamNeutralLow
}

// inCore reports whether price sits inside the CPR band, or within the core
// percentage of center when TC/BC are unknown.
func inCore(s models.IndicatorSnapshot, center float64, t ZoneThresholds) bool {
	if s.CPR.TC > 0 && s.CPR.BC > 0 {
		lo, hi := math.Min(s.CPR.TC, s.CPR.BC), math.Max(s.CPR.TC, s.CPR.BC)
		return s.Price >= lo && s.Price <= hi
	}
	return math.Abs(s.Price-center) <= center*t.CoreBandPercent/100
}

func ClassifyCPR(s models.IndicatorSnapshot, t ZoneThresholds) models.CPRClass {
	w := s.CPR.WidthPercent
	switch {
	case w <= 0:
		return models.CPRUnknown
	case w < t.CPRNarrowPercent:
		return models.CPRNarrow
	default:
		return models.CPRWide
	}
}

// ClassifyPivot partitions price against S3, pivot and R3. A missing R3 or
// S3 leaves that side unbounded.
func ClassifyPivot(s models.IndicatorSnapshot) models.PivotZone {
	pv, p := s.Pivots, s.Price
	if pv.Pivot <= 0 || p <= 0 {
		return models.PivotUnknown
	}
	switch {
	case pv.R3 > 0 && p > pv.R3:
		return models.PivotAboveR3
	case p >= pv.Pivot:
		return models.PivotBetweenPivotR3
	case pv.S3 > 0 && p < pv.S3:
		return models.PivotBelowS3
	default:
		return models.PivotBetweenS3Pivot
	}
}

// ClassifyOIProfile reads PCR extremes first, then the price/OI change
// quadrant, then the payload's hint.
func ClassifyOIProfile(s models.IndicatorSnapshot, t ZoneThresholds) models.OIProfile {
	pcr := s.OI.PCR
	switch {
	case pcr >= t.PCRExtremeBull:
		return models.OIPCRExtremeBull
	case pcr > 0 && pcr <= t.PCRExtremeBear:
		return models.OIPCRExtremeBear
	}

	px, oi := s.ChangePercent, s.OI.ChangePercent
	switch {
	case px > 0 && oi > 0:
		return models.OILongBuildup
	case px > 0 && oi < 0:
		return models.OIShortCovering
	case px < 0 && oi > 0:
		return models.OIShortBuildup
	case px < 0 && oi < 0:
		return models.OILongUnwinding
	}

	if s.OI.ProfileHint.Valid() {
		return s.OI.ProfileHint
	}
	return models.OINeutral
}

func ClassifyPCR(s models.IndicatorSnapshot, t ZoneThresholds) models.PCRTier {
	pcr := s.OI.PCR
	switch {
	case pcr <= 0:
		return models.PCRNeutral
	case pcr <= t.PCRExtremeBear:
		return models.PCRExtremeBearish
	case pcr < t.PCRBear:
		return models.PCRBearish
	case pcr < t.PCRMildBear:
		return models.PCRMildBearish
	case pcr <= t.PCRMildBull:
		return models.PCRNeutral
	case pcr < t.PCRBull:
		return models.PCRMildBullish
	case pcr < t.PCRExtremeBull:
		return models.PCRBullish
	default:
		return models.PCRExtremeBullish
	}
}

// ClassifyCandle grades the candle body against its range and volume. A
// high-volume candle with a weak body is a FAKE_SPIKE whatever its color.
// Without open, high and low there is nothing to grade and the result is DOJI.
func ClassifyCandle(s models.IndicatorSnapshot, t ZoneThresholds) models.CandleQuality {
	if !s.HasCandle() {
		return models.CandleDoji
	}
	body := s.BodyPercent()
	if s.VolumeRatio > t.FakeSpikeVolumeRatio && body < t.FakeSpikeBodyPercent {
		return models.CandleFakeSpike
	}
	dir := s.CandleDirection()
	if body < t.DojiBodyPercent || dir == 0 {
		return models.CandleDoji
	}
	strong := body >= t.StrongBodyPercent && s.VolumeRatio >= t.StrongVolumeRatio
	switch {
	case strong && dir > 0:
		return models.CandleStrongBuy
	case strong:
		return models.CandleStrongSell
	case dir > 0:
		return models.CandleWeakBuy
	default:
		return models.CandleWeakSell
	}
}

// zonePosition maps a primary zone onto a signed scale: ±3 extreme, ±2 the
// H3/L3 or pivot-to-R3/S3 bands, ±1 mild, 0 core. known is false for UNKNOWN.
func zonePosition(classifier, value string) (pos int, known bool) {
	switch classifier {
	case models.ClassifierCamarilla:
		switch models.CamarillaZone(value) {
		case models.CamBreakoutUp:
			return 3, true
		case models.CamSellZone:
			return 2, true
		case models.CamNeutralHigh:
			return 1, true
		case models.CamRangeBound:
			return 0, true
		case models.CamNeutralLow:
			return -1, true
		case models.CamBuyZone:
			return -2, true
		case models.CamBreakdown:
			return -3, true
		}
	case models.ClassifierPivot:
		switch models.PivotZone(value) {
		case models.PivotAboveR3:
			return 3, true
		case models.PivotBetweenPivotR3:
			return 2, true
		case models.PivotBetweenS3Pivot:
			return -2, true
		case models.PivotBelowS3:
			return -3, true
		}
	}
	return 0, false
}

// primaryZone selects the classification a family reads its signal from.
func primaryZone(zones models.ZoneSet, source string) models.ZoneClassification {
	if source == models.ClassifierPivot {
		return models.ZoneClassification{Classifier: models.ClassifierPivot, Value: string(zones.Pivot)}
	}
	return models.ZoneClassification{Classifier: models.ClassifierCamarilla, Value: string(zones.Camarilla)}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func signf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
