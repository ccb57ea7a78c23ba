package signals

import (
	"math/rand"
	"testing"

	"SignalEngine/internal/domain/models"
)

func family(t *testing.T, name string) models.FamilyConfig {
	t.Helper()
	for _, f := range DefaultFamilies() {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("family %q not found", name)
	return models.FamilyConfig{}
}

func randomSnapshot(r *rand.Rand) models.IndicatorSnapshot {
	level := func() float64 {
		if r.Intn(4) == 0 {
			return 0
		}
		return 50 + r.Float64()*100
	}
	trends := []models.Trend{models.TrendBullish, models.TrendBearish, models.TrendNeutral}
	strengths := []models.TrendStrength{models.StrengthStrong, models.StrengthModerate, models.StrengthWeak}
	statuses := []models.DataStatus{models.StatusLive, models.StatusCached, models.StatusOffline}

	open := level()
	low := open - r.Float64()*5
	high := open + r.Float64()*5
	return models.IndicatorSnapshot{
		Price:         level(),
		Open:          open,
		High:          high,
		Low:           low,
		Close:         low + r.Float64()*(high-low),
		ChangePercent: r.NormFloat64() * 2,
		Volume:        r.Float64() * 200000,
		VolumeRatio:   r.Float64() * 5,
		RSI:           r.Float64() * 100,
		Pivots:        models.PivotLevels{Pivot: level(), R3: level(), S3: level()},
		Camarilla:     models.CamarillaLevels{H3: level(), H4: level(), L3: level(), L4: level()},
		CPR:           models.CPRLevels{TC: level(), BC: level(), WidthPercent: r.Float64()},
		Trend: models.TrendFilters{
			EMA:                trends[r.Intn(3)],
			Supertrend:         trends[r.Intn(3)],
			Strength:           strengths[r.Intn(3)],
			EMADistancePercent: r.NormFloat64() * 2,
		},
		OI: models.OpenInterest{
			PCR:           r.Float64() * 2.5,
			ChangePercent: r.NormFloat64() * 5,
		},
		Status: statuses[r.Intn(3)],
	}
}

func TestScoreIsClampedAdditiveSum(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	th := DefaultZoneThresholds()
	for i := 0; i < 2000; i++ {
		s := randomSnapshot(r)
		zones := Classify(s, th)
		for _, f := range DefaultFamilies() {
			c := Score(s, zones, f)
			if c.Value < f.MinConfidence || c.Value > f.MaxConfidence {
				t.Fatalf("%s: confidence %d outside [%d,%d]", f.Name, c.Value, f.MinConfidence, f.MaxConfidence)
			}
			if len(c.Factors) != len(f.Factors) {
				t.Fatalf("%s: expected %d contributions, got %d", f.Name, len(f.Factors), len(c.Factors))
			}
			sum := c.Base
			for _, fc := range c.Factors {
				sum += fc.Delta
			}
			if sum != c.Raw || clamp(sum, c.Min, c.Max) != c.Value {
				t.Fatalf("%s: audit mismatch base=%d sum=%d raw=%d value=%d", f.Name, c.Base, sum, c.Raw, c.Value)
			}
		}
	}
}

func TestScoreAbsentEvidenceContributesZero(t *testing.T) {
	s := Normalize(nil)
	f := family(t, FamilyCamarilla)
	c := Score(s, Classify(s, DefaultZoneThresholds()), f)

	for _, fc := range c.Factors {
		switch models.FactorKind(fc.Factor) {
		case models.FactorDataStatus:
			if fc.Delta != -8 {
				t.Errorf("offline should cost 8, got %d", fc.Delta)
			}
		case models.FactorCPRClass:
			if fc.Delta != -5 {
				t.Errorf("unknown cpr should cost 5, got %d", fc.Delta)
			}
		default:
			if fc.Delta != 0 {
				t.Errorf("%s: expected zero delta, got %d (%s)", fc.Factor, fc.Delta, fc.Note)
			}
		}
	}
	if c.Value != 32 {
		t.Fatalf("expected 45-8-5=32, got %d", c.Value)
	}
}

func TestScoreMissingCandleContributesZero(t *testing.T) {
	cases := []struct {
		name string
		raw  models.RawSnapshot
	}{
		{"no ohlc on spike volume", models.RawSnapshot{"price": 24550, "volumeRatio": 3.0}},
		{"high and low without open", models.RawSnapshot{"price": 24550, "high": 24600, "low": 24500, "volumeRatio": 1.3}},
	}
	f := family(t, FamilyCandle)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Normalize(tc.raw)
			zones := Classify(s, DefaultZoneThresholds())
			if zones.Candle != models.CandleDoji {
				t.Fatalf("expected DOJI without a candle, got %s", zones.Candle)
			}
			for _, fc := range Score(s, zones, f).Factors {
				if fc.Factor == string(models.FactorCandleQuality) && fc.Delta != 0 {
					t.Fatalf("candle quality should contribute nothing, got %d (%s)", fc.Delta, fc.Note)
				}
			}
		})
	}
}

func TestScorePivotScenarioBreakdown(t *testing.T) {
	s := models.IndicatorSnapshot{
		Price:  24550,
		Close:  24550,
		RSI:    50,
		Pivots: models.PivotLevels{Pivot: 24500, R1: 24600, R3: 24800},
		CPR:    models.CPRLevels{Pivot: 24500, WidthPercent: 0.2},
		Trend: models.TrendFilters{
			EMA:        models.TrendBullish,
			Supertrend: models.TrendBullish,
			Strength:   models.StrengthWeak,
		},
		Status: models.StatusLive,
	}
	c := Score(s, Classify(s, DefaultZoneThresholds()), family(t, FamilyPivot))

	want := map[string]int{
		string(models.FactorTrendAgreement): 18,
		string(models.FactorDataStatus):     4,
		string(models.FactorZoneStrength):   4,
		string(models.FactorCPRClass):       6,
	}
	for _, fc := range c.Factors {
		if fc.Delta != want[fc.Factor] {
			t.Errorf("%s: got %d, want %d", fc.Factor, fc.Delta, want[fc.Factor])
		}
	}
	if c.Value != 72 {
		t.Fatalf("expected 72, got %d", c.Value)
	}
}

func TestScoreClampsAtBounds(t *testing.T) {
	f := models.FamilyConfig{
		BaseConfidence: 50,
		MinConfidence:  30,
		MaxConfidence:  60,
		ZoneSource:     models.ClassifierCamarilla,
		Factors:        []models.FactorWeight{fw(models.FactorDataStatus, 40, 0, 40)},
	}
	live := models.IndicatorSnapshot{Status: models.StatusLive}
	if c := Score(live, models.ZoneSet{}, f); c.Value != 60 || c.Raw != 90 {
		t.Fatalf("expected clamp to 60 from 90, got %d from %d", c.Value, c.Raw)
	}
	off := models.IndicatorSnapshot{Status: models.StatusOffline}
	if c := Score(off, models.ZoneSet{}, f); c.Value != 30 || c.Raw != 10 {
		t.Fatalf("expected clamp to 30 from 10, got %d from %d", c.Value, c.Raw)
	}
}

func TestHypothesis(t *testing.T) {
	cases := []struct {
		name  string
		pos   int
		known bool
		edge  bool
		cpr   models.CPRClass
		bias  models.Trend
		want  int
	}{
		{"breakout rides", 3, true, false, models.CPRWide, models.TrendBearish, 1},
		{"narrow rides upper", 2, true, false, models.CPRNarrow, models.TrendNeutral, 1},
		{"wide fades upper", 2, true, false, models.CPRWide, models.TrendBullish, -1},
		{"wide fades lower", -2, true, false, models.CPRWide, models.TrendNeutral, 1},
		{"confirmed edge rides", 2, true, true, models.CPRWide, models.TrendNeutral, 1},
		{"unknown cpr follows bias", 2, true, false, models.CPRUnknown, models.TrendBearish, -1},
		{"core follows bias", 0, true, false, models.CPRNarrow, models.TrendBullish, 1},
		{"unknown zone follows bias", 0, false, false, models.CPRNarrow, models.TrendNeutral, 0},
	}
	for _, tc := range cases {
		if got := hypothesis(tc.pos, tc.known, tc.edge, tc.cpr, tc.bias); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestFactorsReadDirection(t *testing.T) {
	weight := func(threshold, floor float64) models.FactorWeight {
		return models.FactorWeight{Confirm: 10, Partial: 5, Contradict: 8, Threshold: threshold, Floor: floor}
	}
	long := reading{dir: 1, known: true}

	cases := []struct {
		name string
		fn   factorFunc
		w    models.FactorWeight
		snap models.IndicatorSnapshot
		want int
	}{
		{"one filter agrees", trendAgreement, weight(0, 0), models.IndicatorSnapshot{Trend: models.TrendFilters{EMA: models.TrendBullish}}, 5},
		{"filters oppose", trendAgreement, weight(0, 0), models.IndicatorSnapshot{Trend: models.TrendFilters{EMA: models.TrendBearish, Supertrend: models.TrendBearish}}, -8},
		{"filters conflict", trendAgreement, weight(0, 0), models.IndicatorSnapshot{Trend: models.TrendFilters{EMA: models.TrendBullish, Supertrend: models.TrendBearish}}, 0},
		{"momentum confirms", momentum, weight(0.3, 0), models.IndicatorSnapshot{ChangePercent: 0.5}, 10},
		{"mild momentum", momentum, weight(0.3, 0), models.IndicatorSnapshot{ChangePercent: 0.1}, 5},
		{"momentum opposes", momentum, weight(0.3, 0), models.IndicatorSnapshot{ChangePercent: -0.5}, -8},
		{"volume expansion", volumeRatio, weight(1.5, 0.7), models.IndicatorSnapshot{VolumeRatio: 2}, 10},
		{"thin volume", volumeRatio, weight(1.5, 0.7), models.IndicatorSnapshot{VolumeRatio: 0.5}, -8},
		{"cached", dataStatus, weight(0, 0), models.IndicatorSnapshot{Status: models.StatusCached}, -5},
		{"rsi supports", rsi, weight(70, 0), models.IndicatorSnapshot{RSI: 60}, 5},
		{"overbought", rsi, weight(70, 0), models.IndicatorSnapshot{RSI: 75}, -8},
		{"overextended", emaExtension, weight(1.5, 0.5), models.IndicatorSnapshot{Trend: models.TrendFilters{EMADistancePercent: 2}}, -8},
		{"near ema", emaExtension, weight(1.5, 0.5), models.IndicatorSnapshot{Trend: models.TrendFilters{EMADistancePercent: 0.3}}, 5},
	}
	for _, tc := range cases {
		r := long
		r.snap = tc.snap
		if got, note := tc.fn(r, tc.w); got != tc.want {
			t.Errorf("%s: got %d (%s), want %d", tc.name, got, note, tc.want)
		}
	}
}

func TestVolumeAbsoluteThreshold(t *testing.T) {
	w := fwt(models.FactorVolumeAbsolute, 8, 0, 6, 50000, 10000)
	cases := []struct {
		volume float64
		want   int
	}{
		{0, 0},
		{5000, -6},
		{20000, 0},
		{50000, 8},
	}
	for _, tc := range cases {
		r := reading{snap: models.IndicatorSnapshot{Volume: tc.volume}}
		if got, _ := volumeAbsolute(r, w); got != tc.want {
			t.Errorf("volume %v: got %d, want %d", tc.volume, got, tc.want)
		}
	}
}
