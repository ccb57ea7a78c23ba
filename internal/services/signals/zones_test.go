package signals

import (
	"testing"

	"SignalEngine/internal/domain/models"
)

func camarillaSnap(price float64) models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		Price:     price,
		Pivots:    models.PivotLevels{Pivot: 100},
		Camarilla: models.CamarillaLevels{H3: 105, H4: 110, L3: 95, L4: 90},
	}
}

func TestClassifyCamarilla(t *testing.T) {
	th := DefaultZoneThresholds()
	cases := []struct {
		name  string
		price float64
		want  models.CamarillaZone
	}{
		{"above h4", 111, models.CamBreakoutUp},
		{"below l4", 89, models.CamBreakdown},
		{"at h3", 105, models.CamSellZone},
		{"between h3 and h4", 108, models.CamSellZone},
		{"at l3", 95, models.CamBuyZone},
		{"core", 100.05, models.CamRangeBound},
		{"upper half", 102, models.CamNeutralHigh},
		{"lower half", 98, models.CamNeutralLow},
	}
	for _, tc := range cases {
		if got := ClassifyCamarilla(camarillaSnap(tc.price), th); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestClassifyCamarillaUsesCPRBandAsCore(t *testing.T) {
	th := DefaultZoneThresholds()
	s := camarillaSnap(100.9)
	s.CPR = models.CPRLevels{TC: 101, BC: 99}
	if got := ClassifyCamarilla(s, th); got != models.CamRangeBound {
		t.Fatalf("expected RANGE_BOUND inside cpr, got %s", got)
	}
	s.Price = 101.5
	if got := ClassifyCamarilla(s, th); got != models.CamNeutralHigh {
		t.Fatalf("expected NEUTRAL_HIGH above cpr, got %s", got)
	}
}

func TestClassifyCamarillaFallbacks(t *testing.T) {
	th := DefaultZoneThresholds()
	s := models.IndicatorSnapshot{Price: 100, Camarilla: models.CamarillaLevels{H4: 110, ZoneHint: models.CamBuyZone}}
	if got := ClassifyCamarilla(s, th); got != models.CamBuyZone {
		t.Fatalf("expected hint, got %s", got)
	}
	if got := ClassifyCamarilla(models.IndicatorSnapshot{}, th); got != models.CamRangeBound {
		t.Fatalf("expected RANGE_BOUND fallback, got %s", got)
	}
}

func TestClassifyCPR(t *testing.T) {
	th := DefaultZoneThresholds()
	cases := []struct {
		width float64
		want  models.CPRClass
	}{
		{0, models.CPRUnknown},
		{0.2, models.CPRNarrow},
		{0.3, models.CPRWide},
		{0.8, models.CPRWide},
	}
	for _, tc := range cases {
		s := models.IndicatorSnapshot{CPR: models.CPRLevels{WidthPercent: tc.width}}
		if got := ClassifyCPR(s, th); got != tc.want {
			t.Errorf("width %v: got %s, want %s", tc.width, got, tc.want)
		}
	}
}

func TestClassifyPivot(t *testing.T) {
	levels := models.PivotLevels{Pivot: 24500, R3: 24800, S3: 24200}
	cases := []struct {
		name   string
		price  float64
		levels models.PivotLevels
		want   models.PivotZone
	}{
		{"between pivot and r3", 24550, levels, models.PivotBetweenPivotR3},
		{"at pivot", 24500, levels, models.PivotBetweenPivotR3},
		{"above r3", 24900, levels, models.PivotAboveR3},
		{"between s3 and pivot", 24300, levels, models.PivotBetweenS3Pivot},
		{"below s3", 24100, levels, models.PivotBelowS3},
		{"no pivot", 24550, models.PivotLevels{R3: 24800}, models.PivotUnknown},
		{"r3 missing", 30000, models.PivotLevels{Pivot: 24500}, models.PivotBetweenPivotR3},
	}
	for _, tc := range cases {
		s := models.IndicatorSnapshot{Price: tc.price, Pivots: tc.levels}
		if got := ClassifyPivot(s); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestClassifyOIProfile(t *testing.T) {
	th := DefaultZoneThresholds()
	cases := []struct {
		name   string
		pcr    float64
		px, oi float64
		hint   models.OIProfile
		want   models.OIProfile
	}{
		{"put wall", 1.65, -2, 5, "", models.OIPCRExtremeBull},
		{"call wall", 0.45, 2, -5, "", models.OIPCRExtremeBear},
		{"long buildup", 1.0, 0.5, 3, "", models.OILongBuildup},
		{"short covering", 1.0, 0.5, -3, "", models.OIShortCovering},
		{"short buildup", 1.0, -0.5, 3, "", models.OIShortBuildup},
		{"long unwinding", 1.0, -0.5, -3, "", models.OILongUnwinding},
		{"hint", 1.0, 0, 0, models.OIShortCovering, models.OIShortCovering},
		{"nothing", 0, 0, 0, "", models.OINeutral},
	}
	for _, tc := range cases {
		s := models.IndicatorSnapshot{
			ChangePercent: tc.px,
			OI:            models.OpenInterest{PCR: tc.pcr, ChangePercent: tc.oi, ProfileHint: tc.hint},
		}
		if got := ClassifyOIProfile(s, th); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestExtremePCRIgnoresPriceZone(t *testing.T) {
	th := DefaultZoneThresholds()
	for _, price := range []float64{80, 95, 100, 105, 120} {
		s := camarillaSnap(price)
		s.OI.PCR = 1.65
		if got := ClassifyOIProfile(s, th); got != models.OIPCRExtremeBull {
			t.Fatalf("price %v: expected PCR_EXTREME_BULL, got %s", price, got)
		}
	}
}

func TestClassifyPCRLadder(t *testing.T) {
	th := DefaultZoneThresholds()
	cases := []struct {
		pcr  float64
		want models.PCRTier
	}{
		{0, models.PCRNeutral},
		{0.5, models.PCRExtremeBearish},
		{0.6, models.PCRBearish},
		{0.8, models.PCRMildBearish},
		{1.0, models.PCRNeutral},
		{1.1, models.PCRNeutral},
		{1.2, models.PCRMildBullish},
		{1.4, models.PCRBullish},
		{1.6, models.PCRExtremeBullish},
	}
	prev := -4
	for _, tc := range cases {
		got := ClassifyPCR(models.IndicatorSnapshot{OI: models.OpenInterest{PCR: tc.pcr}}, th)
		if got != tc.want {
			t.Errorf("pcr %v: got %s, want %s", tc.pcr, got, tc.want)
		}
		if tc.pcr > 0 {
			if got.Score() < prev {
				t.Errorf("pcr %v: ladder not monotonic", tc.pcr)
			}
			prev = got.Score()
		}
	}
}

func candleSnap(o, h, l, c, vr float64) models.IndicatorSnapshot {
	return models.IndicatorSnapshot{Price: c, Open: o, High: h, Low: l, Close: c, VolumeRatio: vr}
}

func TestClassifyCandle(t *testing.T) {
	th := DefaultZoneThresholds()
	cases := []struct {
		name string
		snap models.IndicatorSnapshot
		want models.CandleQuality
	}{
		{"bullish fake spike", candleSnap(100, 110, 100, 102.5, 3.2), models.CandleFakeSpike},
		{"bearish fake spike", candleSnap(102.5, 110, 100, 100, 3.2), models.CandleFakeSpike},
		{"doji", candleSnap(100, 110, 100, 100.5, 1), models.CandleDoji},
		{"no range", candleSnap(100, 100, 100, 100, 1), models.CandleDoji},
		{"strong buy", candleSnap(100, 110, 100, 107, 1.5), models.CandleStrongBuy},
		{"strong sell", candleSnap(107, 110, 100, 100, 1.5), models.CandleStrongSell},
		{"big body thin volume", candleSnap(100, 110, 100, 107, 1.0), models.CandleWeakBuy},
		{"weak buy", candleSnap(100, 110, 100, 103, 2.0), models.CandleWeakBuy},
		{"weak sell", candleSnap(103, 110, 100, 100, 2.0), models.CandleWeakSell},
		{"high volume solid body", candleSnap(100, 110, 100, 105, 2.6), models.CandleWeakBuy},
		{"missing open", candleSnap(0, 110, 100, 107, 1.5), models.CandleDoji},
		{"missing low", candleSnap(100, 110, 0, 107, 1.5), models.CandleDoji},
		{"no geometry on spike volume", models.IndicatorSnapshot{Price: 24550, Close: 24550, VolumeRatio: 3}, models.CandleDoji},
	}
	for _, tc := range cases {
		if got := ClassifyCandle(tc.snap, th); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestZonePosition(t *testing.T) {
	cases := []struct {
		classifier string
		value      string
		pos        int
		known      bool
	}{
		{models.ClassifierCamarilla, string(models.CamBreakoutUp), 3, true},
		{models.ClassifierCamarilla, string(models.CamNeutralLow), -1, true},
		{models.ClassifierCamarilla, string(models.CamRangeBound), 0, true},
		{models.ClassifierPivot, string(models.PivotBetweenS3Pivot), -2, true},
		{models.ClassifierPivot, string(models.PivotUnknown), 0, false},
		{"other", "X", 0, false},
	}
	for _, tc := range cases {
		pos, known := zonePosition(tc.classifier, tc.value)
		if pos != tc.pos || known != tc.known {
			t.Errorf("%s/%s: got (%d,%v), want (%d,%v)", tc.classifier, tc.value, pos, known, tc.pos, tc.known)
		}
	}
}
