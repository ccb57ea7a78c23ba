package signals

import (
	"testing"

	"SignalEngine/internal/domain/models"
)

func cam(z models.CamarillaZone) models.ZoneClassification {
	return models.ZoneClassification{Classifier: models.ClassifierCamarilla, Value: string(z)}
}

func piv(z models.PivotZone) models.ZoneClassification {
	return models.ZoneClassification{Classifier: models.ClassifierPivot, Value: string(z)}
}

func TestSynthesizeCPRInversion(t *testing.T) {
	f := family(t, FamilyCamarilla)
	cases := []struct {
		zone   models.ZoneClassification
		narrow models.Signal
		wide   models.Signal
	}{
		{cam(models.CamSellZone), models.SignalBuy, models.SignalSell},
		{cam(models.CamBuyZone), models.SignalSell, models.SignalBuy},
		{piv(models.PivotBetweenPivotR3), models.SignalBuy, models.SignalSell},
		{piv(models.PivotBetweenS3Pivot), models.SignalSell, models.SignalBuy},
	}
	for _, tc := range cases {
		in := SynthesisInput{
			Zone:       tc.zone,
			Bias:       models.TrendNeutral,
			Confidence: 60,
			Candle:     models.CandleDoji,
			Status:     models.StatusCached,
		}
		in.CPR = models.CPRNarrow
		if got := Synthesize(in, f); got != tc.narrow {
			t.Errorf("%s narrow: got %s, want %s", tc.zone.Value, got, tc.narrow)
		}
		in.CPR = models.CPRWide
		if got := Synthesize(in, f); got != tc.wide {
			t.Errorf("%s wide: got %s, want %s", tc.zone.Value, got, tc.wide)
		}
	}
}

func TestSynthesizeRules(t *testing.T) {
	camF := family(t, FamilyCamarilla)
	cases := []struct {
		name string
		in   SynthesisInput
		f    models.FamilyConfig
		want models.Signal
	}{
		{
			name: "narrow ride blocked by opposing bias",
			in:   SynthesisInput{Zone: cam(models.CamSellZone), Bias: models.TrendBearish, Confidence: 70, CPR: models.CPRNarrow},
			f:    camF,
			want: models.SignalNeutral,
		},
		{
			name: "wide fade ignores bias",
			in:   SynthesisInput{Zone: cam(models.CamSellZone), Bias: models.TrendBullish, Confidence: 70, CPR: models.CPRWide},
			f:    camF,
			want: models.SignalSell,
		},
		{
			name: "breakout strong",
			in:   SynthesisInput{Zone: cam(models.CamBreakoutUp), Bias: models.TrendBullish, Confidence: 80, CPR: models.CPRWide},
			f:    camF,
			want: models.SignalStrongBuy,
		},
		{
			name: "breakout below strong threshold",
			in:   SynthesisInput{Zone: cam(models.CamBreakoutUp), Bias: models.TrendBullish, Confidence: 60, CPR: models.CPRWide},
			f:    camF,
			want: models.SignalBuy,
		},
		{
			name: "breakout against bias",
			in:   SynthesisInput{Zone: cam(models.CamBreakoutUp), Bias: models.TrendBearish, Confidence: 80, CPR: models.CPRNarrow},
			f:    camF,
			want: models.SignalNeutral,
		},
		{
			name: "breakdown with flat bias",
			in:   SynthesisInput{Zone: cam(models.CamBreakdown), Bias: models.TrendNeutral, Confidence: 80},
			f:    camF,
			want: models.SignalStrongSell,
		},
		{
			name: "confirmed h3 push",
			in: SynthesisInput{
				Zone: cam(models.CamSellZone), Bias: models.TrendNeutral, Confidence: 80,
				CPR: models.CPRWide, Candle: models.CandleStrongBuy, Status: models.StatusLive,
			},
			f:    camF,
			want: models.SignalStrongBuy,
		},
		{
			name: "unconfirmed h3 push on cached data fades",
			in: SynthesisInput{
				Zone: cam(models.CamSellZone), Bias: models.TrendNeutral, Confidence: 80,
				CPR: models.CPRWide, Candle: models.CandleStrongBuy, Status: models.StatusCached,
			},
			f:    camF,
			want: models.SignalSell,
		},
		{
			name: "confirmed push below strong threshold falls to cpr rule",
			in: SynthesisInput{
				Zone: cam(models.CamSellZone), Bias: models.TrendNeutral, Confidence: 60,
				CPR: models.CPRWide, Candle: models.CandleStrongBuy, Status: models.StatusLive,
			},
			f:    camF,
			want: models.SignalSell,
		},
		{
			name: "core zone",
			in:   SynthesisInput{Zone: cam(models.CamRangeBound), Bias: models.TrendBullish, Confidence: 90, CPR: models.CPRNarrow},
			f:    camF,
			want: models.SignalNeutral,
		},
		{
			name: "mild zone",
			in:   SynthesisInput{Zone: cam(models.CamNeutralHigh), Bias: models.TrendBullish, Confidence: 90, CPR: models.CPRNarrow},
			f:    camF,
			want: models.SignalNeutral,
		},
		{
			name: "unknown pivot uses family label",
			in:   SynthesisInput{Zone: piv(models.PivotUnknown), Bias: models.TrendBullish, Confidence: 90, CPR: models.CPRNarrow},
			f:    family(t, FamilyPivot),
			want: models.SignalSideways,
		},
		{
			name: "unknown cpr",
			in:   SynthesisInput{Zone: cam(models.CamSellZone), Bias: models.TrendBullish, Confidence: 90, CPR: models.CPRUnknown},
			f:    camF,
			want: models.SignalNeutral,
		},
		{
			name: "below action threshold",
			in:   SynthesisInput{Zone: cam(models.CamSellZone), Bias: models.TrendBullish, Confidence: 45, CPR: models.CPRNarrow},
			f:    camF,
			want: models.SignalNeutral,
		},
		{
			name: "cpr family below action threshold waits",
			in:   SynthesisInput{Zone: piv(models.PivotBetweenPivotR3), Bias: models.TrendBullish, Confidence: 52, CPR: models.CPRNarrow},
			f:    family(t, FamilyCPR),
			want: models.SignalWait,
		},
		{
			name: "fake spike caps strong",
			in: SynthesisInput{
				Zone: cam(models.CamBreakoutUp), Bias: models.TrendBullish, Confidence: 90,
				CPR: models.CPRNarrow, Candle: models.CandleFakeSpike, Status: models.StatusLive,
			},
			f:    camF,
			want: models.SignalBuy,
		},
		{
			name: "three level family collapses strong",
			in:   SynthesisInput{Zone: cam(models.CamBreakdown), Bias: models.TrendBearish, Confidence: 90, CPR: models.CPRNarrow},
			f:    family(t, FamilyOptions),
			want: models.SignalSell,
		},
	}
	for _, tc := range cases {
		if got := Synthesize(tc.in, tc.f); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestSynthesizeNeverStrongForThreeLevelFamilies(t *testing.T) {
	f := family(t, FamilyOptions)
	zones := []models.CamarillaZone{
		models.CamBreakoutUp, models.CamSellZone, models.CamNeutralHigh, models.CamRangeBound,
		models.CamNeutralLow, models.CamBuyZone, models.CamBreakdown,
	}
	for _, z := range zones {
		for _, cpr := range []models.CPRClass{models.CPRNarrow, models.CPRWide, models.CPRUnknown} {
			for conf := f.MinConfidence; conf <= f.MaxConfidence; conf += 5 {
				in := SynthesisInput{
					Zone: cam(z), Bias: models.TrendNeutral, Confidence: conf, CPR: cpr,
					Candle: models.CandleStrongBuy, Status: models.StatusLive,
				}
				if got := Synthesize(in, f); got.IsStrong() {
					t.Fatalf("%s/%s/%d: got %s", z, cpr, conf, got)
				}
			}
		}
	}
}
