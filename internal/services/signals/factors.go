package signals

import (
	"math"

	"SignalEngine/internal/domain/models"
)

// reading is the per-evaluation view every factor scores against. dir is the
// working hypothesis: +1 long, -1 short, 0 none.
type reading struct {
	snap    models.IndicatorSnapshot
	zones   models.ZoneSet
	primary models.ZoneClassification
	pos     int
	known   bool
	dir     int
}

func newReading(s models.IndicatorSnapshot, zones models.ZoneSet, f models.FamilyConfig) reading {
	primary := primaryZone(zones, f.ZoneSource)
	pos, known := zonePosition(primary.Classifier, primary.Value)
	edge := edgeConfirmed(primary, pos, s.Status, zones.Candle)
	return reading{
		snap:    s,
		zones:   zones,
		primary: primary,
		pos:     pos,
		known:   known,
		dir:     hypothesis(pos, known, edge, zones.CPR, s.Bias()),
	}
}

// hypothesis is the direction the synthesizer would take from the zone:
// extremes and confirmed edges ride, side bands ride on NARROW and fade on
// WIDE, anything else follows the trend bias.
func hypothesis(pos int, known, edge bool, cpr models.CPRClass, bias models.Trend) int {
	if known {
		switch {
		case abs(pos) == 3 || edge:
			return sign(pos)
		case abs(pos) == 2 && cpr == models.CPRNarrow:
			return sign(pos)
		case abs(pos) == 2 && cpr == models.CPRWide:
			return -sign(pos)
		}
	}
	return bias.Sign()
}

// edgeConfirmed reports a Camarilla H3/L3 touch backed by live data and a
// strong candle pushing through it.
func edgeConfirmed(primary models.ZoneClassification, pos int, status models.DataStatus, candle models.CandleQuality) bool {
	if primary.Classifier != models.ClassifierCamarilla || abs(pos) != 2 || status != models.StatusLive {
		return false
	}
	return candleStrong(candle) && candleSign(candle) == sign(pos)
}

func candleSign(c models.CandleQuality) int {
	switch c {
	case models.CandleStrongBuy, models.CandleWeakBuy:
		return 1
	case models.CandleStrongSell, models.CandleWeakSell:
		return -1
	default:
		return 0
	}
}

func candleStrong(c models.CandleQuality) bool {
	return c == models.CandleStrongBuy || c == models.CandleStrongSell
}

type factorFunc func(r reading, w models.FactorWeight) (int, string)

var factorFuncs = map[models.FactorKind]factorFunc{
	models.FactorTrendAgreement: trendAgreement,
	models.FactorTrendStrength:  trendStrength,
	models.FactorDataStatus:     dataStatus,
	models.FactorMomentum:       momentum,
	models.FactorVolumeRatio:    volumeRatio,
	models.FactorVolumeAbsolute: volumeAbsolute,
	models.FactorCandleQuality:  candleQuality,
	models.FactorOIProfile:      oiProfile,
	models.FactorPCRLadder:      pcrLadder,
	models.FactorZoneStrength:   zoneStrength,
	models.FactorCPRClass:       cprClass,
	models.FactorEMAExtension:   emaExtension,
	models.FactorRSI:            rsi,
}

func trendAgreement(r reading, w models.FactorWeight) (int, string) {
	if r.dir == 0 {
		return 0, "no direction"
	}
	e := r.snap.Trend.EMA.Sign() * r.dir
	st := r.snap.Trend.Supertrend.Sign() * r.dir
	switch {
	case e > 0 && st > 0:
		return w.Confirm, "both filters agree"
	case e < 0 && st < 0:
		return -w.Contradict, "both filters oppose"
	case e+st > 0:
		return w.Partial, "one filter agrees"
	case e+st < 0:
		return -w.Partial, "one filter opposes"
	default:
		return 0, "filters mixed or flat"
	}
}

func trendStrength(r reading, w models.FactorWeight) (int, string) {
	b := r.snap.Bias().Sign()
	if r.dir == 0 || b == 0 {
		return 0, "no trend"
	}
	st := r.snap.Trend.Strength
	if b != r.dir {
		if st == models.StrengthStrong {
			return -w.Contradict, "strong trend against"
		}
		return 0, "weak trend against"
	}
	switch st {
	case models.StrengthStrong:
		return w.Confirm, "strong trend"
	case models.StrengthModerate:
		return w.Partial, "moderate trend"
	default:
		return 0, "weak trend"
	}
}

func dataStatus(r reading, w models.FactorWeight) (int, string) {
	switch r.snap.Status {
	case models.StatusLive:
		return w.Confirm, "live"
	case models.StatusCached:
		return -w.Partial, "cached"
	default:
		return -w.Contradict, "offline"
	}
}

func momentum(r reading, w models.FactorWeight) (int, string) {
	cp := r.snap.ChangePercent
	if cp == 0 || r.dir == 0 {
		return 0, "no momentum"
	}
	decisive := math.Abs(cp) >= w.Threshold
	if signf(cp) == r.dir {
		if decisive {
			return w.Confirm, "momentum confirms"
		}
		return w.Partial, "mild momentum"
	}
	if decisive {
		return -w.Contradict, "momentum opposes"
	}
	return -w.Partial, "mild momentum against"
}

func volumeRatio(r reading, w models.FactorWeight) (int, string) {
	vr := r.snap.VolumeRatio
	switch {
	case vr <= 0:
		return 0, "no volume ratio"
	case vr >= w.Threshold:
		return w.Confirm, "volume expansion"
	case vr >= 1:
		return w.Partial, "above average volume"
	case vr < w.Floor:
		return -w.Contradict, "thin volume"
	default:
		return 0, "average volume"
	}
}

func volumeAbsolute(r reading, w models.FactorWeight) (int, string) {
	v := r.snap.Volume
	switch {
	case v <= 0:
		return 0, "no volume"
	case v >= w.Threshold:
		return w.Confirm, "volume above threshold"
	case v < w.Floor:
		return -w.Contradict, "volume below floor"
	default:
		return 0, "moderate volume"
	}
}

func candleQuality(r reading, w models.FactorWeight) (int, string) {
	c := r.zones.Candle
	if c == models.CandleFakeSpike {
		return -w.Contradict, "fake spike"
	}
	cs := candleSign(c)
	if r.dir == 0 || cs == 0 {
		return 0, string(c)
	}
	switch {
	case cs == r.dir && candleStrong(c):
		return w.Confirm, "strong candle"
	case cs == r.dir:
		return w.Partial, "weak candle"
	case candleStrong(c):
		return -w.Contradict, "strong candle against"
	default:
		return -w.Partial, "weak candle against"
	}
}

func oiProfile(r reading, w models.FactorWeight) (int, string) {
	p := r.zones.OIProfile
	if r.dir == 0 || p.Sign() == 0 {
		return 0, string(p)
	}
	if p.Sign() == r.dir {
		return w.Confirm, string(p)
	}
	return -w.Contradict, string(p)
}

func pcrLadder(r reading, w models.FactorWeight) (int, string) {
	tier := r.zones.PCR
	sc := tier.Score()
	if r.dir == 0 || abs(sc) < 2 {
		return 0, string(tier)
	}
	if sign(sc) == r.dir {
		if abs(sc) == 3 {
			return w.Confirm, string(tier)
		}
		return w.Partial, string(tier)
	}
	if abs(sc) == 3 {
		return -w.Contradict, string(tier)
	}
	return -w.Partial, string(tier)
}

func zoneStrength(r reading, w models.FactorWeight) (int, string) {
	switch {
	case !r.known:
		return -w.Contradict, "zone unknown"
	case abs(r.pos) == 3:
		return w.Confirm, r.primary.Value
	case abs(r.pos) == 2:
		return w.Partial, r.primary.Value
	default:
		return 0, r.primary.Value
	}
}

func cprClass(r reading, w models.FactorWeight) (int, string) {
	switch r.zones.CPR {
	case models.CPRNarrow:
		return w.Confirm, "narrow cpr"
	case models.CPRWide:
		return w.Partial, "wide cpr"
	default:
		return -w.Contradict, "cpr unknown"
	}
}

func emaExtension(r reading, w models.FactorWeight) (int, string) {
	d := r.snap.Trend.EMADistancePercent
	switch {
	case d == 0:
		return 0, "no ema distance"
	case math.Abs(d) > w.Threshold:
		return -w.Contradict, "overextended from ema"
	case r.dir != 0 && signf(d) == r.dir && math.Abs(d) <= w.Floor:
		return w.Partial, "near ema"
	default:
		return 0, "within ema band"
	}
}

// rsi treats the neutral 50 reading as no evidence.
func rsi(r reading, w models.FactorWeight) (int, string) {
	v := r.snap.RSI
	if r.dir == 0 || v == 50 {
		return 0, "rsi neutral"
	}
	if r.dir > 0 {
		switch {
		case v >= w.Threshold:
			return -w.Contradict, "overbought"
		case v > 50:
			return w.Partial, "rsi supports"
		}
		return 0, "rsi soft"
	}
	switch {
	case v <= 100-w.Threshold:
		return -w.Contradict, "oversold"
	case v < 50:
		return w.Partial, "rsi supports"
	}
	return 0, "rsi soft"
}
