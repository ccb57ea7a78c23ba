package signals

import (
	"math"

	"SignalEngine/internal/domain/models"
	"SignalEngine/pkg/util"
)

// payload is a loosely typed JSON object with alias-aware accessors.
type payload map[string]interface{}

func (p payload) value(keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := p[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// group returns the first nested object found under keys, or nil.
func (p payload) group(keys ...string) payload {
	for _, k := range keys {
		switch m := p[k].(type) {
		case map[string]interface{}:
			return payload(m)
		case models.RawSnapshot:
			return payload(m)
		}
	}
	return nil
}

func (p payload) num(keys ...string) float64 {
	if v, ok := p.value(keys...); ok {
		return util.ParseFloatLoose(v)
	}
	return 0
}

func (p payload) token(keys ...string) string {
	for _, k := range keys {
		if t := util.Token(p[k]); t != "" {
			return t
		}
	}
	return ""
}

// firstNonZero picks the first non-zero reading, in order of preference.
func firstNonZero(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

// Normalize converts an indicator payload into a fully populated snapshot.
// It never fails: absent or malformed numbers read as 0, RSI defaults to 50,
// trends to NEUTRAL, strength to WEAK and status to OFFLINE.
func Normalize(raw models.RawSnapshot) models.IndicatorSnapshot {
	root := payload(raw)
	candle := root.group("candle", "ohlc")

	s := models.IndicatorSnapshot{
		Symbol:        symbolOf(root),
		Price:         root.num("price", "ltp", "lastPrice", "last_price", "spot", "spotPrice", "spot_price"),
		Open:          firstNonZero(root.num("open"), candle.num("open", "o")),
		High:          firstNonZero(root.num("high"), candle.num("high", "h")),
		Low:           firstNonZero(root.num("low"), candle.num("low", "l")),
		Close:         firstNonZero(root.num("close"), candle.num("close", "c")),
		ChangePercent: root.num("changePercent", "change_percent", "pChange", "percentChange", "percent_change"),
		Volume:        firstNonZero(root.num("volume", "vol"), candle.num("volume", "v")),
		VolumeRatio:   root.num("volumeRatio", "volume_ratio", "relativeVolume", "relative_volume"),
		RSI:           firstNonZero(root.num("rsi", "RSI"), 50),
		Status:        parseStatus(root.token("status", "dataStatus", "data_status", "source")),
	}
	if s.Close == 0 {
		s.Close = s.Price
	}
	if s.Price == 0 {
		s.Price = s.Close
	}

	s.Pivots = normalizePivots(root)
	s.Camarilla = normalizeCamarilla(root)
	s.CPR = normalizeCPR(root, s.Pivots.Pivot)
	s.Trend = normalizeTrend(root)
	s.OI = normalizeOI(root)
	return s
}

func symbolOf(root payload) string {
	for _, k := range []string{"symbol", "name", "index", "instrument"} {
		if v, ok := root[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func normalizePivots(root payload) models.PivotLevels {
	pv := root.group("pivots", "pivotLevels", "pivot_levels", "classic")
	level := func(keys ...string) float64 {
		return firstNonZero(pv.num(keys...), root.num(keys...))
	}
	return models.PivotLevels{
		Pivot: level("pivot", "pp", "p"),
		R1:    level("r1", "R1"),
		R2:    level("r2", "R2"),
		R3:    level("r3", "R3"),
		S1:    level("s1", "S1"),
		S2:    level("s2", "S2"),
		S3:    level("s3", "S3"),
	}
}

func normalizeCamarilla(root payload) models.CamarillaLevels {
	cam := root.group("camarilla", "camarillaLevels", "camarilla_levels")
	level := func(keys ...string) float64 {
		return firstNonZero(cam.num(keys...), root.num(keys...))
	}
	c := models.CamarillaLevels{
		H3: level("h3", "H3"),
		H4: level("h4", "H4"),
		L3: level("l3", "L3"),
		L4: level("l4", "L4"),
	}
	hint := models.CamarillaZone(cam.token("zone", "zoneHint", "zone_hint"))
	if hint == "" {
		hint = models.CamarillaZone(root.token("camarillaZone", "camarilla_zone"))
	}
	if hint.Valid() {
		c.ZoneHint = hint
	}
	return c
}

func normalizeCPR(root payload, pivot float64) models.CPRLevels {
	g := root.group("cpr", "centralPivotRange", "central_pivot_range")
	c := models.CPRLevels{
		TC:           firstNonZero(g.num("tc", "TC", "topCentral", "top_central"), root.num("tc", "cpr_tc", "cprTc")),
		BC:           firstNonZero(g.num("bc", "BC", "bottomCentral", "bottom_central"), root.num("bc", "cpr_bc", "cprBc")),
		Pivot:        firstNonZero(g.num("pivot", "pp", "p"), pivot),
		Width:        firstNonZero(g.num("width"), root.num("cprWidth", "cpr_width")),
		WidthPercent: firstNonZero(g.num("widthPercent", "width_percent", "widthPct", "width_pct"), root.num("cprWidthPercent", "cpr_width_percent")),
	}
	if c.Width == 0 && c.TC != 0 && c.BC != 0 {
		c.Width = math.Abs(c.TC - c.BC)
	}
	if c.WidthPercent == 0 && c.Width > 0 && c.Pivot > 0 {
		c.WidthPercent = c.Width / c.Pivot * 100
	}
	return c
}

func normalizeTrend(root payload) models.TrendFilters {
	g := root.group("trend", "trends", "trendFilters")
	pick := func(nested []string, flat ...string) string {
		if t := g.token(nested...); t != "" {
			return t
		}
		return root.token(flat...)
	}
	dist := firstNonZero(
		g.num("emaDistancePercent", "ema_distance_percent", "distancePercent", "distance_percent"),
		root.num("emaDistancePercent", "ema_distance_percent"),
	)
	return models.TrendFilters{
		EMA:                parseTrend(pick([]string{"ema", "emaTrend", "ema_trend"}, "emaTrend", "ema_trend", "ema")),
		Supertrend:         parseTrend(pick([]string{"supertrend", "superTrend", "super_trend"}, "supertrend", "superTrend", "super_trend", "supertrendTrend")),
		Strength:           parseStrength(pick([]string{"strength", "trendStrength", "trend_strength"}, "trendStrength", "trend_strength")),
		EMADistancePercent: dist,
	}
}

func normalizeOI(root payload) models.OpenInterest {
	g := root.group("oi", "openInterest", "open_interest", "options")
	o := models.OpenInterest{
		CallOI:        firstNonZero(g.num("callOI", "callOi", "call_oi", "ceOI", "ce_oi"), root.num("callOI", "callOi", "call_oi")),
		PutOI:         firstNonZero(g.num("putOI", "putOi", "put_oi", "peOI", "pe_oi"), root.num("putOI", "putOi", "put_oi")),
		PCR:           firstNonZero(g.num("pcr", "PCR"), root.num("pcr", "PCR")),
		ChangePercent: firstNonZero(g.num("changePercent", "change_percent", "oiChangePercent", "oi_change_percent"), root.num("oiChangePercent", "oi_change_percent")),
	}
	if o.PCR == 0 && o.CallOI > 0 && o.PutOI > 0 {
		o.PCR = o.PutOI / o.CallOI
	}
	hint := models.OIProfile(g.token("profile", "oiProfile", "oi_profile"))
	if hint == "" {
		hint = models.OIProfile(root.token("oiProfile", "oi_profile"))
	}
	if hint.Valid() {
		o.ProfileHint = hint
	}
	return o
}

func parseTrend(t string) models.Trend {
	switch t {
	case "BULLISH", "BULL", "UP", "UPTREND", "BUY", "LONG", "POSITIVE":
		return models.TrendBullish
	case "BEARISH", "BEAR", "DOWN", "DOWNTREND", "SELL", "SHORT", "NEGATIVE":
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}

func parseStrength(t string) models.TrendStrength {
	switch t {
	case "STRONG", "VERY_STRONG":
		return models.StrengthStrong
	case "MODERATE", "MEDIUM":
		return models.StrengthModerate
	default:
		return models.StrengthWeak
	}
}

func parseStatus(t string) models.DataStatus {
	switch t {
	case "LIVE", "REALTIME", "REAL_TIME", "OPEN":
		return models.StatusLive
	case "CACHED", "CACHE", "STALE", "DELAYED":
		return models.StatusCached
	default:
		return models.StatusOffline
	}
}
