package models

// RawSnapshot is an indicator payload as it arrives from the indicator API or
// the snapshots topic: loosely typed, possibly partial.
type RawSnapshot map[string]interface{}

// Trend is the direction reported by an EMA or Supertrend filter.
type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
	TrendNeutral Trend = "NEUTRAL"
)

// Sign returns +1 for bullish, -1 for bearish and 0 otherwise.
func (t Trend) Sign() int {
	switch t {
	case TrendBullish:
		return 1
	case TrendBearish:
		return -1
	default:
		return 0
	}
}

// TrendFromSign maps a direction sign back to a Trend.
func TrendFromSign(s int) Trend {
	switch {
	case s > 0:
		return TrendBullish
	case s < 0:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

type TrendStrength string

const (
	StrengthStrong   TrendStrength = "STRONG"
	StrengthModerate TrendStrength = "MODERATE"
	StrengthWeak     TrendStrength = "WEAK"
)

// DataStatus tells where the snapshot came from.
type DataStatus string

const (
	StatusLive    DataStatus = "LIVE"
	StatusCached  DataStatus = "CACHED"
	StatusOffline DataStatus = "OFFLINE"
)

// PivotLevels holds classic floor pivots. Zero means the level is absent.
type PivotLevels struct {
	Pivot float64 `json:"pivot"`
	R1    float64 `json:"r1"`
	R2    float64 `json:"r2"`
	R3    float64 `json:"r3"`
	S1    float64 `json:"s1"`
	S2    float64 `json:"s2"`
	S3    float64 `json:"s3"`
}

// CamarillaLevels holds the intraday Camarilla bands. Zero means absent.
type CamarillaLevels struct {
	H3       float64       `json:"h3"`
	H4       float64       `json:"h4"`
	L3       float64       `json:"l3"`
	L4       float64       `json:"l4"`
	ZoneHint CamarillaZone `json:"zoneHint,omitempty"`
}

// CPRLevels is the central pivot range of the session.
type CPRLevels struct {
	TC           float64 `json:"tc"`
	BC           float64 `json:"bc"`
	Pivot        float64 `json:"pivot"`
	Width        float64 `json:"width"`
	WidthPercent float64 `json:"widthPercent"`
}

type TrendFilters struct {
	EMA                Trend         `json:"ema"`
	Supertrend         Trend         `json:"supertrend"`
	Strength           TrendStrength `json:"strength"`
	EMADistancePercent float64       `json:"emaDistancePercent"`
}

type OpenInterest struct {
	CallOI        float64   `json:"callOI"`
	PutOI         float64   `json:"putOI"`
	PCR           float64   `json:"pcr"`
	ChangePercent float64   `json:"changePercent"`
	ProfileHint   OIProfile `json:"profileHint,omitempty"`
}

// IndicatorSnapshot is the canonical, fully populated engine input.
type IndicatorSnapshot struct {
	Symbol        string          `json:"symbol"`
	Price         float64         `json:"price"`
	Open          float64         `json:"open"`
	High          float64         `json:"high"`
	Low           float64         `json:"low"`
	Close         float64         `json:"close"`
	ChangePercent float64         `json:"changePercent"`
	Volume        float64         `json:"volume"`
	VolumeRatio   float64         `json:"volumeRatio"`
	RSI           float64         `json:"rsi"`
	Pivots        PivotLevels     `json:"pivots"`
	Camarilla     CamarillaLevels `json:"camarilla"`
	CPR           CPRLevels       `json:"cpr"`
	Trend         TrendFilters    `json:"trend"`
	OI            OpenInterest    `json:"oi"`
	Status        DataStatus      `json:"status"`
}

// HasCandle reports whether the snapshot carries a usable OHLC candle. A
// missing open, high or low means there is no candle to read, whatever the
// price says.
func (s IndicatorSnapshot) HasCandle() bool {
	return s.Open > 0 && s.High > 0 && s.Low > 0 && s.Close > 0 && s.High > s.Low
}

// BodyPercent is the candle body as a percentage of its high-low range, or 0
// without a candle.
func (s IndicatorSnapshot) BodyPercent() float64 {
	if !s.HasCandle() {
		return 0
	}
	rng := s.High - s.Low
	body := s.Close - s.Open
	if body < 0 {
		body = -body
	}
	return body / rng * 100
}

// CandleDirection returns +1 for a green candle, -1 for a red one and 0
// without a candle.
func (s IndicatorSnapshot) CandleDirection() int {
	switch {
	case !s.HasCandle():
		return 0
	case s.Close > s.Open:
		return 1
	case s.Close < s.Open:
		return -1
	default:
		return 0
	}
}

// Bias folds the two trend filters into one direction. Agreement or a single
// directional filter wins; a conflict is NEUTRAL.
func (s IndicatorSnapshot) Bias() Trend {
	e, st := s.Trend.EMA.Sign(), s.Trend.Supertrend.Sign()
	switch {
	case e == st:
		return TrendFromSign(e)
	case e == 0:
		return TrendFromSign(st)
	case st == 0:
		return TrendFromSign(e)
	default:
		return TrendNeutral
	}
}

// SameMarket reports whether two snapshots carry the same quote, used to
// detect a feed that stopped moving.
func (s IndicatorSnapshot) SameMarket(o IndicatorSnapshot) bool {
	return s.Price == o.Price &&
		s.Volume == o.Volume &&
		s.High == o.High &&
		s.Low == o.Low &&
		s.OI.CallOI == o.OI.CallOI &&
		s.OI.PutOI == o.OI.PutOI
}
