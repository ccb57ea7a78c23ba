package models

// Classifier names as they appear in results.
const (
	ClassifierCamarilla = "camarilla"
	ClassifierCPR       = "cpr"
	ClassifierPivot     = "pivot"
	ClassifierOIProfile = "oi_profile"
	ClassifierCandle    = "candle"
	ClassifierPCR       = "pcr"
)

type CamarillaZone string

const (
	CamBreakoutUp  CamarillaZone = "BREAKOUT_UP"
	CamSellZone    CamarillaZone = "SELL_ZONE"
	CamNeutralHigh CamarillaZone = "NEUTRAL_HIGH"
	CamRangeBound  CamarillaZone = "RANGE_BOUND"
	CamNeutralLow  CamarillaZone = "NEUTRAL_LOW"
	CamBuyZone     CamarillaZone = "BUY_ZONE"
	CamBreakdown   CamarillaZone = "BREAKDOWN"
)

// Valid reports whether z is one of the seven Camarilla bands.
func (z CamarillaZone) Valid() bool {
	switch z {
	case CamBreakoutUp, CamSellZone, CamNeutralHigh, CamRangeBound, CamNeutralLow, CamBuyZone, CamBreakdown:
		return true
	}
	return false
}

type CPRClass string

const (
	CPRNarrow  CPRClass = "NARROW"
	CPRWide    CPRClass = "WIDE"
	CPRUnknown CPRClass = "UNKNOWN"
)

type PivotZone string

const (
	PivotAboveR3        PivotZone = "ABOVE_R3"
	PivotBetweenPivotR3 PivotZone = "BETWEEN_PIVOT_AND_R3"
	PivotBetweenS3Pivot PivotZone = "BETWEEN_S3_AND_PIVOT"
	PivotBelowS3        PivotZone = "BELOW_S3"
	PivotUnknown        PivotZone = "UNKNOWN"
)

type OIProfile string

const (
	OILongBuildup    OIProfile = "LONG_BUILDUP"
	OIShortCovering  OIProfile = "SHORT_COVERING"
	OIShortBuildup   OIProfile = "SHORT_BUILDUP"
	OILongUnwinding  OIProfile = "LONG_UNWINDING"
	OINeutral        OIProfile = "NEUTRAL"
	OIPCRExtremeBull OIProfile = "PCR_EXTREME_BULL"
	OIPCRExtremeBear OIProfile = "PCR_EXTREME_BEAR"
)

func (p OIProfile) Valid() bool {
	switch p {
	case OILongBuildup, OIShortCovering, OIShortBuildup, OILongUnwinding, OINeutral, OIPCRExtremeBull, OIPCRExtremeBear:
		return true
	}
	return false
}

// Sign is the directional reading of an OI profile.
func (p OIProfile) Sign() int {
	switch p {
	case OILongBuildup, OIShortCovering, OIPCRExtremeBull:
		return 1
	case OIShortBuildup, OILongUnwinding, OIPCRExtremeBear:
		return -1
	default:
		return 0
	}
}

// PCRTier is a rung of the put/call ratio ladder, from call wall to put wall.
type PCRTier string

const (
	PCRExtremeBearish PCRTier = "EXTREME_BEARISH"
	PCRBearish        PCRTier = "BEARISH"
	PCRMildBearish    PCRTier = "MILD_BEARISH"
	PCRNeutral        PCRTier = "NEUTRAL"
	PCRMildBullish    PCRTier = "MILD_BULLISH"
	PCRBullish        PCRTier = "BULLISH"
	PCRExtremeBullish PCRTier = "EXTREME_BULLISH"
)

// Score maps the ladder to -3..+3.
func (t PCRTier) Score() int {
	switch t {
	case PCRExtremeBearish:
		return -3
	case PCRBearish:
		return -2
	case PCRMildBearish:
		return -1
	case PCRMildBullish:
		return 1
	case PCRBullish:
		return 2
	case PCRExtremeBullish:
		return 3
	default:
		return 0
	}
}

type CandleQuality string

const (
	CandleStrongBuy  CandleQuality = "STRONG_BUY"
	CandleStrongSell CandleQuality = "STRONG_SELL"
	CandleWeakBuy    CandleQuality = "WEAK_BUY"
	CandleWeakSell   CandleQuality = "WEAK_SELL"
	CandleFakeSpike  CandleQuality = "FAKE_SPIKE"
	CandleDoji       CandleQuality = "DOJI"
)

// ZoneClassification is one classifier's verdict.
type ZoneClassification struct {
	Classifier string `json:"classifier"`
	Value      string `json:"value"`
}

// ZoneSet carries every classifier output for one snapshot.
type ZoneSet struct {
	Camarilla CamarillaZone `json:"camarilla"`
	CPR       CPRClass      `json:"cpr"`
	Pivot     PivotZone     `json:"pivot"`
	OIProfile OIProfile     `json:"oiProfile"`
	Candle    CandleQuality `json:"candle"`
	PCR       PCRTier       `json:"pcr"`
}
