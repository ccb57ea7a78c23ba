package models

import "time"

// Signal is the synthesized trading call. The neutral member is spelled per
// family (NEUTRAL, SIDEWAYS or WAIT).
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG_BUY"
	SignalBuy        Signal = "BUY"
	SignalNeutral    Signal = "NEUTRAL"
	SignalSideways   Signal = "SIDEWAYS"
	SignalWait       Signal = "WAIT"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG_SELL"
)

// Direction returns +1 for buys, -1 for sells and 0 for any neutral label.
func (s Signal) Direction() int {
	switch s {
	case SignalStrongBuy, SignalBuy:
		return 1
	case SignalStrongSell, SignalSell:
		return -1
	default:
		return 0
	}
}

// IsStrong reports whether s is one of the extreme calls.
func (s Signal) IsStrong() bool {
	return s == SignalStrongBuy || s == SignalStrongSell
}

// FactorContribution is one line of the confidence audit trail.
type FactorContribution struct {
	Factor string `json:"factor"`
	Delta  int    `json:"delta"`
	Note   string `json:"note,omitempty"`
}

// Confidence is a clamped additive score. Value always equals
// clamp(Base + sum of Factors deltas, Min, Max).
type Confidence struct {
	Value   int                  `json:"value"`
	Raw     int                  `json:"raw"`
	Base    int                  `json:"base"`
	Min     int                  `json:"min"`
	Max     int                  `json:"max"`
	Factors []FactorContribution `json:"factors"`
}

type PredictionLabel string

const (
	PredStrongUp   PredictionLabel = "STRONG UP"
	PredLikelyUp   PredictionLabel = "LIKELY UP"
	PredNeutral    PredictionLabel = "NEUTRAL"
	PredLikelyDown PredictionLabel = "LIKELY DOWN"
	PredStrongDown PredictionLabel = "STRONG DOWN"
)

// Prediction is the 5-minute outlook, computed independently of the signal.
type Prediction struct {
	Direction       PredictionLabel `json:"direction"`
	Confidence      int             `json:"confidence"`
	UpProbability   int             `json:"upProbability"`
	DownProbability int             `json:"downProbability"`
	Score           int             `json:"score"`
	MaxScore        int             `json:"maxScore"`
}

// SignalResult is the record handed to callers, stores and topics.
type SignalResult struct {
	Symbol         string               `json:"symbol"`
	Family         string               `json:"family"`
	Signal         Signal               `json:"signal"`
	Confidence     int                  `json:"confidence"`
	Zone           string               `json:"zone"`
	ZoneClassifier string               `json:"zoneClassifier"`
	Bias           Trend                `json:"bias"`
	CPRClass       CPRClass             `json:"cprClass"`
	Zones          ZoneSet              `json:"zones"`
	Prediction5m   Prediction           `json:"prediction5m"`
	Factors        []FactorContribution `json:"factors"`
	Stale          bool                 `json:"stale"`
	Status         DataStatus           `json:"status"`
	EvaluatedAt    time.Time            `json:"evaluatedAt"`
}

// PrimaryZone returns the classification the signal was derived from.
func (r SignalResult) PrimaryZone() ZoneClassification {
	return ZoneClassification{Classifier: r.ZoneClassifier, Value: r.Zone}
}

// HistoryQuery selects stored results for one symbol.
type HistoryQuery struct {
	Symbol string
	Family string
	From   time.Time
	To     time.Time
	Limit  int
}
