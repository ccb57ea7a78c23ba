package models

// Requests for the signals HTTP endpoints. An empty family means the
// configured default family.

type EvaluateRequest struct {
	Symbol   string      `json:"symbol" validate:"max=32"`
	Family   string      `json:"family" validate:"max=32"`
	Snapshot RawSnapshot `json:"snapshot" validate:"required"`
}

type BatchItem struct {
	Symbol   string      `json:"symbol" validate:"required,max=32"`
	Snapshot RawSnapshot `json:"snapshot" validate:"required"`
}

type BatchEvaluateRequest struct {
	Family string      `json:"family" validate:"max=32"`
	Items  []BatchItem `json:"items" validate:"required,min=1,max=200,dive"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" validate:"required,max=32"`
	Family string `query:"family" validate:"max=32"`
	From   string `query:"from"`
	To     string `query:"to"`
	Limit  int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// BatchResult is one entry of a batch response. Exactly one of Result and
// Error is set.
type BatchResult struct {
	Symbol string        `json:"symbol"`
	Result *SignalResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}
