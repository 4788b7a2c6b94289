package model

import "time"

// RSIStatus tells whether a MetricRecord carries a usable RSI value.
type RSIStatus string

const (
	RSIStatusOK           RSIStatus = "ok"
	RSIStatusInsufficient RSIStatus = "insufficient_history" // fewer than period+1 candles
	RSIStatusFlat         RSIStatus = "flat"                 // no price movement over the window
)

// MetricRecord is the latest computed metric for one instrument.
type MetricRecord struct {
	Symbol    string    `json:"symbol"`
	RSI       float64   `json:"rsi"`
	Status    RSIStatus `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Value returns the RSI and true only when the record holds a real number.
func (m MetricRecord) Value() (float64, bool) {
	if m.Status != RSIStatusOK {
		return 0, false
	}
	return m.RSI, true
}

// Placeholder is the text shown instead of a number for non-ok records.
func (m MetricRecord) Placeholder() string {
	switch m.Status {
	case RSIStatusInsufficient:
		return "not enough candles"
	case RSIStatusFlat:
		return "no price movement"
	default:
		return ""
	}
}
