package ranking

import "RSIRadar/internal/model"

// Zone is the highlight band of an RSI value.
type Zone string

const (
	ZoneNone       Zone = ""
	ZoneOversold   Zone = "oversold"
	ZoneNeutral    Zone = "neutral"
	ZoneOverbought Zone = "overbought"
)

const (
	OverboughtLevel = 70.0
	OversoldLevel   = 30.0
)

// classify maps a numeric RSI to a zone. Both thresholds are inclusive.
func classify(rsi float64) Zone {
	switch {
	case rsi >= OverboughtLevel:
		return ZoneOverbought
	case rsi <= OversoldLevel:
		return ZoneOversold
	default:
		return ZoneNeutral
	}
}

// Classify returns the zone of rec, or ZoneNone when it holds no value.
func Classify(rec model.MetricRecord) Zone {
	v, ok := rec.Value()
	if !ok {
		return ZoneNone
	}
	return classify(v)
}

// Crossed reports whether moving from prev to next enters an extreme zone.
func Crossed(prev, next Zone) bool {
	if next != ZoneOverbought && next != ZoneOversold {
		return false
	}
	return prev != next
}
