package calculator

import (
	"errors"
	"math"
	"time"

	"RSIRadar/internal/model"
)

// DefaultRSIPeriod is the lookback used when none is configured.
const DefaultRSIPeriod = 14

var (
	ErrInvalidPeriod       = errors.New("period must be positive")
	ErrInsufficientHistory = errors.New("not enough closes for RSI calculation")
	ErrNoVariation         = errors.New("closes show no price variation")
	ErrNonFiniteClose      = errors.New("close price is NaN or infinite")
)

// CalculateRSI computes the Wilder-smoothed RSI over closes ordered oldest first.
// Requires at least period+1 closes. A series with neither gains nor losses
// returns ErrNoVariation instead of a number.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(closes) < period+1 {
		return 0, ErrInsufficientHistory
	}
	for _, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return 0, ErrNonFiniteClose
		}
	}

	p := float64(period)

	// Seed averages over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= p
	avgLoss /= p

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 0, ErrNoVariation
		}
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

// RecordFromCloses turns an RSI computation into a MetricRecord. Short or flat
// series become explicit non-ok records; only invalid input is an error.
func RecordFromCloses(symbol string, closes []float64, period int, now time.Time) (model.MetricRecord, error) {
	rec := model.MetricRecord{Symbol: symbol, UpdatedAt: now}
	rsi, err := CalculateRSI(closes, period)
	switch {
	case err == nil:
		rec.RSI = rsi
		rec.Status = model.RSIStatusOK
	case errors.Is(err, ErrInsufficientHistory):
		rec.Status = model.RSIStatusInsufficient
	case errors.Is(err, ErrNoVariation):
		rec.Status = model.RSIStatusFlat
	default:
		return model.MetricRecord{}, err
	}
	return rec, nil
}
