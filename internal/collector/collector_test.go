package collector

import (
	"context"
	"fmt"
	"testing"
	"time"

	"RSIRadar/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rising(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	return closes
}

func TestCollector_Measure(t *testing.T) {
	m := NewMockFetcher("BTC-USDT-SWAP")
	m.SetCloses("BTC-USDT-SWAP", rising(20)...)
	c := NewCollector(m, Options{})

	rec, err := c.Measure(context.Background(), "BTC-USDT-SWAP")
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT-SWAP", rec.Symbol)
	assert.Equal(t, model.RSIStatusOK, rec.Status)
	assert.Equal(t, 100.0, rec.RSI)
}

func TestCollector_MeasureInsufficientHistory(t *testing.T) {
	m := NewMockFetcher("NEW-USDT-SWAP")
	m.SetCloses("NEW-USDT-SWAP", 1, 2, 3)
	c := NewCollector(m, Options{})

	rec, err := c.Measure(context.Background(), "NEW-USDT-SWAP")
	require.NoError(t, err)
	assert.Equal(t, model.RSIStatusInsufficient, rec.Status)
}

func TestCollector_MeasureFetchError(t *testing.T) {
	m := NewMockFetcher("BTC-USDT-SWAP")
	m.SetError("BTC-USDT-SWAP", fmt.Errorf("%w: connection reset", ErrFetch))
	c := NewCollector(m, Options{})

	_, err := c.Measure(context.Background(), "BTC-USDT-SWAP")
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, "fetch", Reason(err))
}

func TestCollector_MeasureTimeout(t *testing.T) {
	m := NewMockFetcher("SLOW-USDT-SWAP")
	m.Delay = 200 * time.Millisecond
	c := NewCollector(m, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := c.Measure(context.Background(), "SLOW-USDT-SWAP")
	assert.ErrorIs(t, err, ErrFetchTimeout)
	assert.Equal(t, "timeout", Reason(err))
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestCollector_Quote(t *testing.T) {
	m := NewMockFetcher("ETH-USDT-SWAP")
	m.SetCloses("ETH-USDT-SWAP", rising(20)...)
	m.SetPrice("ETH-USDT-SWAP", decimal.RequireFromString("3012.25"))
	c := NewCollector(m, Options{})

	q, err := c.Quote(context.Background(), "ETH-USDT-SWAP")
	require.NoError(t, err)
	assert.Equal(t, "3012.25", q.Price.String())
	assert.Equal(t, model.RSIStatusOK, q.Record.Status)
	assert.False(t, q.CandleTime.IsZero())
}

func TestReason(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "timeout", Reason(fmt.Errorf("%w: %w", ErrFetchTimeout, ErrFetch)))
	assert.Equal(t, "canceled", Reason(context.Canceled))
	assert.Equal(t, "compute", Reason(fmt.Errorf("boom")))
}
