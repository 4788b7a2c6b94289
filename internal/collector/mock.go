package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RSIRadar/internal/model"

	"github.com/shopspring/decimal"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without explicit candles get a generated series around Price.
type MockFetcher struct {
	Instruments []string
	Price       float64
	Delay       time.Duration

	mu           sync.Mutex
	candles      map[string][]model.OHLCV
	prices       map[string]decimal.Decimal
	errs         map[string]error
	listFailures int
	calls        map[string]int
}

// NewMockFetcher creates a mock provider listing the given instruments.
func NewMockFetcher(instruments ...string) *MockFetcher {
	return &MockFetcher{
		Instruments: instruments,
		Price:       100,
		candles:     make(map[string][]model.OHLCV),
		prices:      make(map[string]decimal.Decimal),
		errs:        make(map[string]error),
		calls:       make(map[string]int),
	}
}

func (m *MockFetcher) Name() string { return "mock" }

// SetCandles fixes the candles returned for symbol.
func (m *MockFetcher) SetCandles(symbol string, bars []model.OHLCV) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candles[symbol] = bars
}

// SetCloses fixes the candles for symbol from a close series, oldest first.
func (m *MockFetcher) SetCloses(symbol string, closes ...float64) {
	m.SetCandles(symbol, BarsFromCloses(closes, time.Now()))
}

// SetPrice fixes the last price returned for symbol.
func (m *MockFetcher) SetPrice(symbol string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

// SetError makes every request for symbol fail with err; nil clears it.
func (m *MockFetcher) SetError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, symbol)
		return
	}
	m.errs[symbol] = err
}

// FailListing makes the next n ListInstruments calls fail.
func (m *MockFetcher) FailListing(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listFailures = n
}

// Calls reports how many candle fetches were made for symbol.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func (m *MockFetcher) ListInstruments(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listFailures > 0 {
		m.listFailures--
		return nil, fmt.Errorf("%w: mock listing unavailable", ErrDiscovery)
	}
	out := make([]string, len(m.Instruments))
	copy(out, m.Instruments)
	return out, nil
}

func (m *MockFetcher) FetchCandles(ctx context.Context, symbol, _ string, limit int) ([]model.OHLCV, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[symbol]++
	if err := m.errs[symbol]; err != nil {
		return nil, err
	}
	if bars, ok := m.candles[symbol]; ok {
		out := make([]model.OHLCV, len(bars))
		copy(out, bars)
		return out, nil
	}
	return generateMockBars(m.Price, limit), nil
}

func (m *MockFetcher) FetchLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := m.wait(ctx); err != nil {
		return decimal.Zero, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[symbol]; err != nil {
		return decimal.Zero, err
	}
	if p, ok := m.prices[symbol]; ok {
		return p, nil
	}
	if bars, ok := m.candles[symbol]; ok && len(bars) > 0 {
		return decimal.NewFromFloat(bars[len(bars)-1].Close), nil
	}
	return decimal.NewFromFloat(m.Price), nil
}

func (m *MockFetcher) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrFetch, ctx.Err())
	case <-time.After(m.Delay):
		return nil
	}
}

// BarsFromCloses builds hourly bars ending at end from a close series.
func BarsFromCloses(closes []float64, end time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(len(closes)-1-i) * time.Hour),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		// zig-zag drift so RSI lands strictly between 0 and 100
		p := basePrice * (1 + float64(i-count/2)*0.001)
		if i%3 == 0 {
			p *= 0.998
		}
		bars[i] = model.OHLCV{
			Time:   time.Now().Add(-time.Duration(count-i) * time.Hour),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
