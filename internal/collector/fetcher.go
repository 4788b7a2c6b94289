package collector

import (
	"context"
	"errors"

	"RSIRadar/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrDiscovery    = errors.New("instrument discovery failed")
	ErrFetch        = errors.New("fetch failed")
	ErrFetchTimeout = errors.New("fetch timed out")
	ErrDecode       = errors.New("decode failed")
)

// Fetcher defines the market data provider consumed by the scanner.
type Fetcher interface {
	ListInstruments(ctx context.Context) ([]string, error)
	FetchCandles(ctx context.Context, symbol, bar string, limit int) ([]model.OHLCV, error)
	FetchLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Name() string
}

// Reason maps a per-symbol failure to a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFetchTimeout):
		return "timeout"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "compute"
	}
}
