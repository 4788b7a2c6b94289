package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RSIRadar/internal/calculator"
	"RSIRadar/internal/model"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchTimeout bounds a single symbol's fetch-and-compute.
const DefaultFetchTimeout = 5 * time.Second

// Options tunes how the Collector queries the provider.
type Options struct {
	Bar       string
	Limit     int
	RSIPeriod int
	Timeout   time.Duration
}

// Collector fetches candles for one symbol at a time and computes its RSI.
type Collector struct {
	Fetcher Fetcher
	Options Options

	now func() time.Time
}

// Quote is a live view of one symbol: last price plus freshly computed RSI.
type Quote struct {
	Symbol     string
	Price      decimal.Decimal
	Record     model.MetricRecord
	CandleTime time.Time
}

// NewCollector creates a new Collector, filling unset options with defaults.
func NewCollector(fetcher Fetcher, opts Options) *Collector {
	if opts.Bar == "" {
		opts.Bar = "1H"
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if opts.RSIPeriod <= 0 {
		opts.RSIPeriod = calculator.DefaultRSIPeriod
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	return &Collector{Fetcher: fetcher, Options: opts, now: time.Now}
}

// Measure fetches candles for symbol and computes its RSI record.
func (c *Collector) Measure(ctx context.Context, symbol string) (model.MetricRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Options.Timeout)
	defer cancel()

	rec, _, err := c.measure(ctx, symbol)
	return rec, err
}

// Quote fetches the last price and candles concurrently for symbol.
func (c *Collector) Quote(ctx context.Context, symbol string) (*Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Options.Timeout)
	defer cancel()

	q := &Quote{Symbol: symbol}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		price, err := c.Fetcher.FetchLastPrice(gctx, symbol)
		if err != nil {
			return c.classify(gctx, err)
		}
		q.Price = price
		return nil
	})
	g.Go(func() error {
		rec, last, err := c.measure(gctx, symbol)
		if err != nil {
			return err
		}
		q.Record = rec
		q.CandleTime = last
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return q, nil
}

func (c *Collector) measure(ctx context.Context, symbol string) (model.MetricRecord, time.Time, error) {
	bars, err := c.Fetcher.FetchCandles(ctx, symbol, c.Options.Bar, c.Options.Limit)
	if err != nil {
		return model.MetricRecord{}, time.Time{}, c.classify(ctx, err)
	}
	var last time.Time
	if len(bars) > 0 {
		last = bars[len(bars)-1].Time
	}
	rec, err := calculator.RecordFromCloses(symbol, model.Closes(bars), c.Options.RSIPeriod, c.now())
	if err != nil {
		return model.MetricRecord{}, time.Time{}, fmt.Errorf("compute rsi %s: %w", symbol, err)
	}
	return rec, last, nil
}

// classify tags deadline expiry as ErrFetchTimeout so callers can tell stalls from failures.
func (c *Collector) classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrFetchTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrFetchTimeout, c.Options.Timeout, err)
	}
	return err
}
