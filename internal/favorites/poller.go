package favorites

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"RSIRadar/internal/collector"
	"RSIRadar/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Poller refreshes every favorite card on its own tick. It does not touch
// the metric cache or the scan progress.
type Poller struct {
	set       *Set
	board     *Board
	collector *collector.Collector
	metrics   *metrics.Metrics
	logger    *zap.Logger
	tick      time.Duration

	inFlight atomic.Bool
}

func NewPoller(set *Set, board *Board, col *collector.Collector, tick time.Duration, m *metrics.Metrics, logger *zap.Logger) *Poller {
	if tick <= 0 {
		tick = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{set: set, board: board, collector: col, metrics: m, logger: logger, tick: tick}
}

// Register adds the favorites tick to c.
func (p *Poller) Register(ctx context.Context, c *cron.Cron) (cron.EntryID, error) {
	spec := fmt.Sprintf("@every %s", p.tick)
	id, err := c.AddFunc(spec, func() { p.Tick(ctx) })
	if err != nil {
		return 0, fmt.Errorf("register favorites tick: %w", err)
	}
	p.logger.Info("favorites tick registered", zap.String("spec", spec))
	return id, nil
}

// Tick refreshes all favorites concurrently and returns how many cards were
// updated. It returns -1 when the previous tick is still running.
func (p *Poller) Tick(ctx context.Context) int {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.metrics.TickSkipped(metrics.LoopFavorites)
		return -1
	}
	defer p.inFlight.Store(false)

	symbols := p.set.List()
	if len(symbols) == 0 {
		return 0
	}

	var refreshed atomic.Int32
	var g errgroup.Group
	for _, sym := range symbols {
		sym := sym // per-iteration copy (go directive < 1.22)
		g.Go(func() error {
			if p.refresh(ctx, sym) {
				refreshed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(refreshed.Load())
}

func (p *Poller) refresh(ctx context.Context, symbol string) bool {
	q, err := p.collector.Quote(ctx, symbol)
	if err != nil {
		p.metrics.FavoriteRefreshed(false)
		p.logger.Warn("favorite refresh failed",
			zap.String("symbol", symbol),
			zap.String("reason", collector.Reason(err)),
			zap.Error(err),
		)
		return false
	}
	p.metrics.FavoriteRefreshed(true)
	_, ok := p.board.Update(q)
	return ok
}
