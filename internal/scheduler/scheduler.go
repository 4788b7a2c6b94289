package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"RSIRadar/internal/cache"
	"RSIRadar/internal/collector"
	"RSIRadar/internal/metrics"
	"RSIRadar/internal/model"
	"RSIRadar/internal/progress"
	"RSIRadar/internal/universe"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of instruments queried per tick.
const DefaultBatchSize = 18

// BatchEvent describes one completed batch.
type BatchEvent struct {
	Block       int                           `json:"block"`
	TotalBlocks int                           `json:"total_blocks"`
	Symbols     []string                      `json:"symbols"`
	Updated     map[string]model.MetricRecord `json:"updated"`
	Failed      []string                      `json:"failed"`
	Cursor      int                           `json:"cursor"`
	Duration    time.Duration                 `json:"duration"`
	Progress    progress.State                `json:"progress"`
}

// Options configures a Scheduler.
type Options struct {
	BatchSize  int
	TickPeriod time.Duration
}

// Scheduler walks the universe in fixed-size batches, one batch per tick,
// and is the only writer of the metric cache.
type Scheduler struct {
	universe  *universe.Universe
	cache     *cache.Cache
	collector *collector.Collector
	tracker   *progress.Tracker
	metrics   *metrics.Metrics
	logger    *zap.Logger

	batchSize int
	tick      time.Duration

	mu        sync.Mutex
	cursor    int
	listeners []func(BatchEvent)

	inFlight atomic.Bool
}

// NewScheduler creates a Scheduler positioned at the head of the universe.
func NewScheduler(u *universe.Universe, c *cache.Cache, col *collector.Collector, tr *progress.Tracker, opts Options, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.TickPeriod <= 0 {
		opts.TickPeriod = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		universe:  u,
		cache:     c,
		collector: col,
		tracker:   tr,
		metrics:   m,
		logger:    logger,
		batchSize: opts.BatchSize,
		tick:      opts.TickPeriod,
	}
}

// Register adds the batch tick to c. The cron chain is expected to carry
// SkipIfStillRunning; Tick keeps its own gate regardless.
func (s *Scheduler) Register(ctx context.Context, c *cron.Cron) (cron.EntryID, error) {
	spec := fmt.Sprintf("@every %s", s.tick)
	id, err := c.AddFunc(spec, func() { s.Tick(ctx) })
	if err != nil {
		return 0, fmt.Errorf("register batch tick: %w", err)
	}
	s.logger.Info("batch tick registered",
		zap.String("spec", spec),
		zap.Int("batch_size", s.batchSize),
		zap.Int("universe", s.universe.Len()),
		zap.Int("total_blocks", s.TotalBlocks()),
	)
	return id, nil
}

// OnBatch registers fn to receive every completed BatchEvent.
func (s *Scheduler) OnBatch(fn func(BatchEvent)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Cursor returns the start index of the next batch.
func (s *Scheduler) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Scheduler) BatchSize() int { return s.batchSize }

func (s *Scheduler) TickPeriod() time.Duration { return s.tick }

func (s *Scheduler) TotalBlocks() int { return s.universe.TotalBatches(s.batchSize) }

// RunNow dispatches a batch immediately, outside the cron schedule.
func (s *Scheduler) RunNow(ctx context.Context) (BatchEvent, bool) {
	return s.Tick(ctx)
}

// Tick dispatches the next batch and blocks until it has been merged. It
// returns false without doing anything when a batch is already in flight.
func (s *Scheduler) Tick(ctx context.Context) (BatchEvent, bool) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.metrics.TickSkipped(metrics.LoopBatch)
		s.logger.Debug("batch still in flight, tick skipped")
		return BatchEvent{}, false
	}
	defer s.inFlight.Store(false)

	start := time.Now()
	n := s.universe.Len()
	if n == 0 {
		return BatchEvent{}, false
	}

	s.mu.Lock()
	from := s.cursor
	to := min(from+s.batchSize, n)
	block := from/s.batchSize + 1
	s.cursor += s.batchSize
	if s.cursor >= n {
		s.cursor = 0
	}
	next := s.cursor
	s.mu.Unlock()

	symbols := s.universe.Slice(from, to)
	updated, failed := s.fetchAll(ctx, symbols)

	if err := s.cache.MergeBatch(ctx, updated); err != nil {
		s.logger.Error("persist metric cache", zap.Int("block", block), zap.Error(err))
	}
	s.metrics.SetCacheEntries(s.cache.Len())
	prog := s.tracker.Observe(ctx, s.cache.CoveredBy(s.universe), n)

	event := BatchEvent{
		Block:       block,
		TotalBlocks: s.TotalBlocks(),
		Symbols:     symbols,
		Updated:     updated,
		Failed:      failed,
		Cursor:      next,
		Duration:    time.Since(start),
		Progress:    prog,
	}
	s.metrics.ObserveBatch(event.Duration, len(updated))
	s.logger.Debug("batch done",
		zap.Int("block", block),
		zap.Int("total_blocks", event.TotalBlocks),
		zap.Int("updated", len(updated)),
		zap.Int("failed", len(failed)),
		zap.Int("coverage", prog.CoveragePercent),
		zap.Duration("took", event.Duration),
	)

	s.mu.Lock()
	listeners := append([]func(BatchEvent){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(event)
	}
	return event, true
}

// fetchAll measures every symbol concurrently. Failed symbols are left out
// of the result so their cached value stays as it was.
func (s *Scheduler) fetchAll(ctx context.Context, symbols []string) (map[string]model.MetricRecord, []string) {
	var (
		mu      sync.Mutex
		updated = make(map[string]model.MetricRecord, len(symbols))
		failed  []string
	)

	var g errgroup.Group
	g.SetLimit(s.batchSize)
	for _, sym := range symbols {
		sym := sym // per-iteration copy (go directive < 1.22)
		g.Go(func() error {
			rec, err := s.collector.Measure(ctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				reason := collector.Reason(err)
				s.metrics.SymbolFailed(reason)
				s.logger.Warn("symbol refresh failed",
					zap.String("symbol", sym),
					zap.String("reason", reason),
					zap.Error(err),
				)
				failed = append(failed, sym)
				return nil
			}
			updated[sym] = rec
			return nil
		})
	}
	_ = g.Wait()
	return updated, failed
}
