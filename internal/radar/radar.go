// Package radar wires the scan loop, favorites and progress tracking into one
// service object and exposes the read surface used by the API and Telegram.
package radar

import (
	"context"
	"fmt"
	"time"

	"RSIRadar/internal/cache"
	"RSIRadar/internal/collector"
	"RSIRadar/internal/favorites"
	"RSIRadar/internal/logger"
	"RSIRadar/internal/metrics"
	"RSIRadar/internal/model"
	"RSIRadar/internal/progress"
	"RSIRadar/internal/ranking"
	"RSIRadar/internal/scheduler"
	"RSIRadar/internal/store"
	"RSIRadar/internal/universe"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Options gathers the tunables of every component.
type Options struct {
	Bar           string
	CandleLimit   int
	RSIPeriod     int
	FetchTimeout  time.Duration
	BatchSize     int
	TickPeriod    time.Duration
	SettleDelay   time.Duration
	PruneDelisted bool
	MaxFavorites  int
	FavoritesTick time.Duration
	PageSize      int
	Suffix        string
}

// Radar owns every long-lived component.
type Radar struct {
	Universe  *universe.Universe
	Cache     *cache.Cache
	Collector *collector.Collector
	Scheduler *scheduler.Scheduler
	Tracker   *progress.Tracker
	Set       *favorites.Set
	Board     *favorites.Board
	Poller    *favorites.Poller

	opts   Options
	logger *zap.Logger
	cron   *cron.Cron
}

// New builds the component graph. Nothing runs until Start.
func New(u *universe.Universe, f collector.Fetcher, st store.Store, opts Options, m *metrics.Metrics, z *zap.Logger) *Radar {
	if z == nil {
		z = zap.NewNop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = ranking.DefaultPageSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = scheduler.DefaultBatchSize
	}
	if opts.TickPeriod <= 0 {
		opts.TickPeriod = time.Second
	}

	c := cache.New(st, z.Named("cache"))
	c.OnSave = m.ObserveStoreSave
	col := collector.NewCollector(f, collector.Options{
		Bar:       opts.Bar,
		Limit:     opts.CandleLimit,
		RSIPeriod: opts.RSIPeriod,
		Timeout:   opts.FetchTimeout,
	})
	tr := progress.NewTracker(st, progress.Params{
		BatchSize:   opts.BatchSize,
		TickPeriod:  opts.TickPeriod,
		SettleDelay: opts.SettleDelay,
	}, m, z.Named("progress"))
	sched := scheduler.NewScheduler(u, c, col, tr, scheduler.Options{
		BatchSize:  opts.BatchSize,
		TickPeriod: opts.TickPeriod,
	}, m, z.Named("scheduler"))

	set := favorites.NewSet(u, st, opts.MaxFavorites, z.Named("favorites"))
	board := favorites.NewBoard(opts.Suffix)
	set.OnChange(board.Sync)
	poller := favorites.NewPoller(set, board, col, opts.FavoritesTick, m, z.Named("favorites"))

	return &Radar{
		Universe:  u,
		Cache:     c,
		Collector: col,
		Scheduler: sched,
		Tracker:   tr,
		Set:       set,
		Board:     board,
		Poller:    poller,
		opts:      opts,
		logger:    z,
	}
}

// Load restores persisted state: metric snapshot, cycle flag and favorites.
func (r *Radar) Load(ctx context.Context) {
	r.Cache.Load(ctx)
	if r.opts.PruneDelisted {
		if n := r.Cache.Prune(r.Universe); n > 0 {
			r.logger.Info("pruned delisted symbols from cache", zap.Int("removed", n))
		}
	}
	r.Tracker.Load(ctx)
	r.Set.Load(ctx)
	r.Tracker.Observe(ctx, r.Cache.CoveredBy(r.Universe), r.Universe.Len())
}

// Start registers both tick loops on one cron and starts it. On a first run
// (no completed cycle on record) the first batch is dispatched immediately.
func (r *Radar) Start(ctx context.Context) error {
	cl := logger.Cron(r.logger)
	r.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := r.Scheduler.Register(ctx, r.cron); err != nil {
		return err
	}
	if _, err := r.Poller.Register(ctx, r.cron); err != nil {
		return err
	}

	if !r.Tracker.CycleCompleted() {
		r.logger.Info("no completed cycle on record, dispatching first batch now")
		r.Scheduler.RunNow(ctx)
	}
	r.cron.Start()
	r.logger.Info("radar started",
		zap.Int("universe", r.Universe.Len()),
		zap.Int("total_blocks", r.Scheduler.TotalBlocks()),
	)
	return nil
}

// Stop stops the cron and returns a context that is done once running jobs
// have finished.
func (r *Radar) Stop() context.Context {
	if r.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	r.logger.Info("radar stopping")
	return r.cron.Stop()
}

// UniverseOrder returns the scan order.
func (r *Radar) UniverseOrder() []string { return r.Universe.Symbols() }

// CacheSnapshot returns a copy of every cached record.
func (r *Radar) CacheSnapshot() map[string]model.MetricRecord { return r.Cache.Snapshot() }

// Progress returns the current progress state.
func (r *Radar) Progress() progress.State { return r.Tracker.State() }

// Favorites returns the favorite cards in order.
func (r *Radar) Favorites() []favorites.Card { return r.Board.Cards() }

// MaxFavorites returns the configured favorites cap.
func (r *Radar) MaxFavorites() int { return r.Set.Max() }

// AddFavorite resolves input (full id or short coin name) and adds it.
func (r *Radar) AddFavorite(ctx context.Context, input string) (string, error) {
	sym, ok := r.Universe.Resolve(input)
	if !ok {
		return "", fmt.Errorf("%w: %s", favorites.ErrUnknownSymbol, input)
	}
	if err := r.Set.Add(ctx, sym); err != nil {
		return sym, err
	}
	return sym, nil
}

// RemoveFavorite resolves input and removes it; absent symbols are a no-op.
func (r *Radar) RemoveFavorite(ctx context.Context, input string) (string, bool) {
	sym, ok := r.Universe.Resolve(input)
	if !ok {
		return input, false
	}
	return sym, r.Set.Remove(ctx, sym)
}

// BlockInfo is one entry of the universe listing.
type BlockInfo struct {
	Symbol      string `json:"symbol"`
	DisplayName string `json:"display_name"`
	Block       int    `json:"block"`
}

// UniverseBlocks lists every symbol with its batch number.
func (r *Radar) UniverseBlocks() []BlockInfo {
	syms := r.Universe.Symbols()
	out := make([]BlockInfo, len(syms))
	b := r.Scheduler.BatchSize()
	for i, sym := range syms {
		out[i] = BlockInfo{Symbol: sym, DisplayName: r.Universe.DisplayName(sym), Block: i/b + 1}
	}
	return out
}

// Table renders one page of the ranked table.
func (r *Radar) Table(order ranking.SortOrder, page int) ranking.Page {
	return ranking.Build(ranking.Input{
		Order:      r.Universe.Symbols(),
		Records:    r.Cache.Snapshot(),
		Favorites:  r.Set.List(),
		Suffix:     r.opts.Suffix,
		BatchSize:  r.Scheduler.BatchSize(),
		Cursor:     r.Scheduler.Cursor(),
		TickPeriod: r.Scheduler.TickPeriod(),
	}, order, page, r.opts.PageSize)
}

// Extremes returns the n highest (top) or lowest cached RSI values.
func (r *Radar) Extremes(n int, top bool) []model.MetricRecord {
	return ranking.Extremes(r.Universe.Symbols(), r.Cache.Snapshot(), n, top)
}

// Live fetches price and RSI for one symbol on demand, bypassing the cache.
func (r *Radar) Live(ctx context.Context, input string) (*collector.Quote, error) {
	sym, ok := r.Universe.Resolve(input)
	if !ok {
		return nil, fmt.Errorf("%w: %s", favorites.ErrUnknownSymbol, input)
	}
	return r.Collector.Quote(ctx, sym)
}

func (r *Radar) DisplayName(symbol string) string { return r.Universe.DisplayName(symbol) }

func (r *Radar) OnBatch(fn func(scheduler.BatchEvent)) { r.Scheduler.OnBatch(fn) }

func (r *Radar) OnCard(fn func(prev, next favorites.Card)) { r.Board.OnUpdate(fn) }

func (r *Radar) OnProgress(fn func(progress.State)) { r.Tracker.OnChange(fn) }
