package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"RSIRadar/internal/cache"
	"RSIRadar/internal/collector"
	"RSIRadar/internal/metrics"
	"RSIRadar/internal/model"
	"RSIRadar/internal/progress"
	"RSIRadar/internal/universe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func symbols(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("C%03d-USDT-SWAP", i)
	}
	return out
}

type fixture struct {
	fetcher *collector.MockFetcher
	uni     *universe.Universe
	cache   *cache.Cache
	tracker *progress.Tracker
	sched   *Scheduler
}

func newFixture(t *testing.T, n, batch int, m *metrics.Metrics) *fixture {
	t.Helper()
	syms := symbols(n)
	f := collector.NewMockFetcher(syms...)
	u, err := universe.Build(nil, syms)
	require.NoError(t, err)
	c := cache.New(nil, nil)
	tr := progress.NewTracker(nil, progress.Params{BatchSize: batch, TickPeriod: time.Second, SettleDelay: 14 * time.Second}, m, nil)
	col := collector.NewCollector(f, collector.Options{Timeout: time.Second})
	s := NewScheduler(u, c, col, tr, Options{BatchSize: batch, TickPeriod: time.Second}, m, nil)
	return &fixture{fetcher: f, uni: u, cache: c, tracker: tr, sched: s}
}

func TestTick_FullCycleVisitsEverySymbolOnce(t *testing.T) {
	cases := []struct{ n, b int }{
		{1, 1}, {1, 18}, {5, 18}, {18, 18}, {19, 18}, {36, 18}, {100, 18},
		{235, 18}, {7, 3}, {10, 4}, {12, 5}, {9, 9}, {50, 7},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("N=%d/B=%d", tc.n, tc.b), func(t *testing.T) {
			fx := newFixture(t, tc.n, tc.b, nil)
			total := fx.uni.TotalBatches(tc.b)
			ctx := context.Background()

			for i := 0; i < total; i++ {
				ev, ok := fx.sched.Tick(ctx)
				require.True(t, ok)
				assert.Equal(t, i+1, ev.Block)
				assert.Equal(t, total, ev.TotalBlocks)
				assert.LessOrEqual(t, len(ev.Symbols), tc.b)
			}
			assert.Equal(t, 0, fx.sched.Cursor(), "cursor back at head after one cycle")
			for _, sym := range fx.uni.Symbols() {
				assert.Equal(t, 1, fx.fetcher.Calls(sym), sym)
			}
			assert.Equal(t, tc.n, fx.cache.CoveredBy(fx.uni))

			// second cycle starts over from block 1
			ev, ok := fx.sched.Tick(ctx)
			require.True(t, ok)
			assert.Equal(t, 1, ev.Block)
		})
	}
}

func TestTick_FailureKeepsStaleValueAndRetriesNextCycle(t *testing.T) {
	fx := newFixture(t, 4, 2, nil)
	ctx := context.Background()
	target := fx.uni.Symbols()[1]

	_, ok := fx.sched.Tick(ctx)
	require.True(t, ok)
	before, ok := fx.cache.Get(target)
	require.True(t, ok)

	fx.sched.Tick(ctx)
	fx.fetcher.SetError(target, fmt.Errorf("%w: status 502", collector.ErrFetch))
	ev, ok := fx.sched.Tick(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{target}, ev.Failed)
	assert.NotContains(t, ev.Updated, target)

	after, ok := fx.cache.Get(target)
	require.True(t, ok)
	assert.Equal(t, before, after)

	fx.fetcher.SetError(target, nil)
	fx.sched.Tick(ctx)
	fx.sched.Tick(ctx)
	assert.Equal(t, 3, fx.fetcher.Calls(target))
	refreshed, _ := fx.cache.Get(target)
	assert.False(t, refreshed.UpdatedAt.Before(after.UpdatedAt))
}

func TestTick_FailureNeverCachedWhenNoPriorValue(t *testing.T) {
	fx := newFixture(t, 3, 3, nil)
	bad := fx.uni.Symbols()[0]
	fx.fetcher.SetError(bad, fmt.Errorf("%w: bad json", collector.ErrDecode))

	ev, ok := fx.sched.Tick(context.Background())
	require.True(t, ok)
	assert.Len(t, ev.Updated, 2)
	_, cached := fx.cache.Get(bad)
	assert.False(t, cached)
	assert.Equal(t, 66, ev.Progress.CoveragePercent)
}

func TestTick_NonOKRecordsCountTowardsCoverage(t *testing.T) {
	fx := newFixture(t, 2, 2, nil)
	syms := fx.uni.Symbols()
	fx.fetcher.SetCloses(syms[0], 1, 2, 3)
	fx.fetcher.SetCloses(syms[1], 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5)

	ev, ok := fx.sched.Tick(context.Background())
	require.True(t, ok)
	assert.Equal(t, model.RSIStatusInsufficient, ev.Updated[syms[0]].Status)
	assert.Equal(t, model.RSIStatusFlat, ev.Updated[syms[1]].Status)
	assert.Equal(t, 100, ev.Progress.CoveragePercent)
	assert.Equal(t, progress.PhaseSettling, ev.Progress.Phase)
}

func TestTick_SkipsWhileInFlight(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	fx := newFixture(t, 4, 2, m)
	fx.fetcher.Delay = 200 * time.Millisecond

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, ok := fx.sched.Tick(context.Background())
		assert.True(t, ok)
	}()

	require.Eventually(t, func() bool { return fx.sched.inFlight.Load() }, time.Second, 5*time.Millisecond)
	_, ok := fx.sched.Tick(context.Background())
	assert.False(t, ok)
	wg.Wait()

	assert.Equal(t, 2, fx.sched.Cursor(), "skipped tick must not advance the cursor")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicksSkipped.WithLabelValues(metrics.LoopBatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesTotal))
}

func TestTick_TimeoutIsSoft(t *testing.T) {
	fx := newFixture(t, 2, 2, nil)
	fx.sched.collector.Options.Timeout = 20 * time.Millisecond
	fx.fetcher.Delay = 200 * time.Millisecond

	ev, ok := fx.sched.Tick(context.Background())
	require.True(t, ok)
	assert.Len(t, ev.Failed, 2)
	assert.Equal(t, 0, fx.cache.Len())
	assert.Equal(t, progress.PhaseLoading, ev.Progress.Phase)
}

func TestOnBatch_ReceivesEvents(t *testing.T) {
	fx := newFixture(t, 5, 2, nil)
	var blocks []int
	fx.sched.OnBatch(func(ev BatchEvent) { blocks = append(blocks, ev.Block) })

	for i := 0; i < 4; i++ {
		fx.sched.Tick(context.Background())
	}
	assert.Equal(t, []int{1, 2, 3, 1}, blocks)
}
