package radar

import (
	"context"
	"testing"
	"time"

	"RSIRadar/internal/collector"
	"RSIRadar/internal/favorites"
	"RSIRadar/internal/progress"
	"RSIRadar/internal/ranking"
	"RSIRadar/internal/store"
	"RSIRadar/internal/universe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var instruments = []string{
	"BTC-USDT-SWAP", "ETH-USDT-SWAP", "SOL-USDT-SWAP", "ADA-USDT-SWAP", "XRP-USDT-SWAP",
}

func newRadar(t *testing.T, st store.Store) (*Radar, *collector.MockFetcher) {
	t.Helper()
	f := collector.NewMockFetcher(instruments...)
	u, err := universe.Build([]string{"ETH-USDT-SWAP"}, instruments)
	require.NoError(t, err)
	u = u.WithSuffix("-USDT-SWAP")
	r := New(u, f, st, Options{
		BatchSize:   2,
		TickPeriod:  time.Second,
		SettleDelay: 14 * time.Second,
		PageSize:    10,
		Suffix:      "-USDT-SWAP",
	}, nil, nil)
	return r, f
}

func TestRadar_ScanFillsTable(t *testing.T) {
	r, _ := newRadar(t, nil)
	ctx := context.Background()
	r.Load(ctx)
	assert.Equal(t, progress.PhaseLoading, r.Progress().Phase)

	for i := 0; i < 3; i++ {
		_, ok := r.Scheduler.Tick(ctx)
		require.True(t, ok)
	}
	assert.Len(t, r.CacheSnapshot(), 5)
	assert.Equal(t, "ETH-USDT-SWAP", r.UniverseOrder()[0])
	assert.Equal(t, progress.PhaseSettling, r.Progress().Phase)

	page := r.Table(ranking.SortDefault, 1)
	require.Len(t, page.Rows, 5)
	assert.Equal(t, "ETHUSDT.P", page.Rows[0].DisplayName)
	assert.Equal(t, 3, page.Rows[4].Block)

	blocks := r.UniverseBlocks()
	assert.Equal(t, 1, blocks[1].Block)
	assert.Equal(t, 2, blocks[2].Block)
}

func TestRadar_FavoritesByShortName(t *testing.T) {
	r, _ := newRadar(t, nil)
	ctx := context.Background()
	r.Load(ctx)

	sym, err := r.AddFavorite(ctx, "btc")
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT-SWAP", sym)

	_, err = r.AddFavorite(ctx, "BTC")
	assert.ErrorIs(t, err, favorites.ErrDuplicateFavorite)
	_, err = r.AddFavorite(ctx, "shib")
	assert.ErrorIs(t, err, favorites.ErrUnknownSymbol)

	cards := r.Favorites()
	require.Len(t, cards, 1)
	assert.True(t, cards[0].Loading)

	assert.Equal(t, 1, r.Poller.Tick(ctx))
	assert.False(t, r.Favorites()[0].Loading)

	_, removed := r.RemoveFavorite(ctx, "btc")
	assert.True(t, removed)
	_, removed = r.RemoveFavorite(ctx, "btc")
	assert.False(t, removed)
	assert.Empty(t, r.Favorites())
}

func TestRadar_RestartResumesSettled(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first, _ := newRadar(t, st)
	first.Load(ctx)
	for i := 0; i < 3; i++ {
		first.Scheduler.Tick(ctx)
	}
	require.Equal(t, progress.PhaseSettling, first.Progress().Phase)
	// the countdown itself is covered in the progress package
	require.NoError(t, st.SaveCycleCompleted(ctx, true))

	second, _ := newRadar(t, st)
	second.Load(ctx)
	assert.Len(t, second.CacheSnapshot(), 5)
	assert.True(t, second.Tracker.CycleCompleted())
	assert.Equal(t, progress.PhaseSettled, second.Progress().Phase)
}

func TestRadar_Live(t *testing.T) {
	r, f := newRadar(t, nil)
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(200 - i)
	}
	f.SetCloses("SOL-USDT-SWAP", closes...)

	q, err := r.Live(context.Background(), "sol")
	require.NoError(t, err)
	assert.Equal(t, "SOL-USDT-SWAP", q.Symbol)
	assert.Equal(t, 0.0, q.Record.RSI)
	assert.Equal(t, "181", q.Price.String())

	_, err = r.Live(context.Background(), "nope")
	assert.ErrorIs(t, err, favorites.ErrUnknownSymbol)
}

func TestRadar_StartRunsFirstBatchOnFreshStart(t *testing.T) {
	r, f := newRadar(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Load(ctx)

	require.NoError(t, r.Start(ctx))
	<-r.Stop().Done()

	assert.GreaterOrEqual(t, f.Calls("ETH-USDT-SWAP"), 1)
	assert.GreaterOrEqual(t, r.Cache.Len(), 2)
}
