// Package metrics holds the Prometheus collectors for the scan loop, the
// favorites poller and the store. Every method is safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Loop labels for TickSkipped.
const (
	LoopBatch     = "batch"
	LoopFavorites = "favorites"
)

// Metrics holds all Prometheus metrics for the radar.
type Metrics struct {
	BatchesTotal     prometheus.Counter
	BatchDuration    prometheus.Histogram
	SymbolUpdates    prometheus.Counter
	SymbolFailures   *prometheus.CounterVec // labels: reason
	TicksSkipped     *prometheus.CounterVec // labels: loop
	CacheEntries     prometheus.Gauge
	CoveragePercent  prometheus.Gauge
	ProgressPhase    prometheus.Gauge
	FavoriteRefresh  *prometheus.CounterVec // labels: result
	StoreSaveSeconds prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsiradar_batches_total",
			Help: "Total scan batches dispatched",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsiradar_batch_duration_seconds",
			Help:    "Wall time of one batch from dispatch to merge",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		SymbolUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsiradar_symbol_updates_total",
			Help: "Metric records merged into the cache",
		}),
		SymbolFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsiradar_symbol_failures_total",
			Help: "Per-symbol fetch or compute failures",
		}, []string{"reason"}),
		TicksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsiradar_ticks_skipped_total",
			Help: "Ticks skipped because the previous run was still in flight",
		}, []string{"loop"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsiradar_cache_entries",
			Help: "Entries currently held in the metric cache",
		}),
		CoveragePercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsiradar_coverage_percent",
			Help: "Share of the universe with a cached record",
		}),
		ProgressPhase: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsiradar_progress_phase",
			Help: "Progress phase: 0=loading, 1=settling, 2=settled",
		}),
		FavoriteRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsiradar_favorite_refresh_total",
			Help: "Favorite card refreshes by result",
		}, []string{"result"}),
		StoreSaveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsiradar_store_save_duration_seconds",
			Help:    "Time spent persisting the metric snapshot",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.BatchesTotal,
			m.BatchDuration,
			m.SymbolUpdates,
			m.SymbolFailures,
			m.TicksSkipped,
			m.CacheEntries,
			m.CoveragePercent,
			m.ProgressPhase,
			m.FavoriteRefresh,
			m.StoreSaveSeconds,
		)
	}
	return m
}

func (m *Metrics) ObserveBatch(d time.Duration, updated int) {
	if m == nil {
		return
	}
	m.BatchesTotal.Inc()
	m.BatchDuration.Observe(d.Seconds())
	m.SymbolUpdates.Add(float64(updated))
}

func (m *Metrics) SymbolFailed(reason string) {
	if m == nil {
		return
	}
	m.SymbolFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) TickSkipped(loop string) {
	if m == nil {
		return
	}
	m.TicksSkipped.WithLabelValues(loop).Inc()
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

func (m *Metrics) SetProgress(coverage int, phase int) {
	if m == nil {
		return
	}
	m.CoveragePercent.Set(float64(coverage))
	m.ProgressPhase.Set(float64(phase))
}

func (m *Metrics) FavoriteRefreshed(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.FavoriteRefresh.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveStoreSave(d time.Duration) {
	if m == nil {
		return
	}
	m.StoreSaveSeconds.Observe(d.Seconds())
}
