package progress

import (
	"context"
	"sync"
	"time"

	"RSIRadar/internal/metrics"
	"RSIRadar/internal/store"

	"go.uber.org/zap"
)

// Tracker holds the live progress State.
type Tracker struct {
	mu        sync.Mutex
	state     State
	params    Params
	store     store.Store
	metrics   *metrics.Metrics
	logger    *zap.Logger
	listeners []func(State)
	now       func() time.Time
}

// NewTracker creates a tracker in LOADING. Call Load to pick up a persisted
// cycle flag.
func NewTracker(st store.Store, params Params, m *metrics.Metrics, logger *zap.Logger) *Tracker {
	if st == nil {
		st = store.NewNoopStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if params.SettleDelay <= 0 {
		params.SettleDelay = DefaultSettleDelay
	}
	return &Tracker{
		state:   State{Phase: PhaseLoading},
		params:  params,
		store:   st,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Load reads the persisted cycle flag. Read errors are treated as "not set".
func (t *Tracker) Load(ctx context.Context) {
	done, err := t.store.LoadCycleCompleted(ctx)
	if err != nil {
		t.logger.Warn("cycle flag unreadable, assuming first run", zap.Error(err))
		done = false
	}
	t.mu.Lock()
	t.params.CycleCompleted = done
	t.mu.Unlock()
}

// CycleCompleted reports whether a full cycle has ever completed.
func (t *Tracker) CycleCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.params.CycleCompleted
}

// OnChange registers fn to be called after every phase change.
func (t *Tracker) OnChange(fn func(State)) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

// Observe feeds one coverage sample and returns the resulting State.
func (t *Tracker) Observe(ctx context.Context, covered, total int) State {
	t.mu.Lock()
	prev := t.state
	next, settled := Transition(prev, Observation{Covered: covered, Total: total, Now: t.now()}, t.params)
	t.state = next
	if settled {
		t.params.CycleCompleted = true
	}
	var listeners []func(State)
	if next.Phase != prev.Phase {
		listeners = append(listeners, t.listeners...)
	}
	t.mu.Unlock()

	t.metrics.SetProgress(next.CoveragePercent, next.Phase.Gauge())

	if settled {
		if err := t.store.SaveCycleCompleted(ctx, true); err != nil {
			t.logger.Error("persist cycle flag", zap.Error(err))
		}
	}
	if next.Phase != prev.Phase {
		t.logger.Info("progress phase changed",
			zap.String("from", string(prev.Phase)),
			zap.String("to", string(next.Phase)),
			zap.Int("coverage", next.CoveragePercent),
		)
	}
	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// State returns the last computed State.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
