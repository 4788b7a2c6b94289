// Package progress derives how complete and how stale the metric cache is.
//
// Transition is pure; Tracker owns the current State and performs the side
// effects (persisting the cycle flag, gauges, listeners).
package progress

import (
	"math"
	"time"
)

// Phase of the first-cycle lifecycle.
type Phase string

const (
	PhaseLoading  Phase = "LOADING"
	PhaseSettling Phase = "SETTLING"
	PhaseSettled  Phase = "SETTLED"
)

// DefaultSettleDelay is the countdown between first reaching full coverage
// and declaring the cache settled.
const DefaultSettleDelay = 14 * time.Second

// Gauge maps the phase to the value exported on rsiradar_progress_phase.
func (p Phase) Gauge() int {
	switch p {
	case PhaseSettling:
		return 1
	case PhaseSettled:
		return 2
	default:
		return 0
	}
}

// State is the derived progress view. Only the cycle-completed flag behind
// it is persisted.
type State struct {
	Phase            Phase     `json:"phase"`
	CoveragePercent  int       `json:"coverage_percent"`
	Covered          int       `json:"covered"`
	Total            int       `json:"total"`
	RemainingBatches int       `json:"remaining_batches"`
	ETASeconds       int       `json:"eta_seconds"`
	Countdown        int       `json:"countdown"`
	SettleDeadline   time.Time `json:"settle_deadline,omitempty"`
}

// Observation is one coverage sample.
type Observation struct {
	Covered int
	Total   int
	Now     time.Time
}

// Params are the scan settings the estimate depends on.
type Params struct {
	BatchSize      int
	TickPeriod     time.Duration
	SettleDelay    time.Duration
	CycleCompleted bool
}

// Coverage returns floor(100*covered/total), or 0 for an empty universe.
func Coverage(covered, total int) int {
	if total <= 0 {
		return 0
	}
	if covered > total {
		covered = total
	}
	if covered < 0 {
		covered = 0
	}
	return 100 * covered / total
}

// Transition computes the next State. The bool is true only on the step that
// enters SETTLED from a countdown, which is when the flag must be persisted.
func Transition(prev State, obs Observation, p Params) (State, bool) {
	next := State{
		Covered:         clamp(obs.Covered, 0, obs.Total),
		Total:           obs.Total,
		CoveragePercent: Coverage(obs.Covered, obs.Total),
	}

	if prev.Phase == PhaseSettled {
		next.Phase = PhaseSettled
		return next, false
	}

	if next.CoveragePercent < 100 {
		next.Phase = PhaseLoading
		next.RemainingBatches = ceilDiv(next.Total-next.Covered, p.BatchSize)
		next.ETASeconds = int(math.Ceil(float64(next.RemainingBatches) * p.TickPeriod.Seconds()))
		return next, false
	}

	if p.CycleCompleted {
		next.Phase = PhaseSettled
		return next, false
	}

	deadline := prev.SettleDeadline
	if prev.Phase != PhaseSettling || deadline.IsZero() {
		deadline = obs.Now.Add(p.SettleDelay)
	}
	if !obs.Now.Before(deadline) {
		next.Phase = PhaseSettled
		return next, true
	}
	next.Phase = PhaseSettling
	next.SettleDeadline = deadline
	next.Countdown = int(math.Ceil(deadline.Sub(obs.Now).Seconds()))
	return next, false
}

// WaitSeconds estimates how long until block is refreshed again, given the
// cursor of the next batch to dispatch.
func WaitSeconds(block, cursor, batchSize, n int, tick time.Duration) int {
	if batchSize <= 0 || n <= 0 || block <= 0 {
		return 0
	}
	total := ceilDiv(n, batchSize)
	current := cursor/batchSize + 1
	ahead := ((block-current)%total + total) % total
	return int(math.Ceil(float64(ahead) * tick.Seconds()))
}

func ceilDiv(a, b int) int {
	if b <= 0 || a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
