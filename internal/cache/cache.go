// Package cache holds the latest MetricRecord per symbol and writes the whole
// snapshot through to a store.Store after every merge.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RSIRadar/internal/model"
	"RSIRadar/internal/store"

	"go.uber.org/zap"
)

// Membership is the subset of the universe the cache needs for coverage math.
type Membership interface {
	Contains(symbol string) bool
}

// Cache maps symbol -> latest MetricRecord. Entries are only added or
// overwritten during a process lifetime; Prune is a startup-only operation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]model.MetricRecord
	store   store.Store
	logger  *zap.Logger

	// OnSave, when set, receives the duration of every snapshot write.
	OnSave func(time.Duration)
}

// New creates an empty cache backed by st.
func New(st store.Store, logger *zap.Logger) *Cache {
	if st == nil {
		st = store.NewNoopStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		entries: make(map[string]model.MetricRecord),
		store:   st,
		logger:  logger,
	}
}

// Load rehydrates from the last durable snapshot. A missing or unreadable
// snapshot leaves the cache empty; it never fails startup.
func (c *Cache) Load(ctx context.Context) {
	snap, err := c.store.LoadSnapshot(ctx)
	if err != nil {
		c.logger.Warn("metric snapshot unreadable, starting empty", zap.Error(err))
		snap = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]model.MetricRecord, len(snap))
	for sym, rec := range snap {
		if sym == "" {
			continue
		}
		rec.Symbol = sym
		c.entries[sym] = rec
	}
	c.logger.Info("metric cache loaded", zap.Int("entries", len(c.entries)))
}

// Get returns the record for symbol, if any.
func (c *Cache) Get(symbol string) (model.MetricRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[symbol]
	return rec, ok
}

// MergeBatch inserts or overwrites every record in results, then persists the
// full snapshot, also when results is empty. The in-memory merge stands even
// when persistence fails.
func (c *Cache) MergeBatch(ctx context.Context, results map[string]model.MetricRecord) error {
	c.mu.Lock()
	for sym, rec := range results {
		rec.Symbol = sym
		c.entries[sym] = rec
	}
	snap := c.copyLocked()
	c.mu.Unlock()

	start := time.Now()
	err := c.store.SaveSnapshot(ctx, snap)
	if c.OnSave != nil {
		c.OnSave(time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// Snapshot returns a copy of every entry.
func (c *Cache) Snapshot() map[string]model.MetricRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyLocked()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CoveredBy counts entries whose symbol belongs to u.
func (c *Cache) CoveredBy(u Membership) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for sym := range c.entries {
		if u.Contains(sym) {
			n++
		}
	}
	return n
}

// Prune drops entries that are not in u and returns how many were removed.
// Call it before the scheduler starts; it breaks monotonic coverage otherwise.
func (c *Cache) Prune(u Membership) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for sym := range c.entries {
		if !u.Contains(sym) {
			delete(c.entries, sym)
			removed++
		}
	}
	return removed
}

func (c *Cache) copyLocked() map[string]model.MetricRecord {
	out := make(map[string]model.MetricRecord, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
