// Package favorites keeps the user's short list of symbols and refreshes
// their cards every second, independently of the batch scan.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"RSIRadar/internal/store"

	"go.uber.org/zap"
)

// MaxFavorites is the hard cap on the list length.
const MaxFavorites = 9

var (
	ErrDuplicateFavorite     = errors.New("symbol is already a favorite")
	ErrFavoriteLimitExceeded = errors.New("favorite limit reached")
	ErrUnknownSymbol         = errors.New("symbol not in universe")
)

// Membership is satisfied by *universe.Universe.
type Membership interface {
	Contains(symbol string) bool
}

// Set is the ordered favorites list. Every mutation is persisted.
type Set struct {
	// writeMu orders each mutation together with its save and notification.
	writeMu   sync.Mutex
	mu        sync.RWMutex
	symbols   []string
	max       int
	universe  Membership
	store     store.Store
	logger    *zap.Logger
	listeners []func([]string)
}

// NewSet creates an empty set capped at limit (MaxFavorites when out of range).
func NewSet(u Membership, st store.Store, limit int, logger *zap.Logger) *Set {
	if limit <= 0 || limit > MaxFavorites {
		limit = MaxFavorites
	}
	if st == nil {
		st = store.NewNoopStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Set{max: limit, universe: u, store: st, logger: logger}
}

// Load restores the persisted list, dropping unknown and duplicate ids and
// truncating to the cap.
func (s *Set) Load(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	saved, err := s.store.LoadFavorites(ctx)
	if err != nil {
		s.logger.Warn("favorites unreadable, starting empty", zap.Error(err))
		saved = nil
	}

	seen := make(map[string]bool, len(saved))
	kept := make([]string, 0, len(saved))
	for _, sym := range saved {
		if seen[sym] || !s.universe.Contains(sym) {
			s.logger.Info("dropping stored favorite", zap.String("symbol", sym))
			continue
		}
		if len(kept) == s.max {
			break
		}
		seen[sym] = true
		kept = append(kept, sym)
	}

	s.mu.Lock()
	s.symbols = kept
	s.mu.Unlock()
	s.notify(s.List())
}

// Add appends symbol. Nothing changes when it returns an error.
func (s *Set) Add(ctx context.Context, symbol string) error {
	if !s.universe.Contains(symbol) {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	for _, f := range s.symbols {
		if f == symbol {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateFavorite, symbol)
		}
	}
	if len(s.symbols) >= s.max {
		s.mu.Unlock()
		return fmt.Errorf("%w: max %d", ErrFavoriteLimitExceeded, s.max)
	}
	s.symbols = append(s.symbols, symbol)
	list := s.copyLocked()
	s.mu.Unlock()

	s.persist(ctx, list)
	s.notify(list)
	return nil
}

// Remove drops symbol and reports whether it was present.
func (s *Set) Remove(ctx context.Context, symbol string) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	idx := -1
	for i, f := range s.symbols {
		if f == symbol {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.symbols = append(s.symbols[:idx:idx], s.symbols[idx+1:]...)
	list := s.copyLocked()
	s.mu.Unlock()

	s.persist(ctx, list)
	s.notify(list)
	return true
}

// List returns the favorites in insertion order.
func (s *Set) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Set) Contains(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.symbols {
		if f == symbol {
			return true
		}
	}
	return false
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols)
}

// OnChange registers fn to receive the full list after every change.
func (s *Set) OnChange(fn func([]string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Max returns the configured cap.
func (s *Set) Max() int { return s.max }

func (s *Set) persist(ctx context.Context, list []string) {
	if err := s.store.SaveFavorites(ctx, list); err != nil {
		s.logger.Error("persist favorites", zap.Error(err))
	}
}

func (s *Set) notify(list []string) {
	s.mu.RLock()
	listeners := append([]func([]string){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(list)
	}
}

func (s *Set) copyLocked() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}
