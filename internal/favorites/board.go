package favorites

import (
	"sync"
	"time"

	"RSIRadar/internal/collector"
	"RSIRadar/internal/model"
	"RSIRadar/internal/ranking"
	"RSIRadar/internal/universe"

	"github.com/shopspring/decimal"
)

// Card is the live view of one favorite.
type Card struct {
	Symbol      string             `json:"symbol"`
	DisplayName string             `json:"display_name"`
	Price       decimal.Decimal    `json:"price"`
	Record      model.MetricRecord `json:"record"`
	CandleTime  time.Time          `json:"candle_time"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Zone        ranking.Zone       `json:"zone,omitempty"`
	Loading     bool               `json:"loading"`
}

// Board holds one card per favorite, in favorites order.
type Board struct {
	mu        sync.RWMutex
	order     []string
	cards     map[string]Card
	suffix    string
	listeners []func(prev, next Card)
	now       func() time.Time
}

func NewBoard(suffix string) *Board {
	return &Board{cards: make(map[string]Card), suffix: suffix, now: time.Now}
}

// Sync reconciles cards with symbols: new favorites get a loading card and
// removed ones lose theirs.
func (b *Board) Sync(symbols []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	keep := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		keep[sym] = true
		if _, ok := b.cards[sym]; !ok {
			b.cards[sym] = Card{
				Symbol:      sym,
				DisplayName: universe.DisplayName(sym, b.suffix),
				Loading:     true,
			}
		}
	}
	for sym := range b.cards {
		if !keep[sym] {
			delete(b.cards, sym)
		}
	}
	b.order = append(b.order[:0], symbols...)
}

// Update applies a fresh quote. Quotes for symbols no longer on the board
// are dropped.
func (b *Board) Update(q *collector.Quote) (Card, bool) {
	b.mu.Lock()
	prev, ok := b.cards[q.Symbol]
	if !ok {
		b.mu.Unlock()
		return Card{}, false
	}
	next := Card{
		Symbol:      q.Symbol,
		DisplayName: prev.DisplayName,
		Price:       q.Price,
		Record:      q.Record,
		CandleTime:  q.CandleTime,
		UpdatedAt:   b.now(),
		Zone:        ranking.Classify(q.Record),
	}
	b.cards[q.Symbol] = next
	listeners := append([]func(prev, next Card){}, b.listeners...)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(prev, next)
	}
	return next, true
}

// Card returns the card for symbol.
func (b *Board) Card(symbol string) (Card, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.cards[symbol]
	return c, ok
}

// Cards returns every card in favorites order.
func (b *Board) Cards() []Card {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Card, 0, len(b.order))
	for _, sym := range b.order {
		if c, ok := b.cards[sym]; ok {
			out = append(out, c)
		}
	}
	return out
}

// OnUpdate registers fn to receive every refreshed card with its prior state.
func (b *Board) OnUpdate(fn func(prev, next Card)) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}
