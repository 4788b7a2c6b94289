// Package universe builds the ordered, deduplicated instrument working set.
package universe

import (
	"errors"
	"strings"
)

var ErrEmptyUniverse = errors.New("discovery returned no instruments")

// Universe is an immutable ordered symbol list: pinned symbols first, then the
// rest of the discovered symbols in discovery order.
type Universe struct {
	symbols []string
	index   map[string]int
	suffix  string
}

// Build returns pinned ++ (discovered minus pinned), fully deduplicated.
func Build(pinned, discovered []string) (*Universe, error) {
	u := &Universe{index: make(map[string]int, len(pinned)+len(discovered))}

	found := 0
	for _, s := range discovered {
		if strings.TrimSpace(s) != "" {
			found++
		}
	}
	if found == 0 {
		return nil, ErrEmptyUniverse
	}

	for _, s := range pinned {
		u.add(s)
	}
	for _, s := range discovered {
		u.add(s)
	}
	return u, nil
}

// WithSuffix sets the quote suffix used by Resolve and DisplayName.
func (u *Universe) WithSuffix(suffix string) *Universe {
	u.suffix = suffix
	return u
}

func (u *Universe) add(symbol string) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return
	}
	if _, dup := u.index[symbol]; dup {
		return
	}
	u.index[symbol] = len(u.symbols)
	u.symbols = append(u.symbols, symbol)
}

// Symbols returns a copy of the ordered symbol list.
func (u *Universe) Symbols() []string {
	out := make([]string, len(u.symbols))
	copy(out, u.symbols)
	return out
}

// Slice returns the symbols in [from, to), clamped to the universe.
func (u *Universe) Slice(from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > len(u.symbols) {
		to = len(u.symbols)
	}
	if from >= to {
		return nil
	}
	out := make([]string, to-from)
	copy(out, u.symbols[from:to])
	return out
}

func (u *Universe) Len() int { return len(u.symbols) }

func (u *Universe) Contains(symbol string) bool {
	_, ok := u.index[symbol]
	return ok
}

// IndexOf returns the position of symbol, or -1.
func (u *Universe) IndexOf(symbol string) int {
	if i, ok := u.index[symbol]; ok {
		return i
	}
	return -1
}

// TotalBatches is ceil(Len / batchSize).
func (u *Universe) TotalBatches(batchSize int) int {
	if batchSize <= 0 || len(u.symbols) == 0 {
		return 0
	}
	return (len(u.symbols) + batchSize - 1) / batchSize
}

// BlockOf returns the 1-based batch number holding symbol, or 0 if absent.
func (u *Universe) BlockOf(symbol string, batchSize int) int {
	i, ok := u.index[symbol]
	if !ok || batchSize <= 0 {
		return 0
	}
	return i/batchSize + 1
}

// Resolve accepts a full instrument id or a short coin name ("btc") and
// returns the matching universe symbol.
func (u *Universe) Resolve(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	if u.Contains(input) {
		return input, true
	}
	upper := strings.ToUpper(input)
	if u.Contains(upper) {
		return upper, true
	}
	if u.suffix != "" {
		candidate := upper + u.suffix
		if u.Contains(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// DisplayName renders BTC-USDT-SWAP as BTCUSDT.P.
func (u *Universe) DisplayName(symbol string) string {
	return DisplayName(symbol, u.suffix)
}

// DisplayName renders a swap id in the short perpetual form used by charting tools.
func DisplayName(symbol, suffix string) string {
	if suffix != "" && strings.HasSuffix(symbol, suffix) {
		quote := strings.TrimSuffix(strings.TrimPrefix(suffix, "-"), "-SWAP")
		return strings.TrimSuffix(symbol, suffix) + quote + ".P"
	}
	return symbol
}
