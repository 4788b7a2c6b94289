// Package ranking turns the metric cache into ordered, paginated table rows.
package ranking

import (
	"sort"
	"strings"
	"time"

	"RSIRadar/internal/model"
	"RSIRadar/internal/progress"
	"RSIRadar/internal/universe"
)

// DefaultPageSize is the number of rows per table page.
const DefaultPageSize = 10

// SortOrder selects the row ordering.
type SortOrder string

const (
	SortDefault SortOrder = "default" // universe order
	SortDesc    SortOrder = "desc"
	SortAsc     SortOrder = "asc"
)

// ParseSort accepts "desc", "asc" or anything else as default.
func ParseSort(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortDesc:
		return SortDesc
	case SortAsc:
		return SortAsc
	default:
		return SortDefault
	}
}

// Next cycles default -> desc -> asc -> default.
func (o SortOrder) Next() SortOrder {
	switch o {
	case SortDesc:
		return SortAsc
	case SortAsc:
		return SortDefault
	default:
		return SortDesc
	}
}

// Row is one table line.
type Row struct {
	Rank        int             `json:"rank"`
	Symbol      string          `json:"symbol"`
	DisplayName string          `json:"display_name"`
	RSI         *float64        `json:"rsi"`
	Status      model.RSIStatus `json:"status"`
	Placeholder string          `json:"placeholder,omitempty"`
	Zone        Zone            `json:"zone,omitempty"`
	Block       int             `json:"block"`
	RefreshIn   int             `json:"refresh_in_seconds"`
	Favorite    bool            `json:"favorite"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Page is one page of rows.
type Page struct {
	Sort       SortOrder `json:"sort"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
	TotalRows  int       `json:"total_rows"`
	Rows       []Row     `json:"rows"`
}

// Input is everything a table render reads.
type Input struct {
	Order      []string
	Records    map[string]model.MetricRecord
	Favorites  []string
	Suffix     string
	BatchSize  int
	Cursor     int
	TickPeriod time.Duration
}

// Build orders the cached symbols and cuts out the requested page. Symbols
// without a record are not listed; records without a value sort last.
func Build(in Input, order SortOrder, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	position := make(map[string]int, len(in.Order))
	for i, sym := range in.Order {
		position[sym] = i
	}
	favs := make(map[string]bool, len(in.Favorites))
	for _, f := range in.Favorites {
		favs[f] = true
	}

	recs := make([]model.MetricRecord, 0, len(in.Records))
	for _, sym := range in.Order {
		if rec, ok := in.Records[sym]; ok {
			rec.Symbol = sym
			recs = append(recs, rec)
		}
	}
	sortRecords(recs, order)

	totalPages := (len(recs) + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, len(recs))
	if start > end {
		start = end
	}

	n := len(in.Order)
	rows := make([]Row, 0, end-start)
	for i, rec := range recs[start:end] {
		block := 0
		if in.BatchSize > 0 {
			block = position[rec.Symbol]/in.BatchSize + 1
		}
		row := Row{
			Rank:        start + i + 1,
			Symbol:      rec.Symbol,
			DisplayName: universe.DisplayName(rec.Symbol, in.Suffix),
			Status:      rec.Status,
			Placeholder: rec.Placeholder(),
			Zone:        Classify(rec),
			Block:       block,
			RefreshIn:   progress.WaitSeconds(block, in.Cursor, in.BatchSize, n, in.TickPeriod),
			Favorite:    favs[rec.Symbol],
			UpdatedAt:   rec.UpdatedAt,
		}
		if v, ok := rec.Value(); ok {
			row.RSI = &v
		}
		rows = append(rows, row)
	}

	return Page{
		Sort:       order,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalRows:  len(recs),
		Rows:       rows,
	}
}

// Extremes returns up to n records with a value, highest first when top is
// true and lowest first otherwise.
func Extremes(order []string, records map[string]model.MetricRecord, n int, top bool) []model.MetricRecord {
	recs := make([]model.MetricRecord, 0, len(records))
	for _, sym := range order {
		rec, ok := records[sym]
		if !ok {
			continue
		}
		if _, ok := rec.Value(); ok {
			rec.Symbol = sym
			recs = append(recs, rec)
		}
	}
	if top {
		sortRecords(recs, SortDesc)
	} else {
		sortRecords(recs, SortAsc)
	}
	if n > 0 && len(recs) > n {
		recs = recs[:n]
	}
	return recs
}

func sortRecords(recs []model.MetricRecord, order SortOrder) {
	if order != SortDesc && order != SortAsc {
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		vi, oki := recs[i].Value()
		vj, okj := recs[j].Value()
		if oki != okj {
			return oki
		}
		if !oki {
			return false
		}
		if order == SortDesc {
			return vi > vj
		}
		return vi < vj
	})
}
