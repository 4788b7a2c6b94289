// Package api serves the read surface over HTTP and pushes batch, favorite
// and progress events over a websocket.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"RSIRadar/internal/collector"
	"RSIRadar/internal/favorites"
	"RSIRadar/internal/model"
	"RSIRadar/internal/progress"
	"RSIRadar/internal/radar"
	"RSIRadar/internal/ranking"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service is the part of radar.Radar the handlers read from.
type Service interface {
	UniverseBlocks() []radar.BlockInfo
	CacheSnapshot() map[string]model.MetricRecord
	Progress() progress.State
	Favorites() []favorites.Card
	AddFavorite(ctx context.Context, input string) (string, error)
	RemoveFavorite(ctx context.Context, input string) (string, bool)
	Table(order ranking.SortOrder, page int) ranking.Page
	Live(ctx context.Context, input string) (*collector.Quote, error)
	DisplayName(symbol string) string
}

// Handler implements the HTTP endpoints.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

func NewHandler(svc Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Health reports liveness plus the universe size and progress phase.
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"universe": len(h.svc.UniverseBlocks()),
		"phase":    h.svc.Progress().Phase,
	})
}

// Universe lists the scan order with batch numbers.
// GET /api/universe
func (h *Handler) Universe(c *gin.Context) {
	blocks := h.svc.UniverseBlocks()
	total := 0
	if len(blocks) > 0 {
		total = blocks[len(blocks)-1].Block
	}
	c.JSON(http.StatusOK, gin.H{"data": blocks, "total_blocks": total})
}

// RSI returns the whole metric cache.
// GET /api/rsi
func (h *Handler) RSI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.svc.CacheSnapshot()})
}

// Table returns one ranked page.
// GET /api/table?sort=default|desc|asc&page=N
func (h *Handler) Table(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	c.JSON(http.StatusOK, h.svc.Table(ranking.ParseSort(c.Query("sort")), page))
}

// Progress returns the loading/settling state.
// GET /api/progress
func (h *Handler) Progress(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Progress())
}

// ListFavorites returns the favorite cards.
// GET /api/favorites
func (h *Handler) ListFavorites(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.svc.Favorites()})
}

type addFavoriteRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// AddFavorite adds a symbol by full id or short coin name.
// POST /api/favorites
func (h *Handler) AddFavorite(c *gin.Context) {
	var req addFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	sym, err := h.svc.AddFavorite(c.Request.Context(), req.Symbol)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, favorites.ErrUnknownSymbol):
			status = http.StatusNotFound
		case errors.Is(err, favorites.ErrDuplicateFavorite):
			status = http.StatusConflict
		case errors.Is(err, favorites.ErrFavoriteLimitExceeded):
			status = http.StatusUnprocessableEntity
		default:
			h.logger.Error("add favorite", zap.String("input", req.Symbol), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"symbol": sym, "display_name": h.svc.DisplayName(sym)})
}

// RemoveFavorite drops a favorite; removing an absent one succeeds.
// DELETE /api/favorites/:symbol
func (h *Handler) RemoveFavorite(c *gin.Context) {
	h.svc.RemoveFavorite(c.Request.Context(), c.Param("symbol"))
	c.Status(http.StatusNoContent)
}

type liveResponse struct {
	Symbol      string          `json:"symbol"`
	DisplayName string          `json:"display_name"`
	Price       decimal.Decimal `json:"price"`
	RSI         *float64        `json:"rsi"`
	Status      model.RSIStatus `json:"status"`
	Placeholder string          `json:"placeholder,omitempty"`
	Zone        ranking.Zone    `json:"zone,omitempty"`
	CandleTime  time.Time       `json:"candle_time"`
}

// Live fetches one symbol on demand.
// GET /api/symbols/:symbol/live
func (h *Handler) Live(c *gin.Context) {
	q, err := h.svc.Live(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, favorites.ErrUnknownSymbol):
			status = http.StatusNotFound
		case errors.Is(err, collector.ErrFetchTimeout):
			status = http.StatusGatewayTimeout
		default:
			h.logger.Warn("live lookup failed", zap.String("symbol", c.Param("symbol")), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	resp := liveResponse{
		Symbol:      q.Symbol,
		DisplayName: h.svc.DisplayName(q.Symbol),
		Price:       q.Price,
		Status:      q.Record.Status,
		Placeholder: q.Record.Placeholder(),
		Zone:        ranking.Classify(q.Record),
		CandleTime:  q.CandleTime,
	}
	if v, ok := q.Record.Value(); ok {
		resp.RSI = &v
	}
	c.JSON(http.StatusOK, resp)
}
