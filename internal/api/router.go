package api

import (
	"time"

	"RSIRadar/internal/favorites"
	"RSIRadar/internal/progress"
	"RSIRadar/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handler, hub *Hub, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))

	r.GET("/health", h.Health)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	if hub != nil {
		r.GET("/ws", hub.ServeWS)
	}

	api := r.Group("/api")
	{
		api.GET("/universe", h.Universe)
		api.GET("/rsi", h.RSI)
		api.GET("/table", h.Table)
		api.GET("/progress", h.Progress)
		api.GET("/favorites", h.ListFavorites)
		api.POST("/favorites", h.AddFavorite)
		api.DELETE("/favorites/:symbol", h.RemoveFavorite)
		api.GET("/symbols/:symbol/live", h.Live)
	}
	return r
}

// RequestLogger logs each request once it completes. Successful requests
// are logged at debug.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case status >= 500:
			logger.Error("server error", fields...)
		case status >= 400:
			logger.Warn("client error", fields...)
		default:
			logger.Debug("request completed", fields...)
		}
	}
}

// EventSource is the subscription side of radar.Radar.
type EventSource interface {
	OnBatch(fn func(scheduler.BatchEvent))
	OnCard(fn func(prev, next favorites.Card))
	OnProgress(fn func(progress.State))
}

// Subscribe forwards every radar event to the websocket clients.
func (h *Hub) Subscribe(src EventSource) {
	src.OnBatch(func(ev scheduler.BatchEvent) { h.Broadcast(MessageBatch, ev) })
	src.OnCard(func(_, next favorites.Card) { h.Broadcast(MessageFavorite, next) })
	src.OnProgress(func(s progress.State) { h.Broadcast(MessageProgress, s) })
}
