package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"RSIRadar/internal/collector"
	"RSIRadar/internal/metrics"
	"RSIRadar/internal/radar"
	"RSIRadar/internal/ranking"
	"RSIRadar/internal/universe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type env struct {
	radar  *radar.Radar
	hub    *Hub
	router *gin.Engine
}

func newEnv(t *testing.T, n int) *env {
	t.Helper()
	syms := make([]string, n)
	for i := range syms {
		syms[i] = fmt.Sprintf("C%02d-USDT-SWAP", i)
	}
	u, err := universe.Build(nil, syms)
	require.NoError(t, err)
	u = u.WithSuffix("-USDT-SWAP")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := radar.New(u, collector.NewMockFetcher(syms...), nil, radar.Options{
		BatchSize: 4,
		PageSize:  10,
		Suffix:    "-USDT-SWAP",
	}, m, nil)
	r.Load(context.Background())

	hub := NewHub(nil)
	hub.Subscribe(r)
	return &env{radar: r, hub: hub, router: NewRouter(NewHandler(r, nil), hub, reg, nil)}
}

func (e *env) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthAndUniverse(t *testing.T) {
	e := newEnv(t, 10)

	w := e.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, 10.0, health["universe"])
	assert.Equal(t, "LOADING", health["phase"])

	w = e.do(t, http.MethodGet, "/api/universe", "")
	require.Equal(t, http.StatusOK, w.Code)
	var uni struct {
		Data        []radar.BlockInfo `json:"data"`
		TotalBlocks int               `json:"total_blocks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uni))
	assert.Len(t, uni.Data, 10)
	assert.Equal(t, 3, uni.TotalBlocks)
	assert.Equal(t, "C00USDT.P", uni.Data[0].DisplayName)
}

func TestTableAndProgressAfterBatch(t *testing.T) {
	e := newEnv(t, 10)
	_, ok := e.radar.Scheduler.Tick(context.Background())
	require.True(t, ok)

	w := e.do(t, http.MethodGet, "/api/table?sort=desc&page=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page ranking.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, ranking.SortDesc, page.Sort)
	assert.Equal(t, 4, page.TotalRows)

	w = e.do(t, http.MethodGet, "/api/table?page=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"coverage_percent":40`)

	w = e.do(t, http.MethodGet, "/api/rsi", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "C03-USDT-SWAP")
}

func TestFavoritesLifecycle(t *testing.T) {
	e := newEnv(t, 12)

	w := e.do(t, http.MethodPost, "/api/favorites", `{"symbol":"c00"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"symbol":"C00-USDT-SWAP"`)

	w = e.do(t, http.MethodPost, "/api/favorites", `{"symbol":"C00-USDT-SWAP"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/favorites", `{"symbol":"doge"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/api/favorites", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for i := 1; i < 9; i++ {
		w = e.do(t, http.MethodPost, "/api/favorites", fmt.Sprintf(`{"symbol":"C%02d"}`, i))
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w = e.do(t, http.MethodPost, "/api/favorites", `{"symbol":"C09"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodGet, "/api/favorites", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Data, 9)

	w = e.do(t, http.MethodDelete, "/api/favorites/C00-USDT-SWAP", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, http.MethodDelete, "/api/favorites/C00-USDT-SWAP", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, e.radar.Favorites(), 8)
}

func TestLive(t *testing.T) {
	e := newEnv(t, 3)

	w := e.do(t, http.MethodGet, "/api/symbols/c01/live", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "C01-USDT-SWAP", resp["symbol"])
	assert.Equal(t, "ok", resp["status"])
	assert.NotNil(t, resp["rsi"])

	w = e.do(t, http.MethodGet, "/api/symbols/zzz/live", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t, 4)
	e.radar.Scheduler.Tick(context.Background())

	w := e.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rsiradar_batches_total 1")
}

func TestWebsocketReceivesBatch(t *testing.T) {
	e := newEnv(t, 4)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return e.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	e.radar.Scheduler.Tick(context.Background())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type != MessageBatch {
			continue
		}
		var ev struct {
			Block   int      `json:"block"`
			Symbols []string `json:"symbols"`
		}
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, 1, ev.Block)
		assert.Len(t, ev.Symbols, 4)
		return
	}
}
