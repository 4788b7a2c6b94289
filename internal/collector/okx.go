package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"RSIRadar/internal/model"

	"github.com/shopspring/decimal"
)

// OKXFetcher implements Fetcher using the OKX public v5 REST API.
type OKXFetcher struct {
	BaseURL  string
	InstType string
	Client   *http.Client
}

// NewOKXFetcher creates a new fetcher with optional proxy support.
func NewOKXFetcher(baseURL, instType, proxyURL string) *OKXFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if instType == "" {
		instType = "SWAP"
	}
	return &OKXFetcher{
		BaseURL:  baseURL,
		InstType: instType,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *OKXFetcher) Name() string { return "okx" }

// okxEnvelope is the common response wrapper of every v5 endpoint.
type okxEnvelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (f *OKXFetcher) ListInstruments(ctx context.Context) ([]string, error) {
	endpoint := fmt.Sprintf("%s/api/v5/public/instruments?instType=%s", f.BaseURL, url.QueryEscape(f.InstType))
	var rows []struct {
		InstID string `json:"instId"`
		State  string `json:"state"`
	}
	if err := f.get(ctx, endpoint, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.State != "" && r.State != "live" {
			continue
		}
		ids = append(ids, r.InstID)
	}
	return ids, nil
}

func (f *OKXFetcher) FetchCandles(ctx context.Context, symbol, bar string, limit int) ([]model.OHLCV, error) {
	endpoint := fmt.Sprintf("%s/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		f.BaseURL, url.QueryEscape(symbol), url.QueryEscape(bar), limit)
	var rows [][]string
	if err := f.get(ctx, endpoint, &rows); err != nil {
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}
	bars := make([]model.OHLCV, 0, len(rows))
	for _, r := range rows {
		bar, err := parseOKXCandle(r)
		if err != nil {
			return nil, fmt.Errorf("candles %s: %w: %w", symbol, ErrDecode, err)
		}
		bars = append(bars, bar)
	}
	// OKX returns newest first
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (f *OKXFetcher) FetchLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/api/v5/market/ticker?instId=%s", f.BaseURL, url.QueryEscape(symbol))
	var rows []struct {
		Last string `json:"last"`
	}
	if err := f.get(ctx, endpoint, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("ticker %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return decimal.Zero, fmt.Errorf("ticker %s: %w: empty data", symbol, ErrDecode)
	}
	price, err := decimal.NewFromString(rows[0].Last)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ticker %s: %w: %w", symbol, ErrDecode, err)
	}
	return price, nil
}

func (f *OKXFetcher) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d, body: %s", ErrFetch, resp.StatusCode, string(body))
	}

	var env okxEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if env.Code != "0" {
		return fmt.Errorf("%w: okx code %s: %s", ErrFetch, env.Code, env.Msg)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: data: %w", ErrDecode, err)
	}
	return nil
}

// parseOKXCandle decodes [ts, o, h, l, c, vol, ...].
func parseOKXCandle(row []string) (model.OHLCV, error) {
	if len(row) < 6 {
		return model.OHLCV{}, fmt.Errorf("candle has %d fields, want at least 6", len(row))
	}
	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return model.OHLCV{}, fmt.Errorf("timestamp %q: %w", row[0], err)
	}
	var vals [5]float64
	for i := 0; i < 5; i++ {
		d, err := decimal.NewFromString(row[i+1])
		if err != nil {
			return model.OHLCV{}, fmt.Errorf("field %d %q: %w", i+1, row[i+1], err)
		}
		vals[i] = d.InexactFloat64()
	}
	return model.OHLCV{
		Time:   time.UnixMilli(ms),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
