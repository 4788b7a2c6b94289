package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RSIRadar/internal/api"
	"RSIRadar/internal/collector"
	"RSIRadar/internal/config"
	"RSIRadar/internal/logger"
	"RSIRadar/internal/metrics"
	"RSIRadar/internal/notifier"
	"RSIRadar/internal/radar"
	"RSIRadar/internal/store"
	"RSIRadar/internal/universe"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic("load config: " + err.Error())
	}

	z, err := logger.New(cfg.Logging.Level)
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer z.Sync()

	if err := cfg.Validate(); err != nil {
		z.Fatal("config validation", zap.Error(err))
	}
	z.Info("RSIRadar starting", zap.String("config", cfgPath), zap.String("store", cfg.Store.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := store.Open(ctx, store.Config{
		Driver:        cfg.Store.Driver,
		Dir:           cfg.Store.Dir,
		SQLitePath:    cfg.Store.SQLitePath,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		RedisPrefix:   cfg.Store.RedisPrefix,
	})
	if err != nil {
		z.Fatal("open store", zap.Error(err))
	}
	defer st.Close()

	fetcher := collector.NewOKXFetcher(cfg.Market.BaseURL, cfg.Market.InstType, cfg.Proxy)
	z.Info("data source", zap.String("provider", fetcher.Name()), zap.String("base_url", cfg.Market.BaseURL))

	discovered, err := universe.Discover(ctx, fetcher, cfg.Market.QuoteSuffix, universe.RetryPolicy{
		InitialInterval: cfg.Discovery.InitialInterval,
		MaxElapsed:      cfg.Discovery.MaxElapsed,
	}, z.Named("universe"))
	if err != nil {
		z.Fatal("discover instruments", zap.Error(err))
	}
	u, err := universe.Build(cfg.Market.Pinned, discovered)
	if err != nil {
		z.Fatal("build universe", zap.Error(err))
	}
	u = u.WithSuffix(cfg.Market.QuoteSuffix)
	z.Info("universe ready", zap.Int("symbols", u.Len()), zap.Int("pinned", len(cfg.Market.Pinned)))

	r := radar.New(u, fetcher, st, radar.Options{
		Bar:           cfg.Market.Bar,
		CandleLimit:   cfg.Market.CandleLimit,
		RSIPeriod:     cfg.Scan.RSIPeriod,
		FetchTimeout:  cfg.Market.FetchTimeout,
		BatchSize:     cfg.Scan.BatchSize,
		TickPeriod:    cfg.Scan.TickPeriod,
		SettleDelay:   cfg.Scan.SettleDelay,
		PruneDelisted: cfg.Scan.PruneDelisted,
		MaxFavorites:  cfg.Favorites.Max,
		FavoritesTick: cfg.Favorites.TickPeriod,
		PageSize:      cfg.HTTP.PageSize,
		Suffix:        cfg.Market.QuoteSuffix,
	}, m, z)
	r.Load(ctx)

	hub := api.NewHub(z.Named("ws"))
	hub.Subscribe(r)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(api.NewHandler(r, z.Named("api")), hub, reg, z.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		z.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			z.Fatal("http server", zap.Error(err))
		}
	}()

	if cfg.TelegramEnabled() {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, z.Named("telegram"))
		console := notifier.NewConsole(r, tn, z.Named("telegram"))
		console.Attach(ctx)
		go tn.StartPolling(ctx, console.HandleCommand)
		z.Info("telegram console started")
	}

	if err := r.Start(ctx); err != nil {
		z.Fatal("start radar", zap.Error(err))
	}
	z.Info("RSIRadar is running. Press Ctrl+C to stop.")

	<-ctx.Done()
	z.Info("shutdown signal received, stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	select {
	case <-r.Stop().Done():
	case <-shutdownCtx.Done():
		z.Warn("running batch did not finish before shutdown deadline")
	}
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		z.Error("http shutdown", zap.Error(err))
	}
	z.Info("RSIRadar stopped")
}
