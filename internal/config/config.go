package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPinned are the instruments that always head the universe.
var DefaultPinned = []string{
	"BTC-USDT-SWAP", "ETH-USDT-SWAP", "SOL-USDT-SWAP",
	"XRP-USDT-SWAP", "DOGE-USDT-SWAP", "TON-USDT-SWAP",
	"BCH-USDT-SWAP", "LTC-USDT-SWAP", "OKB-USDT-SWAP",
}

// Config holds all application configuration.
type Config struct {
	Market struct {
		BaseURL      string        `yaml:"base_url"`
		InstType     string        `yaml:"inst_type"`
		QuoteSuffix  string        `yaml:"quote_suffix"`
		Bar          string        `yaml:"bar"`
		CandleLimit  int           `yaml:"candle_limit"`
		FetchTimeout time.Duration `yaml:"fetch_timeout"`
		Pinned       []string      `yaml:"pinned"`
	} `yaml:"market"`
	Discovery struct {
		InitialInterval time.Duration `yaml:"initial_interval"`
		MaxElapsed      time.Duration `yaml:"max_elapsed"`
	} `yaml:"discovery"`
	Scan struct {
		BatchSize     int           `yaml:"batch_size"`
		TickPeriod    time.Duration `yaml:"tick_period"`
		RSIPeriod     int           `yaml:"rsi_period"`
		SettleDelay   time.Duration `yaml:"settle_delay"`
		PruneDelisted bool          `yaml:"prune_delisted"`
	} `yaml:"scan"`
	Favorites struct {
		Max        int           `yaml:"max"`
		TickPeriod time.Duration `yaml:"tick_period"`
	} `yaml:"favorites"`
	Store struct {
		Driver        string `yaml:"driver"`
		Dir           string `yaml:"dir"`
		SQLitePath    string `yaml:"sqlite_path"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
		RedisPrefix   string `yaml:"redis_prefix"`
	} `yaml:"store"`
	HTTP struct {
		Addr     string `yaml:"addr"`
		PageSize int    `yaml:"page_size"`
	} `yaml:"http"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("OKX_BASE_URL"); v != "" {
		c.Market.BaseURL = v
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse BATCH_SIZE: %w", err)
		}
		c.Scan.BatchSize = n
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Market.BaseURL == "" {
		c.Market.BaseURL = "https://www.okx.com"
	}
	if c.Market.InstType == "" {
		c.Market.InstType = "SWAP"
	}
	if c.Market.QuoteSuffix == "" {
		c.Market.QuoteSuffix = "-USDT-SWAP"
	}
	if c.Market.Bar == "" {
		c.Market.Bar = "1H"
	}
	if c.Market.CandleLimit == 0 {
		c.Market.CandleLimit = 100
	}
	if c.Market.FetchTimeout == 0 {
		c.Market.FetchTimeout = 5 * time.Second
	}
	if c.Market.Pinned == nil {
		c.Market.Pinned = append([]string(nil), DefaultPinned...)
	}
	if c.Discovery.InitialInterval == 0 {
		c.Discovery.InitialInterval = time.Second
	}
	if c.Discovery.MaxElapsed == 0 {
		c.Discovery.MaxElapsed = 2 * time.Minute
	}
	if c.Scan.BatchSize == 0 {
		c.Scan.BatchSize = 18
	}
	if c.Scan.TickPeriod == 0 {
		c.Scan.TickPeriod = time.Second
	}
	if c.Scan.RSIPeriod == 0 {
		c.Scan.RSIPeriod = 14
	}
	if c.Scan.SettleDelay == 0 {
		c.Scan.SettleDelay = 14 * time.Second
	}
	if c.Favorites.Max == 0 {
		c.Favorites.Max = 9
	}
	if c.Favorites.TickPeriod == 0 {
		c.Favorites.TickPeriod = time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "file"
	}
	if c.Store.Dir == "" {
		c.Store.Dir = "data"
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "data/rsiradar.db"
	}
	if c.Store.RedisAddr == "" {
		c.Store.RedisAddr = "localhost:6379"
	}
	if c.Store.RedisPrefix == "" {
		c.Store.RedisPrefix = "rsiradar"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.PageSize == 0 {
		c.HTTP.PageSize = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks invariants the scan loop depends on.
func (c *Config) Validate() error {
	if c.Market.BaseURL == "" {
		return fmt.Errorf("market.base_url is required")
	}
	if c.Scan.BatchSize <= 0 {
		return fmt.Errorf("scan.batch_size must be positive")
	}
	if c.Scan.TickPeriod <= 0 || c.Favorites.TickPeriod <= 0 {
		return fmt.Errorf("tick periods must be positive")
	}
	if c.Scan.RSIPeriod <= 0 {
		return fmt.Errorf("scan.rsi_period must be positive")
	}
	if c.Scan.SettleDelay < 0 {
		return fmt.Errorf("scan.settle_delay must not be negative")
	}
	if c.Market.FetchTimeout <= 0 {
		return fmt.Errorf("market.fetch_timeout must be positive")
	}
	if c.Market.CandleLimit < c.Scan.RSIPeriod+1 {
		return fmt.Errorf("market.candle_limit (%d) must be at least rsi_period+1 (%d)", c.Market.CandleLimit, c.Scan.RSIPeriod+1)
	}
	if c.Favorites.Max <= 0 || c.Favorites.Max > 9 {
		return fmt.Errorf("favorites.max must be between 1 and 9")
	}
	if c.HTTP.PageSize <= 0 {
		return fmt.Errorf("http.page_size must be positive")
	}
	switch strings.ToLower(c.Store.Driver) {
	case "file", "sqlite", "redis", "none":
	default:
		return fmt.Errorf("store.driver %q is not one of file, sqlite, redis, none", c.Store.Driver)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether the Telegram console is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
