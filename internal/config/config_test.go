package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"OKX_BASE_URL", "BATCH_SIZE", "STORE_DRIVER", "SQLITE_PATH", "REDIS_ADDR",
		"HTTP_ADDR", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "LOG_LEVEL", "HTTPS_PROXY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://www.okx.com", cfg.Market.BaseURL)
	assert.Equal(t, "-USDT-SWAP", cfg.Market.QuoteSuffix)
	assert.Equal(t, 18, cfg.Scan.BatchSize)
	assert.Equal(t, 14*time.Second, cfg.Scan.SettleDelay)
	assert.Equal(t, 5*time.Second, cfg.Market.FetchTimeout)
	assert.Equal(t, DefaultPinned, cfg.Market.Pinned)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.False(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
market:
  fetch_timeout: 3s
  pinned: [ETH-USDT-SWAP]
scan:
  batch_size: 10
  settle_delay: 20s
store:
  driver: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("STORE_DRIVER", "redis")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Market.FetchTimeout)
	assert.Equal(t, []string{"ETH-USDT-SWAP"}, cfg.Market.Pinned)
	assert.Equal(t, 25, cfg.Scan.BatchSize)
	assert.Equal(t, 20*time.Second, cfg.Scan.SettleDelay)
	assert.Equal(t, "redis", cfg.Store.Driver)
}

func TestLoad_BadInput(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	t.Setenv("BATCH_SIZE", "lots")
	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative batch", func(c *Config) { c.Scan.BatchSize = -1 }},
		{"short candle limit", func(c *Config) { c.Market.CandleLimit = 14 }},
		{"too many favorites", func(c *Config) { c.Favorites.Max = 10 }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "etcd" }},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "x" }},
		{"zero timeout", func(c *Config) { c.Market.FetchTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
