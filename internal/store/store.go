// Package store persists scanner state. The metric snapshot, the favorites
// list and the completed-cycle flag are saved independently of each other.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"RSIRadar/internal/model"
)

// ErrCorrupt marks persisted state that exists but cannot be decoded.
var ErrCorrupt = errors.New("persisted state is corrupt")

// Store is the durable backend behind the metric cache and favorites.
type Store interface {
	LoadSnapshot(ctx context.Context) (map[string]model.MetricRecord, error)
	SaveSnapshot(ctx context.Context, snap map[string]model.MetricRecord) error
	LoadFavorites(ctx context.Context) ([]string, error)
	SaveFavorites(ctx context.Context, symbols []string) error
	LoadCycleCompleted(ctx context.Context) (bool, error)
	SaveCycleCompleted(ctx context.Context, done bool) error
	Close() error
}

// Config selects and configures a Store implementation.
type Config struct {
	Driver        string // file | sqlite | redis | none
	Dir           string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open creates the Store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "file", "":
		return NewFileStore(cfg.Dir)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "redis":
		return NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case "none":
		return NewNoopStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
