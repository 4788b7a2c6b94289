package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"RSIRadar/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps the snapshot in a hash (symbol -> JSON record), the
// favorites in a list, and the cycle flag in a plain key.
type RedisStore struct {
	client *goredis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisStore(client, cfg.Prefix), nil
}

func newRedisStore(client *goredis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rsiradar"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(name string) string { return s.prefix + ":" + name }

func (s *RedisStore) LoadSnapshot(ctx context.Context) (map[string]model.MetricRecord, error) {
	raw, err := s.client.HGetAll(ctx, s.key("metrics")).Result()
	if err != nil {
		return map[string]model.MetricRecord{}, fmt.Errorf("hgetall metrics: %w", err)
	}
	snap := make(map[string]model.MetricRecord, len(raw))
	for sym, val := range raw {
		var rec model.MetricRecord
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return map[string]model.MetricRecord{}, fmt.Errorf("%w: metrics[%s]: %v", ErrCorrupt, sym, err)
		}
		snap[sym] = rec
	}
	return snap, nil
}

// SaveSnapshot rewrites the whole hash inside MULTI/EXEC.
func (s *RedisStore) SaveSnapshot(ctx context.Context, snap map[string]model.MetricRecord) error {
	fields := make(map[string]interface{}, len(snap))
	for sym, rec := range snap {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", sym, err)
		}
		fields[sym] = data
	}
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, s.key("metrics"))
		if len(fields) > 0 {
			p.HSet(ctx, s.key("metrics"), fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadFavorites(ctx context.Context) ([]string, error) {
	favs, err := s.client.LRange(ctx, s.key("favorites"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange favorites: %w", err)
	}
	return favs, nil
}

func (s *RedisStore) SaveFavorites(ctx context.Context, symbols []string) error {
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, s.key("favorites"))
		if len(symbols) > 0 {
			vals := make([]interface{}, len(symbols))
			for i, sym := range symbols {
				vals[i] = sym
			}
			p.RPush(ctx, s.key("favorites"), vals...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save favorites: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadCycleCompleted(ctx context.Context) (bool, error) {
	v, err := s.client.Get(ctx, s.key("cycle_completed")).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get cycle flag: %w", err)
	}
	return v == "1", nil
}

func (s *RedisStore) SaveCycleCompleted(ctx context.Context, done bool) error {
	v := "0"
	if done {
		v = "1"
	}
	return s.client.Set(ctx, s.key("cycle_completed"), v, 0).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
