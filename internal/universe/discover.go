package universe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RSIRadar/internal/collector"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryPolicy bounds how long startup discovery keeps retrying.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

// Discover lists instruments from the provider, retrying with exponential
// backoff, and keeps the ids ending in suffix (all ids when suffix is empty).
func Discover(ctx context.Context, f collector.Fetcher, suffix string, policy RetryPolicy, logger *zap.Logger) ([]string, error) {
	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxElapsed > 0 {
		b.MaxElapsedTime = policy.MaxElapsed
	}

	var ids []string
	attempt := 0
	op := func() error {
		attempt++
		all, err := f.ListInstruments(ctx)
		if err != nil {
			return err
		}
		ids = filterSuffix(all, suffix)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("instrument discovery failed, retrying",
			zap.String("source", f.Name()),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("%w: %w", collector.ErrDiscovery, err)
	}
	logger.Info("instruments discovered",
		zap.String("source", f.Name()),
		zap.Int("count", len(ids)),
		zap.Int("attempts", attempt))
	return ids, nil
}

func filterSuffix(ids []string, suffix string) []string {
	if suffix == "" {
		return ids
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.HasSuffix(id, suffix) {
			out = append(out, id)
		}
	}
	return out
}
