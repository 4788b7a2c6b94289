package store

import (
	"context"

	"RSIRadar/internal/model"
)

// NoopStore keeps nothing; every load returns empty state.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) LoadSnapshot(_ context.Context) (map[string]model.MetricRecord, error) {
	return map[string]model.MetricRecord{}, nil
}

func (n *NoopStore) SaveSnapshot(_ context.Context, _ map[string]model.MetricRecord) error {
	return nil
}

func (n *NoopStore) LoadFavorites(_ context.Context) ([]string, error) { return nil, nil }

func (n *NoopStore) SaveFavorites(_ context.Context, _ []string) error { return nil }

func (n *NoopStore) LoadCycleCompleted(_ context.Context) (bool, error) { return false, nil }

func (n *NoopStore) SaveCycleCompleted(_ context.Context, _ bool) error { return nil }

func (n *NoopStore) Close() error { return nil }
