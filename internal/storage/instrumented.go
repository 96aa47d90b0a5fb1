package storage

import (
	"context"
	"errors"

	"moonscribe/internal/metrics"
)

// InstrumentedStore counts operations of an inner Store.
type InstrumentedStore struct {
	inner   Store
	metrics *metrics.Collector
}

// NewInstrumentedStore wraps inner. A nil collector is allowed.
func NewInstrumentedStore(inner Store, m *metrics.Collector) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, metrics: m}
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (Entry, error) {
	entry, err := s.inner.Get(ctx, key)
	// A missing key is an ordinary outcome, not a failure
	if errors.Is(err, ErrNotFound) {
		s.metrics.StoreOp("get", nil)
	} else {
		s.metrics.StoreOp("get", err)
	}
	return entry, err
}

func (s *InstrumentedStore) Set(ctx context.Context, key, value string) (int64, error) {
	rev, err := s.inner.Set(ctx, key, value)
	s.metrics.StoreOp("set", err)
	return rev, err
}

func (s *InstrumentedStore) Remove(ctx context.Context, key string) error {
	err := s.inner.Remove(ctx, key)
	s.metrics.StoreOp("remove", err)
	return err
}

func (s *InstrumentedStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.inner.Keys(ctx, prefix)
	s.metrics.StoreOp("keys", err)
	return keys, err
}

func (s *InstrumentedStore) Apply(ctx context.Context, ops ...Op) error {
	err := s.inner.Apply(ctx, ops...)
	s.metrics.StoreOp("apply", err)
	return err
}
