package reconcile

import (
	"context"
	"sync"
)

// ReserveState is the prior standing of a webhook delivery key.
type ReserveState int

const (
	// ReserveNew means the key was unseen and is now held by this caller.
	ReserveNew ReserveState = iota
	// ReservePending means another delivery of the same event is in flight.
	ReservePending
	// ReserveCompleted means the event already produced an order.
	ReserveCompleted
)

// Store tracks processed webhook deliveries so retried events do not create
// duplicate orders. Reserve claims a key; Complete marks it done; Release
// frees a claim whose processing failed so a later retry can succeed.
type Store interface {
	Reserve(ctx context.Context, key string) (ReserveState, error)
	Complete(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

// MemoryStore is the in-process Store used when no database is configured.
// It protects against gateway retries within a single process lifetime.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]ReserveState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]ReserveState)}
}

func (s *MemoryStore) Reserve(_ context.Context, key string) (ReserveState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.keys[key]; ok {
		return state, nil
	}
	s.keys[key] = ReservePending
	return ReserveNew, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = ReserveCompleted
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}
