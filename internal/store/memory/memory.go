package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps the ledger in process memory. Useful for tests and for running
// the API without touching disk.
type Store struct {
	mu          sync.Mutex
	initialized bool
	items       []core.Transaction
}

func New(seed ...core.Transaction) *Store {
	return &Store{items: append([]core.Transaction(nil), seed...)}
}

func (s *Store) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

func (s *Store) Append(ctx context.Context, t core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction{}, s.items...), nil
}

func (s *Store) ListByDateRange(ctx context.Context, start, end string) ([]core.Transaction, error) {
	r, err := core.NewDateRange(start, end)
	if err != nil {
		return nil, err
	}
	items, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return core.FilterByDateRange(items, r)
}

func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}

func (s *Store) Close() error { return nil }

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
