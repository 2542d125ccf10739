package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

// EventPublisher sends ledger events downstream. *amqp.Client implements it.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
	Close() error
}

// TransactionService orchestrates ledger writes and event publishing.
type TransactionService struct {
	store     store.Store
	publisher EventPublisher
}

var _ store.Store = (*TransactionService)(nil)

// NewTransactionService wraps st. publisher may be nil, in which case no
// events are sent.
func NewTransactionService(st store.Store, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     st,
		publisher: publisher,
	}
}

func (s *TransactionService) Initialize(ctx context.Context) error {
	return s.store.Initialize(ctx)
}

// Append writes t to the store first, then publishes the event. A publish
// failure is logged and never fails the write.
func (s *TransactionService) Append(ctx context.Context, t core.Transaction) error {
	if err := s.store.Append(ctx, t); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	if err := s.publish(ctx, amqp.NewAppendedEvent(t)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish append event",
			"date", t.Date, "error", err)
	}
	return nil
}

// ClearAll wipes the store, then publishes the clear event.
func (s *TransactionService) ClearAll(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	if err := s.publish(ctx, amqp.NewClearedEvent()); err != nil {
		slog.ErrorContext(ctx, "Failed to publish clear event", "error", err)
	}
	return nil
}

func (s *TransactionService) ListAll(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListAll(ctx)
}

func (s *TransactionService) ListByDateRange(ctx context.Context, start, end string) ([]core.Transaction, error) {
	return s.store.ListByDateRange(ctx, start, end)
}

func (s *TransactionService) publish(ctx context.Context, ev *amqp.TransactionEvent) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping event", "type", ev.Type)
		return nil
	}
	return s.publisher.PublishTransactionEvent(ctx, ev)
}

// Close closes both the store and the publisher
func (s *TransactionService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
