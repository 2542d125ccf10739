package store

import (
	"context"

	"fintrack/internal/core"
)

// Ports for transaction storage.
type (
	// Writer appends records and wipes the ledger.
	Writer interface {
		Append(ctx context.Context, t core.Transaction) error
		ClearAll(ctx context.Context) error
	}

	// Reader returns records in append order.
	Reader interface {
		ListAll(ctx context.Context) ([]core.Transaction, error)
		// ListByDateRange returns the records whose date lies in
		// [start, end], both given as DD-MM-YYYY. An empty result is not an
		// error.
		ListByDateRange(ctx context.Context, start, end string) ([]core.Transaction, error)
	}

	// Store is the full ledger. Initialize must run before anything else
	// and is safe to call more than once.
	Store interface {
		Writer
		Reader
		Initialize(ctx context.Context) error
		Close() error
	}
)
