package backend

import (
	"context"

	"fintrack/internal/services"
	"fintrack/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the ledger service and its cleanup function
type BackendResult struct {
	// Store is the raw storage backend, without event publishing.
	Store store.Store
	// Service wraps Store and publishes ledger events when AMQP is set up.
	Service *services.TransactionService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// CSV specific
	CSVFile string

	// SQLite specific
	SQLiteDBPath string

	// Event publishing (optional for every backend)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
