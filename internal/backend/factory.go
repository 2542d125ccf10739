package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/store"
	"fintrack/internal/store/csvfile"
	"fintrack/internal/store/memory"
	"fintrack/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend builds and initializes the configured store, then wraps it
// in a TransactionService. AMQP failures are not fatal: the service runs
// without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch config.Type {
	case CSVBackend:
		st = csvfile.New(config.CSVFile)
		f.logger.Info("Using CSV backend", applog.FieldBackend, config.Type, "path", config.CSVFile)
	case SQLiteBackend:
		st, err = sqlite.NewRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Using SQLite backend", applog.FieldBackend, config.Type, "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		st = memory.New()
		f.logger.Info("Using memory backend", applog.FieldBackend, config.Type)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if err := st.Initialize(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("initialize %s backend: %w", config.Type, err)
	}
	f.logger.Debug("Store initialized", applog.FieldBackend, config.Type, applog.FieldOperation, applog.OpInitialize)

	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = client
		}
	}

	svc := services.NewTransactionService(st, publisher)

	return &BackendResult{
		Store:   st,
		Service: svc,
		Cleanup: svc.Close,
	}, nil
}
