package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := NewContext(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	// Return default logger if not found
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RequestIDMiddleware adds request ID to logger context
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := extractRequestID(r)
			if requestID == "" {
				next.ServeHTTP(w, r)
				return
			}

			logger := FromContext(r.Context()).With(NewFields().WithRequestID(requestID).ToSlice()...)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger provides structured logging methods for ledger events
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogTransactionAppended logs a successful append
func (sl *StructuredLogger) LogTransactionAppended(ctx context.Context, date, amount, category string) {
	fields := NewFields().
		WithTransaction(date, amount, category).
		WithOperation(OpAppend).
		WithComponent(ComponentLedger)

	sl.logger.Logger.InfoContext(ctx, "Transaction appended", fields.ToSlice()...)
}

// LogLedgerCleared logs a clear-all
func (sl *StructuredLogger) LogLedgerCleared(ctx context.Context) {
	fields := NewFields().
		WithOperation(OpClear).
		WithComponent(ComponentLedger)

	sl.logger.Logger.InfoContext(ctx, "Ledger cleared", fields.ToSlice()...)
}

// LogRangeQuery logs a served date range query
func (sl *StructuredLogger) LogRangeQuery(ctx context.Context, start, end string, count int) {
	fields := NewFields().
		WithRange(start, end).
		WithCount(count).
		WithOperation(OpListRange).
		WithComponent(ComponentLedger)

	sl.logger.Logger.InfoContext(ctx, "Range query served", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.Logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
