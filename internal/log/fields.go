package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldDate          = "date"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldCount         = "count"
	FieldRangeStart    = "range_start"
	FieldRangeEnd      = "range_end"
	FieldBackend       = "backend"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpInitialize = "initialize"
	OpAppend     = "append"
	OpList       = "list"
	OpListRange  = "list_range"
	OpClear      = "clear"
	OpPublish    = "publish"
	OpMirror     = "mirror"
	OpResync     = "resync"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds the loggable parts of a ledger record
func (f LogFields) WithTransaction(date, amount, category string) LogFields {
	f[FieldDate] = date
	f[FieldAmount] = amount
	f[FieldCategory] = category
	return f
}

// WithRange adds date range bounds
func (f LogFields) WithRange(start, end string) LogFields {
	f[FieldRangeStart] = start
	f[FieldRangeEnd] = end
	return f
}

// WithCount adds a result size
func (f LogFields) WithCount(n int) LogFields {
	f[FieldCount] = n
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
