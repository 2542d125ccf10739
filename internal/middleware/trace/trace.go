// Package trace tags every request with an ID, logs its outcome and keeps
// request counters for the metrics endpoint.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	applog "fintrack/internal/log"
)

type ctxKey struct{}

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Caller supplied IDs are kept only when they look like IDs.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests int64
	ClientErrors  int64
	ServerErrors  int64
	// AverageResponseTime is in microseconds over all completed requests.
	AverageResponseTime int64
}

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string

	total       int64
	clientErrs  int64
	serverErrs  int64
	totalMicros int64
}

// NewMiddleware creates a trace middleware. extractIP may be nil.
func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(requestID) {
			requestID = GenerateRequestID()
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, requestID)
		r = r.WithContext(ctx)
		w.Header().Set(RequestIDHeader, requestID)

		slog.DebugContext(ctx, "HTTP request started",
			applog.FieldComponent, applog.ComponentTrace,
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldQuery, r.URL.RawQuery,
			applog.FieldClientIP, clientIP,
			"content_length", r.ContentLength)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		atomic.AddInt64(&m.total, 1)
		atomic.AddInt64(&m.totalMicros, elapsed.Microseconds())

		level := slog.LevelInfo
		switch {
		case rec.status >= 500:
			level = slog.LevelError
			atomic.AddInt64(&m.serverErrs, 1)
		case rec.status >= 400:
			level = slog.LevelWarn
			atomic.AddInt64(&m.clientErrs, 1)
		}

		slog.Log(ctx, level, "HTTP request completed",
			applog.FieldComponent, applog.ComponentTrace,
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rec.status,
			applog.FieldDuration, elapsed.Milliseconds(),
			applog.FieldDurationHuman, elapsed.String(),
			applog.FieldClientIP, clientIP,
			applog.FieldSuccess, rec.status < 400)
	})
}

// statusRecorder remembers the first status code written.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// GetMetrics returns a snapshot of the counters.
func (m *Middleware) GetMetrics() Metrics {
	total := atomic.LoadInt64(&m.total)
	var avg int64
	if total > 0 {
		avg = atomic.LoadInt64(&m.totalMicros) / total
	}
	return Metrics{
		TotalRequests:       total,
		ClientErrors:        atomic.LoadInt64(&m.clientErrs),
		ServerErrors:        atomic.LoadInt64(&m.serverErrs),
		AverageResponseTime: avg,
	}
}

// LoggerMiddleware tags the request-scoped logger with the request ID. It
// must run inside Middleware.
func LoggerMiddleware(next http.Handler) http.Handler {
	return applog.RequestIDMiddleware(func(r *http.Request) string {
		return GetRequestID(r.Context())
	})(next)
}
