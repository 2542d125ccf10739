package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

const (
	msgWelcome        = "Welcome to the Finance Tracker API"
	msgAdded          = "Transaction added successfully"
	msgDeleted        = "All transactions deleted successfully"
	msgNotFound       = "No transactions found"
	msgRangeNotFound  = "No transactions found in the given date range"
	msgInternalError  = "Internal server error"
	readyCheckTimeout = 5 * time.Second
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: msgWelcome})
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	t, err := decodeTransaction(w, r)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		logger.WarnContext(ctx, "Rejected transaction body", applog.FieldError, err.Error())
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.ledger.Append(ctx, t); err != nil {
		if errors.Is(err, core.ErrBadInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.storeFailed(ctx, "Transaction append failed", applog.OpAppend, err, nil)
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	atomic.AddInt64(&s.appMetrics.appended, 1)
	applog.NewStructuredLogger(logger).LogTransactionAppended(ctx, t.Date, core.FormatAmount(t.Amount), t.Category)
	writeJSON(w, http.StatusOK, messageResponse{Message: msgAdded})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := s.ledger.ListAll(ctx)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	case err != nil:
		s.storeFailed(ctx, "Transaction list failed", applog.OpList, err, nil)
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	if len(items) == 0 && s.legacyEmptyNotFound {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(items))
}

// handleListByDateRange answers 404 for unparsable dates as well as a
// missing ledger.
func (s *Server) handleListByDateRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start, end := r.PathValue("start"), r.PathValue("end")
	atomic.AddInt64(&s.appMetrics.rangeQueries, 1)

	items, err := s.ledger.ListByDateRange(ctx, start, end)
	switch {
	case errors.Is(err, core.ErrBadInput):
		applog.FromContext(ctx).WarnContext(ctx, "Bad date range",
			applog.NewFields().WithRange(start, end).WithError(err).ToSlice()...)
		writeError(w, http.StatusNotFound, fmt.Sprintf("Invalid date, expected DD-MM-YYYY: %v", err))
		return
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	case err != nil:
		s.storeFailed(ctx, "Transaction range query failed", applog.OpListRange, err,
			applog.NewFields().WithRange(start, end))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogRangeQuery(ctx, start, end, len(items))
	if len(items) == 0 && s.legacyEmptyNotFound {
		writeError(w, http.StatusNotFound, msgRangeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(items))
}

func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if err := s.ledger.ClearAll(ctx); err != nil {
		s.storeFailed(ctx, "Transaction clear failed", applog.OpClear, err, nil)
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	atomic.AddInt64(&s.appMetrics.cleared, 1)
	applog.NewStructuredLogger(logger).LogLedgerCleared(ctx)
	writeJSON(w, http.StatusOK, messageResponse{Message: msgDeleted})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady reports whether the ledger can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if _, err := s.ledger.ListAll(ctx); err != nil {
		checks["ledger"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["ledger"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "counter", "Total number of 4xx responses", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "counter", "Total number of 5xx responses", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Mean response time since start", traceMetrics.AverageResponseTime)
	metric("transactions_appended_total", "counter", "Transactions appended since start", atomic.LoadInt64(&s.appMetrics.appended))
	metric("ledger_clears_total", "counter", "Clear-all calls since start", atomic.LoadInt64(&s.appMetrics.cleared))
	metric("range_queries_total", "counter", "Date range queries since start", atomic.LoadInt64(&s.appMetrics.rangeQueries))
	metric("store_failures_total", "counter", "Store operations that failed with an internal error", atomic.LoadInt64(&s.appMetrics.storeFailures))
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("invalid_forwarded_ip_total", "counter", "Forwarded client addresses that failed to parse", securityMetrics.InvalidIPAttempts)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}
