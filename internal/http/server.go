package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/store"
)

// Config holds the HTTP surface settings.
type Config struct {
	Addr string
	// LegacyEmptyNotFound answers 404 instead of an empty list when a listing
	// has no records.
	LegacyEmptyNotFound bool
	RateLimitPerMinute  int
}

// Server exposes the ledger over JSON.
type Server struct {
	http.Server
	ledger              store.Store
	legacyEmptyNotFound bool
	logger              *applog.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime        time.Time
	appended      int64
	cleared       int64
	rangeQueries  int64
	storeFailures int64
}

// NewServer wires routes and middleware around ledger, returning a
// ready-to-run server.
func NewServer(cfg Config, ledger store.Store, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		ledger:              ledger,
		legacyEmptyNotFound: cfg.LegacyEmptyNotFound,
		logger:              logger,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		securityDetector: security.NewDetector(),
		appMetrics:       appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	for _, p := range []string{"/transactions", "/transactions/{$}"} {
		mux.HandleFunc("POST "+p, s.handleAddTransaction)
		mux.HandleFunc("GET "+p, s.handleListTransactions)
		mux.HandleFunc("DELETE "+p, s.handleDeleteTransactions)
	}
	mux.HandleFunc("GET /transactions/{start}/{end}", s.handleListByDateRange)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited,
		http.MethodPost, http.MethodDelete)(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = trace.LoggerMiddleware(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// storeFailed counts a store error and logs it against the storage component.
func (s *Server) storeFailed(ctx context.Context, msg, op string, err error, fields applog.LogFields) {
	atomic.AddInt64(&s.appMetrics.storeFailures, 1)
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, msg, err, applog.ComponentStorage, op, fields)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
