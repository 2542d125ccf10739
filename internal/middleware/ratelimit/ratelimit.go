// Package ratelimit caps how many requests a client may make per fixed
// window. The HTTP server applies it to ledger writes only.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Limiter counts requests per client key inside fixed windows.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	stop     chan struct{}
	stopOnce sync.Once

	limit  int
	period time.Duration
	sweep  time.Duration
	now    func() time.Time

	rejected int64
}

type window struct {
	start time.Time
	count int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	// Window defaults to one minute; RequestsPerMinute applies per Window.
	Window          time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		Window:            time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter creates a limiter and starts its sweeper goroutine. Call Stop
// to release it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
		limit:   config.RequestsPerMinute,
		period:  config.Window,
		sweep:   config.CleanupInterval,
		now:     time.Now,
	}
	go rl.sweepLoop()
	return rl
}

// Allow records one request for key and reports whether it fits the quota.
func (rl *Limiter) Allow(key string) bool {
	ok, _ := rl.take(key)
	return ok
}

// take is Allow plus the time left until the key's window resets.
func (rl *Limiter) take(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.period {
		w = &window{start: now}
		rl.windows[key] = w
	}
	w.count++

	reset := rl.period - now.Sub(w.start)
	if w.count > rl.limit {
		atomic.AddInt64(&rl.rejected, 1)
		return false, reset
	}
	return true, reset
}

func (rl *Limiter) sweepLoop() {
	ticker := time.NewTicker(rl.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropExpired()
		case <-rl.stop:
			return
		}
	}
}

// dropExpired forgets clients whose window has closed.
func (rl *Limiter) dropExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	dropped := 0
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.period {
			delete(rl.windows, key)
			dropped++
		}
	}
	return dropped
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Stop ends the sweeper goroutine. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// GetMetrics returns current rate limiting metrics
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.rejected),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware limits requests whose method is listed in methods (every
// request when methods is empty). Rejected requests get a Retry-After header
// and are handed to onLimit, or answered with a plain 429 when onLimit is nil.
func (rl *Limiter) Middleware(keyOf func(*http.Request) string, onLimit http.HandlerFunc, methods ...string) func(http.Handler) http.Handler {
	limited := make(map[string]bool, len(methods))
	for _, m := range methods {
		limited[m] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(limited) > 0 && !limited[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			ok, reset := rl.take(keyOf(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(reset.Seconds()))))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
