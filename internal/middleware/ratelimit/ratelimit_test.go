package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, limit int) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: limit})
	rl.now = clock.now
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestLimiterAllow(t *testing.T) {
	rl, _ := newTestLimiter(t, 2)

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))

	m := rl.GetMetrics()
	assert.Equal(t, int64(1), m.TotalHits)
	assert.Equal(t, int64(2), m.ClientCount)
	assert.Equal(t, 2, rl.ActiveClients())
}

func TestLimiterWindowResets(t *testing.T) {
	rl, clock := newTestLimiter(t, 1)

	assert.True(t, rl.Allow("ip"))
	clock.advance(30 * time.Second)
	assert.False(t, rl.Allow("ip"))

	// Rejected requests do not extend the window.
	clock.advance(30 * time.Second)
	assert.True(t, rl.Allow("ip"))
}

func TestLimiterDropExpired(t *testing.T) {
	rl, clock := newTestLimiter(t, 5)

	rl.Allow("a")
	clock.advance(45 * time.Second)
	rl.Allow("b")
	clock.advance(20 * time.Second)

	assert.Equal(t, 1, rl.dropExpired())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestLimiterDefaultsOnBadConfig(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	assert.Equal(t, 60, rl.limit)
	assert.Equal(t, time.Minute, rl.period)
}

func TestMiddlewareLimitsOnlyListedMethods(t *testing.T) {
	rl, clock := newTestLimiter(t, 1)

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/transactions/", nil))
		return rr
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost).Code)
	clock.advance(15 * time.Second)
	rr := do(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "45", rr.Header().Get("Retry-After"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, do(http.MethodGet).Code)
	}
}

func TestMiddlewareCallsOnLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)

	called := false
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}
	h := rl.Middleware(func(*http.Request) string { return "ip" }, onLimit)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/transactions/", nil))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/transactions/", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
