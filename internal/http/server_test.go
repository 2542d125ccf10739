package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/store"
	"fintrack/internal/store/csvfile"
	"fintrack/internal/store/memory"
)

func newTestServer(t *testing.T, ledger store.Store, cfg Config) *Server {
	t.Helper()
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 1000
	}
	srv := NewServer(cfg, ledger, nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

const lunchBody = `{"date":"01-03-2024","amount":42.50,"category":"food","description":"lunch"}`

func TestIndex(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	rr := do(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Welcome to the Finance Tracker API"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestWorkedExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finance_data.csv")
	ledger := csvfile.New(path)
	require.NoError(t, ledger.Initialize(context.Background()))
	srv := newTestServer(t, ledger, Config{})

	rr := do(t, srv, http.MethodPost, "/transactions/", lunchBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"message":"Transaction added successfully"}`, rr.Body.String())

	want := `[{"date":"01-03-2024","amount":42.5,"category":"food","description":"lunch"}]`

	rr = do(t, srv, http.MethodGet, "/transactions/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, want, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/transactions/01-03-2024/31-03-2024", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, want, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/transactions/01-04-2024/30-04-2024", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = do(t, srv, http.MethodDelete, "/transactions/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"All transactions deleted successfully"}`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/transactions/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestPathWithoutTrailingSlash(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	rr := do(t, srv, http.MethodPost, "/transactions", lunchBody)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/transactions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]map[string]any](t, rr), 1)
}

func TestAddTransactionValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		detail string
	}{
		{"missing amount", `{"date":"01-03-2024","category":"food","description":"lunch"}`, http.StatusUnprocessableEntity, "field required: amount"},
		{"null amount", `{"date":"01-03-2024","amount":null,"category":"food","description":"lunch"}`, http.StatusUnprocessableEntity, "field required: amount"},
		{"missing everything", `{}`, http.StatusUnprocessableEntity, "field required: date, amount, category, description"},
		{"non numeric amount", `{"date":"01-03-2024","amount":"lots","category":"food","description":"lunch"}`, http.StatusUnprocessableEntity, "amount: value is not a valid number"},
		{"boolean amount", `{"date":"01-03-2024","amount":true,"category":"food","description":"lunch"}`, http.StatusUnprocessableEntity, "amount"},
		{"numeric date", `{"date":1,"amount":1,"category":"food","description":"lunch"}`, http.StatusUnprocessableEntity, "date"},
		{"comma decimal", `{"date":"01-03-2024","amount":"12,34","category":"food","description":"lunch"}`, http.StatusUnprocessableEntity, "amount: value is not a valid number"},
		{"huge exponent string", `{"date":"01-03-2024","amount":"1e50000000","category":"food","description":"lunch"}`, http.StatusUnprocessableEntity, "amount: value is out of range"},
		{"huge exponent number", `{"date":"01-03-2024","amount":1e50000000,"category":"food","description":"lunch"}`, http.StatusUnprocessableEntity, "amount: value is out of range"},
		{"too many digits", `{"date":"01-03-2024","amount":"123456789012345678901234567890123","category":"food","description":"lunch"}`, http.StatusUnprocessableEntity, "amount: value is out of range"},
		{"malformed json", `{"date":`, http.StatusUnprocessableEntity, "malformed JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := memory.New()
			srv := newTestServer(t, ledger, Config{})

			rr := do(t, srv, http.MethodPost, "/transactions/", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, decodeBody[errorResponse](t, rr).Detail, tt.detail)
			assert.Equal(t, 0, ledger.Len())
		})
	}
}

func TestAddTransactionAcceptsLooseInput(t *testing.T) {
	ledger := memory.New()
	srv := newTestServer(t, ledger, Config{})

	body := `{"date":"1-3-2024","amount":"-12.30","category":"","description":"refund, partial","extra":true}`
	rr := do(t, srv, http.MethodPost, "/transactions/", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	items, err := ledger.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "-12.3", items[0].Amount.String())
	assert.Equal(t, "refund, partial", items[0].Description)
}

func TestAddTransactionEmptyDateStoredAsGiven(t *testing.T) {
	ledger := memory.New()
	srv := newTestServer(t, ledger, Config{})

	for _, date := range []string{"", " "} {
		body := `{"date":"` + date + `","amount":1,"category":"c","description":"d"}`
		rr := do(t, srv, http.MethodPost, "/transactions/", body)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	items, err := ledger.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "", items[0].Date)
	assert.Equal(t, " ", items[1].Date)

	// Range queries parse every stored date, so the empty ones now fail.
	rr := do(t, srv, http.MethodGet, "/transactions/01-01-2024/31-12-2024", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddTransactionBodyTooLarge(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	huge := `{"date":"01-03-2024","amount":1,"category":"food","description":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rr := do(t, srv, http.MethodPost, "/transactions/", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestListMissingLedger(t *testing.T) {
	ledger := csvfile.New(filepath.Join(t.TempDir(), "absent.csv"))
	srv := newTestServer(t, ledger, Config{})

	rr := do(t, srv, http.MethodGet, "/transactions/", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "No transactions found", decodeBody[errorResponse](t, rr).Detail)

	rr = do(t, srv, http.MethodGet, "/transactions/01-01-2024/31-12-2024", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRangeBadDate(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	for _, target := range []string{
		"/transactions/2024-03-01/31-03-2024",
		"/transactions/01-03-2024/31-13-2024",
	} {
		rr := do(t, srv, http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, target)
		assert.Contains(t, decodeBody[errorResponse](t, rr).Detail, "DD-MM-YYYY")
	}
}

func TestRangeInclusiveAndOrdered(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})
	for _, d := range []string{"15-03-2024", "01-03-2024", "31-03-2024", "01-04-2024"} {
		body := `{"date":"` + d + `","amount":1,"category":"c","description":"d"}`
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/transactions/", body).Code)
	}

	rr := do(t, srv, http.MethodGet, "/transactions/01-03-2024/31-03-2024", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeBody[[]transactionResponse](t, rr)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"15-03-2024", "01-03-2024", "31-03-2024"},
		[]string{got[0].Date, got[1].Date, got[2].Date})

	rr = do(t, srv, http.MethodGet, "/transactions/31-03-2024/01-03-2024", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestLegacyEmptyNotFound(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{LegacyEmptyNotFound: true})

	rr := do(t, srv, http.MethodGet, "/transactions/", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "No transactions found", decodeBody[errorResponse](t, rr).Detail)

	rr = do(t, srv, http.MethodGet, "/transactions/01-03-2024/31-03-2024", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "No transactions found in the given date range", decodeBody[errorResponse](t, rr).Detail)

	// Clearing an empty ledger still succeeds.
	rr = do(t, srv, http.MethodDelete, "/transactions/", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

type brokenStore struct{ *memory.Store }

func (brokenStore) Append(context.Context, core.Transaction) error { return errors.New("disk full") }
func (brokenStore) ClearAll(context.Context) error                 { return errors.New("disk full") }
func (brokenStore) ListAll(context.Context) ([]core.Transaction, error) {
	return nil, errors.New("disk full")
}

func TestStoreFailures(t *testing.T) {
	srv := newTestServer(t, brokenStore{memory.New()}, Config{})

	for _, tc := range []struct{ method, body string }{
		{http.MethodPost, lunchBody},
		{http.MethodGet, ""},
		{http.MethodDelete, ""},
	} {
		rr := do(t, srv, tc.method, "/transactions/", tc.body)
		assert.Equal(t, http.StatusInternalServerError, rr.Code, tc.method)
		assert.Equal(t, "Internal server error", decodeBody[errorResponse](t, rr).Detail)
	}

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	assert.Contains(t, rr.Body.String(), "store_failures_total 3")
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	rr := do(t, srv, http.MethodPut, "/transactions/", lunchBody)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRateLimitOnWrites(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{RateLimitPerMinute: 1})

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/transactions/", lunchBody).Code)
	rr := do(t, srv, http.MethodPost, "/transactions/", lunchBody)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Reads are not limited.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/transactions/", "").Code)
	}
}

func TestHealthReadyMetrics(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody[map[string]any](t, rr)["status"])

	rr = do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", decodeBody[map[string]any](t, rr)["status"])

	do(t, srv, http.MethodPost, "/transactions/", lunchBody)
	rr = do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "transactions_appended_total 1")
	assert.Contains(t, rr.Body.String(), "# TYPE http_requests_total counter")
}

func TestMetricsCountsInvalidForwardedAddress(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	req := httptest.NewRequest(http.MethodGet, "/transactions/", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	req.Header.Set("X-Forwarded-For", "not-an-ip")
	srv.Handler.ServeHTTP(httptest.NewRecorder(), req)

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	assert.Contains(t, rr.Body.String(), "# TYPE invalid_forwarded_ip_total counter")
	body := rr.Body.String()
	idx := strings.Index(body, "\ninvalid_forwarded_ip_total ")
	require.GreaterOrEqual(t, idx, 0)
	assert.NotEqual(t, "invalid_forwarded_ip_total 0", strings.SplitN(body[idx+1:], "\n", 2)[0])
}
