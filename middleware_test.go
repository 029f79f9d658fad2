package aiguard_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ineyio/aiguard"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, h http.Handler, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ai", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// Test 1: admitted requests pass through with a request ID stamped.
func TestMiddleware_AllowedRequest(t *testing.T) {
	g := newTestGuard(t)
	h := g.Middleware(okHandler())

	rec := doRequest(t, h, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Empty(t, rec.Header().Get("Retry-After"), "no rate limit headers when allowed")
}

// Test 2: over-quota requests get 429 with the standard headers and a
// structured body.
func TestMiddleware_RateLimited(t *testing.T) {
	cfg := testGuardConfig()
	cfg.Limiter.MaxRequests = 2
	g, err := aiguard.New(cfg)
	require.NoError(t, err)
	h := g.Middleware(okHandler())

	doRequest(t, h, nil)
	doRequest(t, h, nil)
	rec := doRequest(t, h, nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	retryAfter, err := strconv.ParseInt(rec.Header().Get("Retry-After"), 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, int64(1))
	assert.LessOrEqual(t, retryAfter, int64(60))
	assert.Equal(t, rec.Header().Get("Retry-After"), rec.Header().Get("X-RateLimit-Reset"))

	var body struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		RetryAfter int64  `json:"retryAfter"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body.Error)
	assert.NotEmpty(t, body.Message)
	assert.Equal(t, retryAfter, body.RetryAfter)
}

// Test 3: a spend block is a distinct 503 condition, not a 429.
func TestMiddleware_SpendBlocked(t *testing.T) {
	g := newTestGuard(t)
	g.Spending().Record(500) // exhaust the hourly ceiling
	h := g.Middleware(okHandler())

	rec := doRequest(t, h, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Header().Get("Retry-After"))

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cost_limit", body.Error)
}

// Test 4: the shared-secret header bypasses every check, including a
// spend block.
func TestMiddleware_Bypass(t *testing.T) {
	cfg := testGuardConfig()
	cfg.Bypass = aiguard.BypassConfig{Header: "X-Internal-Bypass", Secret: "s3cret"}
	g, err := aiguard.New(cfg)
	require.NoError(t, err)

	g.Spending().Record(500)
	h := g.Middleware(okHandler())

	rec := doRequest(t, h, func(r *http.Request) {
		r.Header.Set("X-Internal-Bypass", "s3cret")
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, func(r *http.Request) {
		r.Header.Set("X-Internal-Bypass", "wrong")
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// Test 5: a bypassed request does not consume quota.
func TestMiddleware_BypassDoesNotCount(t *testing.T) {
	cfg := testGuardConfig()
	cfg.Limiter.MaxRequests = 1
	cfg.Bypass = aiguard.BypassConfig{Header: "X-Internal-Bypass", Secret: "s3cret"}
	g, err := aiguard.New(cfg)
	require.NoError(t, err)
	h := g.Middleware(okHandler())

	for i := 0; i < 5; i++ {
		rec := doRequest(t, h, func(r *http.Request) {
			r.Header.Set("X-Internal-Bypass", "s3cret")
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	// The public path still has its full budget.
	rec := doRequest(t, h, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIdentity(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*http.Request)
		want   string
	}{
		{
			name: "first forwarded hop wins",
			mutate: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
			},
			want: "203.0.113.7",
		},
		{
			name:   "remote addr host",
			mutate: nil,
			want:   "192.0.2.1",
		},
		{
			name: "garbage forwarded header falls through to remote addr",
			mutate: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "not-an-ip")
			},
			want: "192.0.2.1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.mutate != nil {
				tc.mutate(req)
			}
			assert.Equal(t, tc.want, aiguard.ClientIdentity(req))
		})
	}
}

func TestClientIdentity_UnresolvableAddrIsFingerprinted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "unix-socket-peer"

	id := aiguard.ClientIdentity(req)
	assert.NotEmpty(t, id)
	assert.NotContains(t, id, "unix-socket-peer")
}
