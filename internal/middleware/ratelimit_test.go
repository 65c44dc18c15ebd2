package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRealIP(t *testing.T) {
	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "1.2.3.4")
		req.Header.Set("X-Real-IP", "5.6.7.8")
		req.RemoteAddr = "9.9.9.9:1234"
		assert.Equal(t, "1.2.3.4", realIP(req))
	})

	t.Run("falls back to X-Real-IP", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "5.6.7.8")
		req.RemoteAddr = "9.9.9.9:1234"
		assert.Equal(t, "5.6.7.8", realIP(req))
	})

	t.Run("falls back to RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		assert.Equal(t, "9.9.9.9:1234", realIP(req))
	})
}

func TestGlobalLimiterRejectsBeyondQueueDepth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	// Zero-rate limiter with zero queue depth: the first request can't even
	// enter the wait queue, let alone acquire a token, so it's rejected
	// immediately rather than hanging.
	mw := Global(rate.NewLimiter(rate.Limit(0), 0), 0)(next)

	req := httptest.NewRequest(http.MethodPost, "/verify", nil)
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGlobalLimiterAllowsWithinBudget(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := Global(rate.NewLimiter(rate.Inf, 10), 10)(next)

	req := httptest.NewRequest(http.MethodPost, "/verify", nil)
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
