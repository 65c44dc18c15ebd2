package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/response"
)

// WebhookAuth returns a middleware that requires the AUTHORIZATION header to
// equal secret exactly, compared in constant time. It guards only the
// upgrade-hook routes (/unverify, /pda-updates); every other route is
// unauthenticated, per spec.md's Non-goals.
func WebhookAuth(secret string) func(next http.Handler) http.Handler {
	secretBytes := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("AUTHORIZATION"))
			if len(got) != len(secretBytes) || subtle.ConstantTimeCompare(got, secretBytes) != 1 {
				response.Error(w, apierr.ErrAuth)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
