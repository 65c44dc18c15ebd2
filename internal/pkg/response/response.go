// Package response provides JSON response helpers for API handlers.
//
// Unlike a generic {data, error, meta} envelope, this service's responses
// are tagged-union DTOs (see internal/models) whose own fields are the
// entire wire body — JSON here never wraps a caller's payload.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
)

// JSON writes v as the entire response body with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 OK response.
func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Accepted writes a 200 OK response carrying an in-progress verdict; the
// service never uses 202 on the wire, matching the scenario table in
// spec.md §8 which expects 200 for async acceptance.
func Accepted(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Error writes an *apierr.APIError as the response. A store transport error
// is written as apierr.ErrStoreTransport; any other error is coerced to the
// fixed internal-error body.
func Error(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*apierr.APIError)
	if !ok {
		var se *apierr.StoreError
		if errors.As(err, &se) && se.Kind == apierr.KindStoreTransport {
			apiErr = apierr.ErrStoreTransport
		} else {
			apiErr = &apierr.APIError{
				Code:       "internal_error",
				Message:    "an internal error occurred",
				StatusCode: http.StatusInternalServerError,
			}
		}
	}
	JSON(w, apiErr.StatusCode, struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}{Status: "error", Error: apiErr.Message})
}
