// Package apierr provides the typed error kinds used across the service's
// layers and their HTTP translation.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a standardized API error response.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    message,
		StatusCode: e.StatusCode,
		Details:    e.Details,
	}
}

// Kind reports which row of the error-handling table an error belongs to.
// Handlers switch on this instead of string-matching error messages.
type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindPdaNotFound    Kind = "pda_not_found"
	KindStoreNotFound  Kind = "store_not_found"
	KindStoreTransport Kind = "store_transport"
	KindCache          Kind = "cache_error"
	KindRPCTimeLimit   Kind = "rpc_time_limit"
	KindRPCClosed      Kind = "rpc_closed"
	KindBuild          Kind = "build_error"
	KindAuth           Kind = "auth_error"
)

// Standard error definitions, one per row of the error-handling table.
var (
	// ErrPdaNotFound is returned by setup_verification when no PDA candidate
	// derives to an existing, well-formed metadata account.
	ErrPdaNotFound = &APIError{
		Code:       string(KindPdaNotFound),
		Message:    "could not find on-chain PDA for program",
		StatusCode: http.StatusNotFound,
	}

	// ErrStoreTransport is the fixed message surfaced for connection/pool
	// failures against the store; the real cause is logged, not echoed.
	ErrStoreTransport = &APIError{
		Code:       string(KindStoreTransport),
		Message:    "unforeseen database error",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrBuildSync is surfaced to a synchronous verify caller when the
	// builder subprocess fails; async callers get a Build row marked
	// Failed instead of this response.
	ErrBuildSync = &APIError{
		Code:       string(KindBuild),
		Message:    "unexpected error",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrAuth is the fixed 401 body for a missing/mismatched webhook secret.
	ErrAuth = &APIError{
		Code:       string(KindAuth),
		Message:    "unauthorized",
		StatusCode: http.StatusUnauthorized,
	}
)

// NewValidationError creates a 400 with a single-sentence reason, matching
// the error-handling table's ValidationError row.
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:       string(KindValidation),
		Message:    reason,
		StatusCode: http.StatusBadRequest,
	}
}

// StoreError is returned by every Store operation; Kind distinguishes the
// policies spec.md's error table assigns to store failures.
type StoreError struct {
	Kind Kind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotFound wraps err as a StoreError whose policy is "map to empty/unverified
// response, not 5xx, on reads".
func NotFound(err error) *StoreError {
	return &StoreError{Kind: KindStoreNotFound, Err: err}
}

// Transport wraps err as a StoreError whose policy is "500 with fixed
// message; log stack".
func Transport(err error) *StoreError {
	return &StoreError{Kind: KindStoreTransport, Err: err}
}

// IsNotFound reports whether err is a StoreError of kind NotFound.
func IsNotFound(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind == KindStoreNotFound
	}
	return false
}

// RPCError is returned by Chain Adapter operations.
type RPCError struct {
	Kind Kind
	Err  error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc: %s: %v", e.Kind, e.Err)
}

func (e *RPCError) Unwrap() error { return e.Err }

// TimeLimit wraps err as the class of RPC error that triggers rotation.
func TimeLimit(err error) *RPCError {
	return &RPCError{Kind: KindRPCTimeLimit, Err: err}
}

// Closed wraps err as the class of RPC error treated as data, not failure.
func Closed(err error) *RPCError {
	return &RPCError{Kind: KindRPCClosed, Err: err}
}

// IsClosed reports whether err represents a closed on-chain program.
func IsClosed(err error) bool {
	var re *RPCError
	if errors.As(err, &re) {
		return re.Kind == KindRPCClosed
	}
	return false
}

// BuildError is returned by the Verification Engine on a nonzero builder
// subprocess exit; it carries the subprocess's captured stdout.
type BuildError struct {
	Stdout string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed: %s", e.Stdout)
}
