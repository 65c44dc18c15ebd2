// Package chain talks to the Solana RPC surface and the external builder
// utility to resolve on-chain program state.
package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rpcRotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "verifier_rpc_endpoint_rotations_total",
	Help: "Total number of times the RPC client rotated to the next endpoint after a transient error",
})

// transientErrorPattern matches RPC errors that should trigger endpoint
// rotation rather than immediate failure.
var transientErrorPattern = regexp.MustCompile(`(?i)time.?limit|timeout|rate.?limit|too many requests|429`)

// isTransient reports whether err looks like a rate-limit/timeout condition
// an RPC provider returns under load, as opposed to a real data error.
func isTransient(err error) bool {
	return err != nil && transientErrorPattern.MatchString(err.Error())
}

// rpcClient is a minimal JSON-RPC 2.0 client against a single Solana RPC
// endpoint, speaking only the methods this service needs.
type rpcClient struct {
	endpoint string
	http     *http.Client
}

func newRPCClient(endpoint string) *rpcClient {
	return &rpcClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *rpcClient) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rpc endpoint returned 429 too many requests")
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("decoding rpc response: %w", err)
	}
	if rr.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rr.Error.Code, rr.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(rr.Result, out)
}

type accountInfoValue struct {
	Data       [2]string `json:"data"`
	Owner      string    `json:"owner"`
	Lamports   uint64    `json:"lamports"`
	Executable bool      `json:"executable"`
}

type accountInfoResult struct {
	Value *accountInfoValue `json:"value"`
}

// getAccountData fetches and base64-decodes an account's raw data. A nil
// value (account does not exist) is reported as a nil slice with no error.
func (c *rpcClient) getAccountData(ctx context.Context, address string) ([]byte, error) {
	var result accountInfoResult
	params := []any{address, map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(result.Value.Data[0])
}

// rotator wraps RPC operations with the endpoint-rotation retry policy: on a
// transient error, advance to the next endpoint and retry, up to
// len(endpoints) attempts total. Any other error aborts immediately. The
// current index is process-wide and persists across calls, so a call that
// rotates past A and B leaves the next call starting from C rather than
// re-trying A first.
type rotator struct {
	endpoints []string

	mu      sync.Mutex
	current int
}

func newRotator(endpoints []string) *rotator {
	return &rotator{endpoints: endpoints}
}

// withClient calls fn with a client for the current endpoint, rotating to
// the next endpoint and retrying on a transient error, until fn succeeds, a
// non-transient error is returned, or every endpoint has been tried.
func (r *rotator) withClient(ctx context.Context, fn func(*rpcClient) error) error {
	var lastErr error
	for attempt := 0; attempt < len(r.endpoints); attempt++ {
		r.mu.Lock()
		idx := r.current
		r.mu.Unlock()

		client := newRPCClient(r.endpoints[idx])
		err := fn(client)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			return err
		}

		r.mu.Lock()
		next := (idx + 1) % len(r.endpoints)
		r.current = next
		r.mu.Unlock()
		rpcRotationsTotal.Inc()
		slog.Warn("rpc endpoint rotation", "from_endpoint", r.endpoints[idx], "to_endpoint", r.endpoints[next], "error", err)
	}
	return lastErr
}
