package chain

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
)

// backoffSchedule is the delay before each retry attempt after the first.
var backoffSchedule = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// GetOnChainHash invokes the builder utility in "get-program-hash" mode, up
// to 3 attempts with exponential backoff. A stderr indicating the program
// data account is missing aborts immediately with a closed error rather than
// retrying.
func (a *Adapter) GetOnChainHash(ctx context.Context, programID, rpcURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		hash, closed, err := a.runGetProgramHash(ctx, programID, rpcURL)
		if err == nil {
			return hash, nil
		}
		if closed {
			return "", apierr.Closed(err)
		}
		lastErr = err
		if attempt < len(backoffSchedule) {
			select {
			case <-time.After(backoffSchedule[attempt]):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", lastErr
}

func (a *Adapter) runGetProgramHash(ctx context.Context, programID, rpcURL string) (hash string, closed bool, err error) {
	cmd := exec.CommandContext(ctx, a.builderBin, "get-program-hash", programID, "--url", rpcURL)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if strings.Contains(stderr.String(), "Could not find program data") {
			return "", true, &apierr.BuildError{Stdout: stderr.String()}
		}
		return "", false, &apierr.BuildError{Stdout: stderr.String()}
	}

	line := lastNonemptyLine(stdout.String())
	if line == "" {
		return "", false, &apierr.BuildError{Stdout: stdout.String()}
	}
	return line, false, nil
}

func lastNonemptyLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
