// Package engine runs the external builder utility to reproduce a program's
// executable and compare it against its on-chain hash.
package engine

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/config"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/models"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/ulid"
)

// Engine runs the "verify-from-repo" builder invocation under a scoped
// address-space limit and assembles the resulting VerifiedProgram.
type Engine struct {
	binPath string
}

// New constructs an Engine from builder configuration.
func New(cfg config.BuilderConfig) *Engine {
	return &Engine{binPath: cfg.BinPath}
}

// Verify builds params and compares the reproduced executable hash against
// the program's on-chain hash, producing a VerifiedProgram tied to buildID.
func (e *Engine) Verify(ctx context.Context, params models.BuildParams, buildID, logID string) (*models.VerifiedProgram, error) {
	var stdout, stderr bytes.Buffer
	var runErr error

	err := withAddressSpaceLimit(func() error {
		cmd := e.command(ctx, params)
		cmd.Stdin = strings.NewReader("n\n")
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		runErr = cmd.Run()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if runErr != nil {
		return nil, &apierr.BuildError{Stdout: stdout.String()}
	}

	output := stdout.String()
	onChainHash := extractHash(output, "On-chain Program Hash:")
	executableHash := extractHash(output, "Executable Program Hash from repo:")

	return &models.VerifiedProgram{
		VerifiedID:     ulid.New(),
		ProgramID:      params.ProgramID,
		IsVerified:     onChainHash != "" && onChainHash == executableHash,
		OnChainHash:    onChainHash,
		ExecutableHash: executableHash,
		VerifiedAt:     time.Now(),
		BuildRef:       buildID,
	}, nil
}

func (e *Engine) command(ctx context.Context, params models.BuildParams) *exec.Cmd {
	args := []string{"verify-from-repo", "-um"}

	if params.Commit != nil {
		args = append(args, "--commit-hash", *params.Commit)
	}
	if params.LibraryName != nil {
		args = append(args, "--library-name", *params.LibraryName)
	}
	if params.BaseImage != nil {
		args = append(args, "--base-image", *params.BaseImage)
	}
	if params.MountPath != nil {
		args = append(args, "--mount-path", *params.MountPath)
	}
	if params.BPFFlag != nil && *params.BPFFlag {
		args = append(args, "--bpf")
	}
	args = append(args, "--program-id", params.ProgramID, params.Repository)
	if len(params.CargoArgs) > 0 {
		args = append(args, "--")
		args = append(args, params.CargoArgs...)
	}

	return exec.CommandContext(ctx, e.binPath, args...)
}

func extractHash(output, prefix string) string {
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}
