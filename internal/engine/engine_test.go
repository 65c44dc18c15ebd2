package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/models"
)

func TestExtractHash(t *testing.T) {
	output := "building...\nOn-chain Program Hash: abc123\nExecutable Program Hash from repo: def456\ndone\n"

	assert.Equal(t, "abc123", extractHash(output, "On-chain Program Hash:"))
	assert.Equal(t, "def456", extractHash(output, "Executable Program Hash from repo:"))
	assert.Equal(t, "", extractHash(output, "Missing Prefix:"))
}

func TestEngineCommandArgs(t *testing.T) {
	e := &Engine{binPath: "/usr/local/bin/solana-verify"}
	commit := "deadbeef"
	lib := "my_program"
	baseImage := "solanafoundation/rust:1.75"
	mountPath := "program"
	bpf := true

	params := models.BuildParams{
		ProgramID:   "9VWiUUHAJFzbodprd8iw82PxXe3Jg2xUEjHWj8YaPAqU",
		Repository:  "https://github.com/example/program",
		Commit:      &commit,
		LibraryName: &lib,
		BaseImage:   &baseImage,
		MountPath:   &mountPath,
		BPFFlag:     &bpf,
		CargoArgs:   []string{"--locked"},
	}

	cmd := e.command(context.Background(), params)
	require.NotNil(t, cmd)

	args := cmd.Args[1:]
	assert.Equal(t, []string{
		"verify-from-repo", "-um",
		"--commit-hash", "deadbeef",
		"--library-name", "my_program",
		"--base-image", "solanafoundation/rust:1.75",
		"--mount-path", "program",
		"--bpf",
		"--program-id", "9VWiUUHAJFzbodprd8iw82PxXe3Jg2xUEjHWj8YaPAqU",
		"https://github.com/example/program",
		"--",
		"--locked",
	}, args)
}

func TestEngineCommandArgsMinimal(t *testing.T) {
	e := &Engine{binPath: "/usr/local/bin/solana-verify"}
	params := models.BuildParams{
		ProgramID:  "9VWiUUHAJFzbodprd8iw82PxXe3Jg2xUEjHWj8YaPAqU",
		Repository: "https://github.com/example/program",
	}

	cmd := e.command(context.Background(), params)
	args := cmd.Args[1:]
	assert.Equal(t, []string{
		"verify-from-repo", "-um",
		"--program-id", "9VWiUUHAJFzbodprd8iw82PxXe3Jg2xUEjHWj8YaPAqU",
		"https://github.com/example/program",
	}, args)
}
