package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitAndTrim("a, b,c"))
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"only"}, splitAndTrim("only"))
	assert.Nil(t, splitAndTrim("  ,  ,  "))
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/verify")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("RPC_URL", "https://api.mainnet-beta.solana.com")
	t.Setenv("AUTH_SECRET", "s3cret")
}

func TestLoadMissingRequiredVar(t *testing.T) {
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "verFKtY359M6pCwJ8cocoocmeJNJ6QMkRvm3QGyR4U5", cfg.Chain.VerifierProgram)
	assert.Equal(t, 300, cfg.Sweeper.IntervalSeconds)
	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com"}, cfg.Chain.RPCURLs)
	assert.Equal(t, "verify-from-repo", cfg.Builder.BinPath)
}

func TestLoadSplitsMultipleRPCURLs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RPC_URLS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Chain.RPCURLs)
}
