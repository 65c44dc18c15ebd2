package chain

import "github.com/otter-sec/solana-verified-programs-api-sub000/internal/config"

// Adapter is the Chain Adapter component: program-authority resolution,
// on-chain hash computation, and otter-verify PDA lookup, all behind the
// RPC endpoint rotation policy.
type Adapter struct {
	rotator         *rotator
	verifierProgram string
	builderBin      string
}

// New constructs an Adapter from chain and builder configuration.
func New(chainCfg config.ChainConfig, builderCfg config.BuilderConfig) *Adapter {
	return &Adapter{
		rotator:         newRotator(chainCfg.RPCURLs),
		verifierProgram: chainCfg.VerifierProgram,
		builderBin:      builderCfg.BinPath,
	}
}
