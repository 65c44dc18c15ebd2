package chain

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
)

// BPF Upgradeable Loader account discriminants. The first four bytes of any
// account owned by the loader are a little-endian enum tag.
const (
	loaderAccountUninitialized uint32 = 0
	loaderAccountBuffer        uint32 = 1
	loaderAccountProgram       uint32 = 2
	loaderAccountProgramData   uint32 = 3
)

const pubkeyLen = 32

// Authority is the resolved upgrade-authority state of an on-chain program.
type Authority struct {
	Address  *string
	IsFrozen bool
	IsClosed bool
}

// GetProgramAuthority reads the program account, follows it to its
// program-data account, and extracts the upgrade authority.
func (a *Adapter) GetProgramAuthority(ctx context.Context, programID string) (*Authority, error) {
	var result *Authority
	err := a.rotator.withClient(ctx, func(c *rpcClient) error {
		programBytes, err := c.getAccountData(ctx, programID)
		if err != nil {
			return err
		}
		if programBytes == nil {
			result = &Authority{IsClosed: true}
			return nil
		}

		tag, payload, err := readLoaderAccount(programBytes)
		if err != nil {
			return err
		}
		if tag != loaderAccountProgram {
			return fmt.Errorf("unexpected program account type: %d", tag)
		}
		programDataAddr := encodeBase58(payload[:pubkeyLen])

		programDataBytes, err := c.getAccountData(ctx, programDataAddr)
		if err != nil {
			return err
		}
		if programDataBytes == nil {
			result = &Authority{IsClosed: true}
			return nil
		}

		pdTag, pdPayload, err := readLoaderAccount(programDataBytes)
		if err != nil {
			return err
		}
		if pdTag != loaderAccountProgramData {
			return fmt.Errorf("unexpected program data account type: %d", pdTag)
		}

		// ProgramData layout after the tag: slot (8 bytes), then an Option<Pubkey>
		// upgrade authority encoded as a 1-byte presence flag + 32 bytes if present.
		if len(pdPayload) < 9 {
			return fmt.Errorf("program data account too short")
		}
		hasAuthority := pdPayload[8] != 0
		if !hasAuthority {
			result = &Authority{IsFrozen: true}
			return nil
		}
		if len(pdPayload) < 9+pubkeyLen {
			return fmt.Errorf("program data account missing authority bytes")
		}
		authority := encodeBase58(pdPayload[9 : 9+pubkeyLen])
		result = &Authority{Address: &authority}
		return nil
	})
	if err != nil {
		if isTransient(err) {
			return nil, apierr.TimeLimit(err)
		}
		return nil, err
	}
	return result, nil
}

func readLoaderAccount(data []byte) (uint32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("account data too short for loader tag")
	}
	tag := binary.LittleEndian.Uint32(data[:4])
	return tag, data[4:], nil
}
