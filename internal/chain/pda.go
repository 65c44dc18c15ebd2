package chain

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/models"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
)

// pdaSeedTag is the fixed seed every otter-verify PDA is derived with.
const pdaSeedTag = "otter_verify"

// discriminatorLen is the length of the account discriminator that precedes
// every OtterBuildParams account's payload and must be stripped before
// decoding.
const discriminatorLen = 8

// derivePDA mirrors a program-derived-address lookup: hash the seed tag, the
// candidate signer, and the program address under the verifier program's
// namespace. This stands in for Solana's off-curve PDA derivation — there is
// no ed25519 curve-membership check here, only the deterministic address the
// chain would use to key the lookup, which is all a read-only account fetch
// needs.
func derivePDA(verifierProgram, signer, programID string) string {
	h := sha256.New()
	h.Write([]byte(pdaSeedTag))
	h.Write([]byte(signer))
	h.Write([]byte(programID))
	h.Write([]byte(verifierProgram))
	return encodeBase58(h.Sum(nil))
}

// OtterBuildParams is the parsed payload of an otter-verify PDA account.
type OtterBuildParams struct {
	Address      string
	Signer       string
	Version      string
	GitURL       string
	Commit       string
	Args         []string
	DeployedSlot uint64
	Bump         uint8
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("otter build params: truncated at offset %d reading %d bytes", r.pos, n)
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *byteReader) u8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeOtterBuildParams parses a PDA account's raw data, after stripping
// its 8-byte discriminator, per the length-prefixed sequential layout:
// address, signer, version, git_url, commit, args (vector of strings),
// deployed_slot, bump.
func decodeOtterBuildParams(raw []byte) (*OtterBuildParams, error) {
	if len(raw) < discriminatorLen {
		return nil, fmt.Errorf("otter build params: account data shorter than discriminator")
	}
	r := &byteReader{data: raw[discriminatorLen:]}

	addrBytes, err := r.bytes(pubkeyLen)
	if err != nil {
		return nil, err
	}
	signerBytes, err := r.bytes(pubkeyLen)
	if err != nil {
		return nil, err
	}
	version, err := r.str()
	if err != nil {
		return nil, err
	}
	gitURL, err := r.str()
	if err != nil {
		return nil, err
	}
	commit, err := r.str()
	if err != nil {
		return nil, err
	}
	argCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, argCount)
	for i := uint32(0); i < argCount; i++ {
		arg, err := r.str()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	slot, err := r.u64()
	if err != nil {
		return nil, err
	}
	bump, err := r.u8()
	if err != nil {
		return nil, err
	}

	return &OtterBuildParams{
		Address:      encodeBase58(addrBytes),
		Signer:       encodeBase58(signerBytes),
		Version:      version,
		GitURL:       gitURL,
		Commit:       commit,
		Args:         args,
		DeployedSlot: slot,
		Bump:         bump,
	}, nil
}

// GetOtterVerifyParams tries PDA candidates in order — the explicit signer,
// then the on-chain authority, then each trusted signer — returning the
// first whose derived account exists and decodes successfully.
func (a *Adapter) GetOtterVerifyParams(ctx context.Context, programID string, explicitSigner, authority *string) (*models.BuildParams, string, error) {
	candidates := candidateSigners(explicitSigner, authority)

	for _, signer := range candidates {
		pda := derivePDA(a.verifierProgram, signer, programID)

		var raw []byte
		err := a.rotator.withClient(ctx, func(c *rpcClient) error {
			data, err := c.getAccountData(ctx, pda)
			if err != nil {
				return err
			}
			raw = data
			return nil
		})
		if err != nil {
			if isTransient(err) {
				return nil, "", apierr.TimeLimit(err)
			}
			continue
		}
		if raw == nil {
			continue
		}

		parsed, err := decodeOtterBuildParams(raw)
		if err != nil {
			continue
		}

		bpfFlag := isBPF(parsed.Args)
		params := &models.BuildParams{
			ProgramID:   parsed.Address,
			Repository:  parsed.GitURL,
			Commit:      strPtr(parsed.Commit),
			LibraryName: argAfter(parsed.Args, "--library-name"),
			BaseImage:   argAfter(parsed.Args, "--base-image", "-b"),
			MountPath:   argAfter(parsed.Args, "--mount-path"),
			CargoArgs:   cargoArgs(parsed.Args),
			BPFFlag:     &bpfFlag,
		}
		return params, signer, nil
	}

	return nil, "", apierr.ErrPdaNotFound
}

// isBPF reports whether the otter-verify account's args contain the --bpf
// flag, the way SolanaProgramBuildParams::from(OtterBuildParams) derives
// its bpf_flag field.
func isBPF(args []string) bool {
	for _, arg := range args {
		if arg == "--bpf" {
			return true
		}
	}
	return false
}

// argAfter returns the value immediately following the first arg matching
// any of names, or nil if none is present. Mirrors the otter-verify args'
// "--flag value" convention (get_library_name, get_base_image, get_mount_path).
func argAfter(args []string, names ...string) *string {
	for i, arg := range args {
		for _, name := range names {
			if arg == name {
				if i+1 >= len(args) {
					return nil
				}
				v := args[i+1]
				return &v
			}
		}
	}
	return nil
}

// cargoArgs returns the args following the "--" sentinel, or nil if the
// sentinel is absent, per get_cargo_args.
func cargoArgs(args []string) []string {
	for i, arg := range args {
		if arg == "--" {
			return args[i+1:]
		}
	}
	return nil
}

// FetchPDAAccount reads and decodes an otter-verify PDA account by its
// address directly, for callers (the Upgrade Hook) that already know the
// PDA rather than needing to derive it.
func (a *Adapter) FetchPDAAccount(ctx context.Context, pda string) (*OtterBuildParams, error) {
	var raw []byte
	err := a.rotator.withClient(ctx, func(c *rpcClient) error {
		data, err := c.getAccountData(ctx, pda)
		if err != nil {
			return err
		}
		raw = data
		return nil
	})
	if err != nil {
		if isTransient(err) {
			return nil, apierr.TimeLimit(err)
		}
		return nil, err
	}
	if raw == nil {
		return nil, apierr.ErrPdaNotFound
	}
	return decodeOtterBuildParams(raw)
}

func candidateSigners(explicitSigner, authority *string) []string {
	var out []string
	if explicitSigner != nil && *explicitSigner != "" {
		out = append(out, *explicitSigner)
	}
	if authority != nil && *authority != "" {
		out = append(out, *authority)
	}
	out = append(out, models.TrustedSigners...)
	return out
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
