package chain

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/models"
)

func encodeOtterBuildParamsForTest(address, signer [32]byte, version, gitURL, commit string, args []string, slot uint64, bump uint8) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, discriminatorLen))
	buf.Write(address[:])
	buf.Write(signer[:])
	writeStr := func(s string) {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
		buf.Write(n[:])
		buf.WriteString(s)
	}
	writeStr(version)
	writeStr(gitURL)
	writeStr(commit)
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(args)))
	buf.Write(count[:])
	for _, a := range args {
		writeStr(a)
	}
	var slotBytes [8]byte
	binary.LittleEndian.PutUint64(slotBytes[:], slot)
	buf.Write(slotBytes[:])
	buf.WriteByte(bump)
	return buf.Bytes()
}

func TestDecodeOtterBuildParams(t *testing.T) {
	var addr, signer [32]byte
	addr[0] = 0x01
	signer[0] = 0x02

	raw := encodeOtterBuildParamsForTest(addr, signer, "0.1.0", "https://github.com/example/program", "deadbeef", []string{"--locked", "--release"}, 12345, 7)

	parsed, err := decodeOtterBuildParams(raw)
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", parsed.Version)
	assert.Equal(t, "https://github.com/example/program", parsed.GitURL)
	assert.Equal(t, "deadbeef", parsed.Commit)
	assert.Equal(t, []string{"--locked", "--release"}, parsed.Args)
	assert.Equal(t, uint64(12345), parsed.DeployedSlot)
	assert.Equal(t, uint8(7), parsed.Bump)
	assert.Equal(t, encodeBase58(addr[:]), parsed.Address)
	assert.Equal(t, encodeBase58(signer[:]), parsed.Signer)
}

func TestDecodeOtterBuildParamsTruncated(t *testing.T) {
	_, err := decodeOtterBuildParams(make([]byte, discriminatorLen+10))
	assert.Error(t, err)
}

func TestDecodeOtterBuildParamsShorterThanDiscriminator(t *testing.T) {
	_, err := decodeOtterBuildParams(make([]byte, 2))
	assert.Error(t, err)
}

func TestIsBPF(t *testing.T) {
	assert.True(t, isBPF([]string{"--mount-path", "programs/foo", "--bpf"}))
	assert.False(t, isBPF([]string{"--mount-path", "programs/foo"}))
	assert.False(t, isBPF(nil))
}

func TestArgAfter(t *testing.T) {
	args := []string{"--library-name", "squads_mpl", "--base-image", "backpackapp/build:v0.30.1"}

	libName := argAfter(args, "--library-name")
	require.NotNil(t, libName)
	assert.Equal(t, "squads_mpl", *libName)

	baseImage := argAfter(args, "--base-image", "-b")
	require.NotNil(t, baseImage)
	assert.Equal(t, "backpackapp/build:v0.30.1", *baseImage)

	assert.Nil(t, argAfter(args, "--mount-path"))
	assert.Nil(t, argAfter([]string{"--library-name"}, "--library-name"), "flag with no following value yields nil, not a panic")
}

func TestCargoArgs(t *testing.T) {
	assert.Equal(t, []string{"--locked", "--release"}, cargoArgs([]string{"--library-name", "foo", "--", "--locked", "--release"}))
	assert.Nil(t, cargoArgs([]string{"--library-name", "foo"}))
	assert.Equal(t, []string{}, cargoArgs([]string{"--"}))
}

func TestCandidateSigners(t *testing.T) {
	t.Run("explicit and authority both present", func(t *testing.T) {
		explicit := "ExplicitSigner111111111111111111111111111"
		authority := "AuthoritySigner1111111111111111111111111111"
		candidates := candidateSigners(&explicit, &authority)
		require.GreaterOrEqual(t, len(candidates), 2)
		assert.Equal(t, explicit, candidates[0])
		assert.Equal(t, authority, candidates[1])
	})

	t.Run("nil inputs fall back to trusted signers only", func(t *testing.T) {
		candidates := candidateSigners(nil, nil)
		assert.Equal(t, models.TrustedSigners, candidates)
	})

	t.Run("empty string pointers are skipped", func(t *testing.T) {
		empty := ""
		candidates := candidateSigners(&empty, &empty)
		for _, c := range candidates {
			assert.NotEqual(t, "", c)
		}
	})
}
