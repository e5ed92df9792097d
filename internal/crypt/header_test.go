package crypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBuildHeader_PrimaryBackupShareKeys exercises spec.md §8 property 2:
// a backup header built with the primary's PresetMasterKeyData/PresetK2
// must decrypt to the identical key material, so either header recovers
// the volume.
func TestBuildHeader_PrimaryBackupShareKeys(t *testing.T) {
	password := []byte("correct horse battery staple")

	var primary, backup [HeaderEffectiveSize]byte

	primaryCtx, err := BuildHeader(primary[:], BuildParams{
		Cipher:       AESXTS,
		KDF:          PBKDF2SHA256,
		Password:     password,
		DataOffset:   1 << 20,
		DataAreaSize: 1 << 30,
		SectorSize:   512,
	})
	require.NoError(t, err)
	require.Len(t, primaryCtx.MasterKeyData, 32)
	require.Len(t, primaryCtx.K2, 32)

	backupCtx, err := BuildHeader(backup[:], BuildParams{
		Cipher:              AESXTS,
		KDF:                 PBKDF2SHA256,
		Password:             password,
		PresetMasterKeyData: primaryCtx.MasterKeyData,
		PresetK2:            primaryCtx.K2,
		DataOffset:          1 << 20,
		DataAreaSize:        1 << 30,
		SectorSize:          512,
	})
	require.NoError(t, err)

	require.Equal(t, primaryCtx.MasterKeyData, backupCtx.MasterKeyData)
	require.Equal(t, primaryCtx.K2, backupCtx.K2)

	// The two ciphertexts must differ (fresh salt each build) even though
	// they encode the same key material.
	require.False(t, bytes.Equal(primary[:], backup[:]))

	decCtx, params, err := DecryptHeader(backup[:], AESXTS, PBKDF2SHA256, 0, password)
	require.NoError(t, err)
	require.Equal(t, primaryCtx.MasterKeyData, decCtx.MasterKeyData)
	require.Equal(t, primaryCtx.K2, decCtx.K2)
	require.EqualValues(t, 1<<20, params.DataOffset)
	require.EqualValues(t, 1<<30, params.DataAreaSize)
}

// TestBuildHeader_WrongPasswordFails ensures DecryptHeader rejects the
// wrong password instead of silently returning garbage key material.
func TestBuildHeader_WrongPasswordFails(t *testing.T) {
	var header [HeaderEffectiveSize]byte
	_, err := BuildHeader(header[:], BuildParams{
		Cipher:       AESXTS,
		KDF:          PBKDF2SHA256,
		Password:     []byte("right password"),
		DataOffset:   0,
		DataAreaSize: 1 << 20,
		SectorSize:   512,
	})
	require.NoError(t, err)

	_, _, err = DecryptHeader(header[:], AESXTS, PBKDF2SHA256, 0, []byte("wrong password"))
	require.Error(t, err)
}

// TestBuildHeader_DecoyIsRandom checks the random-fill decoy path never
// derives a key from a password and returns a usable throwaway context.
func TestBuildHeader_DecoyIsRandom(t *testing.T) {
	var a, b [HeaderEffectiveSize]byte

	ctxA, err := BuildHeader(a[:], BuildParams{Cipher: AESXTS, KDF: PBKDF2SHA256})
	require.NoError(t, err)
	ctxB, err := BuildHeader(b[:], BuildParams{Cipher: AESXTS, KDF: PBKDF2SHA256})
	require.NoError(t, err)

	require.False(t, bytes.Equal(a[:], b[:]))
	ctxA.Burn()
	ctxB.Burn()
	require.True(t, allZero(ctxA.MasterKeyData))
	require.True(t, allZero(ctxB.K2))
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
