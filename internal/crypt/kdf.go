package crypt

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

// pimIterations mirrors VeraCrypt's PIM-to-iteration-count convention: when
// pim is 0 the KDF's default iteration count is used; otherwise the
// iteration count scales linearly with pim.
func pimIterations(kdf KDFID, pim int) int {
	base := map[KDFID]int{
		PBKDF2SHA512: 500000,
		PBKDF2SHA256: 200000,
	}[kdf]

	if pim <= 0 {
		return base
	}
	return 15000 * pim
}

// DeriveKey derives keyLen bytes of key material from password and salt
// using the selected KDF (spec.md §3 "KDF id (PKCS#5 PRF)", §6).
func DeriveKey(kdf KDFID, password, salt []byte, pim, keyLen int) ([]byte, error) {
	var h func() hash.Hash
	switch kdf {
	case PBKDF2SHA512:
		h = sha512.New
	case PBKDF2SHA256:
		h = sha256.New
	default:
		return nil, fmt.Errorf("crypt: unknown KDF %v", kdf)
	}
	iterations := pimIterations(kdf, pim)
	return pbkdf2.Key(password, salt, iterations, keyLen, h), nil
}
