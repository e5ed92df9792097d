package crypt

import (
	"crypto/rand"
	"fmt"
)

// Rand is the RNG collaborator (spec.md §6 "get_bytes(dst, len, strong)").
// strong is accepted for interface parity with the spec but this
// implementation always draws from a CSPRNG: key material must never be
// backed by a non-cryptographic source, strong or not.
type Rand interface {
	GetBytes(dst []byte, strong bool) error
}

type cryptoRand struct{}

// DefaultRand is backed by crypto/rand, the only acceptable source for key
// material and salts.
var DefaultRand Rand = cryptoRand{}

func (cryptoRand) GetBytes(dst []byte, strong bool) error {
	_, err := rand.Read(dst)
	if err != nil {
		return fmt.Errorf("crypt: rand.Read: %w", err)
	}
	return nil
}
