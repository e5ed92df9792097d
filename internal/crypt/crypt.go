// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package crypt is the collaborator boundary named in spec.md §6: cipher,
// KDF and RNG primitives, and the header-build routine. The formatter core
// in package volume only ever talks to the interfaces declared here.
package crypt

import "fmt"

// CipherID names a supported block cipher / mode combination. Only
// AES-XTS is implemented; the type exists so additional algorithms can be
// registered without changing the header-builder contract.
type CipherID int

const (
	AESXTS CipherID = iota
)

func (c CipherID) String() string {
	switch c {
	case AESXTS:
		return "AES-XTS"
	default:
		return "unknown"
	}
}

// KeySize returns the combined size, in bytes, of the primary key and the
// XTS secondary (tweak) key for the given cipher.
func (c CipherID) KeySize() (int, error) {
	switch c {
	case AESXTS:
		return 64, nil // 32-byte AES-256 data key + 32-byte AES-256 tweak key
	default:
		return 0, fmt.Errorf("crypt: unknown cipher %v", c)
	}
}

// KDFID names a supported password-based key derivation function.
type KDFID int

const (
	PBKDF2SHA512 KDFID = iota
	PBKDF2SHA256
)

func (k KDFID) String() string {
	switch k {
	case PBKDF2SHA512:
		return "PBKDF2-SHA512"
	case PBKDF2SHA256:
		return "PBKDF2-SHA256"
	default:
		return "unknown"
	}
}

// Mode is an XTS-style cipher keyed by a primary key and a secondary
// (tweak) key, able to encrypt whole data units addressed by absolute
// unit number. It is the core's only dependency on a cipher
// implementation (spec.md §6 "encrypt_data_units").
type Mode interface {
	// EncryptDataUnits encrypts buf in place, consisting of n consecutive
	// DataUnitSize-byte data units starting at absolute unit number
	// unitNo. len(buf) must equal n*DataUnitSize.
	EncryptDataUnits(buf []byte, unitNo uint64, n int) error

	// DecryptDataUnits is the inverse of EncryptDataUnits.
	DecryptDataUnits(buf []byte, unitNo uint64, n int) error
}
