package crypt

import (
	"crypto/aes"
	"fmt"

	"golang.org/x/crypto/xts"
)

// xtsMode is the default Mode implementation: AES-XTS via
// golang.org/x/crypto/xts, keyed by masterKeyData||k2 per that package's
// convention (the key passed to xts.NewCipher is twice the block cipher's
// own key size: one half encrypts data, the other half encrypts tweaks).
type xtsMode struct {
	c *xts.Cipher
}

// NewXTSMode builds a Mode from a primary key and secondary (tweak) key,
// each 32 bytes for AES-256-XTS.
func NewXTSMode(masterKeyData, k2 []byte) (Mode, error) {
	if len(masterKeyData) != 32 || len(k2) != 32 {
		return nil, fmt.Errorf("crypt: AES-XTS requires 32-byte data and tweak keys, got %d/%d", len(masterKeyData), len(k2))
	}
	key := make([]byte, 0, 64)
	key = append(key, masterKeyData...)
	key = append(key, k2...)

	c, err := xts.NewCipher(aes.NewCipher, key)
	if err != nil {
		return nil, fmt.Errorf("crypt: xts.NewCipher: %w", err)
	}
	return &xtsMode{c: c}, nil
}

func (m *xtsMode) EncryptDataUnits(buf []byte, unitNo uint64, n int) error {
	if len(buf) != n*dataUnitSize {
		return fmt.Errorf("crypt: buffer length %d does not match %d data units", len(buf), n)
	}
	for i := 0; i < n; i++ {
		off := i * dataUnitSize
		block := buf[off : off+dataUnitSize]
		m.c.Encrypt(block, block, unitNo+uint64(i))
	}
	return nil
}

func (m *xtsMode) DecryptDataUnits(buf []byte, unitNo uint64, n int) error {
	if len(buf) != n*dataUnitSize {
		return fmt.Errorf("crypt: buffer length %d does not match %d data units", len(buf), n)
	}
	for i := 0; i < n; i++ {
		off := i * dataUnitSize
		block := buf[off : off+dataUnitSize]
		m.c.Decrypt(block, block, unitNo+uint64(i))
	}
	return nil
}

// dataUnitSize mirrors volume.DataUnitSize; duplicated here (rather than
// imported) to keep this package free of a dependency back on volume.
const dataUnitSize = 512
