package crypt

import (
	"crypto/aes"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/xts"
)

// HeaderEffectiveSize mirrors volume.HeaderEffectiveSize; duplicated as an
// untyped constant to avoid a dependency back on package volume.
const HeaderEffectiveSize = 512

const headerMagic = "CVOL"

// Context is the opaque holder of key material produced by BuildHeader
// (spec.md §3 "Crypto Context"). Both the primary and backup headers of a
// volume share one Context's MasterKeyData/K2 by construction (§4.2).
type Context struct {
	Cipher        CipherID
	MasterKeyData []byte
	K2            []byte

	locked bool
}

// Mode lazily builds the XTS Mode for this context's keys.
func (c *Context) Mode() (Mode, error) {
	switch c.Cipher {
	case AESXTS:
		return NewXTSMode(c.MasterKeyData, c.K2)
	default:
		return nil, fmt.Errorf("crypt: unknown cipher %v", c.Cipher)
	}
}

// lockKeys asks the OS not to swap out MasterKeyData/K2 for the lifetime of
// the Context (spec.md §3/§5: key material pages are page-locked for their
// lifetime). Best effort: a platform or ulimit that refuses the lock still
// lets formatting proceed, matching KeyBuffer's posture in package volume.
func (c *Context) lockKeys() {
	mkErr := lockMemory(c.MasterKeyData)
	k2Err := lockMemory(c.K2)
	c.locked = mkErr == nil && k2Err == nil
}

// Burn zeroes the key material and releases its memory lock, if held. Safe
// on a nil receiver.
func (c *Context) Burn() {
	if c == nil {
		return
	}
	if c.locked {
		_ = unlockMemory(c.MasterKeyData)
		_ = unlockMemory(c.K2)
		c.locked = false
	}
	zero(c.MasterKeyData)
	zero(c.K2)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// BuildParams bundles the arguments to BuildHeader (spec.md §6
// "build_header"). A nil Password together with a nil PresetMasterKeyData
// signals a "random fill" decoy header build per spec.md §4.2's decoy-header
// policy.
type BuildParams struct {
	Cipher CipherID
	KDF    KDFID
	PIM    int

	Password []byte

	// PresetMasterKeyData, when non-nil, is used instead of generating a
	// fresh key, so the backup header shares keys with the primary
	// (spec.md §4.2).
	PresetMasterKeyData []byte
	PresetK2            []byte

	DataOffset    uint64
	DataAreaSize  uint64
	HiddenSize    uint64 // 0 for a non-hidden header
	SectorSize    uint32
	HeaderFlags   uint32
}

// BuildHeader produces a ciphertext header of exactly HeaderEffectiveSize
// bytes and a populated Context, per the contract of spec.md §4.2 and §6.
//
// The on-disk header layout is: a 64-byte salt, followed by the body (the
// fields below, master key data and k2), encrypted under AES-XTS with
// unit number 0 by a header key PBKDF2-derived from the password and the
// salt. The header key itself is never stored. This mirrors
// the "header-key-encrypts-body" structure used by real disk-encryption
// header formats (see the LUKS2 binary-header reference material) without
// claiming bit-exact compatibility with any one of them.
func BuildHeader(out []byte, p BuildParams) (*Context, error) {
	if len(out) != HeaderEffectiveSize {
		return nil, fmt.Errorf("crypt: header buffer must be exactly %d bytes, got %d", HeaderEffectiveSize, len(out))
	}

	keySize, err := p.Cipher.KeySize()
	if err != nil {
		return nil, err
	}
	halfKey := keySize / 2

	ctx := &Context{Cipher: p.Cipher}

	randomFill := p.Password == nil && p.PresetMasterKeyData == nil
	if randomFill {
		// Decoy header: collaborator contract is "random bytes", so we
		// skip key derivation and header-body construction entirely and
		// hand back ciphertext-shaped randomness plus a throwaway
		// context the caller closes immediately (spec.md §4.2).
		if err := DefaultRand.GetBytes(out, true); err != nil {
			return nil, fmt.Errorf("crypt: random fill: %w", err)
		}
		ctx.MasterKeyData = make([]byte, halfKey)
		ctx.K2 = make([]byte, halfKey)
		if err := DefaultRand.GetBytes(ctx.MasterKeyData, true); err != nil {
			return nil, err
		}
		if err := DefaultRand.GetBytes(ctx.K2, true); err != nil {
			return nil, err
		}
		ctx.lockKeys()
		return ctx, nil
	}

	if p.PresetMasterKeyData != nil {
		ctx.MasterKeyData = append([]byte(nil), p.PresetMasterKeyData...)
		ctx.K2 = append([]byte(nil), p.PresetK2...)
	} else {
		ctx.MasterKeyData = make([]byte, halfKey)
		ctx.K2 = make([]byte, halfKey)
		if err := DefaultRand.GetBytes(ctx.MasterKeyData, true); err != nil {
			return nil, fmt.Errorf("crypt: generating master key: %w", err)
		}
		if err := DefaultRand.GetBytes(ctx.K2, true); err != nil {
			return nil, fmt.Errorf("crypt: generating k2: %w", err)
		}
	}
	ctx.lockKeys()

	salt := make([]byte, 64)
	if err := DefaultRand.GetBytes(salt, true); err != nil {
		return nil, fmt.Errorf("crypt: generating salt: %w", err)
	}

	headerKey, err := DeriveKey(p.KDF, p.Password, salt, p.PIM, keySize)
	if err != nil {
		return nil, fmt.Errorf("crypt: deriving header key: %w", err)
	}

	body := make([]byte, HeaderEffectiveSize-len(salt))
	copy(body, headerMagic)
	binary.LittleEndian.PutUint32(body[4:8], uint32(p.Cipher))
	binary.LittleEndian.PutUint32(body[8:12], uint32(p.KDF))
	binary.LittleEndian.PutUint64(body[12:20], p.DataOffset)
	binary.LittleEndian.PutUint64(body[20:28], p.DataAreaSize)
	binary.LittleEndian.PutUint64(body[28:36], p.HiddenSize)
	binary.LittleEndian.PutUint32(body[36:40], p.SectorSize)
	binary.LittleEndian.PutUint32(body[40:44], p.HeaderFlags)
	copy(body[44:44+halfKey], ctx.MasterKeyData)
	copy(body[44+halfKey:44+2*halfKey], ctx.K2)

	// The body is shorter than one data unit, so it is encrypted as a single
	// XTS sector 0 directly rather than through Mode's whole-unit contract.
	headerCipher, err := xts.NewCipher(aes.NewCipher, headerKey)
	if err != nil {
		return nil, fmt.Errorf("crypt: initializing header cipher: %w", err)
	}
	headerCipher.Encrypt(body, body, 0)

	copy(out, salt)
	copy(out[len(salt):], body)
	return ctx, nil
}

// DecryptHeader is the inverse of BuildHeader given a password, for tests
// and for the inspect tool's read-only mount. It re-derives the header key
// from the embedded salt and decrypts the body in place.
func DecryptHeader(in []byte, cipher CipherID, kdf KDFID, pim int, password []byte) (*Context, BuildParams, error) {
	if len(in) != HeaderEffectiveSize {
		return nil, BuildParams{}, fmt.Errorf("crypt: header buffer must be exactly %d bytes", HeaderEffectiveSize)
	}
	keySize, err := cipher.KeySize()
	if err != nil {
		return nil, BuildParams{}, err
	}
	halfKey := keySize / 2

	salt := append([]byte(nil), in[:64]...)
	body := append([]byte(nil), in[64:]...)

	headerKey, err := DeriveKey(kdf, password, salt, pim, keySize)
	if err != nil {
		return nil, BuildParams{}, err
	}
	headerCipher, err := xts.NewCipher(aes.NewCipher, headerKey)
	if err != nil {
		return nil, BuildParams{}, err
	}
	headerCipher.Decrypt(body, body, 0)

	if string(body[0:4]) != headerMagic {
		return nil, BuildParams{}, fmt.Errorf("crypt: invalid header magic (wrong password or not a header)")
	}

	ctx := &Context{
		Cipher:        cipher,
		MasterKeyData: append([]byte(nil), body[44:44+halfKey]...),
		K2:            append([]byte(nil), body[44+halfKey:44+2*halfKey]...),
	}
	ctx.lockKeys()
	p := BuildParams{
		Cipher:       cipher,
		KDF:          kdf,
		PIM:          pim,
		DataOffset:   binary.LittleEndian.Uint64(body[12:20]),
		DataAreaSize: binary.LittleEndian.Uint64(body[20:28]),
		HiddenSize:   binary.LittleEndian.Uint64(body[28:36]),
		SectorSize:   binary.LittleEndian.Uint32(body[36:40]),
		HeaderFlags:  binary.LittleEndian.Uint32(body[40:44]),
	}
	return ctx, p, nil
}
