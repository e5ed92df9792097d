package volume

// KeyBuffer is a byte buffer holding sensitive key material, backed by
// memory the OS is asked not to swap out (mlock/VirtualLock), and zeroed
// unconditionally before it is unlocked (spec.md §7's key-hygiene
// requirement: key material is zeroed on every exit path, not just the
// success path).
type KeyBuffer struct {
	buf    []byte
	locked bool
}

// NewKeyBuffer allocates a zeroed buffer of the given size and attempts to
// page-lock it. Locking failures are not fatal: a usable buffer is always
// returned alongside the error, so a caller that chooses to ignore it
// still gets a buffer, matching the teacher's posture of degrading rather
// than aborting on best-effort OS calls.
func NewKeyBuffer(size int) (*KeyBuffer, error) {
	kb := &KeyBuffer{buf: make([]byte, size)}
	if err := lockMemory(kb.buf); err == nil {
		kb.locked = true
	} else {
		return kb, err
	}
	return kb, nil
}

// Bytes exposes the underlying buffer for in-place encryption/decryption.
func (kb *KeyBuffer) Bytes() []byte { return kb.buf }

// Burn zeroes the buffer and releases the memory lock. Safe to call more
// than once and on a nil receiver.
func (kb *KeyBuffer) Burn() {
	if kb == nil {
		return
	}
	for i := range kb.buf {
		kb.buf[i] = 0
	}
	if kb.locked {
		_ = unlockMemory(kb.buf)
		kb.locked = false
	}
}
