//go:build !linux && !windows
// +build !linux,!windows

package device

import (
	"fmt"
	"io"
	"os"
)

// deviceTarget on unsupported platforms: file-backed targets work
// everywhere via fileTarget, but raw-device formatting needs the ioctls
// this build doesn't have.
type deviceTarget struct {
	f    *os.File
	path string
}

func openDevice(path string) (Target, error) {
	return nil, fmt.Errorf("device: raw device formatting is not supported on this platform")
}

func (t *deviceTarget) Write(p []byte) (int, error) { return t.f.Write(p) }
func (t *deviceTarget) Close() error                 { return t.f.Close() }

func (t *deviceTarget) Seek(offset int64) error {
	_, err := t.f.Seek(offset, 0)
	return err
}
func (t *deviceTarget) Size() (uint64, error) {
	info, err := t.f.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()), nil
}
func (t *deviceTarget) Preallocate(size uint64) error        { return nil }
func (t *deviceTarget) SetValidDataLength(size uint64) error { return nil }
func (t *deviceTarget) TruncateToZero() error {
	return fmt.Errorf("device: TruncateToZero is not supported for raw devices")
}
func (t *deviceTarget) IsMounted() (bool, error)     { return false, nil }
func (t *deviceTarget) Dismount() error              { return nil }
func (t *deviceTarget) AllowExtendedDASD() error     { return nil }

func preallocateZero(f *os.File, size uint64) error {
	return fallbackPreallocateZero(f, size)
}

func setValidDataLength(f *os.File, size uint64) error {
	return fmt.Errorf("device: SetValidDataLength is not supported on this platform")
}

var _ io.Writer = (*deviceTarget)(nil)
