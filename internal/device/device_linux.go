//go:build linux
// +build linux

package device

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// deviceTarget backs a raw block device on Linux, reached through the
// BLK* ioctl family the way the teacher's internal/disk/stat.go reads
// BLKGETSIZE64 — here reused for both sizing and the dismount/rescan
// sequence a formatter needs before it can safely overwrite a device.
type deviceTarget struct {
	f    *os.File
	path string
}

func openDevice(path string) (Target, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("device: opening device %q: %w", path, err)
	}
	return &deviceTarget{f: f, path: path}, nil
}

func (t *deviceTarget) Write(p []byte) (int, error) { return t.f.Write(p) }
func (t *deviceTarget) Close() error                 { return t.f.Close() }

func (t *deviceTarget) Seek(offset int64) error {
	_, err := t.f.Seek(offset, 0)
	return err
}

func (t *deviceTarget) Size() (uint64, error) {
	size, err := unix.IoctlGetInt(int(t.f.Fd()), unix.BLKGETSIZE64)
	if err != nil {
		return 0, fmt.Errorf("device: BLKGETSIZE64 on %q: %w", t.path, err)
	}
	return uint64(size), nil
}

// Preallocate is a no-op for raw devices: their size is fixed by the
// underlying block layer, not by the formatter.
func (t *deviceTarget) Preallocate(size uint64) error { return nil }

// SetValidDataLength has no device-backed analogue; devices never need
// their "valid data length" asserted since every sector is already
// addressable.
func (t *deviceTarget) SetValidDataLength(size uint64) error { return nil }

// TruncateToZero is meaningless for a raw device and is never called on
// the device-backed cleanup path (spec.md §7 scopes truncate-on-failure
// to file-backed targets only).
func (t *deviceTarget) TruncateToZero() error {
	return fmt.Errorf("device: TruncateToZero is not supported for raw devices")
}

func (t *deviceTarget) IsMounted() (bool, error) {
	data, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return false, fmt.Errorf("device: reading /proc/mounts: %w", err)
	}
	real, err := os.Readlink(t.path)
	candidate := t.path
	if err == nil {
		candidate = real
	}
	return containsMountSource(data, candidate), nil
}

func containsMountSource(mounts []byte, path string) bool {
	needle := path + " "
	for i := 0; i+len(needle) <= len(mounts); i++ {
		if string(mounts[i:i+len(needle)]) == needle {
			return true
		}
	}
	return false
}

// Dismount unmounts any live filesystem and flushes the buffer cache
// (BLKFLSBUF) so the kernel drops stale cached sectors that would
// otherwise shadow what the formatter just wrote (spec.md §4.7).
func (t *deviceTarget) Dismount() error {
	_ = unix.Unmount(t.path, unix.MNT_FORCE)
	if err := unix.IoctlSetInt(int(t.f.Fd()), unix.BLKFLSBUF, 0); err != nil {
		return fmt.Errorf("device: BLKFLSBUF on %q: %w", t.path, err)
	}
	return nil
}

// AllowExtendedDASD asks the kernel to re-read the partition table
// (BLKRRPART), the closest Linux equivalent to Windows'
// FSCTL_ALLOW_EXTENDED_DASD_IO: it clears stale partition state that
// would otherwise make whole-device writes look like they're crossing
// partition boundaries.
func (t *deviceTarget) AllowExtendedDASD() error {
	if err := unix.IoctlSetInt(int(t.f.Fd()), unix.BLKRRPART, 0); err != nil {
		return fmt.Errorf("device: BLKRRPART on %q: %w", t.path, err)
	}
	return nil
}

func preallocateZero(f *os.File, size uint64) error {
	return fallbackPreallocateZero(f, size)
}

func setValidDataLength(f *os.File, size uint64) error {
	if err := unix.Fallocate(int(f.Fd()), 0, 0, int64(size)); err != nil {
		return fmt.Errorf("device: fallocate: %w", err)
	}
	return nil
}
