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

// Package device is the Target Acquisition collaborator boundary
// (spec.md §4.7): opening, sizing, dismounting and writing to either a
// regular file or a raw block device, with the OS-specific parts isolated
// behind build tags the way the teacher's internal/fs package does for
// its own disk-reading File interface.
package device

import (
	"fmt"
	"io"
	"os"
)

// Target is the write-side counterpart of the teacher's read-only
// internal/fs.File: a destination that can be sized, dismounted if
// mounted, written sequentially, and truncated back to zero on failure
// (spec.md §4.7's AcquireTarget / cleanup-path operations).
type Target interface {
	io.Writer
	io.Closer

	// Seek repositions the next Write to an absolute byte offset, used
	// to place headers and the data area at their computed Layout
	// offsets (spec.md §4.2-§4.4).
	Seek(offset int64) error

	// Size returns the target's current size in bytes: the device's raw
	// capacity, or the regular file's length.
	Size() (uint64, error)

	// Preallocate grows a file-backed target to size bytes. For
	// device-backed targets this is a no-op: a device's size is fixed.
	Preallocate(size uint64) error

	// SetValidDataLength asserts the "valid data length" for size bytes
	// without actually writing zeros first (spec.md §4.7's
	// AllowFastCreate opt-in). Implementations that cannot do this
	// return an error; the caller falls back to a full zero-fill.
	SetValidDataLength(size uint64) error

	// TruncateToZero discards all content, used on the cleanup path when
	// a freshly created file-backed target must be abandoned (spec.md §7).
	TruncateToZero() error

	// IsMounted reports whether the target currently has a live
	// filesystem mounted on it (device-backed only; always false for
	// files).
	IsMounted() (bool, error)

	// Dismount forcibly unmounts any live filesystem so formatting can
	// proceed (spec.md §4.7).
	Dismount() error

	// AllowExtendedDASD grants the process permission to perform
	// whole-device I/O outside any recognized partition (device-backed
	// only; a no-op for files).
	AllowExtendedDASD() error
}

// Open acquires a Target for path. isDevice selects between the
// raw-device and regular-file code paths (spec.md §4.7's AcquireTarget
// sub-state-machines); the decision of which to take is the caller's,
// mirroring how the teacher's internal/fs.Open always knows ahead of time
// whether it's opening a disk or an image file.
func Open(path string, isDevice bool, sparse bool) (Target, error) {
	if isDevice {
		return openDevice(path)
	}
	return openFile(path, sparse)
}

// fileTarget backs a regular file with *os.File, portable across
// platforms the way the teacher's non-Windows fs.Open is.
type fileTarget struct {
	f      *os.File
	path   string
	sparse bool
}

func openFile(path string, sparse bool) (Target, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("device: opening file %q: %w", path, err)
	}
	return &fileTarget{f: f, path: path, sparse: sparse}, nil
}

func (t *fileTarget) Write(p []byte) (int, error) { return t.f.Write(p) }
func (t *fileTarget) Close() error                 { return t.f.Close() }

func (t *fileTarget) Seek(offset int64) error {
	_, err := t.f.Seek(offset, io.SeekStart)
	return err
}

func (t *fileTarget) Size() (uint64, error) {
	info, err := t.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("device: stat %q: %w", t.path, err)
	}
	return uint64(info.Size()), nil
}

func (t *fileTarget) Preallocate(size uint64) error {
	if t.sparse {
		return t.f.Truncate(int64(size))
	}
	return preallocateZero(t.f, size)
}

func (t *fileTarget) SetValidDataLength(size uint64) error {
	return setValidDataLength(t.f, size)
}

func (t *fileTarget) TruncateToZero() error {
	if err := t.f.Truncate(0); err != nil {
		return fmt.Errorf("device: truncating %q to zero: %w", t.path, err)
	}
	_, err := t.f.Seek(0, io.SeekStart)
	return err
}

func (t *fileTarget) IsMounted() (bool, error) { return false, nil }
func (t *fileTarget) Dismount() error          { return nil }
func (t *fileTarget) AllowExtendedDASD() error { return nil }

// fallbackPreallocateZero grows f to size bytes by writing zeros, the
// portable path every platform's preallocateZero falls back to when
// sparse allocation wasn't requested.
func fallbackPreallocateZero(f *os.File, size uint64) error {
	const chunkSize = 4 << 20
	zeros := make([]byte, chunkSize)
	var written uint64
	for written < size {
		n := uint64(chunkSize)
		if remaining := size - written; remaining < n {
			n = remaining
		}
		if _, err := f.Write(zeros[:n]); err != nil {
			return fmt.Errorf("device: zero-filling preallocation: %w", err)
		}
		written += n
	}
	return nil
}

// preallocateZero and setValidDataLength are platform-specific
// (device_linux.go, device_windows.go, device_other.go): the portable
// zero-fill fallback used whenever a fast-allocate syscall isn't
// available or AllowFastCreate wasn't requested (spec.md §4.7, §9), and
// the OS call that asserts "valid data length" without zero-filling.
