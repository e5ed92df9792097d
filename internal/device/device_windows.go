//go:build windows
// +build windows

package device

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// deviceTarget backs a raw volume/device on Windows through
// DeviceIoControl, the same collaborator the teacher's
// internal/fs.WindowsDiskFile uses for IOCTL_DISK_GET_DRIVE_GEOMETRY —
// here extended to the dismount/lock/extended-DASD calls a formatter
// needs before it can overwrite a mounted volume.
type deviceTarget struct {
	f      *os.File
	handle windows.Handle
	path   string
}

func openDevice(path string) (Target, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("device: opening device %q: %w", path, err)
	}
	return &deviceTarget{f: f, handle: windows.Handle(f.Fd()), path: path}, nil
}

func (t *deviceTarget) Write(p []byte) (int, error) { return t.f.Write(p) }
func (t *deviceTarget) Close() error                 { return t.f.Close() }

func (t *deviceTarget) Seek(offset int64) error {
	_, err := t.f.Seek(offset, 0)
	return err
}

const (
	fsctlLockVolume              = 0x00090018
	fsctlDismountVolume          = 0x00090020
	fsctlAllowExtendedDASDIO     = 0x00090083
	ioctlDiskGetDriveGeometryEx  = 0x000700A0
)

type diskGeometryEx struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
	DiskSize          int64
}

func (t *deviceTarget) Size() (uint64, error) {
	var geom diskGeometryEx
	var bytesReturned uint32
	err := windows.DeviceIoControl(
		t.handle,
		ioctlDiskGetDriveGeometryEx,
		nil, 0,
		(*byte)(unsafe.Pointer(&geom)), uint32(unsafe.Sizeof(geom)),
		&bytesReturned, nil,
	)
	if err != nil {
		return 0, fmt.Errorf("device: IOCTL_DISK_GET_DRIVE_GEOMETRY_EX on %q: %w", t.path, err)
	}
	return uint64(geom.DiskSize), nil
}

func (t *deviceTarget) Preallocate(size uint64) error { return nil }

func (t *deviceTarget) SetValidDataLength(size uint64) error {
	return windows.SetFileValidData(t.handle, int64(size))
}

func (t *deviceTarget) TruncateToZero() error {
	return fmt.Errorf("device: TruncateToZero is not supported for raw devices")
}

func (t *deviceTarget) IsMounted() (bool, error) {
	var bytesReturned uint32
	err := windows.DeviceIoControl(t.handle, fsctlLockVolume, nil, 0, nil, 0, &bytesReturned, nil)
	if err != nil {
		return true, nil // lock failure means something still has it mounted/open
	}
	return false, nil
}

func (t *deviceTarget) Dismount() error {
	var bytesReturned uint32
	if err := windows.DeviceIoControl(t.handle, fsctlDismountVolume, nil, 0, nil, 0, &bytesReturned, nil); err != nil {
		return fmt.Errorf("device: FSCTL_DISMOUNT_VOLUME on %q: %w", t.path, err)
	}
	return nil
}

func (t *deviceTarget) AllowExtendedDASD() error {
	var bytesReturned uint32
	if err := windows.DeviceIoControl(t.handle, fsctlAllowExtendedDASDIO, nil, 0, nil, 0, &bytesReturned, nil); err != nil {
		return fmt.Errorf("device: FSCTL_ALLOW_EXTENDED_DASD_IO on %q: %w", t.path, err)
	}
	return nil
}

func preallocateZero(f *os.File, size uint64) error {
	return fallbackPreallocateZero(f, size)
}

func setValidDataLength(f *os.File, size uint64) error {
	if err := f.Truncate(int64(size)); err != nil {
		return fmt.Errorf("device: truncate before SetFileValidData: %w", err)
	}
	return windows.SetFileValidData(windows.Handle(f.Fd()), int64(size))
}
