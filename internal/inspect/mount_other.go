//go:build !linux
// +build !linux

package inspect

import "fmt"

// Mount is only implemented on Linux (bazil.org/fuse has no Windows/macOS
// kernel driver available here); callers on other platforms should read
// the volume through Volume.ReadAt / Volume.BootSector directly instead.
func Mount(mountpoint string, v *Volume) error {
	return fmt.Errorf("inspect: FUSE mount is only supported on Linux")
}
