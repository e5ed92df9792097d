//go:build !linux && !windows
// +build !linux,!windows

package crypt

import "fmt"

func lockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return fmt.Errorf("crypt: memory locking not supported on this platform")
}

func unlockMemory(b []byte) error {
	return nil
}
