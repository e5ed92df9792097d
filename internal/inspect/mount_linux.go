//go:build linux
// +build linux

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
package inspect

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	osutil "github.com/ostafen/cryptovol/pkg/util/os"
)

// Mount exposes v read-only at mountpoint until a termination signal
// arrives, mirroring the teacher's internal/fuse.Mount wait-for-signal
// shape adapted to a single decrypted volume instead of many carved files.
func Mount(mountpoint string, v *Volume) error {
	created, err := osutil.EnsureDir(mountpoint, true)
	if err != nil {
		return fmt.Errorf("inspect: preparing mountpoint %q: %w", mountpoint, err)
	}
	if created {
		defer os.Remove(mountpoint)
	}

	c, err := fuse.Mount(mountpoint)
	if err != nil {
		return fmt.Errorf("inspect: mounting %q: %w", mountpoint, err)
	}
	defer c.Close()

	vfs := &volumeFS{v: v}

	go func() {
		srv := fusefs.New(c, nil)
		if err := srv.Serve(vfs); err != nil {
			log.Printf("inspect: serve error: %v", err)
		}
	}()
	return waitForUnmount(mountpoint)
}

func waitForUnmount(mountpoint string) error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	log.Println("inspect: mounted. Press Ctrl-C to unmount.")

	const maxUnmountRetries = 3
	attempts := 0
	for sig := range sigc {
		log.Printf("inspect: signal received: %v", sig)

		if err := fuse.Unmount(mountpoint); err == nil {
			log.Println("inspect: unmounted successfully")
			return nil
		} else if attempts++; attempts >= maxUnmountRetries {
			return fmt.Errorf("inspect: could not unmount %q after %d attempts: %w", mountpoint, maxUnmountRetries, err)
		}
	}
	return nil
}
