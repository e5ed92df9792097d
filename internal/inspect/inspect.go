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

// Package inspect opens an already-formatted container read-only, the way
// a user would reach for a mount tool to sanity-check a format run. It
// tries the header against every known cipher/KDF combination, then
// exposes the decrypted data area for either direct byte-range reads or a
// read-only FUSE mount (mount_linux.go).
package inspect

import (
	"fmt"

	"github.com/ostafen/cryptovol/internal/crypt"
	"github.com/ostafen/cryptovol/internal/fs"
	"github.com/ostafen/cryptovol/internal/volume"
	"github.com/ostafen/cryptovol/internal/volume/fat"
)

// candidateCiphers and candidateKDFs bound the brute-force header probe:
// real headers don't carry a plaintext cipher/KDF tag (spec.md §4.2 keeps
// that information inside the encrypted body), so opening a volume without
// prior knowledge means trying each combination until one decrypts to a
// valid magic.
var (
	candidateCiphers = []crypt.CipherID{crypt.AESXTS}
	candidateKDFs    = []crypt.KDFID{crypt.PBKDF2SHA512, crypt.PBKDF2SHA256}
)

// Volume is a read-only, already-unlocked view of a formatted container.
type Volume struct {
	f      fs.File
	path   string
	ctx    *crypt.Context
	params crypt.BuildParams
	mode   crypt.Mode
}

// Open tries the primary header at offset 0 against every candidate
// cipher/KDF with the given password and PIM, returning the first Volume
// that unlocks successfully. Opening goes through package fs so a raw
// Windows device (\\.\PhysicalDriveN) gets the sector-aligned overlapped
// reads its ReadAt needs, the same collaborator the device package uses
// on the write side.
func Open(path string, password []byte, pim int) (*Volume, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("inspect: opening %q: %w", path, err)
	}

	header := make([]byte, crypt.HeaderEffectiveSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("inspect: reading header of %q: %w", path, err)
	}

	for _, cipher := range candidateCiphers {
		for _, kdf := range candidateKDFs {
			ctx, params, err := crypt.DecryptHeader(header, cipher, kdf, pim, password)
			if err != nil {
				continue
			}
			mode, err := ctx.Mode()
			if err != nil {
				f.Close()
				return nil, err
			}
			return &Volume{f: f, path: path, ctx: ctx, params: params, mode: mode}, nil
		}
	}

	f.Close()
	return nil, fmt.Errorf("inspect: %q: wrong password, PIM, or not a recognized volume", path)
}

// Close burns the unlocked key material and closes the underlying file.
func (v *Volume) Close() error {
	v.ctx.Burn()
	return v.f.Close()
}

// DataAreaSize is the decrypted data area's size in bytes, as recorded in
// the header at format time.
func (v *Volume) DataAreaSize() uint64 { return v.params.DataAreaSize }

// SectorSize is the host sector size recorded in the header.
func (v *Volume) SectorSize() uint32 { return v.params.SectorSize }

// ReadAt decrypts len(p) bytes of the data area starting at byte offset
// off, rounding out to whole DataUnitSize-aligned units under the hood.
func (v *Volume) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || uint64(off) >= v.params.DataAreaSize {
		return 0, fmt.Errorf("inspect: offset %d out of range", off)
	}

	const unitSize = volume.DataUnitSize
	startUnit := uint64(off) / unitSize
	startSkip := off - int64(startUnit*unitSize)
	endByte := off + int64(len(p))
	if uint64(endByte) > v.params.DataAreaSize {
		endByte = int64(v.params.DataAreaSize)
	}
	endUnit := (uint64(endByte) + unitSize - 1) / unitSize
	numUnits := int(endUnit - startUnit)
	if numUnits <= 0 {
		return 0, nil
	}

	buf := make([]byte, numUnits*unitSize)
	n, err := v.f.ReadAt(buf, int64(v.params.DataOffset+startUnit*unitSize))
	if err != nil && n < len(buf) {
		buf = buf[:n-(n%unitSize)]
		numUnits = len(buf) / unitSize
	}
	if numUnits == 0 {
		return 0, err
	}
	// Data units are numbered from the start of the container, not from
	// the start of the data area (see volume.NewSectorWriter).
	if derr := v.mode.DecryptDataUnits(buf, v.params.DataOffset/unitSize+startUnit, numUnits); derr != nil {
		return 0, derr
	}

	copied := copy(p, buf[startSkip:])
	return copied, nil
}

// BootSector decrypts and parses the FAT boot sector at the start of the
// data area, the field a caller checks to confirm a format actually laid
// down a readable filesystem.
func (v *Volume) BootSector() (*fat.BootSector, []byte, error) {
	raw := make([]byte, fat.BootSectorSize)
	if _, err := v.ReadAt(raw, 0); err != nil {
		return nil, nil, fmt.Errorf("inspect: reading boot sector: %w", err)
	}
	bs, err := fat.ParseBootSector(raw)
	if err != nil {
		return nil, nil, err
	}
	return bs, raw, nil
}
