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

// Package volume implements the encrypted-volume formatter: layout
// calculation, header lifecycle, the encrypted sector write pipeline, the
// data-area fill engine, and the top-level format orchestrator.
package volume

import (
	"github.com/ostafen/cryptovol/internal/crypt"
)

// Sizing constants for the on-disk layout. Named after spec.md §3/§6.
const (
	// DataUnitSize is the fixed block size the cipher operates on,
	// independent of the host sector size.
	DataUnitSize = 512

	// MinSectorSize and MaxSectorSize bound the host sector size.
	MinSectorSize = 512
	MaxSectorSize = 4096

	// HeaderEffectiveSize is the number of ciphertext bytes a built header
	// actually occupies; the remainder of a header group is padding.
	HeaderEffectiveSize = 512

	// HeaderGroupSize is the fixed-size span reserved at the start (and
	// mirrored near the end) of the container for a header plus padding.
	// It holds two header-sized slots: the primary/backup header at
	// offset 0 and the hidden-volume header at HiddenHeaderOffset.
	HeaderGroupSize = 128 * 1024

	// HiddenHeaderOffset is the offset of the hidden-volume header slot
	// within a header group.
	HiddenHeaderOffset = 64 * 1024

	// TotalHeadersSize is the space reserved for headers in a standard
	// container: one leading and one trailing header group.
	TotalHeadersSize = 2 * HeaderGroupSize

	// hiddenVolumeSizeThreshold is the inner size above which a hidden
	// volume reserves the larger, sector-size-aligned tail constant
	// instead of the small-volume constant (spec.md §4.1, open question:
	// no bit-exact value is mandated, so a round threshold is chosen and
	// recorded in DESIGN.md).
	hiddenVolumeSizeThreshold = 1 << 30 // 1 GiB

	// hiddenReserveSmall and hiddenReserveLarge are the RESERVED tail
	// sizes for hidden volumes below/above hiddenVolumeSizeThreshold.
	// hiddenReserveLarge is a multiple of MaxSectorSize as required.
	hiddenReserveSmall = 2 * HeaderGroupSize
	hiddenReserveLarge = 1536 * MaxSectorSize
)

// Kind selects whether a Target refers to a regular file or a raw device.
type Kind int

const (
	KindFile Kind = iota
	KindDevice
)

// Filesystem selects the filesystem, if any, laid down after formatting.
type Filesystem int

const (
	FilesystemNone Filesystem = iota
	FilesystemFAT
	FilesystemNTFS
	FilesystemExFAT
	FilesystemReFS
)

func (fs Filesystem) String() string {
	switch fs {
	case FilesystemNone:
		return "none"
	case FilesystemFAT:
		return "FAT"
	case FilesystemNTFS:
		return "NTFS"
	case FilesystemExFAT:
		return "exFAT"
	case FilesystemReFS:
		return "ReFS"
	default:
		return "unknown"
	}
}

// Parameters holds the immutable, validated input to a format operation
// (spec.md §3 "Volume Parameters").
type Parameters struct {
	TargetPath string
	TargetKind Kind

	// Size is the requested container size in bytes. For a hidden volume
	// this is the inner (hidden) volume size; HiddenHostSize is the size
	// of the outer container that already exists on disk.
	Size           uint64
	IsHidden       bool
	HiddenHostSize uint64

	Filesystem  Filesystem
	QuickFormat bool
	ClusterSize uint32 // in sectors; 0 = default
	SectorSize  uint32

	Cipher   crypt.CipherID
	KDF      crypt.KDFID
	PIM      int
	Password []byte

	HeaderFlags uint32

	// AllowFastCreate opts in to asserting the "valid data length" on
	// preallocation instead of zero-filling it first (spec.md §4.7, §9).
	AllowFastCreate bool
	Sparse          bool

	// PreserveTimestamps is carried with the parameters, but the
	// Orchestrator does not read it: host file timestamps are neither
	// captured nor restored.
	PreserveTimestamps bool

	// InstantRetry marks a re-entry into AcquireTarget after the external
	// filesystem formatter failed (spec.md §4.7's retry edge).
	InstantRetry bool
}

// Layout is the set of values derived from Parameters by the Layout
// Calculator (spec.md §4.1).
type Layout struct {
	DataOffset   uint64
	DataAreaSize uint64
	NumSectors   uint64
	StartSector  uint64

	PrimaryHeaderOffset uint64
	BackupHeaderOffset  uint64

	// Decoy/hidden header slots; only meaningful for standard containers,
	// which always carry two hidden-volume-shaped decoy slots, and for
	// hidden volumes, whose genuine hidden header lives in the outer
	// container at these same offsets.
	HiddenHeaderOffset       uint64
	BackupHiddenHeaderOffset uint64
}

// CryptoContext is the opaque holder of key material produced by the
// header builder collaborator (spec.md §3 "Crypto Context"). It wraps the
// underlying *crypt.Context rather than copying its key slices, so the
// page lock crypt.BuildHeader took out on MasterKeyData/K2 is released by
// the same Burn call that zeroes them, instead of being silently orphaned.
type CryptoContext struct {
	inner *crypt.Context

	// HiddenVolumeOffset is an opaque field held for the caller. Nothing in
	// this package reads it, and it is not written into any header.
	HiddenVolumeOffset uint64
}

// Cipher is the cipher the underlying key material was generated for.
func (c *CryptoContext) Cipher() crypt.CipherID { return c.inner.Cipher }

// MasterKeyData is the primary encryption key material.
func (c *CryptoContext) MasterKeyData() []byte { return c.inner.MasterKeyData }

// K2 is the XTS secondary (tweak) key.
func (c *CryptoContext) K2() []byte { return c.inner.K2 }

// Burn zeroes all key material held by the context and releases its memory
// lock. Safe to call multiple times and on a nil receiver.
func (c *CryptoContext) Burn() {
	if c == nil {
		return
	}
	c.inner.Burn()
}

// Progress reports bytes written so far; returning false cancels the
// in-progress write (spec.md §6).
type Progress func(bytesDone int64) bool

// Confirm asks the user a yes/no question identified by dialogID
// (spec.md §6, e.g. the retry-with-FAT or share-mode prompts).
type Confirm func(dialogID string) bool

// ErrorReporter surfaces a Code to the user; the core never produces
// localized strings itself (spec.md §7).
type ErrorReporter func(code Code)

// Callbacks bundles the external, UI-facing collaborators.
type Callbacks struct {
	Progress Progress
	Confirm  Confirm
	OnError  ErrorReporter
}
