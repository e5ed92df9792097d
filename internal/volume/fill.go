package volume

import (
	"fmt"

	"github.com/ostafen/cryptovol/internal/crypt"
)

// fillChunkSectors bounds how many zero-plaintext sectors are staged per
// WriteSector call during a full fill (spec.md §4.5).
const fillChunkSectors = FormatWriteBufferSize / DataUnitSize

// FillDataArea writes the data area ahead of any filesystem bootstrap.
//
// Quick format never touches the data area: the caller is expected to
// simply account for numSectors worth of progress and move on (spec.md
// §4.5 "quick mode: n_sec = num_sectors jump").
//
// Full format writes numSectors of zero plaintext encrypted under a
// freshly drawn, throwaway master key and k2 instead of the real volume
// key, so an attacker who doesn't know the real key cannot distinguish
// the fill from random data (spec.md §4.5, §8 property 3). The real key
// is restored and the temporary one burned on every exit path, including
// on error.
func FillDataArea(sw *SectorWriter, numSectors uint64, sectorSize uint32, quick bool) error {
	if quick {
		return nil
	}

	// NewKeyBuffer's lock failures are best-effort (see its doc comment): a
	// non-nil *KeyBuffer is returned either way, so formatting proceeds.
	tempMasterKey, _ := NewKeyBuffer(32)
	defer tempMasterKey.Burn()

	tempK2, _ := NewKeyBuffer(32)
	defer tempK2.Burn()

	if err := crypt.DefaultRand.GetBytes(tempMasterKey.Bytes(), true); err != nil {
		return fmt.Errorf("volume: drawing temporary fill key: %w", err)
	}
	if err := crypt.DefaultRand.GetBytes(tempK2.Bytes(), true); err != nil {
		return fmt.Errorf("volume: drawing temporary fill tweak key: %w", err)
	}

	tempMode, err := crypt.NewXTSMode(tempMasterKey.Bytes(), tempK2.Bytes())
	if err != nil {
		return fmt.Errorf("volume: initializing temporary fill cipher: %w", err)
	}

	realMode := sw.SwapMode(tempMode)
	defer sw.SwapMode(realMode)

	totalBytes := numSectors * uint64(sectorSize)
	zeroChunk := make([]byte, fillChunkSectors*DataUnitSize)

	var written uint64
	for written < totalBytes {
		remaining := totalBytes - written
		n := uint64(len(zeroChunk))
		if remaining < n {
			n = remaining
		}
		if err := sw.WriteSector(zeroChunk[:n]); err != nil {
			return fmt.Errorf("volume: filling data area: %w", err)
		}
		written += n
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("volume: flushing fill data: %w", err)
	}
	return nil
}
