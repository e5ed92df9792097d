package device

import (
	"encoding/binary"
	"fmt"
)

// mbrSize and mbrSignatureOffset mirror the teacher's internal/disk/mbr.go
// ParseMBR constants, reused here not to read a recovered partition table
// but to detect whether one already exists on a target before formatting
// overwrites it (spec.md §4.7's AcquireTarget "detect existing mounted
// filesystem" step).
const (
	mbrSize            = 512
	mbrSignatureOffset = 0x1FE
)

// HasExistingPartitionTable reports whether the first sector of data
// looks like a valid MBR, the same 0xAA55-at-0x1FE check the teacher's
// ParseMBR performs before trusting the rest of the structure.
func HasExistingPartitionTable(firstSector []byte) (bool, error) {
	if len(firstSector) < mbrSize {
		return false, fmt.Errorf("device: need at least %d bytes to inspect for an MBR, got %d", mbrSize, len(firstSector))
	}
	sig := binary.LittleEndian.Uint16(firstSector[mbrSignatureOffset : mbrSignatureOffset+2])
	return sig == 0xAA55, nil
}
