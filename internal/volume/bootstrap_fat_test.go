package volume

import (
	"bytes"
	"testing"

	"github.com/ostafen/cryptovol/internal/volume/fat"
	"github.com/stretchr/testify/require"
)

// TestBootstrapFAT_PadsReservedSectorsBeforeFATArea exercises the same
// sector sequence bootstrapFAT writes, at a volume size large enough to
// pick FAT32 (whose boot sector declares 32 reserved sectors for the
// FSInfo sector, backup boot sector, and padding). The FAT table must not
// start until ReservedSectors sectors have been written, or the on-disk
// layout contradicts the BPB.Reserved field already written into the boot
// sector.
func TestBootstrapFAT_PadsReservedSectorsBeforeFATArea(t *testing.T) {
	const sectorSize = 512
	numSectors := uint64(1 << 20) // ~512 MiB, picks FAT32

	params, err := fat.Calculate(numSectors, sectorSize, 0)
	require.NoError(t, err)
	require.Equal(t, fat.FAT32, params.Type)
	require.EqualValues(t, 32, params.ReservedSectors)

	boot, err := fat.BuildBootSector(params, 0xCAFEBABE)
	require.NoError(t, err)

	sink := &collectSink{}
	sw := &SectorWriter{
		mode:       fixedMode(t),
		sink:       sink,
		sectorSize: sectorSize,
		buf:        make([]byte, FormatWriteBufferSize),
	}

	require.NoError(t, sw.WriteSector(boot))
	reserved := make([]byte, (uint64(params.ReservedSectors)-1)*sectorSize)
	require.NoError(t, sw.WriteSector(reserved))

	table := fat.BuildFATTable(params)
	require.NoError(t, sw.WriteSector(table))
	require.NoError(t, sw.Flush())

	decrypted := sink.buf.Bytes()
	mode := fixedMode(t)
	require.NoError(t, mode.DecryptDataUnits(decrypted, 0, len(decrypted)/DataUnitSize))

	fatAreaStart := uint64(params.ReservedSectors) * sectorSize
	require.True(t, bytes.Equal(decrypted[fatAreaStart:fatAreaStart+uint64(len(table))], table))

	// Everything between the boot sector and the FAT area must be zero
	// padding, not FAT table bytes bleeding in early.
	require.True(t, allZeroBytes(decrypted[len(boot):fatAreaStart]))
}

func allZeroBytes(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
