package fat

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildBootSector_RoundTrips(t *testing.T) {
	p, err := Calculate(200000, 512, 0)
	require.NoError(t, err)

	raw, err := BuildBootSector(p, 0xDEADBEEF)
	require.NoError(t, err)
	require.Len(t, raw, BootSectorSize)

	var bs BootSector
	require.NoError(t, binary.Read(bytes.NewReader(raw), binary.LittleEndian, &bs))

	require.EqualValues(t, 0xAA55, bs.Marker)
	require.Equal(t, []byte("NO NAME    "), bs.BSVolLab[:])
	require.EqualValues(t, 512, bs.SectorSize)
	require.EqualValues(t, p.SectorsPerCluster, bs.SectorsPerCluster)
}

func TestCalculate_PicksFATTypeBySize(t *testing.T) {
	small, err := Calculate(2000, 512, 0) // ~1MiB
	require.NoError(t, err)
	require.Equal(t, FAT12, small.Type)

	mid, err := Calculate(1<<20, 512, 0) // ~512MiB
	require.NoError(t, err)
	require.Equal(t, FAT32, mid.Type)

	require.Greater(t, mid.FATSize, uint32(0))
}

func TestCalculate_RejectsOversizedVolume(t *testing.T) {
	_, err := Calculate(uint64(1)<<33, 512, 0)
	require.Error(t, err)
}

func TestBuildFATTable_ReservesFirstEntries(t *testing.T) {
	p, err := Calculate(200000, 512, 0)
	require.NoError(t, err)

	table := BuildFATTable(p)
	require.Len(t, table, int(p.FATSize)*512)
	require.NotZero(t, table[0])
}
