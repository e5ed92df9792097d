package volume

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateLayout_Standard(t *testing.T) {
	p := Parameters{Size: 10 * 1024 * 1024, SectorSize: 512}
	l, err := CalculateLayout(p)
	require.NoError(t, err)
	require.EqualValues(t, TotalHeadersSize/2, l.DataOffset)
	require.EqualValues(t, p.Size-TotalHeadersSize, l.DataAreaSize)
	require.EqualValues(t, (p.Size-TotalHeadersSize)/512, l.NumSectors)
	require.Greater(t, l.BackupHeaderOffset, l.DataOffset)
	require.LessOrEqual(t, l.DataOffset+l.DataAreaSize+HeaderGroupSize, p.Size)
}

func TestCalculateLayout_RejectsSizeBelowHeaderReserve(t *testing.T) {
	_, err := CalculateLayout(Parameters{Size: TotalHeadersSize, SectorSize: 512})
	require.Error(t, err)
}

func TestCalculateLayout_RejectsZeroSize(t *testing.T) {
	_, err := CalculateLayout(Parameters{Size: 0, SectorSize: 512})
	require.Error(t, err)
}

func TestCalculateLayout_RejectsBadSectorSize(t *testing.T) {
	_, err := CalculateLayout(Parameters{Size: 1024, SectorSize: 100})
	require.Error(t, err)
}

func TestCalculateLayout_Hidden(t *testing.T) {
	p := Parameters{
		Size:           1 * 1024 * 1024,
		SectorSize:     512,
		IsHidden:       true,
		HiddenHostSize: 100 * 1024 * 1024,
	}
	l, err := CalculateLayout(p)
	require.NoError(t, err)
	require.Less(t, l.DataOffset+l.DataAreaSize, p.HiddenHostSize)
}

func TestCalculateLayout_HiddenRejectsOversized(t *testing.T) {
	p := Parameters{
		Size:           100 * 1024 * 1024,
		SectorSize:     512,
		IsHidden:       true,
		HiddenHostSize: 10 * 1024 * 1024,
	}
	_, err := CalculateLayout(p)
	require.Error(t, err)
}
