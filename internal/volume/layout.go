package volume

import "fmt"

// CalculateLayout derives a Layout from validated Parameters (spec.md
// §4.1). It is the only place the header/data-area offset arithmetic
// lives; everything downstream treats a Layout as already-correct input.
func CalculateLayout(p Parameters) (Layout, error) {
	if p.SectorSize < MinSectorSize || p.SectorSize > MaxSectorSize {
		return Layout{}, wrap(SectorSizeUnsupported, fmt.Errorf("volume: sector size %d out of range [%d, %d]", p.SectorSize, MinSectorSize, MaxSectorSize))
	}
	if p.Size == 0 {
		return Layout{}, wrap(VolSizeWrong, fmt.Errorf("volume: requested size is zero"))
	}

	var l Layout

	if p.IsHidden {
		return calculateHiddenLayout(p)
	}

	if p.Size%uint64(p.SectorSize) != 0 {
		return Layout{}, wrap(VolSizeWrong, fmt.Errorf("volume: size %d is not a multiple of sector size %d", p.Size, p.SectorSize))
	}
	if p.Size <= uint64(TotalHeadersSize) {
		return Layout{}, wrap(VolSizeWrong, fmt.Errorf("volume: size %d does not leave room for %d bytes of headers", p.Size, TotalHeadersSize))
	}

	l.DataOffset = TotalHeadersSize / 2 // header group occupies the leading TotalHeadersSize/2 bytes
	l.DataAreaSize = p.Size - uint64(TotalHeadersSize)
	l.NumSectors = l.DataAreaSize / uint64(p.SectorSize)
	l.StartSector = l.DataOffset / uint64(p.SectorSize)

	l.PrimaryHeaderOffset = 0
	l.HiddenHeaderOffset = HiddenHeaderOffset
	l.BackupHeaderOffset = l.DataOffset + l.DataAreaSize
	l.BackupHiddenHeaderOffset = l.BackupHeaderOffset + HiddenHeaderOffset

	return l, nil
}

// calculateHiddenLayout places the hidden volume's own data area inside
// the RESERVED tail of an existing standard container, per spec.md §4.1's
// threshold rule: below hiddenVolumeSizeThreshold the reserve is the
// small header-group constant; at or above it, the reserve is the larger
// sector-size-aligned constant.
func calculateHiddenLayout(p Parameters) (Layout, error) {
	if p.HiddenHostSize == 0 {
		return Layout{}, wrap(ParameterIncorrect, fmt.Errorf("volume: hidden volume requires a known host container size"))
	}

	reserve := uint64(hiddenReserveSmall)
	if p.Size >= hiddenVolumeSizeThreshold {
		reserve = uint64(hiddenReserveLarge)
	}

	if p.Size+uint64(TotalHeadersSize)+reserve > p.HiddenHostSize {
		return Layout{}, wrap(VolSizeWrong, fmt.Errorf("volume: hidden volume of %d bytes does not fit inside a %d-byte host", p.Size, p.HiddenHostSize))
	}

	var l Layout
	l.DataAreaSize = p.Size
	l.NumSectors = l.DataAreaSize / uint64(p.SectorSize)

	// The hidden volume's data area ends reserve bytes before the end of
	// the host container, and begins that many bytes before that.
	l.DataOffset = p.HiddenHostSize - reserve - l.DataAreaSize
	l.StartSector = l.DataOffset / uint64(p.SectorSize)

	l.PrimaryHeaderOffset = 0
	l.HiddenHeaderOffset = HiddenHeaderOffset
	l.BackupHeaderOffset = p.HiddenHostSize - HeaderGroupSize
	l.BackupHiddenHeaderOffset = p.HiddenHostSize - HiddenHeaderOffset

	return l, nil
}
