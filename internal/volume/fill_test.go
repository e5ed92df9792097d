package volume

import (
	"bytes"
	"testing"

	"github.com/ostafen/cryptovol/internal/crypt"
	"github.com/stretchr/testify/require"
)

// TestFillDataArea_QuickSkipsWrites ensures quick format never touches the
// sink (spec.md §4.5).
func TestFillDataArea_QuickSkipsWrites(t *testing.T) {
	sink := &collectSink{}
	sw := &SectorWriter{mode: fixedMode(t), sink: sink, sectorSize: 512, buf: make([]byte, FormatWriteBufferSize)}

	require.NoError(t, FillDataArea(sw, 4096, 512, true))
	require.Zero(t, sink.buf.Len())
}

// TestFillDataArea_FullFillIsUniformAndNotRealKey is spec.md §8 property 3:
// a chi-square goodness-of-fit test over the byte histogram of a full-fill
// ciphertext sample at alpha=0.01, plus a check that decrypting the fill
// under the real volume key does not recover all-zero plaintext (proving
// the fill used a throwaway key, not the real one).
func TestFillDataArea_FullFillIsUniformAndNotRealKey(t *testing.T) {
	realKey := bytes.Repeat([]byte{0xAB}, 32)
	realK2 := bytes.Repeat([]byte{0xCD}, 32)
	realMode, err := crypt.NewXTSMode(realKey, realK2)
	require.NoError(t, err)

	sink := &collectSink{}
	sw := &SectorWriter{mode: realMode, sink: sink, sectorSize: 512, buf: make([]byte, FormatWriteBufferSize)}

	const numSectors = 2048 // 1 MiB of fill, sector size 512
	require.NoError(t, FillDataArea(sw, numSectors, 512, false))

	ciphertext := sink.buf.Bytes()
	require.Len(t, ciphertext, numSectors*512)

	chiSquare := chiSquareUniformity(ciphertext)
	// 255 degrees of freedom; critical value at alpha=0.01 is ~310.46.
	require.Less(t, chiSquare, 310.46, "ciphertext byte distribution is not close to uniform")

	decrypted := append([]byte(nil), ciphertext...)
	require.NoError(t, realMode.DecryptDataUnits(decrypted, 0, len(decrypted)/DataUnitSize))
	require.NotEqual(t, make([]byte, len(decrypted)), decrypted, "fill ciphertext decrypted under the real key must not be all zero")
}

func chiSquareUniformity(data []byte) float64 {
	var hist [256]int
	for _, b := range data {
		hist[b]++
	}
	expected := float64(len(data)) / 256
	var chi2 float64
	for _, count := range hist {
		diff := float64(count) - expected
		chi2 += diff * diff / expected
	}
	return chi2
}
