package volume

import (
	"bytes"
	"testing"

	"github.com/ostafen/cryptovol/internal/crypt"
	"github.com/stretchr/testify/require"
)

// collectSink buffers every chunk handed to it without modification, so
// tests can compare the concatenated ciphertext across different flush
// granularities.
type collectSink struct {
	buf bytes.Buffer
}

func (c *collectSink) WriteSector(ciphertext []byte) error {
	c.buf.Write(ciphertext)
	return nil
}

func fixedMode(t *testing.T) crypt.Mode {
	t.Helper()
	key := bytes.Repeat([]byte{0x11}, 32)
	k2 := bytes.Repeat([]byte{0x22}, 32)
	mode, err := crypt.NewXTSMode(key, k2)
	require.NoError(t, err)
	return mode
}

// TestSectorWriter_BufferBoundaryInvariance is spec.md §8 property 4: the
// ciphertext produced for a given plaintext stream must not depend on how
// it was chunked into WriteSector calls, because the tweak is always the
// absolute data-unit number, not a position within any one buffer.
func TestSectorWriter_BufferBoundaryInvariance(t *testing.T) {
	plaintext := bytes.Repeat([]byte("0123456789abcdef"), 512) // 8192 bytes = 16 data units

	runWith := func(chunkSize int) []byte {
		sink := &collectSink{}
		sw := &SectorWriter{
			mode:       fixedMode(t),
			sink:       sink,
			sectorSize: 512,
			buf:        make([]byte, FormatWriteBufferSize),
		}
		for off := 0; off < len(plaintext); off += chunkSize {
			end := off + chunkSize
			if end > len(plaintext) {
				end = len(plaintext)
			}
			require.NoError(t, sw.WriteSector(plaintext[off:end]))
		}
		require.NoError(t, sw.Flush())
		return sink.buf.Bytes()
	}

	whole := runWith(len(plaintext))
	byDataUnit := runWith(DataUnitSize)
	byTwoUnits := runWith(2 * DataUnitSize)

	require.Equal(t, whole, byDataUnit)
	require.Equal(t, whole, byTwoUnits)
}

// TestSectorWriter_RejectsNonDataUnitMultiple guards the precondition that
// absolute unit numbering depends on.
func TestSectorWriter_RejectsNonDataUnitMultiple(t *testing.T) {
	sw := &SectorWriter{
		mode: fixedMode(t),
		sink: &collectSink{},
		buf:  make([]byte, FormatWriteBufferSize),
	}
	err := sw.WriteSector(make([]byte, DataUnitSize+1))
	require.Error(t, err)
}
