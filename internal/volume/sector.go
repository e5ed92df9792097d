package volume

import (
	"fmt"
	"io"

	"github.com/ostafen/cryptovol/internal/crypt"
	"github.com/ostafen/cryptovol/internal/logger"
	"github.com/ostafen/cryptovol/pkg/pbar"
)

// FormatWriteBufferSize bounds how much plaintext the Sector Writer
// accumulates before flushing a chunk through the cipher (spec.md §4.3).
// Must be a multiple of DataUnitSize.
const FormatWriteBufferSize = 1 << 20 // 1 MiB

// sink is the minimum surface the Sector Writer needs from whatever is
// actually receiving ciphertext: a plain file write for file-backed
// targets, or a handoff to the Write Pipeline's double buffer for
// device-backed targets (spec.md §4.4).
type sink interface {
	WriteSector(ciphertext []byte) error
}

// directSink writes ciphertext synchronously, used for file-backed
// targets where the extra buffering of the Write Pipeline buys nothing
// (spec.md §4.4: "used only for device-backed targets").
type directSink struct {
	w io.Writer
}

func (d *directSink) WriteSector(ciphertext []byte) error {
	_, err := d.w.Write(ciphertext)
	return err
}

// SectorWriter accumulates plaintext, encrypts it in DataUnitSize chunks
// keyed by the absolute data-unit number, and forwards ciphertext to a
// sink. It is the only place absolute data-unit numbering is computed
// (spec.md §4.3, §8 property 4).
type SectorWriter struct {
	mode       crypt.Mode
	sink       sink
	sectorSize uint32
	startUnit  uint64 // absolute data unit at the start sector of the write area

	buf      []byte
	bufCount int // bytes currently valid in buf

	written int64 // total plaintext bytes flushed so far, for unit numbering
	total   int64 // for progress reporting; 0 disables the bar

	progress *pbar.FormatState
	callback Progress

	log *logger.Logger
}

// NewSectorWriter builds a writer keyed by mode, starting at absolute
// sector startSector (converted to a data-unit number internally, since
// the cipher's tweak is always DataUnitSize-addressed regardless of the
// host sector size per spec.md §3).
func NewSectorWriter(mode crypt.Mode, w io.Writer, sectorSize uint32, startSector uint64, totalBytes int64, cb Progress, log *logger.Logger) *SectorWriter {
	return &SectorWriter{
		mode:       mode,
		sink:       &directSink{w: w},
		sectorSize: sectorSize,
		startUnit:  startSector * uint64(sectorSize) / DataUnitSize,
		buf:        make([]byte, FormatWriteBufferSize),
		total:      totalBytes,
		progress:   pbar.NewFormatState("writing", totalBytes),
		callback:   cb,
		log:        log,
	}
}

// UseSink overrides the destination (e.g. to hand off to the Write
// Pipeline for device-backed targets instead of writing synchronously).
func (sw *SectorWriter) UseSink(s sink) { sw.sink = s }

// SwapMode installs a new cipher mode and returns the previous one, so the
// Fill Engine can temporarily encrypt under a throwaway key and restore
// the real one afterward (spec.md §4.5).
func (sw *SectorWriter) SwapMode(m crypt.Mode) crypt.Mode {
	old := sw.mode
	sw.mode = m
	return old
}

// WriteSector accumulates plaintext and flushes whenever the internal
// buffer fills, or immediately for writes larger than the buffer.
func (sw *SectorWriter) WriteSector(plaintext []byte) error {
	if len(plaintext)%DataUnitSize != 0 {
		return fmt.Errorf("volume: plaintext length %d is not a multiple of the data unit size", len(plaintext))
	}

	off := 0
	for off < len(plaintext) {
		n := copy(sw.buf[sw.bufCount:], plaintext[off:])
		sw.bufCount += n
		off += n

		if sw.bufCount == len(sw.buf) {
			if err := sw.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush encrypts and forwards any partially-filled buffer. Call once
// after the last WriteSector to push a final, possibly short, chunk.
func (sw *SectorWriter) Flush() error {
	if sw.bufCount == 0 {
		return nil
	}
	return sw.flush()
}

func (sw *SectorWriter) flush() error {
	chunk := sw.buf[:sw.bufCount]
	unitNo := sw.startUnit + uint64(sw.written)/DataUnitSize

	if err := sw.mode.EncryptDataUnits(chunk, unitNo, sw.bufCount/DataUnitSize); err != nil {
		return fmt.Errorf("volume: encrypting data units: %w", err)
	}
	if err := sw.sink.WriteSector(chunk); err != nil {
		return fmt.Errorf("volume: writing sector: %w", err)
	}

	sw.written += int64(sw.bufCount)
	sw.bufCount = 0

	if sw.total > 0 {
		sw.progress.ProcessedBytes = sw.written
		sw.progress.Render(false)
	}
	if sw.callback != nil && !sw.callback(sw.written) {
		return wrap(DontReport, fmt.Errorf("volume: write cancelled by caller"))
	}
	return nil
}
