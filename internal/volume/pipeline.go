package volume

import (
	"fmt"
	"io"
	"sync"
)

// WritePipeline double-buffers ciphertext to a device-backed target so the
// cipher and the next WriteSector call can run while the previous chunk is
// still being written to disk (spec.md §4.4). File-backed targets skip
// this and write synchronously through directSink instead.
//
// The two buffers ping-pong strictly: the caller always hands the pipeline
// the buffer it last got back via full/empty channels standing in for the
// binary synchronization events of the original design. Calling WriteSector
// out of turn (i.e. before the background goroutine has drained the prior
// buffer) blocks until it does, preserving strict ordering.
type WritePipeline struct {
	w io.Writer

	buffers [2][]byte // fixed-capacity; never reslice, track used length separately

	full  chan chunk // buffer ready to be written, with its used length
	empty chan int   // index of a buffer the writer goroutine has drained

	running bool
	mu      sync.Mutex
	errOnce sync.Once
	err     error
	wg      sync.WaitGroup
}

// NewWritePipeline allocates the two ping-pong buffers, each bufSize bytes.
func NewWritePipeline(w io.Writer, bufSize int) *WritePipeline {
	p := &WritePipeline{
		w:     w,
		full:  make(chan chunk, 1),
		empty: make(chan int, 2),
	}
	p.buffers[0] = make([]byte, bufSize)
	p.buffers[1] = make([]byte, bufSize)
	return p
}

// chunk identifies a ping-pong buffer and how much of it is valid.
type chunk struct {
	idx int
	n   int
}

// Start spins up the background writer goroutine. Calling Start while
// already running panics, matching the teacher's posture that misuse of
// internal lifecycle methods is a programming error, not a runtime one.
func (p *WritePipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		panic("volume: WritePipeline.Start called while already running")
	}
	p.running = true
	p.empty <- 0
	p.empty <- 1

	p.wg.Add(1)
	go p.run()
}

func (p *WritePipeline) run() {
	defer p.wg.Done()
	for c := range p.full {
		if c.n > 0 {
			if _, err := p.w.Write(p.buffers[c.idx][:c.n]); err != nil {
				p.setErr(fmt.Errorf("volume: write pipeline: %w", err))
			}
		}
		p.empty <- c.idx
	}
}

// setErr records the first write error, guarded by p.mu so WriteSector and
// Stop never observe a torn read of p.err from the background goroutine.
func (p *WritePipeline) setErr(err error) {
	p.errOnce.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
	})
}

func (p *WritePipeline) loadErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// WriteSector hands ciphertext to the background writer, blocking until a
// drained buffer is available (spec.md §4.4's strict ping-pong ordering).
func (p *WritePipeline) WriteSector(ciphertext []byte) error {
	if err := p.loadErr(); err != nil {
		return err
	}
	idx := <-p.empty
	if len(ciphertext) > len(p.buffers[idx]) {
		p.empty <- idx // hand the unused buffer back so Stop can still drain
		return fmt.Errorf("volume: write pipeline chunk %d exceeds buffer size %d", len(ciphertext), len(p.buffers[idx]))
	}
	n := copy(p.buffers[idx], ciphertext)
	p.full <- chunk{idx: idx, n: n}
	return p.loadErr()
}

// Stop drains the pipeline and waits for the background goroutine to
// finish, returning the first write error encountered, if any.
func (p *WritePipeline) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	// Wait for both buffers to come back empty before closing, so a
	// Stop immediately after the last WriteSector doesn't race the
	// in-flight write.
	<-p.empty
	<-p.empty
	close(p.full)
	p.wg.Wait()

	return p.loadErr()
}
