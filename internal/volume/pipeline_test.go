package volume

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWritePipeline_PreservesOrderAndContent(t *testing.T) {
	var out bytes.Buffer
	p := NewWritePipeline(&out, 16)
	p.Start()

	chunks := [][]byte{
		bytes.Repeat([]byte{1}, 16),
		bytes.Repeat([]byte{2}, 16),
		bytes.Repeat([]byte{3}, 8),
	}
	for _, c := range chunks {
		require.NoError(t, p.WriteSector(c))
	}
	require.NoError(t, p.Stop())

	var want bytes.Buffer
	for _, c := range chunks {
		want.Write(c)
	}
	require.Equal(t, want.Bytes(), out.Bytes())
}

func TestWritePipeline_StopIsIdempotent(t *testing.T) {
	var out bytes.Buffer
	p := NewWritePipeline(&out, 16)
	p.Start()
	require.NoError(t, p.WriteSector(bytes.Repeat([]byte{9}, 16)))
	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())
}

func TestWritePipeline_StartTwicePanics(t *testing.T) {
	var out bytes.Buffer
	p := NewWritePipeline(&out, 16)
	p.Start()
	defer p.Stop()
	require.Panics(t, func() { p.Start() })
}

func TestWritePipeline_RejectsOversizedChunk(t *testing.T) {
	var out bytes.Buffer
	p := NewWritePipeline(&out, 16)
	p.Start()
	defer p.Stop()
	err := p.WriteSector(bytes.Repeat([]byte{1}, 17))
	require.Error(t, err)
}
