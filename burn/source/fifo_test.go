package source_test

import (
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libburn/burn/source"
)

// a source that hands out data in small bursts, simulating a slow
// producer such as a pipe.
type burstySource struct {
	mu    sync.Mutex
	data  []byte
	pos   int
	burst int
}

func (b *burstySource) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := b.burst
	if n > len(p) {
		n = len(p)
	}
	if b.pos+n > len(b.data) {
		n = len(b.data) - b.pos
	}
	copy(p[:n], b.data[b.pos:b.pos+n])
	b.pos += n
	return n, nil
}
func (b *burstySource) ReadSub(p []byte) (int, error) { return 0, source.ErrNoSubchannel }
func (b *burstySource) Size() (int64, bool)           { return int64(len(b.data)), true }
func (b *burstySource) SetSize(n int64) error         { return source.ErrSizeFixed }
func (b *burstySource) Cancel() error                 { return nil }
func (b *burstySource) Close() error                  { return nil }

// Universal invariant 7: sum of bytes delivered by the consumer <= sum
// produced by the inner source; equality holds if the consumer never
// cancels.
func TestFifoDeliversAllBytesWithoutCancellation(t *testing.T) {
	data := make([]byte, 500_000)
	for i := range data {
		data[i] = byte(i)
	}
	inner := &burstySource{data: data, burst: 4096}

	fifo, err := source.NewFifoSource(inner, 32*1024, 8)
	require.NoError(t, err)
	defer fifo.Close()

	out := make([]byte, 0, len(data))
	buf := make([]byte, 17*1024) // deliberately not aligned to chunk size
	for {
		n, err := fifo.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, data, out)

	stats := fifo.Stats()
	assert.Equal(t, int64(len(data)), stats.InCounter)
}

func TestFifoRejectsOversizeOrTooFewChunks(t *testing.T) {
	inner := &burstySource{data: make([]byte, 10), burst: 1}

	_, err := source.NewFifoSource(inner, 1, 1)
	assert.Error(t, err, "chunks < 2 must be rejected")

	_, err = source.NewFifoSource(inner, 1<<30, 2)
	assert.Error(t, err, "> 1 GiB total must be rejected")
}

func TestFifoAbortStopsWorker(t *testing.T) {
	data := make([]byte, 10_000_000)
	inner := &burstySource{data: data, burst: 64}
	fifo, err := source.NewFifoSource(inner, 4096, 4)
	require.NoError(t, err)

	buf := make([]byte, 4096)
	_, err = fifo.Read(buf)
	require.NoError(t, err)

	fifo.Abort() // must return promptly rather than blocking forever
}
