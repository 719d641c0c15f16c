package source_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libburn/burn/source"
)

type byteSource struct{ r *bytes.Reader }

func (b *byteSource) Read(p []byte) (int, error)   { return b.r.Read(p) }
func (b *byteSource) ReadSub(p []byte) (int, error) { return 0, source.ErrNoSubchannel }
func (b *byteSource) Size() (int64, bool)          { return b.r.Size(), true }
func (b *byteSource) SetSize(n int64) error        { return source.ErrSizeFixed }
func (b *byteSource) Cancel() error                { return nil }
func (b *byteSource) Close() error                 { return nil }

// Universal invariant 8: a chain of offset sources over the same inner
// source, consumed in order, reproduces exactly the specified
// intervals, independent of whether predecessors were read in full.
func TestOffsetSourceChainExactness(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i)
	}
	inner := &byteSource{r: bytes.NewReader(data)}

	s1, err := source.NewOffsetSource(inner, 0, 100, false)
	require.NoError(t, err)
	s2, err := source.NewChildOffsetSource(s1, 100, 200, false)
	require.NoError(t, err)
	s3, err := source.NewChildOffsetSource(s2, 300, 50, false)
	require.NoError(t, err)

	// deliberately read only part of s1's interval before moving on
	partial := make([]byte, 10)
	n, err := s1.Read(partial)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, data[0:10], partial)

	buf2 := readAll(t, s2, 200)
	assert.Equal(t, data[100:300], buf2)

	buf3 := readAll(t, s3, 50)
	assert.Equal(t, data[300:350], buf3)
}

func TestOffsetSourceRejectsOverlap(t *testing.T) {
	inner := &byteSource{r: bytes.NewReader(make([]byte, 1000))}
	s1, err := source.NewOffsetSource(inner, 0, 100, false)
	require.NoError(t, err)
	_, err = source.NewChildOffsetSource(s1, 50, 10, false)
	assert.Error(t, err, "overlapping interval must be rejected")
}

func TestOffsetSourceAdjustableSetSize(t *testing.T) {
	inner := &byteSource{r: bytes.NewReader(make([]byte, 1000))}
	s, err := source.NewOffsetSource(inner, 0, 100, true)
	require.NoError(t, err)
	require.NoError(t, s.SetSize(50))
	n, ok := s.Size()
	require.True(t, ok)
	assert.EqualValues(t, 50, n)

	buf := make([]byte, 100)
	total := 0
	for {
		nn, err := s.Read(buf[total:])
		total += nn
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, 50, total, "adjustable SetSize must change the enforced delivery bound")
}

func readAll(t *testing.T, s source.Source, want int) []byte {
	t.Helper()
	buf := make([]byte, want)
	total := 0
	for total < want {
		n, err := s.Read(buf[total:])
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.Equal(t, want, total)
	return buf
}
