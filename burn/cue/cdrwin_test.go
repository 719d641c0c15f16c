package cue_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libburn/burn"
	"libburn/burn/cdtext"
	"libburn/burn/cue"
	"libburn/burn/source"
)

// stubFileSource is a FileOpener target standing in for a real WAV
// file: fixed total size, EOF-only reads.
type stubFileSource struct{ size int64 }

func (f *stubFileSource) Read(p []byte) (int, error)    { return 0, nil }
func (f *stubFileSource) ReadSub(p []byte) (int, error) { return 0, source.ErrNoSubchannel }
func (f *stubFileSource) Size() (int64, bool)           { return f.size, true }
func (f *stubFileSource) SetSize(n int64) error         { f.size = n; return nil }
func (f *stubFileSource) Cancel() error                 { return nil }
func (f *stubFileSource) Close() error                  { return nil }

// Spec §8 S5: a two-track CDRWIN sheet sharing one FILE, with a
// pregap and per-track CD-TEXT titles.
func TestParseCueSheetS5(t *testing.T) {
	const totalFrames = 15750 + 5000 // track 1 spans [0, 15750); rest is track 2
	sheet := `CATALOG 1234567890123
FILE "audio.wav" WAVE
  TRACK 01 AUDIO
    TITLE "Song A"
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    TITLE "Song B"
    PREGAP 00:02:00
    INDEX 01 03:30:00
`
	opener := func(path, format string) (source.Source, int64, error) {
		assert.Equal(t, "audio.wav", path)
		assert.Equal(t, "WAVE", format)
		size := int64(totalFrames) * 2352
		return &stubFileSource{size: size}, size, nil
	}

	s, err := cue.ParseCueSheet(strings.NewReader(sheet), opener)
	require.NoError(t, err)

	assert.Equal(t, "1234567890123", s.Catalog)
	require.Len(t, s.Tracks, 2)

	t1, t2 := s.Tracks[0], s.Tracks[1]
	assert.True(t, t1.Mode.IsAudio())
	assert.True(t, t2.Mode.IsAudio())

	assert.Equal(t, 150, t2.Pregap2Size)
	assert.True(t, t2.Pregap2)
	assert.False(t, t1.Pregap2)

	size1, ok := t1.Source.Size()
	require.True(t, ok)
	assert.Equal(t, int64(15750)*2352, size1)

	size2, ok := t2.Source.Size()
	require.True(t, ok)
	assert.Equal(t, int64(5000)*2352, size2)

	require.NotNil(t, s.CDText[0])
	assert.Equal(t, "", strings.TrimRight(string(s.CDText[0].Session[cdtext.Title].Text), "\x00"))
	require.Len(t, t1.CDText[0].Track, 1)
	require.Len(t, t2.CDText[0].Track, 1)
	assert.Equal(t, "Song A", strings.TrimRight(string(t1.CDText[0].Track[0][cdtext.Title].Text), "\x00"))
	assert.Equal(t, "Song B", strings.TrimRight(string(t2.CDText[0].Track[0][cdtext.Title].Text), "\x00"))
}

func TestParseCueSheetRejectsMissingOpener(t *testing.T) {
	sheet := "FILE \"x.bin\" BINARY\n  TRACK 01 AUDIO\n    INDEX 01 00:00:00\n"
	_, err := cue.ParseCueSheet(strings.NewReader(sheet), nil)
	assert.Error(t, err)
}

func TestParseCueSheetISRCAndFlags(t *testing.T) {
	sheet := `FILE "x.bin" BINARY
  TRACK 01 AUDIO
    FLAGS DCP 4CH
    ISRC USABC2412345
    INDEX 01 00:00:00
`
	opener := func(path, format string) (source.Source, int64, error) {
		size := int64(1000) * 2352
		return &stubFileSource{size: size}, size, nil
	}
	s, err := cue.ParseCueSheet(strings.NewReader(sheet), opener)
	require.NoError(t, err)
	require.Len(t, s.Tracks, 1)
	tr := s.Tracks[0]
	assert.True(t, tr.Mode.Has(burn.Copy))
	assert.True(t, tr.Mode.Has(burn.FourChannel))
	assert.True(t, tr.ISRC.Valid)
	assert.Equal(t, "US", tr.ISRC.Country)
}
