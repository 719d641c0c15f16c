// Package cue implements libburn's session/track data model and the
// CUE-sheet/TOC builder, plus CDRWIN .cue, Sony v07t and CD-TEXT
// pack-file ingestion (spec §3, §4.3).
package cue

import (
	"fmt"

	"libburn/burn"
	"libburn/burn/cdtext"
	"libburn/burn/source"
)

// IndexUnset is the sentinel stored in Track.Indices for an index
// point that has not been set (§3 Track.indices).
const IndexUnset = 0x7fffffff

// DefaultPregapSize and DefaultPostgapSize are libburn's default gap
// lengths in sectors (§3 Track.pregap2_size/postgap_size).
const (
	DefaultPregapSize  = 150
	DefaultPostgapSize = 150
	MinTrackSectors    = 300
)

// Track mirrors struct burn_track (§3).
type Track struct {
	Mode   burn.Mode
	Source source.Source

	Offset int64 // leading zero-byte padding
	Tail   int64 // trailing zero-byte padding
	Pad    bool  // round last sector up with zeros; else stop at source EOF

	Pregap1     bool
	Pregap2     bool
	Pregap2Size int // sectors, 0 until SetPregapSize; the cue builder gives the first track >= 150
	Postgap     bool
	PostgapSize int // sectors, 0 until SetPostgapSize

	Indices      [100]int32 // relative-to-source LBAs; IndexUnset if not set
	IndicesCount int

	ISRC burn.ISRC

	CDText [8]*cdtext.Block

	FillUpMedia       bool
	DefaultSize       int64
	OpenEnded         bool
	TrackDataDone     bool
	EndOnPrematureEOI bool

	SwapSourceBytes bool
	CDXAConversion  bool

	SourceCount    int64
	WriteCount     int64
	WrittenSectors int64
}

// NewTrack builds a Track with libburn's documented defaults: no
// pregap/postgap beyond the implicit minimums, all indices unset.
func NewTrack(mode burn.Mode, src source.Source) *Track {
	t := &Track{Mode: mode, Source: src, Pad: true}
	for i := range t.Indices {
		t.Indices[i] = IndexUnset
	}
	return t
}

// SetPregapSize sets the track's pregap length; -1 disables it
// (§4.3 "Pre/post-gap").
func (t *Track) SetPregapSize(sectors int) {
	if sectors < 0 {
		t.Pregap2 = false
		t.Pregap2Size = 0
		return
	}
	t.Pregap2 = true
	t.Pregap2Size = sectors
}

// SetPostgapSize sets the track's postgap length; -1 disables it.
func (t *Track) SetPostgapSize(sectors int) {
	if sectors < 0 {
		t.Postgap = false
		t.PostgapSize = 0
		return
	}
	t.Postgap = true
	t.PostgapSize = sectors
}

// SetIndex sets index n (0..99) to a source-relative LBA (§4.3
// "Index set").
func (t *Track) SetIndex(n int, relativeLBA int32) error {
	if n < 0 || n > 99 {
		return fmt.Errorf("libburn: track index %d out of range [0,99]", n)
	}
	t.Indices[n] = relativeLBA
	if n+1 > t.IndicesCount {
		t.IndicesCount = n + 1
	}
	return nil
}

// ClearIndices resets every index to the unset sentinel.
func (t *Track) ClearIndices() {
	for i := range t.Indices {
		t.Indices[i] = IndexUnset
	}
	t.IndicesCount = 0
}

// InputSectorLength reports the number of bytes the write engine must
// pull from Source per sector: sector_length(mode) normally, or
// burn.CDXAInputSectorLength (2056) when CDXAConversion is set on a
// Mode1 track, whose source sectors carry a CD-ROM XA mode 2 form 1
// subheader that the write path strips down to 2048 bytes before
// writing (§8 invariant 2, §4.2 "optional byte-swap / CDXA
// stripping").
func (t *Track) InputSectorLength() int64 {
	if t.CDXAConversion && t.Mode.Has(burn.Mode1) {
		return int64(burn.CDXAInputSectorLength)
	}
	return int64(burn.SectorLength(t.Mode))
}

// Sectors reports the track's length in sectors: ceil((offset +
// source_size + tail + postgap_bytes) / sector_length(mode)) (§8
// invariant 2). If the source size is unpredictable (0, not fixed)
// and the track isn't padded, ok is false.
func (t *Track) Sectors() (sectors int64, ok bool) {
	size, fixed := int64(0), true
	if t.Source != nil {
		size, fixed = t.Source.Size()
	}
	if !fixed && !t.Pad {
		return 0, false
	}
	sectorLen := t.InputSectorLength()
	postgapBytes := int64(0)
	if t.Postgap {
		postgapBytes = int64(t.PostgapSize) * sectorLen
	}
	total := t.Offset + size + t.Tail + postgapBytes
	sectors = (total + sectorLen - 1) / sectorLen
	if sectors < MinTrackSectors {
		sectors = MinTrackSectors
	}
	return sectors, true
}

// Session mirrors struct burn_session (§3).
type Session struct {
	FirstTrack int // 1..99, default 1
	Tracks     []*Track
	Catalog    string // 13 decimal digits, or ""

	CDText          [8]*cdtext.Block
	CDTextCharCode  [8]byte
	CDTextCopyright [8]byte
	CDTextLanguage  [8]byte
}

// NewSession builds a Session with first_track defaulted to 1 and
// CD-TEXT block defaults applied (block 0 English/ISO-8859-1/no
// copyright claim, blocks 1..7 Unknown language), mirroring
// structure.c's session initializer.
func NewSession() *Session {
	s := &Session{FirstTrack: 1}
	for i := 0; i < 8; i++ {
		s.CDTextLanguage[i] = 0x00
	}
	s.CDTextLanguage[0] = 0x09 // English
	return s
}

// AddCDTextBlock attaches block i's CD-TEXT content, applying the
// same defaults NewBlock uses if the caller passes nil.
func (s *Session) AddCDTextBlock(i int, blk *cdtext.Block) error {
	if i < 0 || i > 7 {
		return fmt.Errorf("libburn: CD-TEXT block index %d out of range [0,7]", i)
	}
	if blk == nil {
		blk = cdtext.NewBlock(i, len(s.Tracks))
	}
	s.CDText[i] = blk
	s.CDTextCharCode[i] = blk.CharCode
	s.CDTextCopyright[i] = blk.Copyright
	s.CDTextLanguage[i] = blk.Language
	return nil
}

// AddTrack appends a track, or inserts at pos if pos >= 0 and
// pos < len(Tracks) (§4.3 "Accessors": "add/remove track at position
// (end-sentinel supported)").
func (s *Session) AddTrack(t *Track, pos int) error {
	if s.FirstTrack+len(s.Tracks)+1-1 > 99 {
		return fmt.Errorf("libburn: session cannot hold more than %d tracks starting at %d", 100-s.FirstTrack, s.FirstTrack)
	}
	if pos < 0 || pos >= len(s.Tracks) {
		s.Tracks = append(s.Tracks, t)
		return nil
	}
	s.Tracks = append(s.Tracks, nil)
	copy(s.Tracks[pos+1:], s.Tracks[pos:])
	s.Tracks[pos] = t
	return nil
}

// RemoveTrack removes the track at pos.
func (s *Session) RemoveTrack(pos int) error {
	if pos < 0 || pos >= len(s.Tracks) {
		return fmt.Errorf("libburn: track position %d out of range", pos)
	}
	s.Tracks = append(s.Tracks[:pos], s.Tracks[pos+1:]...)
	return nil
}

// Sectors sums every track's Sectors(), the session's on-medium
// program length excluding lead-in/lead-out.
func (s *Session) Sectors() (int64, bool) {
	var total int64
	for _, t := range s.Tracks {
		n, ok := t.Sectors()
		if !ok {
			return 0, false
		}
		total += n
	}
	return total, true
}

// Disc mirrors struct burn_disc (§3): reference-counted in the
// original; here just an ordinary owned value, since Go's GC performs
// the same role.
type Disc struct {
	Sessions           []*Session
	IncompleteSessions int
}

func (d *Disc) AddSession(s *Session, pos int) {
	if pos < 0 || pos >= len(d.Sessions) {
		d.Sessions = append(d.Sessions, s)
		return
	}
	d.Sessions = append(d.Sessions, nil)
	copy(d.Sessions[pos+1:], d.Sessions[pos:])
	d.Sessions[pos] = s
}

func (d *Disc) RemoveSession(pos int) error {
	if pos < 0 || pos >= len(d.Sessions) {
		return fmt.Errorf("libburn: session position %d out of range", pos)
	}
	d.Sessions = append(d.Sessions[:pos], d.Sessions[pos+1:]...)
	return nil
}
