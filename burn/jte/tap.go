// Package jte implements the write-path tap libburn exposes for the
// JTE "jigdo template" sideband (§1): the sideband itself (jigdo
// file/template emission, compression) is an out-of-scope external
// collaborator, consumed here only as the shape of a tap receiving
// per-track match records and unmatched byte ranges, plus named
// digest engines (MD5/SHA1/SHA256/SHA512).
package jte

// MatchRecord reports a run of bytes the sideband already has a copy
// of elsewhere (e.g. a file also present in a jigdo template pool),
// addressed by track and byte range within that track's source.
type MatchRecord struct {
	TrackNo int
	Offset  int64
	Length  int64
	Digest  []byte // the matched content's digest, algorithm-specific
}

// UnmatchedRange reports a run of bytes with no known match: these
// bytes must be emitted into the output image/template verbatim.
type UnmatchedRange struct {
	TrackNo int
	Offset  int64
	Length  int64
}

// Tap is the write engine's sideband hook (§1): as the engine streams
// a track's sectors, it reports which byte ranges matched known
// content and which didn't. A nil Tap is valid — the engine checks
// for nil before calling.
type Tap interface {
	Match(MatchRecord)
	Unmatched(UnmatchedRange)
}

// NopTap discards every record; the default when no sideband is
// configured.
type NopTap struct{}

func (NopTap) Match(MatchRecord)         {}
func (NopTap) Unmatched(UnmatchedRange)  {}

var _ Tap = NopTap{}
