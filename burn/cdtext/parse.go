package cdtext

import "fmt"

// tabSingle and tabDouble are the TAB markers Generate writes in place
// of a track's payload when it is byte-identical to the previous
// track's (§4.4 TAB abbreviation), as they appear once splitFields has
// removed the NUL terminator ({9, 0} and {9, 9, 0, 0} on the medium).
// Parse recognizes them to
// restore the round-trip payload; a genuine payload that happens to
// equal one of these sequences is indistinguishable from an
// abbreviation, the same ambiguity the on-disc format itself carries.
var (
	tabSingle = []byte{9}
	tabDouble = []byte{9, 9}
)

type runKey struct {
	block   int
	packTyp PackType
}

type sizeInfoKey struct {
	block   int
	trackNo int
}

// Parse reconstructs per-(block, pack type, track) payloads from a
// flat CD-TEXT pack array, the inverse of Generate (§8 invariant 6).
//
// Text pack types pack one field per track (plus the session field)
// back to back, often several fields inside one 18-byte pack with no
// per-field header of their own: a pack's track_no byte names only
// the field that STARTS in that pack. Parse therefore accumulates all
// data bytes of a (block, pack type) run across its packs and splits
// the result on NUL terminators (NUL NUL for double-byte text) into
// 1 (session) + numTracks fields, in order — the same way a real
// CD-TEXT decoder must.
//
// firstTrack and numTracks must match the values Generate was called
// with.
func Parse(packs [][]byte, firstTrack, numTracks int) ([8]*Block, error) {
	var blocks [8]*Block
	ensureBlock := func(block int) *Block {
		if blocks[block] == nil {
			blocks[block] = NewBlock(block, numTracks)
		}
		return blocks[block]
	}

	sizeRuns := map[sizeInfoKey][]byte{}
	textRuns := map[runKey][]byte{}
	textDouble := map[runKey]bool{}
	order := map[runKey]bool{}
	var textOrder []runKey

	for _, pack := range packs {
		if len(pack) != PackSize {
			return blocks, fmt.Errorf("libburn: malformed CD-TEXT pack length %d", len(pack))
		}
		pt := PackType(pack[0])
		trackNo := int(pack[1])
		block := int((pack[3] >> 4) & 7)
		doubleByte := pack[3]&0x80 != 0

		ensureBlock(block)

		if pt == SizeInfo {
			key := sizeInfoKey{block: block, trackNo: trackNo}
			sizeRuns[key] = append(sizeRuns[key], pack[4:16]...)
			continue
		}

		key := runKey{block: block, packTyp: pt}
		if !order[key] {
			order[key] = true
			textOrder = append(textOrder, key)
			textDouble[key] = doubleByte
		}
		textRuns[key] = append(textRuns[key], pack[4:16]...)
	}

	for key, data := range sizeRuns {
		applySizeInfoRun(blocks[key.block], key.block, key.trackNo, data)
	}

	for _, key := range textOrder {
		if err := applyTextRun(blocks[key.block], key.packTyp, textRuns[key], textDouble[key], firstTrack, numTracks); err != nil {
			return blocks, err
		}
	}

	return blocks, nil
}

// applyTextRun splits one (block, pack type) run's concatenated data
// into its session field plus one field per track, resolving any TAB
// abbreviation against the previous track's already-parsed payload.
func applyTextRun(blk *Block, pt PackType, data []byte, doubleByte bool, firstTrack, numTracks int) error {
	want := 1
	if hasTrackPacks(pt) {
		want = 1 + numTracks
	}

	fields := splitFields(data, doubleByte, want)
	if len(fields) == 0 {
		return nil
	}

	blk.Session[pt] = Payload{Text: fields[0], DoubleByte: doubleByte}
	for i := 1; i < len(fields); i++ {
		trackIdx := i - 1
		text := fields[i]
		payload := Payload{Text: text, DoubleByte: doubleByte}
		if isTab(text) {
			if trackIdx == 0 {
				return fmt.Errorf("libburn: CD-TEXT TAB marker on first track of type %#x", byte(pt))
			}
			payload = blk.Track[trackIdx-1][pt]
		}
		blk.Track[trackIdx][pt] = payload
	}
	return nil
}

// splitFields walks data splitting off up to `want` NUL- (or
// double-NUL-) terminated fields in order; any trailing bytes past
// the last wanted terminator (zero padding from the final pack) are
// discarded.
func splitFields(data []byte, doubleByte bool, want int) [][]byte {
	step := 1
	if doubleByte {
		step = 2
	}

	fields := make([][]byte, 0, want)
	start := 0
	for i := 0; i+step <= len(data) && len(fields) < want; i += step {
		terminated := data[i] == 0
		if doubleByte {
			terminated = terminated && data[i+1] == 0
		}
		if terminated {
			fields = append(fields, data[start:i])
			start = i + step
		}
	}
	return fields
}

// applySizeInfoRun extracts the char code, copyright and language
// code carried in a block's 0x8f packs (§4.4). Pack 0 (trackNo 0)
// carries char code, first/last track and copyright, of which only
// char code and copyright are kept; pack 2 (trackNo 2) carries the
// 8-block language table, of which only this block's own entry is
// kept.
func applySizeInfoRun(blk *Block, block, trackNo int, data []byte) {
	switch trackNo {
	case 0:
		if len(data) >= 4 {
			blk.CharCode = data[0]
			blk.Copyright = data[3]
		}
	case 2:
		if len(data) >= 4+8 {
			blk.Language = data[4+block]
		}
	}
}

func isTab(text []byte) bool {
	return equalBytes(text, tabSingle) || equalBytes(text, tabDouble)
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
