package cdtext

import "bytes"

// Generate builds the full CD-TEXT pack array for a session's blocks,
// mirroring burn_cdtext_from_session: one sweep per populated block
// (0..7) emitting session/track text packs for every pack type except
// the block-size-info type, followed by that block's three 0x8f
// packs, and a final pass stamping the highest sequence number of
// every block (blocks 0..3 in the second, 4..7 in the third 0x8f pack)
// into the 0x8f packs of each block (§4.4 "Pack creation").
//
// blocks[i] == nil means block i carries no CD-TEXT at all. firstTrack
// is the session's first track number (libburn sessions are numbered
// from 1 by convention, but the source track data is addressed
// 0..numTracks-1 in blocks[i].Track).
func Generate(firstTrack, numTracks int, blocks [8]*Block) ([][]byte, error) {
	any := false
	for _, b := range blocks {
		if b != nil {
			any = true
			break
		}
	}
	if !any {
		return nil, nil
	}

	var languages [8]byte
	for i, b := range blocks {
		if b != nil {
			languages[i] = b.Language
		}
	}

	c := &cursor{trackOffset: firstTrack}
	for block := 0; block < 8; block++ {
		blk := blocks[block]
		if blk == nil {
			continue
		}
		for pt := packTypeBase; pt < packTypeBase+numPackTypes; pt++ {
			if PackType(pt) == SizeInfo {
				continue
			}
			if err := c.createTyblSPacks(blk, PackType(pt), block, numTracks); err != nil {
				return nil, err
			}
		}
		if err := c.createBlSizePacks(block, blk, languages, numTracks); err != nil {
			return nil, err
		}
	}

	for _, pack := range c.packs {
		if pack[0] != byte(SizeInfo) {
			continue
		}
		switch pack[1] {
		case 1:
			for j := 0; j < 4; j++ {
				if c.hiseq[j] > 0 {
					pack[4+8+j] = byte(c.hiseq[j] - 1)
				} else {
					pack[4+8+j] = 0
				}
			}
		case 2:
			for j := 0; j < 4; j++ {
				if c.hiseq[j+4] > 0 {
					pack[4+j] = byte(c.hiseq[j+4] - 1)
				} else {
					pack[4+j] = 0
				}
			}
		default:
			continue
		}
		StampCRC(pack)
	}

	return c.packs, nil
}

// createTyblSPacks emits the session-level pack(s) for one pack type
// in one block, followed by one pack per track when the type is one
// that carries per-track content (§4.4: "0x80..0x85 or 0x8E"); other
// types (genre, disc id, TOC info, closed info) are session-only.
func (c *cursor) createTyblSPacks(blk *Block, pt PackType, block, numTracks int) error {
	payload, ok := blk.Session[pt]
	if !ok || len(payload.Text) == 0 {
		return nil
	}

	if err := c.createTyblPacks(payload.Text, 0, pt, block, payload.DoubleByte); err != nil {
		return err
	}

	if !hasTrackPacks(pt) {
		c.finalizePack()
		return nil
	}

	for i := 0; i < numTracks; i++ {
		useTab := false
		if i > 0 {
			useTab = decideTab(blk.Track[i][pt], blk.Track[i-1][pt])
		}
		if err := c.createTyblTPacks(blk.Track[i], i+c.trackOffset, pt, block, useTab); err != nil {
			return err
		}
	}
	c.finalizePack()
	return nil
}

// createTyblTPacks emits the pack(s) carrying one track's content for
// one pack type, falling back to libburn's single-zero-byte dummy
// when the track has no payload set, or to the 2- or 4-byte "TAB"
// marker when useTab asks to abbreviate a repeat of the previous
// track's content (§4.4).
func (c *cursor) createTyblTPacks(track map[PackType]Payload, trackNo int, pt PackType, block int, useTab bool) error {
	payload := track[pt]
	data := payload.Text
	doubleByte := payload.DoubleByte
	if len(data) == 0 {
		data = []byte{0}
	}
	if useTab {
		if doubleByte {
			data = []byte{9, 9, 0, 0}
		} else {
			data = []byte{9, 0}
		}
	}
	return c.createTyblPacks(data, trackNo, pt, block, doubleByte)
}

// decideTab reports whether a track's payload for a pack type is
// identical to the previous track's, making it eligible for the TAB
// abbreviation (§4.4 "if a track's payload ... is byte-identical to
// the previous track's, emit a 2- or 4-byte TAB marker instead").
func decideTab(curr, prev Payload) bool {
	if len(curr.Text) == 0 || len(prev.Text) == 0 {
		return false
	}
	if curr.DoubleByte != prev.DoubleByte {
		return false
	}
	if len(curr.Text) != len(prev.Text) {
		return false
	}
	minLen := 1
	if curr.DoubleByte {
		minLen = 2
	}
	if len(curr.Text) <= minLen {
		return false
	}
	return bytes.Equal(curr.Text, prev.Text)
}

// createBlSizePacks emits a block's three 0x8f "block size info"
// packs: track range and per-type pack counts, then a constant marking
// 3 size-info packs plus four placeholder bytes patched later by
// Generate's hiseq backfill, then another four placeholder bytes
// followed by the full 8-block language-code table (every block's
// size-info packs repeat all 8 blocks' language codes, not just its
// own) (§4.4).
func (c *cursor) createBlSizePacks(block int, blk *Block, languages [8]byte, numTracks int) error {
	payload1 := make([]byte, 12)
	payload1[0] = blk.CharCode
	payload1[1] = byte(c.trackOffset)
	payload1[2] = byte(numTracks + c.trackOffset - 1)
	payload1[3] = blk.Copyright
	for i := 0; i < 8; i++ {
		payload1[4+i] = byte(c.packCount[i])
	}
	if err := c.createTyblPacks(payload1, 0, SizeInfo, block, false); err != nil {
		return err
	}

	payload2 := make([]byte, 12)
	for i := 0; i < 7; i++ {
		payload2[i] = byte(c.packCount[i+8])
	}
	payload2[7] = 3 // always 3 packs of type 0x8f
	// payload2[8:12] are patched by Generate's hiseq backfill.
	if err := c.createTyblPacks(payload2, 1, SizeInfo, block, false); err != nil {
		return err
	}

	payload3 := make([]byte, 12)
	// payload3[0:4] are patched by Generate's hiseq backfill.
	for i := 0; i < 8; i++ {
		payload3[4+i] = languages[i]
	}
	if err := c.createTyblPacks(payload3, 2, SizeInfo, block, false); err != nil {
		return err
	}
	c.finalizePack()

	for i := range c.packCount {
		c.packCount[i] = 0
	}
	return nil
}
