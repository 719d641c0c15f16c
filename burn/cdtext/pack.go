package cdtext

import "fmt"

// PackType identifies one of the 16 CD-TEXT pack-type slots, 0x80..0x8F
// (§3 "burn_cdtext").
type PackType byte

const (
	Title       PackType = 0x80
	Performer   PackType = 0x81
	Songwriter  PackType = 0x82
	Composer    PackType = 0x83
	Arranger    PackType = 0x84
	Message     PackType = 0x85
	DiscID      PackType = 0x86
	Genre       PackType = 0x87
	TOCInfo     PackType = 0x88
	TOCInfo2    PackType = 0x89
	Reserved8A  PackType = 0x8A
	Reserved8B  PackType = 0x8B
	Reserved8C  PackType = 0x8C
	ClosedInfo  PackType = 0x8D
	UPCISRC     PackType = 0x8E
	SizeInfo    PackType = 0x8F
)

const (
	packTypeBase  = 0x80
	numPackTypes  = 16
	maxPacksBlock = 255
	maxPacksTotal = 2048
)

// hasTrackPacks reports whether a pack type, besides its session-level
// pack, also gets one pack per track (§4.4: "0x80..0x85 or 0x8E").
func hasTrackPacks(pt PackType) bool {
	return (pt >= Title && pt <= Message) || pt == UPCISRC
}

// binaryPrefixLen is the count of leading binary (non-text) bytes in
// a pack type's payload, which affects char_pos bookkeeping: Genre
// carries a 2-byte binary genre code before its text, TOC/size-info
// packs are entirely binary.
func binaryPrefixLen(pt PackType, payloadLen int) int {
	switch {
	case pt == Genre:
		return 2
	case pt >= TOCInfo && pt <= Reserved8C, pt == SizeInfo:
		return payloadLen
	default:
		return 0
	}
}

// Payload is one (block, pack type) slot's content, either at session
// level or for one track.
type Payload struct {
	Text       []byte
	DoubleByte bool
}

// Block is one CD-TEXT block (0..7), combining session-level payloads
// with per-track payloads and the block's descriptive bytes used by
// the 0x8F size-info packs.
type Block struct {
	CharCode  byte
	Copyright byte
	Language  byte
	Session   map[PackType]Payload
	// Track[i] holds track i's payloads (0-indexed from the session's
	// first track); a pack type absent from the map falls back to the
	// single-zero-byte dummy libburn uses for an unset track field.
	Track []map[PackType]Payload
}

// NewBlock builds a Block with libburn's documented defaults for the
// given block index: block 0 defaults to English/ISO-8859-1/no
// copyright claim, blocks 1..7 default to the "Unknown" language
// (§3 Session).
func NewBlock(blockIndex int, numTracks int) *Block {
	lang := byte(0x00)
	if blockIndex == 0 {
		lang = 0x09 // English
	}
	b := &Block{
		CharCode:  0, // ISO-8859-1
		Copyright: 0,
		Language:  lang,
		Session:   make(map[PackType]Payload),
		Track:     make([]map[PackType]Payload, numTracks),
	}
	for i := range b.Track {
		b.Track[i] = make(map[PackType]Payload)
	}
	return b
}

type cursor struct {
	packs       [][]byte
	tdUsed      int
	hiseq       [8]int
	packCount   [numPackTypes]int
	trackOffset int
}

func (c *cursor) createNewPack(pt PackType, trackNo int, doubleByte bool, block, charPos int) ([]byte, error) {
	if len(c.packs) >= maxPacksTotal {
		return nil, fmt.Errorf("libburn: too many CD-TEXT packs (limit %d)", maxPacksTotal)
	}
	if c.hiseq[block] >= maxPacksBlock {
		return nil, fmt.Errorf("libburn: too many CD-TEXT packs in block %d (limit %d)", block, maxPacksBlock)
	}
	if charPos > 15 {
		charPos = 15
	} else if charPos < 0 {
		charPos = 0
	}

	pack := make([]byte, PackSize)
	pack[0] = byte(pt)
	pack[1] = byte(trackNo)
	pack[2] = byte(c.hiseq[block])
	db := byte(0)
	if doubleByte {
		db = 1
	}
	pack[3] = (db << 7) | byte(block<<4) | byte(charPos)

	c.hiseq[block]++
	c.tdUsed = 0
	c.packCount[int(pt)-packTypeBase]++
	c.packs = append(c.packs, pack)
	return pack, nil
}

func (c *cursor) finalizePack() {
	last := c.packs[len(c.packs)-1]
	for i := 4 + c.tdUsed; i < 16; i++ {
		last[i] = 0
	}
	StampCRC(last)
	c.tdUsed = 0
}

// createTyblPacks splits payload into 12-byte chunks across as many
// packs as needed, opening a new pack whenever the current one fills
// (§4.4 "Pack creation").
func (c *cursor) createTyblPacks(payload []byte, trackNo int, pt PackType, block int, doubleByte bool) error {
	binaryPart := binaryPrefixLen(pt, len(payload))
	divisor := 1
	if doubleByte {
		divisor = 2
	}

	for i := 0; i < len(payload); i++ {
		if c.tdUsed == 0 || c.tdUsed >= 12 {
			if c.tdUsed > 0 {
				c.finalizePack()
			}
			charPos := (i - binaryPart) / divisor
			if _, err := c.createNewPack(pt, trackNo, doubleByte, block, charPos); err != nil {
				return err
			}
		}
		c.packs[len(c.packs)-1][4+c.tdUsed] = payload[i]
		c.tdUsed++
	}
	return nil
}
