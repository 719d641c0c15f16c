package cue

import (
	"fmt"

	"libburn/burn"
)

// RecordSize is the width of one CUE sheet record (§3 "Cue sheet").
const RecordSize = 8

// TOCEntry is one program-area table-of-contents point (§4.3 "CUE
// builder"): either a track's index-1 position or one of the A0/A1/A2
// lead-in pointer entries.
type TOCEntry struct {
	Point byte // track number, or 0xA0/0xA1/0xA2
	MSF   burn.MSF
}

func ctladr(mode burn.Mode, adr byte) byte {
	var ctl byte
	if mode.IsData() {
		ctl |= 0x4
	}
	if mode.Has(burn.FourChannel) {
		ctl |= 0x8
	}
	if mode.Has(burn.Copy) {
		ctl |= 0x2
	}
	if mode.Has(burn.Preemphasis) {
		ctl |= 0x1
	}
	return ctl<<4 | adr&0x0f
}

func trackForm(mode burn.Mode, cdText bool) byte {
	form := byte(0x01)
	if mode.IsData() {
		form = 0x14
	}
	if cdText {
		form |= 0x40
	}
	return form
}

func recTrack(mode burn.Mode, tno, index int, form byte, scms byte, msf burn.MSF) []byte {
	return []byte{ctladr(mode, 1), byte(tno), byte(index), form, scms, byte(msf.M), byte(msf.S), byte(msf.F)}
}

func recCatalog(catalog string) [][]byte {
	// 13 decimal digits, split 7+6, each half prefixed 0x02, second
	// half zero-padded to 8 bytes (§3 "Type-2 pair").
	var c [13]byte
	for i := 0; i < 13 && i < len(catalog); i++ {
		c[i] = catalog[i]
	}
	r1 := append([]byte{0x02}, c[0:7]...)
	r2 := append([]byte{0x02}, c[7:13]...)
	r2 = append(r2, 0x00)
	return [][]byte{r1, r2}
}

func recISRC(mode burn.Mode, tno int, isrc burn.ISRC) [][]byte {
	s := isrc.String()
	for len(s) < 12 {
		s += "0"
	}
	r1 := []byte{ctladr(mode, 3), byte(tno), s[0], s[1], s[2], s[3], s[4], s[5]}
	r2 := []byte{ctladr(mode, 3), byte(tno), s[6], s[7], s[8], s[9], s[10], 0x00}
	return [][]byte{r1, r2}
}

// CreateTOCEntries builds the cue sheet byte buffer and TOC entry
// array for one session (§4.3 "CUE builder"). startRuntime is the
// initial absolute LBA (normally -150, or drive.NWA-150 for an
// appendable session with the "SAO can append" extension). hasCDText
// reports whether CD-TEXT packs will accompany this session, which
// sets the 0x40 bit on the lead-in record's form; track records never
// carry it.
func CreateTOCEntries(s *Session, startRuntime int64, hasCDText bool) ([]byte, []TOCEntry, error) {
	var sheet []byte
	var entries []TOCEntry
	runtime := startRuntime

	firstMode := burn.Mode(0)
	lastMode := burn.Mode(0)
	if len(s.Tracks) > 0 {
		firstMode = s.Tracks[0].Mode
		lastMode = s.Tracks[len(s.Tracks)-1].Mode
	}

	leadinForm := trackForm(firstMode, hasCDText)
	sheet = append(sheet, recTrack(firstMode, 0, 0, leadinForm, 0, burn.LBAToMSF(int(runtime)))...)
	entries = append(entries, TOCEntry{Point: 0xA0, MSF: burn.LBAToMSF(int(runtime))})

	if s.Catalog != "" {
		for _, r := range recCatalog(s.Catalog) {
			sheet = append(sheet, r...)
		}
	}

	for i, t := range s.Tracks {
		tno := s.FirstTrack + i
		sectors, ok := t.Sectors()
		if !ok {
			return nil, nil, fmt.Errorf("libburn: track size unpredictable for track %d", tno)
		}

		if t.ISRC.Valid {
			for _, r := range recISRC(t.Mode, tno, t.ISRC) {
				sheet = append(sheet, r...)
			}
		}

		pregap := t.Pregap2Size
		if i == 0 && pregap < DefaultPregapSize {
			pregap = DefaultPregapSize
		}
		if pregap > 0 {
			sheet = append(sheet, recTrack(t.Mode, tno, 0, trackForm(t.Mode, false), 0, burn.LBAToMSF(int(runtime)))...)
			runtime += int64(pregap)
		}

		index1MSF := burn.LBAToMSF(int(runtime))
		sheet = append(sheet, recTrack(t.Mode, tno, 1, trackForm(t.Mode, false), 0, index1MSF)...)
		entries = append(entries, TOCEntry{Point: byte(tno), MSF: index1MSF})

		for n := 2; n < t.IndicesCount; n++ {
			if t.Indices[n] == IndexUnset {
				continue
			}
			idxMSF := burn.LBAToMSF(int(runtime) + int(t.Indices[n]))
			sheet = append(sheet, recTrack(t.Mode, tno, n, trackForm(t.Mode, false), 0, idxMSF)...)
		}

		runtime += sectors
		if t.Postgap {
			sheet = append(sheet, recTrack(t.Mode, tno, 0xAA, trackForm(t.Mode, false), 0, burn.LBAToMSF(int(runtime)))...)
			runtime += int64(t.PostgapSize)
		}
	}

	leadoutForm := trackForm(lastMode, false)
	sheet = append(sheet, recTrack(lastMode, 0xAA, 1, leadoutForm, 0, burn.LBAToMSF(int(runtime)))...)
	entries = append(entries, TOCEntry{Point: 0xA2, MSF: burn.LBAToMSF(int(runtime))})

	return sheet, entries, nil
}
