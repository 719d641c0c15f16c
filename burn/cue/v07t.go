package cue

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"libburn/burn"
	"libburn/burn/cdtext"
)

// v07tKeyMap maps the album-level keys (§6 "Sony v07t input sheet")
// onto CD-TEXT pack types.
var v07tKeyMap = map[string]cdtext.PackType{
	"Album Title":        cdtext.Title,
	"Artist Name":        cdtext.Performer,
	"Songwriter":         cdtext.Songwriter,
	"Composer":           cdtext.Composer,
	"Arranger":           cdtext.Arranger,
	"Album Message":      cdtext.Message,
	"Catalog Number":     cdtext.DiscID,
	"UPC / EAN":          cdtext.UPCISRC,
	"Closed Information": cdtext.ClosedInfo,
	"Genre Information":  cdtext.Genre,
}

// v07tTrackKeyMap maps "Track NN <field>" suffixes onto pack types.
var v07tTrackKeyMap = map[string]cdtext.PackType{
	"Title":      cdtext.Title,
	"Artist":     cdtext.Performer,
	"Songwriter": cdtext.Songwriter,
	"Composer":   cdtext.Composer,
	"Arranger":   cdtext.Arranger,
	"Message":    cdtext.Message,
}

func v07tSessionKey(key string) cdtext.PackType {
	return v07tKeyMap[key]
}

// v07tHexcode parses an 0xNN / 0xNNNN / "0xNN 0xNN" value into an int,
// or decimal if there's no 0x prefix (§6: "Hex codes are accepted
// anywhere a byte/word is expected").
func v07tHexcode(s string) (int, error) {
	s = strings.TrimSpace(s)
	fields := strings.Fields(s)
	if len(fields) == 2 && strings.HasPrefix(fields[0], "0x") && strings.HasPrefix(fields[1], "0x") {
		hi, err := strconv.ParseInt(strings.TrimPrefix(fields[0], "0x"), 16, 32)
		if err != nil {
			return 0, err
		}
		lo, err := strconv.ParseInt(strings.TrimPrefix(fields[1], "0x"), 16, 32)
		if err != nil {
			return 0, err
		}
		return int(hi)<<8 | int(lo), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseInt(s[2:], 16, 32)
		return int(n), err
	}
	n, err := strconv.Atoi(s)
	return n, err
}

// ParseV07T ingests a Sony "v07t" input sheet (§6) into CD-TEXT block
// index block of session s, populating session-level fields and
// per-track fields for tracks already present in s.Tracks (the sheet
// carries only metadata, never track audio). "Input Sheet Version"
// must equal "0.7T".
func ParseV07T(r io.Reader, s *Session, block int) error {
	if block < 0 || block > 7 {
		return fmt.Errorf("libburn: v07t CD-TEXT block index %d out of range [0,7]", block)
	}
	blk := s.CDText[block]
	if blk == nil {
		blk = cdtext.NewBlock(block, len(s.Tracks))
		s.CDText[block] = blk
	}

	sawVersion := false
	lineNo := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			return fmt.Errorf("libburn: v07t line %d without '=': %q", lineNo, line)
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])

		switch {
		case key == "Input Sheet Version":
			if value != "0.7T" {
				return fmt.Errorf("libburn: v07t line %d: unsupported Input Sheet Version %q", lineNo, value)
			}
			sawVersion = true

		case key == "Text Code":
			n, err := v07tHexcode(value)
			if err != nil {
				return fmt.Errorf("libburn: v07t line %d: bad Text Code %q", lineNo, value)
			}
			blk.CharCode = byte(n)

		case key == "Language Code":
			n, err := v07tHexcode(value)
			if err != nil {
				return fmt.Errorf("libburn: v07t line %d: bad Language Code %q", lineNo, value)
			}
			blk.Language = byte(n)

		case key == "Text Data Copy Protection":
			n, err := v07tHexcode(value)
			if err != nil {
				return fmt.Errorf("libburn: v07t line %d: bad Text Data Copy Protection %q", lineNo, value)
			}
			blk.Copyright = byte(n)

		case key == "Genre Code":
			n, err := v07tHexcode(value)
			if err != nil {
				return fmt.Errorf("libburn: v07t line %d: bad Genre Code %q", lineNo, value)
			}
			p := blk.Session[cdtext.Genre]
			prefixed := append([]byte{0, byte(n)}, p.Text...)
			blk.Session[cdtext.Genre] = cdtext.Payload{Text: prefixed}

		case key == "First Track Number", key == "Last Track Number":
			if _, err := strconv.Atoi(value); err != nil {
				return fmt.Errorf("libburn: v07t line %d: bad %s %q", lineNo, key, value)
			}

		case v07tSessionKey(key) != 0:
			pt := v07tSessionKey(key)
			if blk.Session == nil {
				blk.Session = map[cdtext.PackType]cdtext.Payload{}
			}
			blk.Session[pt] = cdtext.Payload{Text: append([]byte(value), 0)}

		case strings.HasPrefix(key, "Track "):
			if err := applyV07TTrackLine(s, blk, key, value); err != nil {
				return fmt.Errorf("libburn: v07t line %d: %w", lineNo, err)
			}

		case strings.HasPrefix(key, "ISRC "):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(key, "ISRC")))
			if err != nil {
				return fmt.Errorf("libburn: v07t line %d: bad ISRC track number in %q", lineNo, key)
			}
			idx := n - s.FirstTrack
			if idx < 0 || idx >= len(s.Tracks) {
				return fmt.Errorf("libburn: v07t line %d: ISRC track %d out of range", lineNo, n)
			}
			isrc, err := burn.ParseISRC(value)
			if err != nil {
				return fmt.Errorf("libburn: v07t line %d: %w", lineNo, err)
			}
			s.Tracks[idx].ISRC = isrc

		default:
			// unrecognized key: ignored, matching a lenient reader
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if !sawVersion {
		return fmt.Errorf("libburn: v07t sheet missing Input Sheet Version")
	}
	return nil
}

// applyV07TTrackLine handles "Track NN <Field>" lines.
func applyV07TTrackLine(s *Session, blk *cdtext.Block, key, value string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(key, "Track "))
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		return fmt.Errorf("malformed track key %q", key)
	}
	n, err := strconv.Atoi(rest[:sp])
	if err != nil {
		return fmt.Errorf("bad track number in %q", key)
	}
	field := strings.TrimSpace(rest[sp+1:])
	pt, ok := v07tTrackKeyMap[field]
	if !ok {
		return nil // unrecognized per-track field, ignored
	}
	idx := n - s.FirstTrack
	if idx < 0 || idx >= len(s.Tracks) {
		return fmt.Errorf("track %d out of range", n)
	}
	if blk.Track == nil || len(blk.Track) <= idx {
		grown := make([]map[cdtext.PackType]cdtext.Payload, len(s.Tracks))
		copy(grown, blk.Track)
		blk.Track = grown
	}
	if blk.Track[idx] == nil {
		blk.Track[idx] = map[cdtext.PackType]cdtext.Payload{}
	}
	blk.Track[idx][pt] = cdtext.Payload{Text: append([]byte(value), 0)}
	return nil
}
