package cue

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"libburn/burn"
	"libburn/burn/cdtext"
	"libburn/burn/source"
)

// FileOpener opens the data referenced by a CUE sheet's FILE command
// and returns a Source plus its total byte size. The production
// opener wraps an *os.File in a FileSource and a shared FifoSource, so
// "a single fifo wraps the shared FILE source" (§4.3) for every track
// carved out of it; tests may substitute their own opener.
type FileOpener func(path, format string) (source.Source, int64, error)

// DefaultFileOpener opens path as a regular file, sized to the track's
// block; chunks are at least 4 of blockSize bytes, matching §4.3's
// "chunks sized to the track's block_size, >= 4 chunks".
func DefaultFileOpener(blockSize int) FileOpener {
	return func(path, format string) (source.Source, int64, error) {
		f, err := source.NewFileSource(path, "")
		if err != nil {
			return nil, 0, err
		}
		size, ok := f.Size()
		if !ok {
			f.Close()
			return nil, 0, fmt.Errorf("libburn: cue FILE %q has unpredictable size", path)
		}
		fifo, err := source.NewFifoSource(f, blockSize, 4)
		if err != nil {
			f.Close()
			return nil, 0, err
		}
		return fifo, size, nil
	}
}

func msfToFrames(m burn.MSF) int64 {
	return int64((m.M*60+m.S)*burn.SectorsPerSecond + m.F)
}

func cdrwinModeBytes(mode burn.Mode) int64 {
	return int64(burn.SectorLength(mode))
}

type fileState struct {
	src       source.Source
	size      int64
	chainTail *source.OffsetSource
}

// ParseCueSheet parses a CDRWIN .cue sheet per §4.3/§6 into a Session.
// open resolves each FILE command's path to a Source plus total size;
// use DefaultFileOpener for real files.
func ParseCueSheet(r io.Reader, open FileOpener) (*Session, error) {
	s := NewSession()

	var file *fileState
	var pending *Track
	var pendingStartFrames int64
	var next *Track
	haveNext := false
	lineNo := 0

	finalizePending := func(endBytes int64) error {
		if pending == nil || file == nil {
			return nil
		}
		startBytes := pendingStartFrames * cdrwinModeBytes(pending.Mode)
		if endBytes < 0 || endBytes > file.size {
			endBytes = file.size
		}
		size := endBytes - startBytes
		if size < 0 {
			size = 0
		}
		var off *source.OffsetSource
		var err error
		if file.chainTail == nil {
			off, err = source.NewOffsetSource(file.src, startBytes, size, false)
		} else {
			off, err = source.NewChildOffsetSource(file.chainTail, startBytes, size, false)
		}
		if err != nil {
			return err
		}
		file.chainTail = off
		pending.Source = off
		pending = nil
		return nil
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, rest := splitCommand(line)
		switch strings.ToUpper(cmd) {
		case "CATALOG":
			s.Catalog = strings.Trim(rest, `"`)

		case "CDTEXTFILE":
			// path stashed for later ingestion via IngestCDTextFile; not
			// resolved here since its encoding variant must be sniffed.

		case "FILE":
			path, format := splitQuotedArg(rest)
			if pending != nil {
				if err := finalizePending(file.size); err != nil {
					return nil, fmt.Errorf("libburn: cue line %d: %w", lineNo, err)
				}
			}
			if open == nil {
				return nil, fmt.Errorf("libburn: cue line %d: FILE command with no opener configured", lineNo)
			}
			src, size, err := open(path, format)
			if err != nil {
				return nil, fmt.Errorf("libburn: cue line %d: %w", lineNo, err)
			}
			file = &fileState{src: src, size: size}

		case "TRACK":
			fields := strings.Fields(rest)
			if len(fields) < 2 {
				return nil, fmt.Errorf("libburn: cue line %d: malformed TRACK", lineNo)
			}
			mode, err := parseTrackMode(fields[1])
			if err != nil {
				return nil, fmt.Errorf("libburn: cue line %d: %w", lineNo, err)
			}
			t := NewTrack(mode, nil)
			s.Tracks = append(s.Tracks, t)
			next = t
			haveNext = true

		case "INDEX":
			fields := strings.Fields(rest)
			if len(fields) < 2 {
				return nil, fmt.Errorf("libburn: cue line %d: malformed INDEX", lineNo)
			}
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("libburn: cue line %d: bad index number: %w", lineNo, err)
			}
			msf, err := burn.ParseMSF(fields[1])
			if err != nil {
				return nil, fmt.Errorf("libburn: cue line %d: %w", lineNo, err)
			}
			frames := msfToFrames(msf)

			if n == 1 {
				if file == nil {
					return nil, fmt.Errorf("libburn: cue line %d: INDEX 01 before any FILE", lineNo)
				}
				if pending != nil {
					if err := finalizePending(frames * cdrwinModeBytes(pending.Mode)); err != nil {
						return nil, fmt.Errorf("libburn: cue line %d: %w", lineNo, err)
					}
				}
				if !haveNext {
					return nil, fmt.Errorf("libburn: cue line %d: INDEX 01 with no TRACK", lineNo)
				}
				pending = next
				pendingStartFrames = frames
				haveNext = false
			} else if haveNext {
				// an index given before the track's INDEX 01 (e.g. INDEX 00)
				// is not recorded: indices are source-relative and the
				// track's source start is not known yet.
				_ = n
			} else if pending != nil {
				rel := frames - pendingStartFrames
				if err := pending.SetIndex(n, int32(rel)); err != nil {
					return nil, fmt.Errorf("libburn: cue line %d: %w", lineNo, err)
				}
			}

		case "PREGAP":
			msf, err := burn.ParseMSF(strings.TrimSpace(rest))
			if err != nil {
				return nil, fmt.Errorf("libburn: cue line %d: %w", lineNo, err)
			}
			if haveNext {
				next.SetPregapSize(int(msfToFrames(msf)))
			}

		case "POSTGAP":
			msf, err := burn.ParseMSF(strings.TrimSpace(rest))
			if err != nil {
				return nil, fmt.Errorf("libburn: cue line %d: %w", lineNo, err)
			}
			if pending != nil {
				pending.SetPostgapSize(int(msfToFrames(msf)))
			}

		case "FLAGS":
			applyFlags(currentTarget(pending, next), rest)

		case "ISRC":
			isrc, err := burn.ParseISRC(strings.Trim(rest, `"`))
			if err != nil {
				return nil, fmt.Errorf("libburn: cue line %d: %w", lineNo, err)
			}
			if t := currentTarget(pending, next); t != nil {
				t.ISRC = isrc
			}

		case "TITLE", "PERFORMER", "SONGWRITER", "COMPOSER", "ARRANGER", "MESSAGE":
			text := strings.Trim(rest, `"`)
			applyCDText(s, currentTarget(pending, next), cdrwinPackType(cmd), text)

		default:
			// unrecognized commands are ignored, matching a lenient reader
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if pending != nil && file != nil {
		if err := finalizePending(file.size); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func currentTarget(pending, next *Track) *Track {
	if next != nil {
		return next
	}
	return pending
}

func splitCommand(line string) (cmd, rest string) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i+1:])
}

// splitQuotedArg splits `"path" TYPE` into path and type.
func splitQuotedArg(rest string) (path, format string) {
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, `"`) {
		if end := strings.Index(rest[1:], `"`); end >= 0 {
			path = rest[1 : end+1]
			format = strings.TrimSpace(rest[end+2:])
			return
		}
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], fields[len(fields)-1]
}

func parseTrackMode(s string) (burn.Mode, error) {
	switch strings.ToUpper(s) {
	case "AUDIO":
		return burn.Audio, nil
	case "MODE1/2048":
		return burn.Mode1, nil
	case "MODE2/2336":
		return burn.Mode2, nil
	default:
		return 0, fmt.Errorf("unsupported TRACK mode %q", s)
	}
}

func applyFlags(t *Track, rest string) {
	if t == nil {
		return
	}
	for _, f := range strings.Fields(rest) {
		switch strings.ToUpper(f) {
		case "DCP":
			t.Mode |= burn.Copy
		case "4CH":
			t.Mode |= burn.FourChannel
		case "PRE":
			t.Mode |= burn.Preemphasis
		case "SCMS":
			t.Mode |= burn.SCMS
		}
	}
}

func cdrwinPackType(cmd string) cdtext.PackType {
	switch strings.ToUpper(cmd) {
	case "TITLE":
		return cdtext.Title
	case "PERFORMER":
		return cdtext.Performer
	case "SONGWRITER":
		return cdtext.Songwriter
	case "COMPOSER":
		return cdtext.Composer
	case "ARRANGER":
		return cdtext.Arranger
	case "MESSAGE":
		return cdtext.Message
	default:
		return 0
	}
}

// applyCDText stores a CDRWIN TITLE/PERFORMER/... line into block 0:
// session-level if there is no current track yet, else that track's
// block-0 payload (§4.3, §6). A track-level line also gives the
// session an empty (single NUL byte) payload of the same type when it
// has none yet, since Generate emits track packs only under a
// non-empty session payload.
func applyCDText(s *Session, t *Track, pt cdtext.PackType, text string) {
	if pt == 0 {
		return
	}
	payload := cdtext.Payload{Text: append([]byte(text), 0)}
	if s.CDText[0] == nil {
		s.CDText[0] = cdtext.NewBlock(0, len(s.Tracks))
	}
	if t == nil {
		s.CDText[0].Session[pt] = payload
		return
	}
	if _, ok := s.CDText[0].Session[pt]; !ok {
		s.CDText[0].Session[pt] = cdtext.Payload{Text: []byte{0}}
	}
	if t.CDText[0] == nil {
		t.CDText[0] = cdtext.NewBlock(0, 0)
	}
	if len(t.CDText[0].Track) == 0 {
		t.CDText[0].Track = []map[cdtext.PackType]cdtext.Payload{{}}
	}
	t.CDText[0].Track[0][pt] = payload
}
