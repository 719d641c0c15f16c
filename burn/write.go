package burn

import (
	"fmt"
	"io"
	"time"

	"libburn/burn/cue"
	"libburn/burn/jte"
	"libburn/burn/transport"
	"libburn/msg"
)

// Libburn_cd_obS and Libburn_dvd_obS are the default output-block
// sizes the streaming loop accumulates sectors into before issuing a
// drive write (§4.1 step 4c, "Algorithm, DVD/BD path").
const (
	Libburn_cd_obS   = 32 * 1024
	Libburn_dvd_obS  = 32 * 1024
	Libburn_bdre_obS = 64 * 1024
)

// leadoutSectors is the Lead-out length written after the last track
// of the last session (§4.1 step 5): 6750 sectors for the first
// session, 2250 for every subsequent one.
func leadoutSectors(sessionIndex int) int64 {
	if sessionIndex == 0 {
		return 6750
	}
	return 2250
}

// WriteDisc dispatches a full write transaction (§4.1 "write_disc").
// It is synchronous; §4.5's async wrapper (Pool.AddWorker) is what
// makes it run off the control goroutine. A Precheck failure submits a
// FAILURE message and a failed write-type choice a FATAL one, both
// before anything is written; a failure while writing sets the drive's
// cancel flag and submits a FATAL message. Each returns the submitted
// message as its error.
func WriteDisc(d *Drive, opts *WriteOpts, disc *cue.Disc, q *msg.Queue, tap jte.Tap) error {
	pre := Precheck(d, opts, disc)
	if !pre.OK {
		return q.Submit(msg.FAILURE, 0, d.GlobalIndex, "precheck failed: "+joinReasons(pre.Reasons))
	}

	wt := opts.WriteType
	if wt == WriteNone {
		var err error
		wt, err = AutoWriteType(d, opts, disc)
		if err != nil {
			return q.Submit(msg.FATAL, 0, d.GlobalIndex, err.Error())
		}
	}

	if tap == nil {
		tap = jte.NopTap{}
	}

	d.clearCancel()
	d.setProgress(func(p *Progress) {
		*p = Progress{SessionsTotal: len(disc.Sessions), BufferMinFill: 1 << 62}
	})

	var err error
	if cdProfile(d.Profile) {
		err = writeCD(d, opts, disc, wt, q, tap)
	} else {
		err = writeDVDBD(d, opts, disc, q, tap)
	}

	d.setBusy(Idle)
	if err != nil {
		d.Cancel()
		return q.Submit(msg.FATAL, 0, d.GlobalIndex, err.Error())
	}
	return d.Transport.SyncCache()
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}

// writeCD implements §4.1's numbered CD algorithm (profiles 0x09,
// 0x0A).
func writeCD(d *Drive, opts *WriteOpts, disc *cue.Disc, wt WriteType, q *msg.Queue, tap jte.Tap) error {
	// Step 2: SAO requires every open-ended track to have a default size.
	if wt == SAO {
		for _, s := range disc.Sessions {
			for _, t := range s.Tracks {
				if t.OpenEnded {
					if t.DefaultSize == 0 {
						return fmt.Errorf("libburn: track size unpredictable")
					}
					t.OpenEnded = false
				}
			}
		}
	}

	runtime := int64(-150)
	if d.Status == transport.StatusAppendable {
		runtime = d.NWA - 150
	}

	for si, s := range disc.Sessions {
		sheet, _, err := cue.CreateTOCEntries(s, runtime, opts.HasCDText)
		if err != nil {
			return err
		}
		if wt == SAO {
			if err := d.Transport.SendCueSheet(sheet); err != nil {
				return fmt.Errorf("libburn: send cue sheet: %w", err)
			}
		}

		for ti, t := range s.Tracks {
			tno := s.FirstTrack + ti
			if wt != TAO {
				d.setBusy(WritingPregap)
				if err := writeZeroSectors(d, 75, SectorLength(t.Mode), q); err != nil {
					return err
				}
				pregap := t.Pregap2Size
				if ti == 0 && pregap < cue.DefaultPregapSize {
					pregap = cue.DefaultPregapSize
				}
				if pregap > 0 {
					if err := writeZeroSectors(d, int64(pregap), SectorLength(t.Mode), q); err != nil {
						return err
					}
				}
			} else {
				nwa, err := d.Transport.GetNWA()
				if err != nil {
					return fmt.Errorf("libburn: query NWA: %w", err)
				}
				if nwa < d.NWA {
					return transport.ErrNWARegressed
				}
				d.NWA = nwa
			}

			written, err := streamTrack(d, t, tno, Libburn_cd_obS, opts, q, tap)
			if err != nil {
				return err
			}

			if t.Postgap {
				d.setBusy(WritingPregap)
				if err := writeZeroSectors(d, int64(t.PostgapSize), SectorLength(t.Mode), q); err != nil {
					return err
				}
			}

			if wt == TAO {
				if written < cue.MinTrackSectors {
					if err := writeZeroSectors(d, cue.MinTrackSectors-written, SectorLength(t.Mode), q); err != nil {
						return err
					}
				}
				if err := d.Transport.SyncCache(); err != nil {
					return err
				}
				if err := d.Transport.CloseTrack(tno, ti == len(s.Tracks)-1); err != nil {
					return err
				}
			}
		}

		if wt != TAO && si == len(disc.Sessions)-1 {
			d.setBusy(WritingLeadout)
			leadoutMode := s.Tracks[len(s.Tracks)-1].Mode
			if err := writeZeroSectors(d, leadoutSectors(si), SectorLength(leadoutMode), q); err != nil {
				return err
			}
		}
		if !opts.Multi && wt == TAO {
			if err := d.Transport.CloseSession(transport.CloseSessionFinalize); err != nil {
				return err
			}
		}
	}

	return d.Transport.SyncCache()
}

// writeZeroSectors issues n sectors of zero-filled padding (pregap,
// postgap, Lead-out) starting at d.NWA, one drive write per sector,
// and advances d.NWA past them.
func writeZeroSectors(d *Drive, n int64, sectorSize int, q *msg.Queue) error {
	if n <= 0 {
		return nil
	}
	chunk := make([]byte, sectorSize)
	lba := d.NWA
	for i := int64(0); i < n; i++ {
		if d.Cancelled() {
			return fmt.Errorf("libburn: write cancelled")
		}
		if err := d.Transport.Write(lba, chunk); err != nil {
			return err
		}
		lba++
	}
	d.NWA = lba
	return nil
}

// streamTrack runs §4.1 step 4c/4d: pulls one sector's worth of bytes
// at a time from the track's logical byte stream — Offset leading
// zeros, the real Source, then Tail trailing zeros (§4.1 step 4c
// "accounting for offset padding prefix and tail suffix") — strips an
// 8-byte CDXA subheader per sector when t.CDXAConversion applies,
// accumulates the result into an obs-sized output buffer, and flushes
// it via drive.write. The jte tap is fed one MatchRecord-free
// Unmatched range per flushed chunk, since this module doesn't
// implement the jigdo comparison itself (§1 scope).
func streamTrack(d *Drive, t *cue.Track, tno int, obs int, opts *WriteOpts, q *msg.Queue, tap jte.Tap) (int64, error) {
	d.setBusy(Writing)
	sectors, ok := t.Sectors()
	if !ok {
		return 0, fmt.Errorf("libburn: track size unpredictable")
	}
	d.setProgress(func(p *Progress) {
		p.Tracks++
		p.Sectors = sectors
		p.Sector = 0
	})

	sectorLen := sectorLengthOf(t)
	inputLen := inputSectorLengthOf(t)
	stripLen := inputLen - sectorLen // >0 when a CDXA subheader must be dropped

	buf := make([]byte, 0, obs)
	lba := d.NWA
	var written int64
	var readSoFar int64

	offsetLeft := t.Offset
	tailLeft := t.Tail
	sourceDone := false

	// readLogical fills p from the track's three-phase byte stream
	// (Offset zeros, Source, Tail zeros), mirroring Source.Read's
	// full-buffer contract: only the final chunk, once every phase is
	// exhausted, may come back short, tagged with io.EOF.
	readLogical := func(p []byte) (int, error) {
		total := 0
		for total < len(p) {
			if offsetLeft > 0 {
				n := int64(len(p) - total)
				if n > offsetLeft {
					n = offsetLeft
				}
				for i := int64(0); i < n; i++ {
					p[total+int(i)] = 0
				}
				offsetLeft -= n
				total += int(n)
				continue
			}
			if !sourceDone {
				n, err := t.Source.Read(p[total:])
				total += n
				if err != nil {
					sourceDone = true
				}
				if n > 0 {
					continue
				}
				continue
			}
			if tailLeft > 0 {
				n := int64(len(p) - total)
				if n > tailLeft {
					n = tailLeft
				}
				for i := int64(0); i < n; i++ {
					p[total+int(i)] = 0
				}
				tailLeft -= n
				total += int(n)
				continue
			}
			break
		}
		if total < len(p) {
			return total, io.EOF
		}
		return total, nil
	}

	readOneSector := func(dst []byte) (int, error) {
		raw := make([]byte, inputLen)
		n, err := readLogical(raw)
		if n <= stripLen {
			return 0, err
		}
		return copy(dst, raw[stripLen:n]), err
	}

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if d.Cancelled() {
			return fmt.Errorf("libburn: write cancelled")
		}
		if err := backpressure(d, opts, q); err != nil {
			return err
		}
		if err := d.Transport.Write(lba, buf); err != nil {
			return err
		}
		tap.Unmatched(jte.UnmatchedRange{TrackNo: tno, Offset: readSoFar - int64(len(buf)), Length: int64(len(buf))})
		lba += int64(len(buf)) / int64(sectorLen)
		buf = buf[:0]
		return nil
	}

	for written < sectors {
		sector := make([]byte, sectorLen)
		n, err := readOneSector(sector)
		readSoFar += int64(n)
		if err != nil && n == 0 {
			if t.OpenEnded {
				break
			}
			if opts.DoStreamRecording == 0 && !t.EndOnPrematureEOI {
				return written, fmt.Errorf("libburn: source ended before nominal track size")
			}
			break
		}
		if t.SwapSourceBytes {
			swapBytePairs(sector[:n])
		}
		buf = append(buf, sector[:n]...)
		written++
		d.setProgress(func(p *Progress) { p.Sector = written })
		if len(buf)+sectorLen > obs {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if t.Pad {
		for int64(len(buf))%int64(sectorLen) != 0 {
			buf = append(buf, 0)
		}
	}
	err := flush()
	d.NWA = lba
	return written, err
}

func sectorLengthOf(t *cue.Track) int {
	return SectorLength(t.Mode)
}

func inputSectorLengthOf(t *cue.Track) int {
	return int(t.InputSectorLength())
}

func swapBytePairs(p []byte) {
	for i := 0; i+1 < len(p); i += 2 {
		p[i], p[i+1] = p[i+1], p[i]
	}
}

// backpressure implements §4.1's "Buffer backpressure": sleeps in
// [MinUsec, MaxUsec] until the drive's reported buffer fill is within
// [MinPercent, MaxPercent], or TimeoutSec elapses, after which
// waiting is disabled for the remainder of the write (with a NOTE). A
// TimeoutSec of 0 expires at the first out-of-range check.
func backpressure(d *Drive, opts *WriteOpts, q *msg.Queue) error {
	if !opts.BufferWaiting {
		return nil
	}
	deadline := time.Now().Add(time.Duration(opts.TimeoutSec) * time.Second)
	for {
		capacity, free, err := d.Transport.ReadBufferCapacity()
		if err != nil || capacity == 0 {
			return nil // drive has no reportable buffer (e.g. stdio): nothing to wait on
		}
		fillPercent := int(100 * (capacity - free) / capacity)
		d.setProgress(func(p *Progress) {
			p.BufferCapacity = capacity
			p.BufferFill = capacity - free
			if p.BufferFill < p.BufferMinFill {
				p.BufferMinFill = p.BufferFill
			}
		})
		if fillPercent <= opts.MaxPercent && fillPercent >= opts.MinPercent {
			return nil
		}
		if !time.Now().Before(deadline) {
			opts.BufferWaiting = false
			q.Submit(msg.NOTE, 0, d.GlobalIndex, "buffer wait timed out, disabling backpressure for the remainder of this write")
			return nil
		}
		time.Sleep(time.Duration(opts.MinUsec) * time.Microsecond)
	}
}

// writeDVDBD implements §4.1's "Algorithm, DVD/BD path": profile
// dispatch followed by a uniform per-track streaming loop.
func writeDVDBD(d *Drive, opts *WriteOpts, disc *cue.Disc, q *msg.Queue, tap jte.Tap) error {
	switch d.Profile {
	case 0x13: // DVD-RW RO: format_unit quick-grow before writing
		start := opts.StartByte
		if err := d.Transport.FormatUnit(start); err != nil {
			return err
		}
	case 0x41: // BD-R SRM: auto-close an open last session of appendable media first
		if d.Status == transport.StatusAppendable {
			if err := d.Transport.CloseSession(transport.CloseSessionContinue); err != nil {
				return err
			}
		}
	case 0x11, 0x14, 0x15:
		if err := d.Transport.SendCueSheet(nil); err != nil {
			return err
		}
	case 0x1A: // DVD+RW: start or resume the background format
		if d.BgFormatStatus == 0 || d.BgFormatStatus == 1 {
			if err := d.Transport.FormatUnit(0); err != nil {
				return err
			}
		}
	}

	obs := Libburn_dvd_obS
	if d.Profile == 0x43 && opts.DoStreamRecording > 0 {
		obs = Libburn_bdre_obS
	}

	for _, s := range disc.Sessions {
		for ti, t := range s.Tracks {
			tno := s.FirstTrack + ti
			switch d.Profile {
			case 0x1B, 0x2B, 0x41:
				sectors, _ := t.Sectors()
				size := sectors * int64(sectorLengthOf(t))
				if opts.ObsPad {
					size = roundUp(size, int64(obs))
				}
				if err := d.Transport.ReserveTrack(size); err != nil {
					return err
				}
			case 0x11, 0x14, 0x15:
				if _, err := d.Transport.GetNWA(); err != nil {
					return err
				}
			}

			if _, err := streamTrack(d, t, tno, obs, opts, q, tap); err != nil {
				return err
			}

			switch d.Profile {
			case 0x11, 0x14, 0x15:
				if err := d.Transport.CloseTrack(tno, false); err != nil {
					return err
				}
			case 0x1B, 0x2B, 0x41:
				if err := d.Transport.CloseTrack(tno, ti == len(s.Tracks)-1); err != nil {
					return err
				}
				if !(ti == len(s.Tracks)-1 && !opts.Multi) {
					if err := d.Transport.CloseSession(transport.CloseSessionContinue); err != nil {
						return err
					}
				}
			}
		}
	}

	switch d.Profile {
	case 0x11, 0x14, 0x15:
		if !opts.Multi {
			if err := d.Transport.CloseSession(transport.CloseSessionContinue); err != nil {
				return err
			}
		}
	case 0x1B, 0x2B:
		if !opts.Multi {
			if err := d.Transport.CloseSession(transport.CloseSessionMinimal); err != nil {
				return err
			}
		}
	case 0x41:
		if !opts.Multi {
			if err := d.Transport.CloseSession(transport.CloseSessionFinalize); err != nil {
				return err
			}
		}
	case 0x13, 0x1A:
		if err := d.Transport.CloseSession(transport.CloseSessionContinue); err != nil {
			return err
		}
	}
	return nil
}

func roundUp(n, multiple int64) int64 {
	if n%multiple == 0 {
		return n
	}
	return (n/multiple + 1) * multiple
}

// FinalizeDamagedTrack implements §4.1's "Finalize-damaged-track
// (repair operation)": only valid when opts.NextTrackDamaged (bit 0)
// is set, or opts.ForceRepair is set, or force is passed.
func FinalizeDamagedTrack(d *Drive, opts *WriteOpts, lastTrackNo int, force bool) error {
	if !opts.NextTrackDamaged && !opts.ForceRepair && !force {
		return fmt.Errorf("libburn: no damaged track to finalize")
	}
	switch {
	case cdProfile(d.Profile):
		return d.Transport.CloseSession(transport.CloseSessionContinue)
	case d.Profile == 0x11 || d.Profile == 0x14 || d.Profile == 0x15:
		if err := d.Transport.CloseTrack(lastTrackNo, true); err != nil {
			return err
		}
		return d.Transport.CloseSession(transport.CloseSessionContinue)
	case d.Profile == 0x1B || d.Profile == 0x2B || d.Profile == 0x41:
		return d.Transport.CloseTrack(lastTrackNo, true)
	default:
		return fmt.Errorf("libburn: finalize-damaged-track not supported on profile 0x%x", d.Profile)
	}
}
