package burn

import (
	"fmt"

	"libburn/burn/cue"
	"libburn/burn/transport"
)

// PrecheckResult is the outcome of Precheck (§4.1 "Public contract").
type PrecheckResult struct {
	OK      bool
	Reasons []string
}

// cdProfile reports whether profile is one of the CD write profiles
// (§4.1 "Algorithm, CD path (profiles 0x09, 0x0A)").
func cdProfile(profile int) bool {
	return profile == 0x09 || profile == 0x0A
}

// Precheck validates opts against disc and the drive's current media
// state before any SCSI traffic (§4.1, §7 "Configuration rejection").
// It never mutates drive state; every failure reason is an exact
// substring from the enumerated list so tests can select on it.
func Precheck(d *Drive, opts *WriteOpts, disc *cue.Disc) PrecheckResult {
	var reasons []string
	add := func(s string) { reasons = append(reasons, s) }

	switch d.Status {
	case transport.StatusUnready, transport.StatusUngrabbed, transport.StatusUnsuitable:
		add("no writeable media")
	case transport.StatusFull:
		if !opts.Multi {
			add("no writeable media")
		}
	}

	if opts.WriteType == SAO && d.Status != transport.StatusBlank && d.Status != transport.StatusEmpty {
		add("write type SAO works only on blank media")
	}

	if len(disc.Sessions) > 1 && !cdProfile(d.Profile) && d.Profile != 0x41 {
		// most non-CD, non-BD-R-SRM profiles are single-session-per-open
		if d.Profile != 0x12 && d.Profile != 0x43 {
			add("multi session capability lacking")
		}
	}

	for _, s := range disc.Sessions {
		if len(s.Tracks) > 1 && !cdProfile(d.Profile) && d.Profile != 0x12 && d.Profile != 0x43 {
			add("multi track capability lacking")
		}
		var firstMode = -1
		for _, t := range s.Tracks {
			if _, ok := t.Sectors(); !ok && opts.WriteType != TAO {
				add("track size unpredictable")
			}
			base := int(t.Mode.BaseMode())
			if firstMode == -1 {
				firstMode = base
			} else if base != firstMode {
				add("tracks of different modes mixed")
			}
			if !t.Mode.IsData() && !cdProfile(d.Profile) {
				add("non-data track on non-cd")
			}
		}
		if opts.HasCDText && !allAudioCD(s, d.Profile) {
			add("CD-TEXT supported only with pure audio CD media")
		}
	}

	if opts.WriteType != WriteNone {
		if supported, known := d.SupportedBlockTypes[opts.WriteType]; known {
			ok := opts.WriteType == SAO && opts.BlockType == BlockSAO
			if !ok {
				ok = supported&opts.BlockType != 0
			}
			if !ok {
				add("drive dislikes block type")
			}
		}
	}

	if opts.HasStartByte {
		if !startAddressSupported(d.Profile) {
			add("write start address not supported")
		} else if opts.StartByte%alignmentFor(d.Profile) != 0 {
			add("write start address not properly aligned to N")
		}
	}

	if d.Profile == 0 {
		add("no suitable media profile detected")
	}

	if opts.Simulate && !simulationSupported(d) {
		add("simulation of write job not supported by drive and media")
	}

	for _, s := range disc.Sessions {
		for _, t := range s.Tracks {
			if !t.Mode.Valid() {
				add("unsuitable track mode found")
			}
		}
	}

	return PrecheckResult{OK: len(reasons) == 0, Reasons: reasons}
}

func allAudioCD(s *cue.Session, profile int) bool {
	if !cdProfile(profile) {
		return false
	}
	for _, t := range s.Tracks {
		if !t.Mode.IsAudio() {
			return false
		}
	}
	return true
}

func startAddressSupported(profile int) bool {
	switch profile {
	case 0x09, 0x0A, 0x1B, 0x2B, 0x41, 0x12, 0x43:
		return true
	default:
		return false
	}
}

func alignmentFor(profile int) int64 {
	switch profile {
	case 0x09, 0x0A:
		return 1 // CD: sector-aligned, any LBA
	default:
		return 32 * 1024 // DVD/BD: 32 KiB alignment
	}
}

func simulationSupported(d *Drive) bool {
	return cdProfile(d.Profile)
}

// AutoWriteType implements auto_write_type (§4.1): try SAO first
// (blank media only), fall back to TAO on any disqualifier; RAW is
// only ever chosen on explicit request. CD-TEXT or caller-supplied
// Lead-in packs force SAO; default-size/open-ended tracks without a
// default size bias toward TAO.
func AutoWriteType(d *Drive, opts *WriteOpts, disc *cue.Disc) (WriteType, error) {
	if opts.WriteType == RAW {
		return RAW, nil
	}
	if !cdProfile(d.Profile) {
		return TAO, nil // DVD/BD path doesn't use this CD-specific chooser
	}

	saoDisqualified := d.Status != transport.StatusBlank
	for _, s := range disc.Sessions {
		for _, t := range s.Tracks {
			if t.OpenEnded && t.DefaultSize == 0 {
				saoDisqualified = true
			}
		}
	}

	if opts.HasCDText && saoDisqualified {
		return WriteNone, fmt.Errorf("libburn: CD-TEXT requires SAO but media is not blank or a track size is unpredictable")
	}
	if opts.HasCDText || !saoDisqualified && opts.WriteType == SAO {
		return SAO, nil
	}
	if !saoDisqualified && opts.WriteType == WriteNone {
		return SAO, nil
	}
	return TAO, nil
}
