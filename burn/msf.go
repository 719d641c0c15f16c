// Package burn implements libburn's data model (disc/session/track),
// write engine and drive lifecycle (spec §3, §4.1, §4.5).
package burn

import "fmt"

// SectorsPerSecond is the number of CD frames (sectors) per second of
// audio time, 75.
const SectorsPerSecond = 75

// LeadInSectors is the number of sectors libburn treats as preceding
// LBA 0 (the lead-in / pre-gap region); MSF 00:00:00 is LBA -150.
const LeadInSectors = 150

// MSF is a Minutes:Seconds:Frames timecode, 75 frames per second.
type MSF struct {
	M, S, F int
}

func (m MSF) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", m.M, m.S, m.F)
}

// LBAToMSF converts a logical block address to its on-medium MSF
// representation, where LBA -150 is MSF 00:00:00 (glossary: "LBA =
// (M*60+S)*75 + F - 150").
func LBAToMSF(lba int) MSF {
	t := lba + LeadInSectors
	f := t % SectorsPerSecond
	t /= SectorsPerSecond
	s := t % 60
	m := t / 60
	return MSF{M: m, S: s, F: f}
}

// MSFToLBA is the inverse of LBAToMSF.
func MSFToLBA(m MSF) int {
	return (m.M*60+m.S)*SectorsPerSecond + m.F - LeadInSectors
}

// ParseMSF parses the MM:SS:FF textual form used by CDRWIN .cue files.
func ParseMSF(s string) (MSF, error) {
	var m MSF
	n, err := fmt.Sscanf(s, "%d:%d:%d", &m.M, &m.S, &m.F)
	if err != nil || n != 3 {
		return MSF{}, fmt.Errorf("libburn: invalid MSF %q", s)
	}
	if m.S < 0 || m.S >= 60 || m.F < 0 || m.F >= SectorsPerSecond || m.M < 0 {
		return MSF{}, fmt.Errorf("libburn: MSF %q out of range", s)
	}
	return m, nil
}
