package burn

import "strings"

// atipManufacturer is one entry of the static ATIP lead-in lookup
// table (§4.7 "Manufacturer guessing"). Real libburn ships a few
// hundred entries derived from cdrtools' atip.c; this module keeps a
// small representative table and the lookup contract, since the full
// table is a data-entry exercise rather than an algorithm.
type atipManufacturer struct {
	LeadIn  MSF
	LeadOut MSF // zero value means "don't care"
	Name    string
}

var atipTable = []atipManufacturer{
	{LeadIn: MSF{M: 97, S: 0, F: 0}, Name: "Ritek Co."},
	{LeadIn: MSF{M: 97, S: 20, F: 0}, Name: "Digital Storage Technology Co."},
	{LeadIn: MSF{M: 97, S: 25, F: 0}, Name: "Prodisc Technology Inc."},
	{LeadIn: MSF{M: 97, S: 41, F: 0}, Name: "CMC Magnetics Corp."},
	{LeadIn: MSF{M: 98, S: 0, F: 0}, Name: "Taiyo Yuden Company Ltd."},
}

// GuessCDManufacturer looks up a blank CD-R/RW's manufacturer from its
// ATIP lead-in (and, for finer disambiguation, lead-out) start time.
// It returns ("", false) when no table entry matches.
func GuessCDManufacturer(leadIn, leadOut MSF) (string, bool) {
	for _, e := range atipTable {
		if e.LeadIn != leadIn {
			continue
		}
		if e.LeadOut != (MSF{}) && e.LeadOut != leadOut {
			continue
		}
		return e.Name, true
	}
	return "", false
}

// dvdManufacturerPrefixes maps a DVD/BD manufacturer ID byte string
// prefix (as read from the media's control data / burst cutting area)
// to a human-readable name.
var dvdManufacturerPrefixes = map[string]string{
	"MCC":     "Mitsubishi Chemical Corporation (Verbatim)",
	"CMC":     "CMC Magnetics Corporation",
	"RITEK":   "Ritek Corporation",
	"PRODISC": "Prodisc Technology Inc.",
	"TYG":     "Taiyo Yuden",
}

// GuessDVDManufacturer matches a manufacturer code string by prefix,
// longest match wins.
func GuessDVDManufacturer(code string) (string, bool) {
	best := ""
	bestLen := -1
	for prefix, name := range dvdManufacturerPrefixes {
		if strings.HasPrefix(code, prefix) && len(prefix) > bestLen {
			best = name
			bestLen = len(prefix)
		}
	}
	if bestLen < 0 {
		return "", false
	}
	return best, true
}
