package burn

import (
	"fmt"
	"regexp"
)

// ISRC is a 12-character International Standard Recording Code,
// CCOOOYYSSSSS: 2-char country, 3-char owner, 2-digit year, 5-digit
// serial (glossary; §4.7).
type ISRC struct {
	Valid   bool
	Country string // 2 alnum
	Owner   string // 3 alnum
	Year    int    // 0..99
	Serial  int    // 0..99999
}

var (
	countryRE = regexp.MustCompile(`^[A-Za-z0-9]{2}$`)
	ownerRE   = regexp.MustCompile(`^[A-Za-z0-9]{3}$`)
)

// NewISRC validates and builds an ISRC from its component fields.
func NewISRC(country, owner string, year, serial int) (ISRC, error) {
	if !countryRE.MatchString(country) {
		return ISRC{}, fmt.Errorf("libburn: ISRC country code %q must be 2 alphanumerics", country)
	}
	if !ownerRE.MatchString(owner) {
		return ISRC{}, fmt.Errorf("libburn: ISRC owner code %q must be 3 alphanumerics", owner)
	}
	if year < 0 || year > 99 {
		return ISRC{}, fmt.Errorf("libburn: ISRC year %d out of range [0,99]", year)
	}
	if serial < 0 || serial > 99999 {
		return ISRC{}, fmt.Errorf("libburn: ISRC serial %d out of range [0,99999]", serial)
	}
	return ISRC{Valid: true, Country: country, Owner: owner, Year: year, Serial: serial}, nil
}

// String renders the ISRC as its 12-character CCOOOYYSSSSS form.
func (i ISRC) String() string {
	if !i.Valid {
		return ""
	}
	return fmt.Sprintf("%s%s%02d%05d", i.Country, i.Owner, i.Year, i.Serial)
}

var isrcRE = regexp.MustCompile(`^([A-Za-z0-9]{2})([A-Za-z0-9]{3})(\d{2})(\d{5})$`)

// ParseISRC parses the 12-character CCOOOYYSSSSS form.
func ParseISRC(s string) (ISRC, error) {
	m := isrcRE.FindStringSubmatch(s)
	if m == nil {
		return ISRC{}, fmt.Errorf("libburn: malformed ISRC %q", s)
	}
	var year, serial int
	fmt.Sscanf(m[3], "%d", &year)
	fmt.Sscanf(m[4], "%d", &serial)
	return NewISRC(m[1], m[2], year, serial)
}
