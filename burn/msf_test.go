package burn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"libburn/burn"
)

// Universal invariant 9: msf_to_lba(lba_to_msf(x)) = x for all x >= -150.
func TestMSFLBARoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lba := rapid.IntRange(-150, 100_000_000).Draw(t, "lba")
		got := burn.MSFToLBA(burn.LBAToMSF(lba))
		assert.Equal(t, lba, got)
	})
}

func TestLBAZeroIsMSFTwoSeconds(t *testing.T) {
	// LBA 0 is MSF 00:00:00 plus the 150-sector lead-in offset, i.e. 00:02:00.
	assert.Equal(t, burn.MSF{M: 0, S: 2, F: 0}, burn.LBAToMSF(0))
	assert.Equal(t, 0, burn.MSFToLBA(burn.MSF{M: 0, S: 2, F: 0}))
}

func TestLBAMinus150IsMSFZero(t *testing.T) {
	assert.Equal(t, burn.MSF{}, burn.LBAToMSF(-150))
}

func TestParseMSFRejectsGarbage(t *testing.T) {
	_, err := burn.ParseMSF("not-a-timecode")
	assert.Error(t, err)

	_, err = burn.ParseMSF("00:99:00")
	assert.Error(t, err, "seconds must be < 60")
}
