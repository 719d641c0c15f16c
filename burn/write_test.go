package burn_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libburn/burn"
	"libburn/burn/cue"
	"libburn/burn/jte"
	"libburn/burn/transport"
	"libburn/msg"
)

func blankCDDrive(profile int) (*burn.Drive, *fakeTransport) {
	ft := newFakeTransport(profile, transport.StatusBlank)
	d := burn.NewDrive(transport.RoleMMC, ft)
	d.Profile = profile
	d.Status = transport.StatusBlank
	return d, ft
}

// S2 (SAO data CD, one track) from spec §8: a single data track burns
// via SAO and sends exactly one cue sheet.
func TestWriteDiscSAODataCD(t *testing.T) {
	d, ft := blankCDDrive(0x09)
	tr := cue.NewTrack(burn.Mode1, newFakeSource(make([]byte, 2048*300)))
	s := cue.NewSession()
	require.NoError(t, s.AddTrack(tr, -1))
	disc := &cue.Disc{Sessions: []*cue.Session{s}}

	opts := burn.NewWriteOpts()
	opts.WriteType = burn.SAO
	q := msg.NewQueue()

	err := burn.WriteDisc(d, opts, disc, q, nil)
	require.NoError(t, err)
	assert.Len(t, ft.cueSheets, 1)
	assert.True(t, d.WroteWell())
}

// S1-flavored (TAO audio CD, two tracks): both tracks burn via TAO,
// each gets its own close_track call, and short tracks are padded to
// the 300-sector minimum (§8 invariant 4).
func TestWriteDiscTAOAudioCDTwoTracks(t *testing.T) {
	d, ft := blankCDDrive(0x09)
	t1 := cue.NewTrack(burn.Audio, newOpenEndedSource(make([]byte, 2352*187)))
	t1.EndOnPrematureEOI = true
	t2 := cue.NewTrack(burn.Audio, newFakeSource(make([]byte, 2352*150)))
	s := cue.NewSession()
	require.NoError(t, s.AddTrack(t1, -1))
	require.NoError(t, s.AddTrack(t2, -1))
	disc := &cue.Disc{Sessions: []*cue.Session{s}}

	opts := burn.NewWriteOpts()
	opts.WriteType = burn.TAO
	q := msg.NewQueue()

	err := burn.WriteDisc(d, opts, disc, q, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ft.closedTracks)
}

// S3-flavored (DVD+R, one SAO session): ReserveTrack is called with a
// size rounded up to a multiple of the 32 KiB output block when
// ObsPad is set, and a non-multi write closes the session with the
// minimal-radius mode (101b).
func TestWriteDiscDVDPlusRSAO(t *testing.T) {
	d, ft := blankCDDrive(0x1B)
	tr := cue.NewTrack(burn.Mode1, newFakeSource(make([]byte, 2048*2300)))
	s := cue.NewSession()
	require.NoError(t, s.AddTrack(tr, -1))
	disc := &cue.Disc{Sessions: []*cue.Session{s}}

	opts := burn.NewWriteOpts()
	opts.WriteType = burn.TAO // DVD/BD path ignores the CD-specific chooser
	q := msg.NewQueue()

	err := burn.WriteDisc(d, opts, disc, q, nil)
	require.NoError(t, err)
	require.Len(t, ft.reservedSizes, 1)
	assert.Equal(t, int64(0), ft.reservedSizes[0]%burn.Libburn_dvd_obS)
	require.NotEmpty(t, ft.closedSessions)
	assert.Equal(t, transport.CloseSessionMinimal, ft.closedSessions[len(ft.closedSessions)-1])
}

// S4-flavored (BD-RE streamed): random-access profile writes without
// any close_session call.
func TestWriteDiscBDREStreamedNoCloseSession(t *testing.T) {
	d, ft := blankCDDrive(0x43)
	tr := cue.NewTrack(burn.Mode1, newFakeSource(make([]byte, 2048*4000)))
	s := cue.NewSession()
	require.NoError(t, s.AddTrack(tr, -1))
	disc := &cue.Disc{Sessions: []*cue.Session{s}}

	opts := burn.NewWriteOpts()
	opts.DoStreamRecording = 16
	q := msg.NewQueue()

	err := burn.WriteDisc(d, opts, disc, q, nil)
	require.NoError(t, err)
	assert.Empty(t, ft.closedSessions)
}

// §4.1 step 4c: a track with Offset/Tail set streams leading/trailing
// zero sectors around the real source instead of ending short.
func TestWriteDiscAppliesOffsetAndTailPadding(t *testing.T) {
	d, ft := blankCDDrive(0x09)
	payload := make([]byte, 2048*297)
	for i := range payload {
		payload[i] = 0xAB
	}
	tr := cue.NewTrack(burn.Mode1, newFakeSource(payload))
	tr.Offset = 2048 * 2
	tr.Tail = 2048 * 1
	s := cue.NewSession()
	require.NoError(t, s.AddTrack(tr, -1))
	disc := &cue.Disc{Sessions: []*cue.Session{s}}

	opts := burn.NewWriteOpts()
	opts.WriteType = burn.TAO // no pregap/lead-out writes, so d.NWA lands exactly at track end
	q := msg.NewQueue()

	require.NoError(t, burn.WriteDisc(d, opts, disc, q, nil))

	sectors, ok := tr.Sectors()
	require.True(t, ok)
	assert.Equal(t, int64(300), sectors)

	written := reconstructWritten(ft, d.NWA-sectors, 2048, int(sectors)*2048)
	require.Len(t, written, int(sectors)*2048)
	assert.True(t, allZero(written[:2048]), "leading offset sector should be zero-filled")
	assert.True(t, allZero(written[len(written)-2048:]), "trailing tail sector should be zero-filled")
	assert.Equal(t, byte(0xAB), written[2048*2])
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// reconstructWritten concatenates every flushed chunk from startLBA
// onward, in lba order, and trims to n bytes: fakeTransport.Write
// stores one obs-sized chunk per call keyed by its starting lba, not
// one entry per sector.
func reconstructWritten(ft *fakeTransport, startLBA int64, sectorLen, n int) []byte {
	var lbas []int64
	for lba := range ft.sectors {
		if lba >= startLBA {
			lbas = append(lbas, lba)
		}
	}
	sort.Slice(lbas, func(i, j int) bool { return lbas[i] < lbas[j] })
	out := make([]byte, 0, n)
	for _, lba := range lbas {
		out = append(out, ft.sectors[lba]...)
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// §4.2 / Track.CDXAConversion: a Mode1 track fed CD-ROM XA mode 2 form
// 1 input (2056 bytes/sector) has its 8-byte subheader stripped before
// writing, leaving exactly 2048 payload bytes per sector.
func TestWriteDiscStripsCDXASubheader(t *testing.T) {
	d, ft := blankCDDrive(0x09)
	const sectors = 300
	raw := make([]byte, (2048+8)*sectors)
	for i := 0; i < sectors; i++ {
		base := i * (2048 + 8)
		for j := 0; j < 8; j++ {
			raw[base+j] = 0xFF // subheader, must not survive into the written sector
		}
		for j := 0; j < 2048; j++ {
			raw[base+8+j] = 0x55 // payload, distinct from the subheader marker
		}
	}
	tr := cue.NewTrack(burn.Mode1, newFakeSource(raw))
	tr.CDXAConversion = true
	s := cue.NewSession()
	require.NoError(t, s.AddTrack(tr, -1))
	disc := &cue.Disc{Sessions: []*cue.Session{s}}

	opts := burn.NewWriteOpts()
	opts.WriteType = burn.TAO // no pregap/lead-out writes, so d.NWA lands exactly at track end
	q := msg.NewQueue()

	require.NoError(t, burn.WriteDisc(d, opts, disc, q, nil))

	got := reconstructWritten(ft, d.NWA-sectors, 2048, sectors*2048)
	require.Len(t, got, sectors*2048)
	assert.NotContains(t, got, byte(0xFF), "8-byte CDXA subheader must not survive into the written sector")
	for _, b := range got {
		require.Equal(t, byte(0x55), b)
	}
}

func TestWriteDiscPrecheckFailureQueuesMessage(t *testing.T) {
	d, _ := blankCDDrive(0x09)
	d.Status = transport.StatusUnready
	disc := &cue.Disc{Sessions: []*cue.Session{cue.NewSession()}}
	opts := burn.NewWriteOpts()
	q := msg.NewQueue()
	q.SetQueueThreshold(msg.ALL)

	err := burn.WriteDisc(d, opts, disc, q, nil)
	assert.Error(t, err)
	m, ok := q.Obtain(msg.ALL)
	require.True(t, ok)
	assert.Contains(t, m.Text, "no writeable media")
}

func TestWriteDiscFeedsJTETap(t *testing.T) {
	d, _ := blankCDDrive(0x09)
	tr := cue.NewTrack(burn.Mode1, newFakeSource(make([]byte, 2048*300)))
	s := cue.NewSession()
	require.NoError(t, s.AddTrack(tr, -1))
	disc := &cue.Disc{Sessions: []*cue.Session{s}}

	opts := burn.NewWriteOpts()
	opts.WriteType = burn.SAO
	q := msg.NewQueue()

	var unmatched int64
	tap := recordingTap{onUnmatched: func(r jte.UnmatchedRange) { unmatched += r.Length }}
	require.NoError(t, burn.WriteDisc(d, opts, disc, q, tap))
	assert.Equal(t, int64(2048*300), unmatched)
}

type recordingTap struct {
	onUnmatched func(jte.UnmatchedRange)
}

func (recordingTap) Match(jte.MatchRecord) {}
func (r recordingTap) Unmatched(u jte.UnmatchedRange) {
	if r.onUnmatched != nil {
		r.onUnmatched(u)
	}
}

func TestFinalizeDamagedTrackRequiresFlagOrForce(t *testing.T) {
	d, ft := blankCDDrive(0x09)
	opts := burn.NewWriteOpts()

	err := burn.FinalizeDamagedTrack(d, opts, 1, false)
	assert.Error(t, err)

	err = burn.FinalizeDamagedTrack(d, opts, 1, true)
	require.NoError(t, err)
	assert.NotEmpty(t, ft.closedSessions)
}

func TestBufferBackpressureDisablesAfterTimeout(t *testing.T) {
	d, ft := blankCDDrive(0x09)
	ft.bufCapacity = 1000
	ft.bufFree = 0 // always "full": fillPercent stays 100, above MaxPercent

	opts := burn.NewWriteOpts()
	opts.BufferWaiting = true
	opts.TimeoutSec = 0 // expire immediately on first check past min wait
	opts.MinUsec = 1
	opts.MaxPercent = 10
	tr := cue.NewTrack(burn.Mode1, newFakeSource(make([]byte, 2048*300)))
	s := cue.NewSession()
	require.NoError(t, s.AddTrack(tr, -1))
	disc := &cue.Disc{Sessions: []*cue.Session{s}}
	q := msg.NewQueue()

	require.NoError(t, burn.WriteDisc(d, opts, disc, q, nil))
	assert.False(t, opts.BufferWaiting, "backpressure should disable itself once TimeoutSec elapses")
}
