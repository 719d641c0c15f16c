package burn

// WriteType is the MMC write-type modifier (GLOSSARY: "TAO / SAO / RAW
// / DAO").
type WriteType int

const (
	WriteNone WriteType = iota
	TAO
	SAO
	RAW
)

func (w WriteType) String() string {
	switch w {
	case TAO:
		return "TAO"
	case SAO:
		return "SAO"
	case RAW:
		return "RAW"
	default:
		return "NONE"
	}
}

// WriteOpts mirrors struct burn_write_opts (§4.1, carried in full per
// SPEC_FULL's "options.c's full burn_write_opts field set... not
// trimmed to only what the worked examples exercise").
type WriteOpts struct {
	WriteType WriteType
	Multi     bool // leave session open for further appends
	Simulate  bool // checked by Precheck (CD profiles only); the write engine does not act on it and issues real writes

	StartByte    int64 // explicit write-start address; Precheck validates it only when HasStartByte is set
	HasStartByte bool

	ObsPad bool // tail-pad the last output chunk to obs (DVD/BD)

	// BlockType is the SCSI block-type a track is sent as (§3 "supported
	// block-types per write-type"), checked against the drive's
	// SupportedBlockTypes table during Precheck.
	BlockType uint32

	// Stream recording (§4.1 "Stream recording"): a DoStreamRecording
	// above 0 selects the 64 KiB output block on BD-RE (profile 0x43)
	// and lets a track end without error when its source runs out
	// early. Values >= 16 are not checked against a start LBA.
	DoStreamRecording int

	StdioFsyncSize int64 // not read by the write engine; stdio drives sync only in SyncCache, CloseSession and Release

	// Buffer backpressure (§4.1 "Buffer backpressure").
	BufferWaiting bool
	MinUsec       int
	MaxUsec       int
	MinPercent    int
	MaxPercent    int
	TimeoutSec    int

	HasCDText        bool // caller supplies (or session carries) CD-TEXT packs
	ForceSAO         bool // caller explicitly requested RAW/SAO rather than auto
	NextTrackDamaged bool // damaged-track repair eligibility (bit0)
	ForceRepair      bool // force finalize-damaged-track regardless of the bit above
}

// NewWriteOpts returns WriteOpts with libburn's documented defaults:
// auto write type, single-session close, no simulation, backpressure
// disabled.
func NewWriteOpts() *WriteOpts {
	return &WriteOpts{
		WriteType:      WriteNone,
		ObsPad:         true,
		BlockType:      BlockMode1,
		StdioFsyncSize: 0,
		MinUsec:        10000,
		MaxUsec:        1000000,
		MinPercent:     25,
		MaxPercent:     75,
		TimeoutSec:     0,
	}
}
