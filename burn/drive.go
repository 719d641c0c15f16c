package burn

import (
	"fmt"
	"sync"

	"libburn/burn/transport"
)

// BusyState mirrors Drive.busy_status (§3): the operation currently
// occupying a drive's single worker slot.
type BusyState int

const (
	Idle BusyState = iota
	Spawning
	Reading
	Writing
	WritingLeadin
	WritingLeadout
	WritingPregap
	Erasing
	Formatting
	Grabbing
	ClosingTrack
	ClosingSession
	ReadingSync
	WritingSync
)

func (b BusyState) String() string {
	switch b {
	case Idle:
		return "IDLE"
	case Spawning:
		return "SPAWNING"
	case Reading:
		return "READING"
	case Writing:
		return "WRITING"
	case WritingLeadin:
		return "WRITING_LEADIN"
	case WritingLeadout:
		return "WRITING_LEADOUT"
	case WritingPregap:
		return "WRITING_PREGAP"
	case Erasing:
		return "ERASING"
	case Formatting:
		return "FORMATTING"
	case Grabbing:
		return "GRABBING"
	case ClosingTrack:
		return "CLOSING_TRACK"
	case ClosingSession:
		return "CLOSING_SESSION"
	case ReadingSync:
		return "READING_SYNC"
	case WritingSync:
		return "WRITING_SYNC"
	default:
		return fmt.Sprintf("BusyState(%d)", int(b))
	}
}

// Progress mirrors Drive.progress (§3): the snapshot returned by
// GetStatus. It is copied out under Drive.mu on every read so a
// concurrent reader never observes a torn update (§5 "Shared
// resources").
type Progress struct {
	Sessions, SessionsTotal int
	Tracks, TracksTotal     int
	Indices, IndicesTotal   int
	StartSector             int64
	Sectors                 int64 // total sectors in current track
	Sector                  int64 // sectors written so far in current track

	BufferCapacity int64
	BufferFill     int64
	BufferMinFill  int64
	BufferedBytes  int64
}

// SpeedDescriptor is one entry of a drive's reported write-speed list
// (§3 "speed descriptor list").
type SpeedDescriptor struct {
	WriteSpeedKBps int
	ProfileCode    int
}

// Drive mirrors struct burn_drive (§3), dispatching every media
// operation through the Transport capability interface (Design Notes
// §9) instead of a function-pointer table.
//
// A Drive's busy/cancel/progress/needs_sync_cache fields are written
// by at most one worker goroutine at a time and read concurrently by
// the control goroutine; mu guards exactly that snapshot, matching
// §5's "single-word stores, eventually consistent snapshot" model.
type Drive struct {
	GlobalIndex int // index into the Registry; -1 once freed

	Vendor, Product, Revision string

	Role    transport.Role
	Profile int // media profile code, e.g. 0x09 CD-R; 0xFFFF for stdio
	Status  transport.MediaStatus

	NWA  int64
	ALBA int64

	// BgFormatStatus is DVD+RW's background-format progress (0 =
	// blank/unformatted, 1 = formatting in progress, 2 = fully
	// formatted). writeDVDBD starts or resumes formatting whenever it
	// is 0 or 1 (§4.1 DVD/BD dispatch table, profile 0x1A "Setup").
	BgFormatStatus int

	Speeds []SpeedDescriptor

	// SupportedBlockTypes maps a write type to the bitwise-OR of
	// BlockType values the drive accepts for it (§3 "supported
	// block-types per write-type"). A write type absent from the map
	// means no restriction is known, so Precheck skips the check for
	// it rather than failing a drive that never reported one.
	SupportedBlockTypes map[WriteType]uint32

	Transport transport.Transport

	mu       sync.Mutex
	busy     BusyState
	cancel   bool
	progress Progress
	released bool
	forgot   bool // stdio drive abandoned after the abort patience window
}

// NewDrive wraps t as a fresh, released Drive with the given role.
// The caller is expected to place it into a Registry via AddDrive,
// which assigns GlobalIndex.
func NewDrive(role transport.Role, t transport.Transport) *Drive {
	return &Drive{GlobalIndex: -1, Role: role, Transport: t, released: true}
}

// Grab transitions the drive from released to owned (§4.5 "Grab /
// release"): it inquires the media via the transport and records
// profile/status/NWA. Cancellation is checked first so a pending
// abort request never starts a new grab.
func (d *Drive) Grab(aborting func() bool) error {
	if aborting != nil && aborting() {
		return fmt.Errorf("libburn: grab aborted")
	}
	d.setBusy(Grabbing)
	defer d.setBusy(Idle)

	profile, status, err := d.Transport.Grab()
	if err != nil {
		return fmt.Errorf("libburn: grab: %w", err)
	}
	d.mu.Lock()
	d.Profile = profile
	d.Status = status
	d.released = false
	d.mu.Unlock()

	nwa, err := d.Transport.GetNWA()
	if err == nil {
		d.mu.Lock()
		d.NWA = nwa
		d.mu.Unlock()
	}
	return nil
}

// Release syncs cache if dirty, optionally ejects, and releases
// (§4.5). MarkUnready additionally invalidates cached media state.
func (d *Drive) Release(eject bool) error {
	if err := d.Transport.Release(eject); err != nil {
		return fmt.Errorf("libburn: release: %w", err)
	}
	d.mu.Lock()
	d.released = true
	d.mu.Unlock()
	return nil
}

// MarkUnready invalidates cached media state, forcing the next Grab
// to re-inquire the drive.
func (d *Drive) MarkUnready() {
	d.mu.Lock()
	d.Status = transport.StatusUnready
	d.mu.Unlock()
}

// IsReleased reports whether the drive currently holds no grab.
func (d *Drive) IsReleased() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

func (d *Drive) setBusy(b BusyState) {
	d.mu.Lock()
	d.busy = b
	d.mu.Unlock()
}

// BusyState reports the drive's current operation.
func (d *Drive) BusyState() BusyState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Cancel flips the drive's cancel flag (§5 "Cancellation semantics").
// Workers check it at loop boundaries; the write happens without a
// fine-grained lock around just this field, matching the original's
// documented reasoning ("the write is atomic"), though Go's race
// detector wants the surrounding mutex regardless.
func (d *Drive) Cancel() {
	d.mu.Lock()
	d.cancel = true
	d.mu.Unlock()
}

// Cancelled reports whether Cancel has been called since WriteDisc
// last cleared the flag at the start of a write.
func (d *Drive) Cancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel
}

func (d *Drive) clearCancel() {
	d.mu.Lock()
	d.cancel = false
	d.mu.Unlock()
}

// GetStatus returns a copy of the drive's current busy state and
// progress snapshot (§4.5, §5): safe to call from the control
// goroutine while a worker is updating the original concurrently.
func (d *Drive) GetStatus() (BusyState, Progress) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy, d.progress
}

// WroteWell reports false if cancel was ever set during the most
// recent operation (§7 "User-visible behavior").
func (d *Drive) WroteWell() bool {
	return !d.Cancelled()
}

func (d *Drive) setProgress(fn func(*Progress)) {
	d.mu.Lock()
	fn(&d.progress)
	d.mu.Unlock()
}

// Registry is the process-wide drive table (§3 "Drive registry"): a
// slice of slots, pre-sized to DefaultRegistryCapacity and grown when
// full. Removing a drive empties its slot and sets its GlobalIndex to
// -1 rather than compacting the slice, so previously issued indices
// stay stable.
type Registry struct {
	mu        sync.Mutex
	slots     []*Drive
	whitelist []string // permissible device paths; empty = no filter
}

// DefaultRegistryCapacity is libburn's minimum documented registry
// size (§3: "≥ 255 slots").
const DefaultRegistryCapacity = 255

// NewRegistry builds an empty Registry with the default capacity.
func NewRegistry() *Registry {
	return &Registry{slots: make([]*Drive, 0, DefaultRegistryCapacity)}
}

// SetWhitelist restricts Scan enumeration to the given device paths.
// An empty whitelist disables filtering.
func (r *Registry) SetWhitelist(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.whitelist = append([]string(nil), paths...)
}

func (r *Registry) allowed(path string) bool {
	if len(r.whitelist) == 0 {
		return true
	}
	for _, p := range r.whitelist {
		if p == path {
			return true
		}
	}
	return false
}

// AddDrive inserts d at the first slot emptied by RemoveDrive,
// extending the registry if none is free, and returns the assigned
// index.
func (r *Registry) AddDrive(d *Drive) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.slots {
		if s == nil {
			r.slots[i] = d
			d.GlobalIndex = i
			return i
		}
	}
	r.slots = append(r.slots, d)
	d.GlobalIndex = len(r.slots) - 1
	return d.GlobalIndex
}

// RemoveDrive frees the slot at index, marking the drive's
// GlobalIndex -1 per the original's free-slot convention.
func (r *Registry) RemoveDrive(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.slots) || r.slots[index] == nil {
		return fmt.Errorf("libburn: no drive at registry index %d", index)
	}
	r.slots[index].GlobalIndex = -1
	r.slots[index] = nil
	return nil
}

// Drives returns every occupied slot, in index order.
func (r *Registry) Drives() []*Drive {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Drive, 0, len(r.slots))
	for _, s := range r.slots {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Scan enumerates candidate device paths via discover, filters them
// against the whitelist, opens each with open, and adds it to the
// registry (§4.5 "Scan"). The caller's
// discover/open callbacks stand in for the out-of-scope transport
// enumeration mechanism (Linux SG_IO, libcdio, etc. — §1).
func (r *Registry) Scan(discover func() ([]string, error), open func(path string) (transport.Transport, transport.Role, error)) ([]*Drive, error) {
	paths, err := discover()
	if err != nil {
		return nil, fmt.Errorf("libburn: scan: %w", err)
	}

	var added []*Drive
	for _, path := range paths {
		if !r.allowed(path) {
			continue
		}
		t, role, err := open(path)
		if err != nil {
			continue // unreadable candidate, skip (matches "for each new candidate opens...")
		}
		d := NewDrive(role, t)
		r.AddDrive(d)
		added = append(added, d)
	}
	return added, nil
}
