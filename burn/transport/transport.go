// Package transport defines the capability interface the write engine
// programs against in place of direct SCSI command dispatch (§1's
// out-of-scope "SCSI transport adapter"; Design Notes §9's
// "function-pointer dispatch table on the drive"), plus the in-scope
// stdio pseudo-drive implementation of it (§3 drive_role 2..5).
package transport

import "errors"

// Role mirrors Drive.drive_role (§3): which kind of collaborator
// backs a drive.
type Role int

const (
	RoleNull            Role = iota // no media access at all
	RoleMMC                         // real SCSI/MMC drive
	RoleStdioRW                     // stdio, random-access read/write (regular file, block device)
	RoleStdioWOSeq                  // stdio, sequential write-only (e.g. a pipe)
	RoleStdioRO                     // stdio, read-only (opt-in)
	RoleStdioWORandom               // stdio, random-access write-only
)

// MediaStatus mirrors Drive.status (§3).
type MediaStatus int

const (
	StatusUnready MediaStatus = iota
	StatusBlank
	StatusEmpty
	StatusAppendable
	StatusFull
	StatusUngrabbed
	StatusUnsuitable
)

// CloseSessionMode encodes the 3-bit close_session argument used by
// the DVD+R/BD-R profile rows of §4.1's dispatch table.
type CloseSessionMode int

const (
	CloseSessionNone     CloseSessionMode = 0b000
	CloseSessionContinue CloseSessionMode = 0b010
	CloseSessionMinimal  CloseSessionMode = 0b101
	CloseSessionFinalize CloseSessionMode = 0b110
)

var (
	ErrNotGrabbed   = errors.New("libburn: drive not grabbed")
	ErrReadOnly     = errors.New("libburn: transport is read-only")
	ErrNWARegressed = errors.New("libburn: drive reports NWA smaller than last written address")
)

// Transport is the capability interface a Drive dispatches through
// (Design Notes §9): every named operation the write engine invokes on
// "the SCSI transport adapter" (§1), implemented here by the stdio
// pseudo-drive and, in principle, by a real MMC backend living outside
// this module's scope.
type Transport interface {
	// Grab transitions the drive from released to owned: starts the
	// unit, inquires media, returns the detected profile and status.
	Grab() (profile int, status MediaStatus, err error)
	// Release syncs cache if dirty, optionally ejects, and releases.
	Release(eject bool) error

	// GetNWA returns the drive's next-writable-address in sectors.
	GetNWA() (int64, error)
	// Write issues one drive write of sector-aligned data at lba.
	Write(lba int64, data []byte) error
	// Read reads n bytes starting at lba.
	Read(lba int64, n int) ([]byte, error)

	// SendCueSheet transmits the cue sheet for a SAO write.
	SendCueSheet(sheet []byte) error
	// ReserveTrack pre-allocates size bytes for the next track (DVD/BD SAO).
	ReserveTrack(size int64) error
	// CloseTrack closes the numbered track; isLast marks the session's final track.
	CloseTrack(trackNo int, isLast bool) error
	// CloseSession finalizes the current session per mode.
	CloseSession(mode CloseSessionMode) error
	// FormatUnit issues a format/quick-grow operation (DVD-RW RO).
	FormatUnit(atLeastBytes int64) error
	// SyncCache flushes the drive's write cache.
	SyncCache() error

	// ReadBufferCapacity reports total and free drive buffer bytes,
	// for §4.1's buffer backpressure loop.
	ReadBufferCapacity() (capacity, free int64, err error)

	// Close releases any OS resources (fds) held by the transport.
	Close() error
}
