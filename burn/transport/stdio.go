package transport

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// StdioSectorSize is the sector size stdio pseudo-drives address in
// (§3: role 2..5 drives are addressed in CD/DVD sector units even
// though the backing object is an ordinary file or fd).
const StdioSectorSize = 2048

// StdioDrive is the stdio pseudo-drive transport (§3 drive_role
// 2..5; §4.1's stdio dispatch row). It addresses a regular file or
// block device by lseek+write/read, using fdatasync from
// golang.org/x/sys/unix for the "sync_cache" operation. Files are
// opened with plain os.OpenFile flags; the sequential write-only role
// writes at the current file position instead of at the lba offset.
type StdioDrive struct {
	Role Role
	Path string

	f         *os.File
	fd        int
	grabbed   bool
	nwa       atomic.Int64
	dirty     atomic.Bool
	fsyncSize int64 // not consulted: Write never forces an fsync

	mu sync.Mutex
}

var _ Transport = (*StdioDrive)(nil)

// NewStdioDrive opens path according to role: RoleStdioRO opens
// read-only; RoleStdioWOSeq and RoleStdioWORandom open write-only
// (creating the file if it is a regular path); RoleStdioRW opens
// read-write.
func NewStdioDrive(role Role, path string) (*StdioDrive, error) {
	var flags int
	switch role {
	case RoleStdioRO:
		flags = os.O_RDONLY
	case RoleStdioWOSeq, RoleStdioWORandom:
		flags = os.O_WRONLY | os.O_CREATE
	case RoleStdioRW:
		flags = os.O_RDWR | os.O_CREATE
	default:
		return nil, fmt.Errorf("libburn: role %d is not a stdio role", role)
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}
	return &StdioDrive{Role: role, Path: path, f: f, fd: int(f.Fd())}, nil
}

func (d *StdioDrive) Grab() (int, MediaStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grabbed = true
	status := StatusBlank
	if fi, err := d.f.Stat(); err == nil && fi.Size() > 0 {
		status = StatusAppendable
		d.nwa.Store(fi.Size() / StdioSectorSize)
	}
	return 0xFFFF, status, nil // 0xFFFF: libburn's stdio pseudo-drive profile code (§3)
}

func (d *StdioDrive) Release(eject bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.grabbed {
		return nil
	}
	if d.dirty.Load() {
		if err := d.syncCacheLocked(); err != nil {
			return err
		}
	}
	d.grabbed = false
	return nil
}

func (d *StdioDrive) GetNWA() (int64, error) {
	if !d.grabbed {
		return 0, ErrNotGrabbed
	}
	return d.nwa.Load(), nil
}

func (d *StdioDrive) Write(lba int64, data []byte) error {
	if !d.grabbed {
		return ErrNotGrabbed
	}
	if d.Role == RoleStdioRO {
		return ErrReadOnly
	}
	offset := lba * StdioSectorSize
	if d.Role == RoleStdioWOSeq {
		if _, err := d.f.Write(data); err != nil {
			return err
		}
	} else {
		if _, err := d.f.WriteAt(data, offset); err != nil {
			return err
		}
	}
	d.dirty.Store(true)
	nextNWA := lba + int64(len(data))/StdioSectorSize
	if nextNWA > d.nwa.Load() {
		d.nwa.Store(nextNWA)
	}
	return nil
}

func (d *StdioDrive) Read(lba int64, n int) ([]byte, error) {
	if !d.grabbed {
		return nil, ErrNotGrabbed
	}
	buf := make([]byte, n)
	offset := lba * StdioSectorSize
	read, err := d.f.ReadAt(buf, offset)
	if err != nil && read == 0 {
		return nil, err
	}
	return buf[:read], nil
}

// SendCueSheet is a no-op for stdio drives: the MMC SEND CUE SHEET
// command has no stdio analogue (§4.1's stdio row has no SAO setup
// entry).
func (d *StdioDrive) SendCueSheet(sheet []byte) error { return nil }

func (d *StdioDrive) ReserveTrack(size int64) error { return nil }

func (d *StdioDrive) CloseTrack(trackNo int, isLast bool) error { return nil }

func (d *StdioDrive) CloseSession(mode CloseSessionMode) error {
	return d.SyncCache()
}

func (d *StdioDrive) FormatUnit(atLeastBytes int64) error {
	if d.Role == RoleStdioRO {
		return ErrReadOnly
	}
	return nil
}

// SyncCache fdatasyncs the underlying fd, matching §4.1's "final
// fsync" stdio row. Besides CloseSession and a Release of a dirty
// drive, which both sync through it, nothing syncs: there is no
// periodic fsync every N bytes written.
func (d *StdioDrive) SyncCache() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syncCacheLocked()
}

func (d *StdioDrive) syncCacheLocked() error {
	if d.Role == RoleStdioRO {
		return nil
	}
	if err := unix.Fdatasync(d.fd); err != nil {
		return fmt.Errorf("libburn: stdio sync_cache: %w", err)
	}
	d.dirty.Store(false)
	return nil
}

// ReadBufferCapacity reports a synthetic, always-empty buffer: stdio
// pseudo-drives have no onboard write cache to poll, so the write
// engine's backpressure loop (§4.1) is effectively disabled for them.
func (d *StdioDrive) ReadBufferCapacity() (capacity, free int64, err error) {
	return 0, 0, nil
}

func (d *StdioDrive) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
