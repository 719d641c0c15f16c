package transport

// NullDrive is drive_role 0 (§3): no media access at all. Every media
// operation fails with ErrNotGrabbed; Release, SyncCache,
// ReadBufferCapacity (reporting no buffer) and Close succeed as
// no-ops. It stands for a drive slot that exists in the registry but
// has never been associated with a real or stdio backend.
type NullDrive struct{}

var _ Transport = NullDrive{}

func (NullDrive) Grab() (int, MediaStatus, error)    { return 0, StatusUnready, ErrNotGrabbed }
func (NullDrive) Release(eject bool) error           { return nil }
func (NullDrive) GetNWA() (int64, error)              { return 0, ErrNotGrabbed }
func (NullDrive) Write(lba int64, data []byte) error { return ErrNotGrabbed }
func (NullDrive) Read(lba int64, n int) ([]byte, error) {
	return nil, ErrNotGrabbed
}
func (NullDrive) SendCueSheet(sheet []byte) error               { return ErrNotGrabbed }
func (NullDrive) ReserveTrack(size int64) error                 { return ErrNotGrabbed }
func (NullDrive) CloseTrack(trackNo int, isLast bool) error     { return ErrNotGrabbed }
func (NullDrive) CloseSession(mode CloseSessionMode) error      { return ErrNotGrabbed }
func (NullDrive) FormatUnit(atLeastBytes int64) error           { return ErrNotGrabbed }
func (NullDrive) SyncCache() error                              { return nil }
func (NullDrive) ReadBufferCapacity() (int64, int64, error)     { return 0, 0, nil }
func (NullDrive) Close() error                                  { return nil }
