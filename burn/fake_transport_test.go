package burn_test

import (
	"sync"

	"libburn/burn/transport"
)

// fakeTransport is an in-memory Transport double used across this
// package's tests, standing in for the out-of-scope real MMC/stdio
// collaborators.
type fakeTransport struct {
	mu sync.Mutex

	profile int
	status  transport.MediaStatus
	nwa     int64

	sectors map[int64][]byte

	closedTracks   []int
	closedSessions []transport.CloseSessionMode
	reservedSizes  []int64
	cueSheets      [][]byte
	formatCalls    []int64

	bufCapacity, bufFree int64

	grabErr, writeErr error
}

var _ transport.Transport = (*fakeTransport)(nil)

func newFakeTransport(profile int, status transport.MediaStatus) *fakeTransport {
	return &fakeTransport{profile: profile, status: status, sectors: map[int64][]byte{}}
}

func (f *fakeTransport) Grab() (int, transport.MediaStatus, error) {
	if f.grabErr != nil {
		return 0, transport.StatusUnready, f.grabErr
	}
	return f.profile, f.status, nil
}

func (f *fakeTransport) Release(eject bool) error { return nil }

func (f *fakeTransport) GetNWA() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nwa, nil
}

func (f *fakeTransport) Write(lba int64, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	f.sectors[lba] = cp
	return nil
}

func (f *fakeTransport) Read(lba int64, n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.sectors[lba]
	if !ok {
		return make([]byte, n), nil
	}
	return data, nil
}

func (f *fakeTransport) SendCueSheet(sheet []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cueSheets = append(f.cueSheets, sheet)
	return nil
}

func (f *fakeTransport) ReserveTrack(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reservedSizes = append(f.reservedSizes, size)
	return nil
}

func (f *fakeTransport) CloseTrack(trackNo int, isLast bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closedTracks = append(f.closedTracks, trackNo)
	return nil
}

func (f *fakeTransport) CloseSession(mode transport.CloseSessionMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closedSessions = append(f.closedSessions, mode)
	return nil
}

func (f *fakeTransport) FormatUnit(atLeastBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.formatCalls = append(f.formatCalls, atLeastBytes)
	return nil
}

func (f *fakeTransport) SyncCache() error { return nil }

func (f *fakeTransport) ReadBufferCapacity() (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bufCapacity, f.bufFree, nil
}

func (f *fakeTransport) Close() error { return nil }
