package burn_test

import "io"

// fakeSource is a fixed-size in-memory source.Source used to build
// test tracks without touching the filesystem.
type fakeSource struct {
	data []byte
	pos  int
	size int64
	open bool // if true, Size reports (0, false): "unpredictable"
}

func newFakeSource(data []byte) *fakeSource {
	return &fakeSource{data: data, size: int64(len(data))}
}

func newOpenEndedSource(data []byte) *fakeSource {
	return &fakeSource{data: data, open: true}
}

func (s *fakeSource) Read(p []byte) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	if s.pos >= len(s.data) {
		return n, io.EOF
	}
	return n, nil
}

func (s *fakeSource) ReadSub(p []byte) (int, error) { return 0, io.EOF }

func (s *fakeSource) Size() (int64, bool) {
	if s.open {
		return 0, false
	}
	return s.size, true
}

func (s *fakeSource) SetSize(n int64) error {
	s.size = n
	s.open = false
	return nil
}

func (s *fakeSource) Cancel() error { return nil }
func (s *fakeSource) Close() error  { return nil }
