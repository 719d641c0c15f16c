package source

import (
	"fmt"
	"io"
	"sync"
)

// chainState is shared by every OffsetSource layered over the same
// inner stream, so that "first call reads from predecessor's current
// position to start, discarding" (§4.2) has a single source of truth
// for how many bytes of inner have been consumed so far, regardless
// of which offset source in the chain is driving the reads.
type chainState struct {
	mu       sync.Mutex
	inner    Source
	consumed int64
}

func (c *chainState) discardTo(target int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumed >= target {
		return nil
	}
	buf := make([]byte, 32*1024)
	for c.consumed < target {
		want := target - c.consumed
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}
		n, err := c.inner.Read(buf[:want])
		c.consumed += int64(n)
		if err != nil && err != io.EOF {
			return err
		}
		if err == io.EOF {
			if c.consumed < target {
				return io.ErrUnexpectedEOF
			}
			break
		}
	}
	return nil
}

func (c *chainState) read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.inner.Read(p)
	c.consumed += int64(n)
	return n, err
}

// OffsetSource exposes bytes [start, start+size) of a shared inner
// stream (§3 "burn_source offset"). Neighbours in the same chain share
// a *chainState so sequential reads line up regardless of read order.
type OffsetSource struct {
	mu          sync.Mutex
	chain       *chainState
	prev        *OffsetSource
	start       int64
	deliverSize int64 // bound actually enforced on Read
	reportSize  int64 // bound returned by Size()
	adjustable  bool
	started     bool
	delivered   int64
	canceled    bool
	closed      bool
}

var _ Source = (*OffsetSource)(nil)

// NewOffsetSource creates the first offset source over inner.
func NewOffsetSource(inner Source, start, size int64, adjustable bool) (*OffsetSource, error) {
	return newOffsetSource(&chainState{inner: inner}, nil, start, size, adjustable)
}

// NewChildOffsetSource creates an offset source chained after prev,
// sharing prev's inner stream. The constructor rejects overlapping
// intervals: prev.start+prev.size must not exceed start.
func NewChildOffsetSource(prev *OffsetSource, start, size int64, adjustable bool) (*OffsetSource, error) {
	if prev.start+prev.reportSize > start {
		return nil, fmt.Errorf("libburn: offset source chain overlap: predecessor ends at %d, new source starts at %d",
			prev.start+prev.reportSize, start)
	}
	return newOffsetSource(prev.chain, prev, start, size, adjustable)
}

func newOffsetSource(chain *chainState, prev *OffsetSource, start, size int64, adjustable bool) (*OffsetSource, error) {
	if start < 0 || size < 0 {
		return nil, fmt.Errorf("libburn: offset source start/size must be non-negative")
	}
	return &OffsetSource{
		chain:       chain,
		prev:        prev,
		start:       start,
		deliverSize: size,
		reportSize:  size,
		adjustable:  adjustable,
	}, nil
}

func (s *OffsetSource) ensureStarted() error {
	s.mu.Lock()
	started := s.started
	s.started = true
	start := s.start
	s.mu.Unlock()
	if started {
		return nil
	}
	return s.chain.discardTo(start)
}

func (s *OffsetSource) Read(p []byte) (int, error) {
	if err := s.ensureStarted(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	if s.canceled {
		s.mu.Unlock()
		return 0, io.EOF
	}
	remaining := s.deliverSize - s.delivered
	s.mu.Unlock()

	if remaining <= 0 {
		return 0, io.EOF
	}
	want := int64(len(p))
	if want > remaining {
		want = remaining
	}

	n, err := s.chain.read(p[:want])

	s.mu.Lock()
	s.delivered += int64(n)
	done := s.delivered >= s.deliverSize
	s.mu.Unlock()

	if err == nil && done {
		err = io.EOF
	}
	return n, err
}

func (s *OffsetSource) ReadSub(p []byte) (int, error) {
	return 0, ErrNoSubchannel
}

func (s *OffsetSource) Size() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportSize, true
}

// SetSize changes the reported size always; it additionally changes
// the enforced delivery bound only when the source was constructed
// with adjustable=true (§4.2).
func (s *OffsetSource) SetSize(n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportSize = n
	if s.adjustable {
		s.deliverSize = n
	}
	return nil
}

func (s *OffsetSource) Cancel() error {
	s.mu.Lock()
	s.canceled = true
	s.mu.Unlock()
	return nil
}

func (s *OffsetSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
