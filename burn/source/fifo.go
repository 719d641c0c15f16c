package source

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const fifoPollInterval = 50 * time.Millisecond

// maxFifoBytes rejects absurdly large ring allocations (§4.2: "rejected
// if > 1 GiB or chunks < 2").
const maxFifoBytes = 1 << 30

// FifoStats reports the ring's running statistics (§3 Drive.progress
// buffer fields, reused here at the source level), useful for the
// write engine's buffer backpressure accounting and for tests
// asserting smoothing behavior (§8 S6).
type FifoStats struct {
	InCounter    int64 // bytes read from the inner source so far
	PutCounter   int64 // number of producer write operations
	EmptyCounter int64 // number of consumer reads that had to wait
	FullCounter  int64 // number of producer writes that had to wait
	MinFill      int64 // smallest observed occupied-byte count
}

// FifoSource is a ring-buffered producer/consumer handoff between a
// worker goroutine reading an inner source and the write engine
// consuming it (§4.2 "Fifo source"; §9 on the fifo/source ownership
// cycle). It is lazily started on first Read.
type FifoSource struct {
	inp        Source
	chunkSize  int
	chunks     int
	capacity   int64
	ring       []byte
	readReadSz int

	writePos atomic.Int64 // only the worker goroutine writes this
	readPos  atomic.Int64 // only the consumer writes this

	inCounter    atomic.Int64
	putCounter   atomic.Int64
	emptyCounter atomic.Int64
	fullCounter  atomic.Int64
	minFill      atomic.Int64

	endOfInput       atomic.Bool
	endOfConsumption atomic.Bool
	canceled         atomic.Bool

	startOnce  sync.Once
	started    atomic.Bool
	workerDone chan struct{}

	mu       sync.Mutex
	inputErr error
}

var _ Source = (*FifoSource)(nil)

// NewFifoSource allocates a chunkSize*chunks ring buffer over inp.
// inp_read_size defaults to chunkSize, matching the spec's shoveller
// loop reading one chunk at a time.
func NewFifoSource(inp Source, chunkSize, chunks int) (*FifoSource, error) {
	if chunks < 2 {
		return nil, fmt.Errorf("libburn: fifo needs at least 2 chunks, got %d", chunks)
	}
	total := int64(chunkSize) * int64(chunks)
	if total > maxFifoBytes {
		return nil, fmt.Errorf("libburn: fifo buffer %d bytes exceeds 1 GiB limit", total)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("libburn: fifo chunk size must be positive")
	}
	f := &FifoSource{
		inp:        inp,
		chunkSize:  chunkSize,
		chunks:     chunks,
		capacity:   total,
		ring:       make([]byte, total),
		readReadSz: chunkSize,
		workerDone: make(chan struct{}),
	}
	f.minFill.Store(0)
	return f, nil
}

// Stats returns a snapshot of the ring's running counters.
func (f *FifoSource) Stats() FifoStats {
	return FifoStats{
		InCounter:    f.inCounter.Load(),
		PutCounter:   f.putCounter.Load(),
		EmptyCounter: f.emptyCounter.Load(),
		FullCounter:  f.fullCounter.Load(),
		MinFill:      f.minFill.Load(),
	}
}

func (f *FifoSource) start() {
	f.startOnce.Do(func() {
		f.started.Store(true)
		go f.shovel()
	})
}

// shovel is the worker goroutine's loop (§4.2 "Worker runs the
// shoveller loop").
func (f *FifoSource) shovel() {
	defer close(f.workerDone)
	scratch := make([]byte, f.readReadSz)

	for {
		if f.endOfConsumption.Load() || f.canceled.Load() {
			return
		}

		occupied := f.writePos.Load() - f.readPos.Load()
		free := f.capacity - occupied - 1 // one sentinel slot
		if free < int64(f.readReadSz) {
			f.fullCounter.Add(1)
			time.Sleep(fifoPollInterval)
			continue
		}

		n, err := f.inp.Read(scratch)
		if n > 0 {
			f.writeIntoRing(scratch[:n])
			f.inCounter.Add(int64(n))
			f.putCounter.Add(1)
			f.updateMinFill()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				f.endOfInput.Store(true)
			} else {
				f.mu.Lock()
				f.inputErr = err
				f.mu.Unlock()
			}
			return
		}
	}
}

// writeIntoRing copies data into the ring at the current write
// cursor, splitting into two memcpys when the write straddles the end
// of the ring (§4.2: "allocate a linear scratch chunk, read into it,
// then memcpy in two halves into the ring" — scratch is the caller's
// read buffer here).
func (f *FifoSource) writeIntoRing(data []byte) {
	pos := f.writePos.Load()
	idx := pos % f.capacity
	n := int64(len(data))
	if idx+n <= f.capacity {
		copy(f.ring[idx:idx+n], data)
	} else {
		first := f.capacity - idx
		copy(f.ring[idx:], data[:first])
		copy(f.ring[0:], data[first:])
	}
	f.writePos.Store(pos + n)
}

func (f *FifoSource) updateMinFill() {
	occupied := f.writePos.Load() - f.readPos.Load()
	for {
		cur := f.minFill.Load()
		// MinFill starts at zero and should track the smallest
		// occupied level *after* the buffer has actually been primed;
		// treat the very first observation as the baseline.
		if f.putCounter.Load() == 1 || occupied < cur {
			if f.minFill.CompareAndSwap(cur, occupied) {
				return
			}
			continue
		}
		return
	}
}

// readOnce is the low-level "fifo_read" primitive from §4.2: it
// starts the worker if needed, busy-waits on data availability, then
// delivers up to min(len(p), contiguous run, available) bytes. It may
// return fewer bytes than len(p) even mid-stream; FifoSource.Read
// loops it into the full-buffer Source contract.
func (f *FifoSource) readOnce(p []byte) (int, error) {
	f.start()

	slept := false
	for {
		wp := f.writePos.Load()
		rp := f.readPos.Load()
		if wp != rp {
			break
		}
		if f.endOfInput.Load() {
			return 0, io.EOF
		}
		f.mu.Lock()
		ierr := f.inputErr
		f.mu.Unlock()
		if ierr != nil {
			return 0, ierr
		}
		slept = true
		time.Sleep(fifoPollInterval)
	}
	if slept {
		f.emptyCounter.Add(1)
	}

	wp := f.writePos.Load()
	rp := f.readPos.Load()
	available := wp - rp
	idx := rp % f.capacity
	contiguous := f.capacity - idx

	want := int64(len(p))
	if want > available {
		want = available
	}
	if want > contiguous {
		want = contiguous
	}

	copy(p[:want], f.ring[idx:idx+want])
	f.readPos.Store(rp + want)
	return int(want), nil
}

// Read loops readOnce to satisfy libburn's general full-buffer Source
// contract (§4.2 documents the underlying fifo_read as short-read
// capable; Source.Read does not allow mid-stream short reads).
func (f *FifoSource) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := f.readOnce(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.EOF
		}
	}
	return total, nil
}

func (f *FifoSource) ReadSub(p []byte) (int, error) {
	return 0, ErrNoSubchannel
}

func (f *FifoSource) Size() (int64, bool) {
	return f.inp.Size()
}

func (f *FifoSource) SetSize(n int64) error {
	return f.inp.SetSize(n)
}

// Cancel implements the consumer side of cancellation (§5): it sets
// end_of_consumption so the worker exits at its next loop boundary.
func (f *FifoSource) Cancel() error {
	f.endOfConsumption.Store(true)
	return nil
}

// Abort is the "last resort" cancellation described in §4.2/§5: it
// marks the fifo canceled so the worker exits promptly even mid-sleep
// on its next wake, and waits for it to actually stop.
func (f *FifoSource) Abort() {
	f.canceled.Store(true)
	f.endOfConsumption.Store(true)
	if f.started.Load() {
		<-f.workerDone
	}
}

func (f *FifoSource) Close() error {
	f.Cancel()
	return f.inp.Close()
}
