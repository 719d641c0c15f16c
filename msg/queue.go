package msg

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Queue is libburn's process-wide messenger (§4.6). It is safe for
// concurrent use: worker threads (§4.5) submit messages while the
// control thread drains them with Obtain.
type Queue struct {
	mu       sync.Mutex
	items    []*Message
	queueMin Severity // default NEVER: nothing is queued
	printMin Severity // default FATAL: only FATAL-and-worse is printed
	out      io.Writer
	prefix   string
	tsLayout string // strftime pattern, empty disables timestamps
}

// NewQueue builds a Queue with libburn's documented defaults.
func NewQueue() *Queue {
	return &Queue{
		queueMin: NEVER,
		printMin: FATAL,
		out:      os.Stderr,
		prefix:   "libburn: ",
	}
}

// SetQueueThreshold changes the minimum severity retained in the queue.
func (q *Queue) SetQueueThreshold(s Severity) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queueMin = s
}

// SetPrintThreshold changes the minimum severity echoed to Out.
func (q *Queue) SetPrintThreshold(s Severity) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.printMin = s
}

// SetPrefix changes the text prepended to every printed line.
func (q *Queue) SetPrefix(p string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prefix = p
}

// SetOutput redirects printed messages; tests use this to capture
// stderr output instead of polluting the real one.
func (q *Queue) SetOutput(w io.Writer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.out = w
}

// SetTimestampFormat enables a strftime-style timestamp prefix on
// printed (not queued) messages, e.g. "%Y-%m-%d %H:%M:%S ". An empty
// pattern disables timestamps, which is the default.
func (q *Queue) SetTimestampFormat(pattern string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if pattern != "" {
		if _, err := strftime.Format(pattern, time.Now()); err != nil {
			return fmt.Errorf("libburn: invalid timestamp format %q: %w", pattern, err)
		}
	}
	q.tsLayout = pattern
	return nil
}

// Submit queues a message (if it meets the queue threshold) and prints
// it (if it meets the print threshold). It always returns the message
// wrapped as an error, so call sites can `return q.Submit(...)`
// directly per §7's propagation rule ("a message is always queued
// first").
func (q *Queue) Submit(sev Severity, errorCode uint32, driveIndex int, text string) error {
	return q.SubmitErrno(sev, errorCode, driveIndex, 0, text)
}

// SubmitErrno is Submit plus an os-level errno, for transport-layer
// failures that want to preserve the underlying syscall error.
func (q *Queue) SubmitErrno(sev Severity, errorCode uint32, driveIndex int, errno int, text string) error {
	m := &Message{
		ErrorCode:   errorCode,
		Severity:    sev,
		OSErrno:     errno,
		Text:        text,
		DriveIndex:  driveIndex,
		GeneratedAt: time.Now(),
	}

	q.mu.Lock()
	if meetsThreshold(sev, q.queueMin) {
		q.items = append(q.items, m)
	}
	doPrint := meetsThreshold(sev, q.printMin)
	out := q.out
	prefix := q.prefix
	tsLayout := q.tsLayout
	q.mu.Unlock()

	if doPrint && out != nil {
		ts := ""
		if tsLayout != "" {
			if formatted, err := strftime.Format(tsLayout, m.GeneratedAt); err == nil {
				ts = formatted
			}
		}
		fmt.Fprintf(out, "%s%s%s\n", ts, prefix, m.Error())
	}

	return m
}

// Obtain pops the oldest queued message at least as severe as minSev,
// discarding (not returning) any older, less-severe messages in front
// of it — matching libburn's msgs_obtain contract (§4.6). It returns
// nil, false when no qualifying message remains.
func (q *Queue) Obtain(minSev Severity) (*Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) > 0 {
		m := q.items[0]
		q.items = q.items[1:]
		if meetsThreshold(m.Severity, minSev) {
			return m, true
		}
	}
	return nil, false
}

// Len reports the number of messages currently queued, for tests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns every queued message regardless of
// severity, oldest first.
func (q *Queue) Drain() []*Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
