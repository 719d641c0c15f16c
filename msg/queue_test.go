package msg_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libburn/msg"
)

func TestQueueDefaultsNothingQueued(t *testing.T) {
	q := msg.NewQueue()
	_ = q.Submit(msg.HINT, 0, -1, "just a hint")
	assert.Equal(t, 0, q.Len(), "default queue threshold is NEVER, nothing should be retained")
}

func TestQueueThresholdsGateIndependently(t *testing.T) {
	q := msg.NewQueue()
	var buf bytes.Buffer
	q.SetOutput(&buf)
	q.SetQueueThreshold(msg.ALL)
	q.SetPrintThreshold(msg.FATAL)

	_ = q.Submit(msg.NOTE, 1, -1, "quiet note")
	_ = q.Submit(msg.FATAL, 2, 3, "drive exploded")

	require.Equal(t, 2, q.Len(), "ALL threshold retains everything")
	assert.Contains(t, buf.String(), "drive exploded")
	assert.NotContains(t, buf.String(), "quiet note")
}

func TestObtainDiscardsOlderLessSevere(t *testing.T) {
	q := msg.NewQueue()
	q.SetQueueThreshold(msg.ALL)

	_ = q.Submit(msg.NOTE, 1, -1, "first, quiet")
	_ = q.Submit(msg.DEBUG, 2, -1, "second, quieter")
	_ = q.Submit(msg.FATAL, 3, -1, "third, loud")
	_ = q.Submit(msg.NOTE, 4, -1, "fourth, quiet again")

	m, ok := q.Obtain(msg.FATAL)
	require.True(t, ok)
	assert.Equal(t, uint32(3), m.ErrorCode, "Obtain should skip the quieter messages ahead of the fatal one")

	// the messages behind the fatal one in the queue are untouched
	m2, ok := q.Obtain(msg.ALL)
	require.True(t, ok)
	assert.Equal(t, uint32(4), m2.ErrorCode)
}

func TestSeverityStringRoundTrip(t *testing.T) {
	for _, s := range []msg.Severity{msg.NEVER, msg.ABORT, msg.FATAL, msg.FAILURE, msg.SORRY,
		msg.WARNING, msg.HINT, msg.NOTE, msg.UPDATE, msg.DEBUG, msg.ALL} {
		parsed, ok := msg.ParseSeverity(s.String())
		require.True(t, ok, s.String())
		assert.Equal(t, s, parsed)
	}
}

func TestSubmitIsAnErrorWithSubstringSelectableText(t *testing.T) {
	q := msg.NewQueue()
	err := q.Submit(msg.FAILURE, 42, 0, "no writeable media")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no writeable media"))
}
