package libburn_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libburn"
	"libburn/msg"
)

func TestInitDefaults(t *testing.T) {
	l := libburn.Init()
	require.NotNil(t, l.Messages)
	require.NotNil(t, l.Drives)
	require.NotNil(t, l.Workers)
	assert.Empty(t, l.Drives.Drives())
}

func TestInitAppliesOptions(t *testing.T) {
	l := libburn.Init(
		libburn.WithWhitelist("/dev/sr0"),
		libburn.WithQueueThreshold(msg.ALL),
		libburn.WithPrintThreshold(msg.NEVER),
		libburn.WithAbortPatience(5*time.Second),
	)

	l.Messages.Submit(msg.NOTE, 0, -1, "queued because threshold is ALL")
	m, ok := l.Messages.Obtain(msg.ALL)
	require.True(t, ok)
	assert.Equal(t, "queued because threshold is ALL", m.Text)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "libburn.yaml")
	contents := `
whitelist:
  - /dev/sr0
  - /dev/sr1
queue_min_severity: NOTE
print_min_severity: FATAL
abort_patience: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	opts, err := libburn.LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, opts, 4)

	l := libburn.Init(opts...)
	l.Messages.Submit(msg.NOTE, 0, -1, "present at NOTE threshold")
	_, ok := l.Messages.Obtain(msg.ALL)
	assert.True(t, ok)
}

func TestLoadConfigRejectsUnknownSeverity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "libburn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue_min_severity: BOGUS\n"), 0o644))

	_, err := libburn.LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := libburn.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestShutdownReturnsWithEmptyRegistry(t *testing.T) {
	l := libburn.Init(libburn.WithAbortPatience(time.Second))

	discover := func() ([]string, error) { return nil, nil }
	_, err := l.Drives.Scan(discover, nil)
	require.NoError(t, err)

	// Shutdown with no registered drives must return promptly and
	// never panic on an empty registry.
	done := make(chan struct{})
	go func() {
		l.Shutdown(nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return")
	}
}
