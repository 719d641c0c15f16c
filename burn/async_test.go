package burn_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libburn/burn"
	"libburn/burn/transport"
)

func TestPoolAddWorkerRunsAndRemoves(t *testing.T) {
	p := burn.NewPool()
	d := burn.NewDrive(transport.RoleNull, transport.NullDrive{})

	started := make(chan struct{})
	release := make(chan struct{})
	w, err := p.AddWorker(burn.WorkerWrite, d, func() error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)

	<-started
	assert.Len(t, p.Active(), 1)
	close(release)
	require.NoError(t, w.Wait())
	assert.Len(t, p.Active(), 0)
}

func TestPoolRejectsSecondWorkerOnSameDrive(t *testing.T) {
	p := burn.NewPool()
	d := burn.NewDrive(transport.RoleNull, transport.NullDrive{})

	release := make(chan struct{})
	w, err := p.AddWorker(burn.WorkerWrite, d, func() error { <-release; return nil })
	require.NoError(t, err)

	_, err = p.AddWorker(burn.WorkerErase, d, func() error { return nil })
	assert.ErrorIs(t, err, burn.ErrDriveBusy)

	close(release)
	w.Wait()
}

func TestPoolScanExclusion(t *testing.T) {
	p := burn.NewPool()
	release := make(chan struct{})
	w, err := p.AddWorker(burn.WorkerScan, nil, func() error { <-release; return nil })
	require.NoError(t, err)

	d := burn.NewDrive(transport.RoleNull, transport.NullDrive{})
	_, err = p.AddWorker(burn.WorkerWrite, d, func() error { return nil })
	assert.ErrorIs(t, err, burn.ErrScanGoing)

	close(release)
	w.Wait()
}

func TestPoolWorkerWaitReturnsError(t *testing.T) {
	p := burn.NewPool()
	d := burn.NewDrive(transport.RoleNull, transport.NullDrive{})
	w, err := p.AddWorker(burn.WorkerErase, d, func() error { return assert.AnError })
	require.NoError(t, err)
	assert.ErrorIs(t, w.Wait(), assert.AnError)
}

func TestPoolAbortCancelsBusyDrivesAndReturnsPromptly(t *testing.T) {
	p := burn.NewPool()
	d := burn.NewDrive(transport.RoleMMC, newFakeTransport(0x09, transport.StatusBlank))

	done := make(chan struct{})
	_, err := p.AddWorker(burn.WorkerWrite, d, func() error {
		for !d.Cancelled() {
			time.Sleep(time.Millisecond)
		}
		close(done)
		return nil
	})
	require.NoError(t, err)

	start := time.Now()
	p.Abort([]*burn.Drive{d}, 2*time.Second, nil)
	elapsed := time.Since(start)
	assert.Less(t, elapsed, 4*time.Second, "abort must terminate in bounded time (§8 invariant 10)")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker never observed cancellation")
	}
}
