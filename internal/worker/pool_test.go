package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	ran     *atomic.Int32
	release chan struct{}
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	if j.release != nil {
		select {
		case <-j.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	j.ran.Add(1)
	return nil
}

func TestPool_RunsSubmittedJobs(t *testing.T) {
	pool := NewPool(1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(&countingJob{ran: &ran}))
	}

	require.Eventually(t, func() bool { return ran.Load() == 3 },
		time.Second, 5*time.Millisecond)

	pool.Stop()
}

func TestPool_SubmitRejectsWhenQueueFull(t *testing.T) {
	pool := NewPool(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	var ran atomic.Int32
	release := make(chan struct{})

	// First job occupies the worker, second fills the queue.
	require.NoError(t, pool.Submit(&countingJob{ran: &ran, release: release}))
	require.Eventually(t, func() bool { return pool.QueueSize() == 0 },
		time.Second, time.Millisecond)
	require.NoError(t, pool.Submit(&countingJob{ran: &ran, release: release}))

	err := pool.Submit(&countingJob{ran: &ran})
	assert.Error(t, err)

	close(release)
	require.Eventually(t, func() bool { return ran.Load() == 2 },
		time.Second, 5*time.Millisecond)

	pool.Stop()
}
