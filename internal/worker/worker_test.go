package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	pool := NewPool(2, 8, time.Second, zap.NewNop())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		ok := pool.Submit("job", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		require.True(t, ok)
	}

	pool.Stop()
	assert.Equal(t, int32(5), ran.Load())
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	pool := NewPool(1, 1, time.Second, zap.NewNop())
	defer pool.Stop()

	release := make(chan struct{})
	started := make(chan struct{})

	// Occupy the single worker, then fill the single queue slot.
	require.True(t, pool.Submit("blocking", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.True(t, pool.Submit("queued", func(ctx context.Context) error { return nil }))

	assert.False(t, pool.Submit("overflow", func(ctx context.Context) error { return nil }))
	close(release)
}

func TestPoolRecoversPanics(t *testing.T) {
	pool := NewPool(1, 1, time.Second, zap.NewNop())

	require.True(t, pool.Submit("panicking", func(ctx context.Context) error {
		panic("boom")
	}))

	var ranAfter atomic.Bool
	require.True(t, pool.Submit("after", func(ctx context.Context) error {
		ranAfter.Store(true)
		return nil
	}))

	pool.Stop()
	assert.True(t, ranAfter.Load())
}

func TestPoolRejectsAfterStop(t *testing.T) {
	pool := NewPool(1, 1, time.Second, zap.NewNop())
	pool.Stop()

	assert.False(t, pool.Submit("late", func(ctx context.Context) error { return nil }))

	// Stop is idempotent.
	pool.Stop()
}

func TestPoolJobTimeout(t *testing.T) {
	pool := NewPool(1, 1, 20*time.Millisecond, zap.NewNop())

	var got error
	require.True(t, pool.Submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		got = ctx.Err()
		return ctx.Err()
	}))

	pool.Stop()
	assert.True(t, errors.Is(got, context.DeadlineExceeded))
}
