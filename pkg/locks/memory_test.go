package locks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	t.Parallel()

	locker := NewMemoryLocker()

	const workers = 20

	var (
		wg      sync.WaitGroup
		counter int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			release, err := locker.Acquire(t.Context(), "inst-1")
			require.NoError(t, err)
			defer release()

			// Non-atomic increment: only safe if the lock serializes us.
			current := counter
			time.Sleep(time.Millisecond)
			counter = current + 1
		}()
	}

	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestMemoryLocker_IndependentKeys(t *testing.T) {
	t.Parallel()

	locker := NewMemoryLocker()

	releaseA, err := locker.Acquire(t.Context(), "inst-a")
	require.NoError(t, err)

	// A held lock on another key must not block this one.
	done := make(chan struct{})

	go func() {
		releaseB, err := locker.Acquire(context.Background(), "inst-b")
		assert.NoError(t, err)
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on inst-b blocked by lock on inst-a")
	}

	releaseA()
}

func TestMemoryLocker_ContextCancellation(t *testing.T) {
	t.Parallel()

	locker := NewMemoryLocker()

	release, err := locker.Acquire(t.Context(), "inst-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err = locker.Acquire(ctx, "inst-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryLocker_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	locker := NewMemoryLocker()

	release, err := locker.Acquire(t.Context(), "inst-1")
	require.NoError(t, err)

	release()
	release() // second call is a no-op

	again, err := locker.Acquire(t.Context(), "inst-1")
	require.NoError(t, err)
	again()
}
