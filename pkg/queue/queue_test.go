package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFOAndSpacing(t *testing.T) {
	const gap = 25 * time.Millisecond

	q := New("test", gap)
	defer q.Close()

	var mu sync.Mutex
	var order []int
	var starts []time.Time

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			// stagger submissions so enqueue order is deterministic
			time.Sleep(time.Duration(i) * 2 * time.Millisecond)
			err := q.Do(context.Background(), func() error {
				mu.Lock()
				order = append(order, i)
				starts = append(starts, time.Now())
				mu.Unlock()
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, []int{0, 1, 2, 3}, order)
	for i := 1; i < len(starts); i++ {
		elapsed := starts[i].Sub(starts[i-1])
		require.GreaterOrEqual(t, elapsed, gap, "dispatch %d too close to %d", i, i-1)
	}
}

func TestQueueCallerGoneStillRuns(t *testing.T) {
	q := New("test", 10*time.Millisecond)
	defer q.Close()

	block := make(chan struct{})
	ran := make(chan struct{})

	go func() {
		_ = q.Do(context.Background(), func() error {
			<-block
			return nil
		})
	}()
	// make sure the blocking task is the one running
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Do(ctx, func() error {
			close(ran)
			return nil
		})
	}()

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// the abandoned task still executes once the worker reaches it
	close(block)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued task never ran after caller gave up")
	}
}

func TestQueueClosed(t *testing.T) {
	q := New("test", 0)
	q.Close()

	err := q.Do(context.Background(), func() error { return nil })
	require.ErrorIs(t, err, ErrClosed)
}
