package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned for tasks submitted to a closed queue.
var ErrClosed = errors.New("queue: closed")

// Queue serializes outbound requests to one upstream. A single worker drains
// tasks in FIFO order and waits a fixed gap after each task before
// dispatching the next, keeping free-tier per-minute quotas intact.
type Queue struct {
	name  string
	gap   time.Duration
	tasks chan *task

	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type task struct {
	run  func() error
	done chan error
}

// QueueOption configures Queue.
type QueueOption func(*Queue)

// New creates a queue with the given inter-dispatch gap and starts its worker.
func New(name string, gap time.Duration, opts ...QueueOption) *Queue {
	q := &Queue{
		name:  name,
		gap:   gap,
		tasks: make(chan *task, 64),
		quit:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	q.wg.Add(1)
	go q.worker()
	return q
}

// Do submits run and waits for it to complete. If ctx expires while the task
// is still queued or running, Do returns early with ctx.Err(); the task still
// executes in order and its result is discarded, matching the caller-gone
// semantics of an unmounted widget.
func (q *Queue) Do(ctx context.Context, run func() error) error {
	t := &task{run: run, done: make(chan error, 1)}

	select {
	case q.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.quit:
		return ErrClosed
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-q.quit:
		return ErrClosed
	}
}

// Len reports how many tasks are waiting (not counting a running one).
func (q *Queue) Len() int { return len(q.tasks) }

// Name returns the queue's upstream name.
func (q *Queue) Name() string { return q.name }

// Close stops the worker. Queued tasks that have not started are dropped.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.quit) })
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.quit:
			return
		case t := <-q.tasks:
			t.done <- t.run()

			if q.gap <= 0 {
				continue
			}
			select {
			case <-q.quit:
				return
			case <-time.After(q.gap):
			}
		}
	}
}
