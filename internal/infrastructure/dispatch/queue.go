// Package dispatch provides a bounded, rate-limited queue for outbound
// best-effort deliveries (review requests, role pings). Deliveries that
// fail are logged and dropped; the workflow never depends on them.
package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Queue paces delivery tasks across a fixed worker pool. It is an
// injected component: construct one per process and pass it where
// outbound sends happen.
type Queue struct {
	tasks    chan task
	workers  int
	interval time.Duration
	logger   zerolog.Logger
}

// NewQueue creates a queue holding at most size pending tasks, drained
// by workers goroutines that each wait interval between sends.
func NewQueue(size, workers int, interval time.Duration, logger zerolog.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		tasks:    make(chan task, size),
		workers:  workers,
		interval: interval,
		logger:   logger.With().Str("component", "dispatch").Logger(),
	}
}

// Enqueue adds a delivery without blocking. When the queue is full the
// task is dropped and logged; callers treat a false return as a lost
// best-effort send, not an error.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	select {
	case q.tasks <- task{name: name, fn: fn}:
		return true
	default:
		q.logger.Warn().Str("task", name).Msg("dispatch queue full; dropping delivery")
		return false
	}
}

// Run drains the queue until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	done := make(chan struct{})
	for i := 0; i < q.workers; i++ {
		go q.worker(ctx, done)
	}
	<-ctx.Done()
	close(done)
	return ctx.Err()
}

func (q *Queue) worker(ctx context.Context, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case t := <-q.tasks:
			if err := t.fn(ctx); err != nil {
				q.logger.Warn().Err(err).Str("task", t.name).Msg("delivery failed")
			}
			if q.interval > 0 {
				select {
				case <-done:
					return
				case <-time.After(q.interval):
				}
			}
		}
	}
}
