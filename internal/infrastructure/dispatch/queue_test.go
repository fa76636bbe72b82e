package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDeliversTasks(t *testing.T) {
	q := NewQueue(8, 2, 0, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	var delivered atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		ok := q.Enqueue("test", func(ctx context.Context) error {
			if delivered.Add(1) == 5 {
				close(done)
			}
			return nil
		})
		require.True(t, ok)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks not delivered in time")
	}
	assert.Equal(t, int32(5), delivered.Load())
}

func TestQueueDropsWhenFull(t *testing.T) {
	// no worker running: the buffer is the only capacity
	q := NewQueue(2, 1, 0, zerolog.Nop())

	noop := func(ctx context.Context) error { return nil }
	assert.True(t, q.Enqueue("a", noop))
	assert.True(t, q.Enqueue("b", noop))
	assert.False(t, q.Enqueue("c", noop))
}

func TestQueueStopsOnCancel(t *testing.T) {
	q := NewQueue(1, 1, time.Hour, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- q.Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
