package actorflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInflight(t *testing.T) {
	t.Run("NilCountsNothing", func(t *testing.T) {
		var f *inflight
		f.add(3)
		assert.Zero(t, f.pending())
		assert.NoError(t, f.wait(context.Background(), nil))
	})

	t.Run("WaitReturnsWhenIdle", func(t *testing.T) {
		f := newInflight()
		f.add(2)
		done := make(chan error, 1)
		go func() { done <- f.wait(context.Background(), nil) }()

		f.add(-1)
		select {
		case <-done:
			t.Fatal("wait returned with a value still in flight")
		case <-time.After(20 * time.Millisecond):
		}
		f.add(-1)
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("wait did not return once idle")
		}
		assert.Zero(t, f.pending())
	})

	t.Run("WaitStopsOnDone", func(t *testing.T) {
		f := newInflight()
		f.add(1)
		stopped := make(chan struct{})
		close(stopped)
		assert.NoError(t, f.wait(context.Background(), stopped))
	})

	t.Run("WaitStopsOnCancel", func(t *testing.T) {
		f := newInflight()
		f.add(1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, f.wait(ctx, nil), context.Canceled)
	})
}
