package actorflow

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Handle is the completion handle of an out-of-band resource. *Model
// satisfies it.
type Handle interface {
	Wait() error
}

// Monitor supervises concurrent resources that live outside the actor graph,
// such as network listeners feeding source actors.
// PRINCIPLES:
// - One shared cancellation flag, observed cooperatively
// - Await joins everything and returns the first failure
type Monitor struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	gctx   context.Context
}

// NewMonitor creates a monitor whose cancellation flag derives from parent.
func NewMonitor(parent context.Context) *Monitor {
	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)
	return &Monitor{ctx: ctx, cancel: cancel, group: group, gctx: gctx}
}

// Context returns the cancellation flag. It is done once Await is called or
// once any registered resource failed.
func (m *Monitor) Context() context.Context { return m.gctx }

// Push registers the completion handle of a running resource.
func (m *Monitor) Push(h Handle) {
	m.group.Go(func() error {
		return m.filter(h.Wait())
	})
}

// Go runs fn as a registered resource. fn must return once ctx is done.
func (m *Monitor) Go(fn func(ctx context.Context) error) {
	m.group.Go(func() error {
		return m.filter(fn(m.gctx))
	})
}

// Await raises the cancellation flag, joins every registered resource and
// returns the first failure.
func (m *Monitor) Await() error {
	m.cancel()
	return m.group.Wait()
}

// filter drops the cancellation error a resource returns once Await asked
// it to wind down.
func (m *Monitor) filter(err error) error {
	if err != nil && m.ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
