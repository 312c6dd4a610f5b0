package actorflow

import (
	"context"

	"github.com/flowgraph/actorflow/pkg/port"
)

// Client is the domain object hosted by an Actor.
// PRINCIPLES:
// - ISP: one mandatory method, everything else is opt-in
// - The runtime never interprets the values a client reads or writes
//
// Update advances the client by one cycle. It is called once per cycle,
// after every value received in that cycle has been delivered to its
// ReadFunc, and also when optional inputs delivered nothing.
//
// Errors returned by Update, ReadFunc and WriteFunc are recoverable: the
// actor counts them, publishes nothing for the affected cycle and carries
// on. Wrap an error with Unrecoverable to stop the actor with that error,
// or return ErrDone to stop it cleanly.
type Client interface {
	Update(ctx context.Context) error
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context) error

// Update calls f.
func (f ClientFunc) Update(ctx context.Context) error { return f(ctx) }

// ReadFunc receives one value that arrived on an input port.
type ReadFunc[T any] func(port.Data[T]) error

// WriteFunc produces the value to publish on an output port this cycle.
// Returning false publishes nothing, e.g. between two samples of a
// down-sampled output.
type WriteFunc[T any] func() (port.Data[T], bool, error)

// Sizer is implemented by clients that assert a fixed vector length for some
// of their ports. The builder rejects links whose two ends report different
// sizes.
type Sizer interface {
	Size(key port.Key) (int, bool)
}

// Starter is implemented by clients that need setup before the first cycle.
type Starter interface {
	Start(ctx context.Context) error
}

// Stopper is implemented by clients that release resources after the last
// cycle. Its error becomes part of the actor's outcome.
type Stopper interface {
	Stop() error
}
