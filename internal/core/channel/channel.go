// Package channel provides the single-producer/single-consumer conduit that
// links one actor output to one actor input.
package channel

import (
	"context"
	"sync"

	imetrics "github.com/flowgraph/actorflow/internal/infrastructure/metrics"
)

// Config holds configuration for a Channel
type Config struct {
	// Capacity bounds the queue. Zero or negative means unbounded.
	Capacity int `validate:"gte=0"`
}

// Channel is a FIFO queue with explicit producer and consumer endpoints.
// PRINCIPLES:
// - A bounded channel suspends its sender while full (backpressure)
// - An unbounded channel never suspends its sender (feedback edges)
// - Close drops the producer endpoint, Drop drops the consumer endpoint
type Channel[T any] struct {
	buffer   []T
	capacity int
	closed   bool
	dropped  bool
	mu       sync.Mutex
	notify   chan struct{}
	kind     string
}

// New creates a channel from config.
func New[T any](config Config) *Channel[T] {
	c := &Channel[T]{
		capacity: config.Capacity,
		notify:   make(chan struct{}),
		kind:     "bounded",
	}
	if c.capacity <= 0 {
		c.capacity = 0
		c.kind = "unbounded"
	} else {
		c.buffer = make([]T, 0, c.capacity)
	}
	return c
}

// NewBounded creates a bounded channel with the runtime default capacity.
func NewBounded[T any]() *Channel[T] {
	return New[T](Config{Capacity: BoundedCapacity()})
}

// NewUnbounded creates an unbounded channel.
func NewUnbounded[T any]() *Channel[T] {
	return New[T](Config{})
}

// Send enqueues v. It suspends only when the channel is bounded and full.
func (c *Channel[T]) Send(ctx context.Context, v T) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrChannelClosed
		}
		if c.dropped {
			c.mu.Unlock()
			return ErrReceiverGone
		}
		if c.capacity == 0 || len(c.buffer) < c.capacity {
			c.buffer = append(c.buffer, v)
			imetrics.ChannelSent(c.kind, 1)
			c.signal()
			c.mu.Unlock()
			return nil
		}
		// Need to wait for space
		ch := c.notify
		c.mu.Unlock()

		select {
		case <-ch:
			// state changed; loop and recheck
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Receive dequeues the oldest value, suspending until one is available.
// It returns ErrChannelClosed once the channel is closed and drained.
func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	for {
		v, err := c.TryReceive()
		if err != ErrChannelEmpty {
			return v, err
		}

		c.mu.Lock()
		if len(c.buffer) > 0 || c.closed {
			c.mu.Unlock()
			continue
		}
		ch := c.notify
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryReceive dequeues the oldest value without suspending. It returns
// ErrChannelEmpty when nothing is queued and ErrChannelClosed once the
// channel is closed and drained.
func (c *Channel[T]) TryReceive() (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if len(c.buffer) > 0 {
		v := c.buffer[0]
		c.buffer[0] = zero
		c.buffer = c.buffer[1:]
		imetrics.ChannelReceived(c.kind, 1)
		c.signal()
		return v, nil
	}
	if c.closed {
		return zero, ErrChannelClosed
	}
	return zero, ErrChannelEmpty
}

// Close drops the producer endpoint. Queued values stay receivable.
func (c *Channel[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil // Already closed
	}
	c.closed = true
	c.signal()
	return nil
}

// Drop drops the consumer endpoint: queued values are discarded and every
// current and future Send fails with ErrReceiverGone. It returns the number
// of values discarded.
func (c *Channel[T]) Drop() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dropped {
		return 0
	}
	c.dropped = true
	n := len(c.buffer)
	if n > 0 {
		imetrics.ChannelDropped(c.kind, int64(n))
	}
	c.buffer = nil
	c.signal()
	return n
}

// Len returns the number of queued values.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// Cap returns the capacity; zero means unbounded.
func (c *Channel[T]) Cap() int {
	return c.capacity
}

// Bounded reports whether senders can be suspended.
func (c *Channel[T]) Bounded() bool {
	return c.capacity > 0
}

// IsClosed returns whether the producer endpoint was dropped.
func (c *Channel[T]) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Stats returns channel statistics
func (c *Channel[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Length:   len(c.buffer),
		Capacity: c.capacity,
		Closed:   c.closed,
		Dropped:  c.dropped,
	}
}

// signal notifies all current waiters of a state change.
// Must be called with c.mu held.
func (c *Channel[T]) signal() {
	// Replace notify first, then close the old one to wake every waiter.
	old := c.notify
	c.notify = make(chan struct{})
	close(old)
}

// Stats provides channel statistics
type Stats struct {
	Length   int  `json:"length"`
	Capacity int  `json:"capacity"`
	Closed   bool `json:"closed"`
	Dropped  bool `json:"dropped"`
}
