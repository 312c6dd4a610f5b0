// Package channel defines domain-specific errors
package channel

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var (
	// ErrChannelClosed is returned to senders after Close, and to receivers
	// once the channel is closed and drained.
	ErrChannelClosed = errors.New("channel is closed")
	// ErrReceiverGone is returned to senders after the consumer endpoint
	// was dropped.
	ErrReceiverGone = errors.New("channel receiver is gone")
	// ErrChannelEmpty is returned by TryReceive when nothing is queued.
	ErrChannelEmpty = errors.New("channel is empty")
)
