package actorflow

import (
	"errors"

	"github.com/flowgraph/actorflow/internal/core/graph"
)

// Structural errors reported by Builder.Build. Each reported violation wraps
// exactly one of these.
var (
	ErrEmptyGraph       = graph.ErrEmptyGraph
	ErrDuplicateNode    = graph.ErrDuplicateNode
	ErrForeignNode      = graph.ErrForeignNode
	ErrUnconnectedInput = graph.ErrUnconnectedInput
	ErrUnconsumedOutput = graph.ErrUnconsumedOutput
	ErrDuplicateBinding = graph.ErrDuplicateBinding
	ErrDuplicatePort    = graph.ErrDuplicatePort
	ErrMissingLimit     = graph.ErrMissingLimit
	ErrSizeMismatch     = graph.ErrSizeMismatch
	ErrUnmarkedCycle    = graph.ErrUnmarkedCycle
)

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Assembly errors
	ErrPortsFrozen   = errors.New("actor ports are frozen")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Client errors
	ErrUnrecoverable = errors.New("unrecoverable client error")
	ErrDone          = errors.New("client done")

	// Model errors
	ErrAlreadyStarted = errors.New("model already started")
	ErrNotStarted     = errors.New("model not started")
)

// Unrecoverable marks err as fatal for the actor hosting the client that
// returned it. A nil err stays nil.
func Unrecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &unrecoverableError{err: err}
}

type unrecoverableError struct {
	err error
}

func (e *unrecoverableError) Error() string { return "unrecoverable: " + e.err.Error() }

func (e *unrecoverableError) Unwrap() error { return e.err }

func (e *unrecoverableError) Is(target error) bool { return target == ErrUnrecoverable }

// clientFault carries an error returned by client code through the port
// helpers, so the loop can tell it apart from channel and context errors.
type clientFault struct {
	stage string
	err   error
}

func (f *clientFault) Error() string { return f.stage + ": " + f.err.Error() }

func (f *clientFault) Unwrap() error { return f.err }
