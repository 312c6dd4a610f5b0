// Package graph defines domain-specific errors
package graph

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Graph errors
	ErrEmptyGraph    = errors.New("graph has no nodes")
	ErrUnmarkedCycle = errors.New("cycle without a feedback edge")

	// Node errors
	ErrNilNode         = errors.New("node cannot be nil")
	ErrInvalidNodeID   = errors.New("invalid node ID")
	ErrInvalidNodeName = errors.New("invalid node name")
	ErrInvalidNodeType = errors.New("invalid node type")
	ErrDuplicateNode   = errors.New("duplicate node")
	ErrMissingLimit    = errors.New("source node has no cycle limit")
	ErrDuplicatePort   = errors.New("port declared twice on one node")

	// Port and edge errors
	ErrNilEdge          = errors.New("edge cannot be nil")
	ErrInvalidSource    = errors.New("invalid source node")
	ErrInvalidTarget    = errors.New("invalid target node")
	ErrInvalidSignal    = errors.New("invalid edge signal")
	ErrForeignNode      = errors.New("edge reaches a node outside the graph")
	ErrUnconnectedInput = errors.New("required input has no producer")
	ErrUnconsumedOutput = errors.New("output has no consumer and is not a sink")
	ErrDuplicateBinding = errors.New("input bound more than once")
	ErrSizeMismatch     = errors.New("port sizes disagree across edge")
)
