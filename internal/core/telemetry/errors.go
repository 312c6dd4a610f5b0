package telemetry

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Sample validation errors
	ErrNilSample     = errors.New("sample cannot be nil")
	ErrInvalidRunID  = errors.New("invalid run ID")
	ErrInvalidActor  = errors.New("invalid actor name")
	ErrInvalidSignal = errors.New("invalid signal name")
	ErrRunNotFound   = errors.New("run not found")

	// Filter validation errors
	ErrInvalidLimit     = errors.New("limit cannot be negative")
	ErrInvalidOffset    = errors.New("offset cannot be negative")
	ErrInvalidTimeRange = errors.New("invalid time range: since is after before")

	// Store errors
	ErrStoreFull   = errors.New("telemetry store is full")
	ErrStoreClosed = errors.New("telemetry store is closed")
)
