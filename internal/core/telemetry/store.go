package telemetry

import (
	"context"
	"time"
)

// Store persists samples (DIP - Dependency Inversion)
// PRINCIPLES:
// - ISP: Interface segregation with ≤5 methods
// - DIP: Recorder clients depend on this interface, not implementations
type Store interface {
	// Append persists samples in order
	Append(ctx context.Context, samples ...*Sample) error

	// List returns samples matching the filter, oldest first
	List(ctx context.Context, filter Filter) ([]*Sample, error)

	// Delete removes every sample of a run and reports how many were removed
	Delete(ctx context.Context, runID string) (int, error)

	// Close releases the store
	Close() error
}

// Filter for sample queries
type Filter struct {
	RunID  string     `json:"run_id,omitempty"`
	Actor  string     `json:"actor,omitempty"`
	Signal string     `json:"signal,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
	Since  *time.Time `json:"since,omitempty"`
	Before *time.Time `json:"before,omitempty"`
}

// Validate ensures filter parameters are valid
func (f *Filter) Validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	if f.Offset < 0 {
		return ErrInvalidOffset
	}
	if f.Since != nil && f.Before != nil && f.Since.After(*f.Before) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Match reports whether s passes the filter's field and time criteria.
// Limit and Offset are applied by the store.
func (f *Filter) Match(s *Sample) bool {
	if f.RunID != "" && s.RunID != f.RunID {
		return false
	}
	if f.Actor != "" && s.Actor != f.Actor {
		return false
	}
	if f.Signal != "" && s.Signal != f.Signal {
		return false
	}
	if f.Since != nil && !s.Timestamp.After(*f.Since) {
		return false
	}
	if f.Before != nil && !s.Timestamp.Before(*f.Before) {
		return false
	}
	return true
}
