// Package telemetry provides the sample records persisted by recorder clients
// and the store contract their adapters implement. It has no external
// dependencies.
package telemetry

import "time"

// Sample is one recorded value of one signal
// PRINCIPLES:
// - KISS: Simple struct with clear fields
// - SRP: Only responsible for sample data structure
type Sample struct {
	RunID     string    `json:"run_id"`
	Actor     string    `json:"actor"`
	Signal    string    `json:"signal"`
	PortID    uint32    `json:"port_id"`
	Seq       uint64    `json:"seq"`
	Encoding  string    `json:"encoding"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate ensures sample integrity
func (s *Sample) Validate() error {
	if s == nil {
		return ErrNilSample
	}
	if s.RunID == "" {
		return ErrInvalidRunID
	}
	if s.Actor == "" {
		return ErrInvalidActor
	}
	if s.Signal == "" {
		return ErrInvalidSignal
	}
	return nil
}
