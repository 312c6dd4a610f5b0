// Package graph provides edge definitions
package graph

// EdgeType represents the kind of channel behind an edge
type EdgeType string

const (
	// EdgeTypeBounded is a bounded channel applying backpressure
	EdgeTypeBounded EdgeType = "bounded"
	// EdgeTypeUnbounded is an unbounded channel that never blocks its producer
	EdgeTypeUnbounded EdgeType = "unbounded"
	// EdgeTypeFeedback is an unbounded channel intentionally closing a cycle
	EdgeTypeFeedback EdgeType = "feedback"
)

// Edge represents a typed channel from one node output to one node input
// PRINCIPLES:
// - KISS: Simple edge representation
// - SRP: Only responsible for edge data
type Edge struct {
	ID         string   `json:"id"`
	Source     string   `json:"source"` // Source node ID
	Target     string   `json:"target"` // Target node ID
	SourceName string   `json:"source_name,omitempty"`
	TargetName string   `json:"target_name,omitempty"`
	Signal     string   `json:"signal"`
	Name       string   `json:"name,omitempty"`
	Type       EdgeType `json:"type"`
	Capacity   int      `json:"capacity,omitempty"`
}

// Validate ensures edge integrity
// PRINCIPLES:
// - SRP: Single responsibility - validation only
// - KISS: Simple validation, <10 lines
func (e *Edge) Validate() error {
	if e.Source == "" {
		return ErrInvalidSource
	}
	if e.Target == "" {
		return ErrInvalidTarget
	}
	if e.Signal == "" {
		return ErrInvalidSignal
	}
	if e.Type == "" {
		e.Type = EdgeTypeBounded
	}
	return nil
}

// IsFeedback checks if edge closes a cycle
func (e *Edge) IsFeedback() bool {
	return e.Type == EdgeTypeFeedback
}

// Blocking reports whether the producer can be suspended by this edge.
func (e *Edge) Blocking() bool {
	return e.Type == EdgeTypeBounded
}

// label returns the readable source and target of the edge.
func (e *Edge) label() string {
	src, dst := e.SourceName, e.TargetName
	if src == "" {
		src = e.Source
	}
	if dst == "" {
		dst = e.Target
	}
	return src + " -> " + dst + " (" + e.Name + ")"
}
