// Package graph provides node definitions
package graph

// NodeType represents the type of node
type NodeType string

const (
	// NodeTypeActor represents an actor hosting one client
	NodeTypeActor NodeType = "actor"
	// NodeTypeSubSystem represents an actor hosting a whole inner graph
	NodeTypeSubSystem NodeType = "subsystem"
)

// Node represents one actor in the graph
// PRINCIPLES:
// - KISS: Simple node representation
// - SRP: Only responsible for node data
type Node struct {
	ID      string   `json:"id"`
	Type    NodeType `json:"type"`
	Name    string   `json:"name"`
	Limit   int      `json:"limit,omitempty"` // negative: explicitly unlimited
	Inputs  []Port   `json:"inputs,omitempty"`
	Outputs []Port   `json:"outputs,omitempty"`
	Inner   *Graph   `json:"inner,omitempty"`
}

// Port describes one declared input or output of a node.
type Port struct {
	// Signal is the fully qualified signal type, unique per logical signal.
	Signal string `json:"signal"`
	// Name is the short signal name used in diagnostics.
	Name string `json:"name"`
	// ID is the numeric port id used for cross-process addressing.
	ID uint32 `json:"id"`
	// Size is the fixed vector length asserted by the client, 0 if unknown.
	Size int `json:"size,omitempty"`
	// Optional inputs may be left unconnected.
	Optional bool `json:"optional,omitempty"`
	// Sink outputs may be left unconsumed.
	Sink bool `json:"sink,omitempty"`
	// Bootstrap outputs publish once before the first read.
	Bootstrap bool `json:"bootstrap,omitempty"`
	// Exposed ports are bound to an enclosing subsystem boundary.
	Exposed bool `json:"exposed,omitempty"`
}

// Validate ensures node integrity
// PRINCIPLES:
// - SRP: Single responsibility - validation only
// - KISS: Simple validation, <10 lines
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if n.Name == "" {
		return ErrInvalidNodeName
	}
	if n.Type != NodeTypeActor && n.Type != NodeTypeSubSystem {
		return ErrInvalidNodeType
	}
	return nil
}

// IsSource reports whether the node declares no inputs.
func (n *Node) IsSource() bool {
	return len(n.Inputs) == 0
}

// IsSink reports whether the node declares no outputs.
func (n *Node) IsSink() bool {
	return len(n.Outputs) == 0
}

// Input returns the declared input for signal.
func (n *Node) Input(signal string) (Port, bool) {
	return findPort(n.Inputs, signal)
}

// Output returns the declared output for signal.
func (n *Node) Output(signal string) (Port, bool) {
	return findPort(n.Outputs, signal)
}

func findPort(ports []Port, signal string) (Port, bool) {
	for _, p := range ports {
		if p.Signal == signal {
			return p, true
		}
	}
	return Port{}, false
}
