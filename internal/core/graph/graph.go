// Package graph provides the structural description of an actor graph: nodes
// with their declared ports, and typed edges between them. It is produced by
// the builder, checked by Validate and rendered by the diagram writers. It
// carries no execution state.
package graph

import (
	"fmt"
	"sort"
	"time"
)

// Graph represents the wiring of one model
// PRINCIPLES:
// - KISS: Simple struct, no complex hierarchies
// - SRP: Only responsible for graph structure, not execution
// - YAGNI: No unused fields or methods
type Graph struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Nodes     map[string]*Node `json:"nodes"`
	Edges     []*Edge          `json:"edges"`
	CreatedAt time.Time        `json:"created_at"`
}

// New creates an empty graph.
func New(id, name string) *Graph {
	return &Graph{
		ID:        id,
		Name:      name,
		Nodes:     make(map[string]*Node),
		CreatedAt: time.Now(),
	}
}

// AddNode adds a node to the graph
// PRINCIPLES:
// - KISS: Direct and simple implementation
// - SRP: Only adds node, doesn't validate graph
// - No nesting beyond 2 levels
func (g *Graph) AddNode(node *Node) error {
	if node == nil {
		return ErrNilNode
	}
	if err := node.Validate(); err != nil {
		return fmt.Errorf("node %q: %w", node.Name, err)
	}
	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	if _, exists := g.Nodes[node.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, node.Name)
	}
	g.Nodes[node.ID] = node
	return nil
}

// AddEdge adds an edge to the graph. Both endpoints must already be nodes of
// the graph; duplicate bindings are accepted here and reported by Validate.
func (g *Graph) AddEdge(edge *Edge) error {
	if edge == nil {
		return ErrNilEdge
	}
	if err := edge.Validate(); err != nil {
		return err
	}
	if _, exists := g.Nodes[edge.Source]; !exists {
		return fmt.Errorf("%w: %s", ErrForeignNode, edge.label())
	}
	if _, exists := g.Nodes[edge.Target]; !exists {
		return fmt.Errorf("%w: %s", ErrForeignNode, edge.label())
	}
	g.Edges = append(g.Edges, edge)
	return nil
}

// SortedNodes returns the nodes ordered by name, then ID.
func (g *Graph) SortedNodes() []*Node {
	nodes := make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// Producers returns the edges feeding signal into node id.
func (g *Graph) Producers(id, signal string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.Target == id && e.Signal == signal {
			out = append(out, e)
		}
	}
	return out
}

// Consumers returns the edges fanned out from signal on node id.
func (g *Graph) Consumers(id, signal string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.Source == id && e.Signal == signal {
			out = append(out, e)
		}
	}
	return out
}
