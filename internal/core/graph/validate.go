package graph

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/multierr"
)

// Validate checks every structural rule and reports all violations at once.
// Each violation wraps one of the package sentinels, so callers can test
// for a rule with errors.Is while still seeing every offending port.
// PRINCIPLES:
// - SRP: Single responsibility - validation only
// - Never stop at the first violation
func (g *Graph) Validate() error {
	if len(g.Nodes) == 0 {
		return ErrEmptyGraph
	}

	var errs error
	for _, n := range g.SortedNodes() {
		errs = multierr.Append(errs, g.validateNode(n))
	}
	for _, e := range g.Edges {
		errs = multierr.Append(errs, g.validateEdge(e))
	}
	if cycle := g.unmarkedCycle(); len(cycle) > 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrUnmarkedCycle, strings.Join(cycle, " -> ")))
	}
	return errs
}

func (g *Graph) validateNode(n *Node) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("node %q: %w", n.Name, err)
	}

	var errs error
	if n.Type == NodeTypeActor && n.IsSource() && n.Limit == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrMissingLimit, n.Name))
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for _, p := range n.Inputs {
		if !seen.Add(p.Signal) {
			errs = multierr.Append(errs, fmt.Errorf("%w: input %s.%s", ErrDuplicatePort, n.Name, p.Name))
			continue
		}
		bound := len(g.Producers(n.ID, p.Signal))
		if p.Exposed {
			bound++
		}
		switch {
		case bound == 0 && !p.Optional:
			errs = multierr.Append(errs, fmt.Errorf("%w: %s.%s", ErrUnconnectedInput, n.Name, p.Name))
		case bound > 1:
			errs = multierr.Append(errs, fmt.Errorf("%w: %s.%s has %d producers", ErrDuplicateBinding, n.Name, p.Name, bound))
		}
	}

	seen.Clear()
	for _, p := range n.Outputs {
		if !seen.Add(p.Signal) {
			errs = multierr.Append(errs, fmt.Errorf("%w: output %s.%s", ErrDuplicatePort, n.Name, p.Name))
			continue
		}
		if p.Sink || p.Exposed {
			continue
		}
		if len(g.Consumers(n.ID, p.Signal)) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s.%s", ErrUnconsumedOutput, n.Name, p.Name))
		}
	}
	return errs
}

func (g *Graph) validateEdge(e *Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}
	src, ok := g.Nodes[e.Source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrForeignNode, e.label())
	}
	dst, ok := g.Nodes[e.Target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrForeignNode, e.label())
	}
	out, ok := src.Output(e.Signal)
	if !ok {
		return fmt.Errorf("%w: %s has no output %s", ErrInvalidSignal, src.Name, e.Name)
	}
	in, ok := dst.Input(e.Signal)
	if !ok {
		return fmt.Errorf("%w: %s has no input %s", ErrInvalidSignal, dst.Name, e.Name)
	}
	if out.Size > 0 && in.Size > 0 && out.Size != in.Size {
		return fmt.Errorf("%w: %s: %d != %d", ErrSizeMismatch, e.label(), out.Size, in.Size)
	}
	return nil
}

// unmarkedCycle returns the node names along one cycle made only of
// non-feedback edges, or nil. DFS with coloring over the non-feedback
// subgraph; a back-edge closes the cycle.
func (g *Graph) unmarkedCycle() []string {
	const (
		white = 0 // unvisited
		gray  = 1 // visiting
		black = 2 // visited
	)
	color := make(map[string]int, len(g.Nodes))
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		if e.IsFeedback() {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	var stack []string
	var cycle []string
	var dfs func(string) bool
	dfs = func(u string) bool {
		color[u] = gray
		stack = append(stack, u)
		for _, v := range adj[u] {
			if color[v] == gray {
				for i, id := range stack {
					if id == v {
						cycle = append(append(cycle, stack[i:]...), v)
						break
					}
				}
				return true // back-edge
			}
			if color[v] == white && dfs(v) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
		return false
	}
	for _, n := range g.SortedNodes() {
		if color[n.ID] == white && dfs(n.ID) {
			break
		}
	}

	for i, id := range cycle {
		if n, ok := g.Nodes[id]; ok {
			cycle[i] = n.Name
		}
	}
	return cycle
}
