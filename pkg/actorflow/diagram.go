package actorflow

import (
	"io"
	"strings"
)

// WriteDOT renders the model as a Graphviz digraph. Bounded links are solid,
// unbounded dashed, feedback dotted.
func (m *Model) WriteDOT(w io.Writer) error {
	return m.graph.WriteDOT(w)
}

// WriteMermaid renders the model as a Mermaid flowchart.
func (m *Model) WriteMermaid(w io.Writer) error {
	return m.graph.WriteMermaid(w)
}

// String returns the DOT rendering of the model.
func (m *Model) String() string {
	var b strings.Builder
	_ = m.WriteDOT(&b)
	return b.String()
}
