package graph

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Edge styles shared by both renderers.
var dotStyle = map[EdgeType]string{
	EdgeTypeBounded:   "solid",
	EdgeTypeUnbounded: "dashed",
	EdgeTypeFeedback:  "dotted",
}

var mermaidArrow = map[EdgeType]string{
	EdgeTypeBounded:   "-->",
	EdgeTypeUnbounded: "-.->",
	EdgeTypeFeedback:  "==>",
}

// WriteDOT renders the graph in Graphviz DOT. Subsystems are drawn as
// clusters holding their inner graph.
func (g *Graph) WriteDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %s {\n", quote(g.Name))
	bw.WriteString("  rankdir=LR;\n  node [shape=box];\n")
	g.writeDOTBody(bw, "  ")
	bw.WriteString("}\n")
	return bw.Flush()
}

func (g *Graph) writeDOTBody(bw *bufio.Writer, indent string) {
	for _, n := range g.SortedNodes() {
		label := n.Name
		if n.Limit > 0 {
			label = fmt.Sprintf("%s\\nlimit=%d", n.Name, n.Limit)
		}
		if n.Type == NodeTypeSubSystem && n.Inner != nil {
			fmt.Fprintf(bw, "%s%s [label=%s, shape=box3d];\n", indent, quote(n.ID), quote(label))
			fmt.Fprintf(bw, "%ssubgraph %s {\n", indent, quote("cluster_"+n.ID))
			fmt.Fprintf(bw, "%s  label=%s;\n", indent, quote(n.Name))
			n.Inner.writeDOTBody(bw, indent+"  ")
			fmt.Fprintf(bw, "%s}\n", indent)
			continue
		}
		fmt.Fprintf(bw, "%s%s [label=%s];\n", indent, quote(n.ID), quote(label))
	}
	for _, e := range g.Edges {
		label := e.Name
		if e.Capacity > 0 {
			label = fmt.Sprintf("%s [%d]", e.Name, e.Capacity)
		}
		fmt.Fprintf(bw, "%s%s -> %s [label=%s, style=%s];\n",
			indent, quote(e.Source), quote(e.Target), quote(label), dotStyle[e.Type])
	}
}

// WriteMermaid renders the graph as a Mermaid flowchart.
func (g *Graph) WriteMermaid(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("flowchart LR\n")
	g.writeMermaidBody(bw, "  ")
	return bw.Flush()
}

func (g *Graph) writeMermaidBody(bw *bufio.Writer, indent string) {
	for _, n := range g.SortedNodes() {
		id := mermaidID(n.ID)
		if n.Type == NodeTypeSubSystem && n.Inner != nil {
			fmt.Fprintf(bw, "%s%s[[%s]]\n", indent, id, mermaidText(n.Name))
			fmt.Fprintf(bw, "%ssubgraph %s_inner [%s]\n", indent, id, mermaidText(n.Name))
			n.Inner.writeMermaidBody(bw, indent+"  ")
			fmt.Fprintf(bw, "%send\n", indent)
			continue
		}
		fmt.Fprintf(bw, "%s%s[%s]\n", indent, id, mermaidText(n.Name))
	}
	for _, e := range g.Edges {
		fmt.Fprintf(bw, "%s%s %s|%s| %s\n",
			indent, mermaidID(e.Source), mermaidArrow[e.Type], mermaidText(e.Name), mermaidID(e.Target))
	}
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func mermaidID(id string) string {
	return "n" + strings.ReplaceAll(id, "-", "")
}

func mermaidText(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "#quot;") + `"`
}
