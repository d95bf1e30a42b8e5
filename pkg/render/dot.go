package render

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/sysmap/pkg/graph"
)

// pointsPerInch converts layout units to Graphviz node sizes, which are
// given in inches.
const pointsPerInch = 72.0

// groupPalette colours node groups in order of first appearance.
var groupPalette = []string{
	"#cfe8fc", "#fde2c8", "#d7f5d3", "#f7d6e6",
	"#e6dcfa", "#fff3bf", "#d3f3f1", "#eeeeee",
}

// Options configures DOT generation.
type Options struct {
	// Detailed adds the node's group and metadata to its label.
	Detailed bool
	// EdgeLabels draws edge labels.
	EdgeLabels bool
}

// ToDOT converts a layout to Graphviz DOT with every node pinned to its
// layout position.
func ToDOT(l graph.Layout, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  graph [bgcolor=\"transparent\", inputscale=%g, notranslate=true, splines=line, overlap=true, bb=\"0,0,%.2f,%.2f\"];\n",
		pointsPerInch, l.Width, l.Height)
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fixedsize=true, fontsize=14];\n")
	buf.WriteString("  edge [arrowsize=0.7];\n")
	buf.WriteString("\n")

	colors := groupColors(l.Nodes)
	for _, n := range l.Nodes {
		attrs := []string{
			fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed)),
			fmt.Sprintf("pos=\"%.2f,%.2f!\"", n.X, l.Height-n.Y),
			fmt.Sprintf("width=%.4f", n.Width/pointsPerInch),
			fmt.Sprintf("height=%.4f", n.Height/pointsPerInch),
		}
		if c, ok := colors[n.Group]; ok {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", c))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range l.Edges {
		if opts.EdgeLabels && e.Label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, e.Label)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n graph.PositionedNode, detailed bool) string {
	label := n.Label
	if label == "" {
		label = n.ID
	}
	if !detailed {
		return label
	}

	var parts []string
	if n.Group != "" {
		parts = append(parts, "group: "+n.Group)
	}
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}
	if len(parts) == 0 {
		return label
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func groupColors(nodes []graph.PositionedNode) map[string]string {
	colors := make(map[string]string)
	for _, n := range nodes {
		if n.Group == "" {
			continue
		}
		if _, ok := colors[n.Group]; !ok {
			colors[n.Group] = groupPalette[len(colors)%len(groupPalette)]
		}
	}
	return colors
}
