package pipeline

import (
	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/layout"
)

// =============================================================================
// Layout Generation
// =============================================================================

// GenerateLayout runs the selected engine over g without caching. opts
// must have passed ValidateForLayout.
func GenerateLayout(g graph.Graph, opts Options) (graph.Layout, layout.Stats, error) {
	if len(g.Nodes) > opts.MaxNodes {
		return graph.Layout{}, layout.Stats{}, errs.New(errs.ErrCodeGraphTooLarge,
			"graph has %d nodes, limit is %d", len(g.Nodes), opts.MaxNodes)
	}

	var res layout.Result
	switch opts.Algorithm {
	case graph.AlgorithmForce:
		res = layout.Compute(g.LayoutNodes(), g.LayoutEdges(), opts.EngineOptions())
	case graph.AlgorithmCircular:
		res = circular(g, opts)
	default:
		return graph.Layout{}, layout.Stats{}, ValidateAlgorithm(opts.Algorithm)
	}
	return graph.NewLayout(g, opts.Algorithm, opts.Width, opts.Height, res), res.Stats, nil
}

// circular wraps the circular engine in a Result so both algorithms
// report the same statistics.
func circular(g graph.Graph, opts Options) layout.Result {
	nodes := layout.Circular(g.LayoutNodes(), opts.Width, opts.Height)
	edges := g.LayoutEdges()
	crossings := layout.CountCrossings(nodes, edges)
	skipped := len(g.DanglingEdges())
	return layout.Result{
		Nodes: nodes,
		Stats: layout.Stats{
			Nodes:           len(nodes),
			Springs:         len(edges) - skipped,
			SkippedEdges:    skipped,
			CrossingsBefore: crossings,
			CrossingsAfter:  crossings,
			Scale:           1,
		},
	}
}
