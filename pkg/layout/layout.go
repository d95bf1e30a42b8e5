package layout

// ForceDirected lays out nodes with the force-directed engine and returns
// them in input order with X, Y, Width and Height set. Options not given take
// their defaults. See [Compute] for run statistics.
func ForceDirected(nodes []Node, edges []Edge, opts ...Option) []Positioned {
	return Compute(nodes, edges, NewOptions(opts...)).Nodes
}

// ForceDirectedWithOptions is ForceDirected for callers that already hold an
// Options value. Unset fields are defaulted.
func ForceDirectedWithOptions(nodes []Node, edges []Edge, o Options) []Positioned {
	return Compute(nodes, edges, o).Nodes
}

// Compute runs placement, simulation, crossing refinement and normalization
// and reports what happened along the way.
//
// Empty input yields an empty, non-nil node slice and zero stats.
func Compute(nodes []Node, edges []Edge, o Options) Result {
	if len(nodes) == 0 {
		return Result{Nodes: []Positioned{}, Stats: Stats{Scale: 1}}
	}
	o = o.withDefaults()
	rng, seed := newRand(o.Seed)

	s := newSystem(nodes, edges)
	s.place(o, rng)
	s.simulate(o)

	stats := Stats{
		Nodes:        len(nodes),
		Springs:      len(s.springs),
		SkippedEdges: s.skipped,
		Seed:         seed,
	}
	stats.CrossingsBefore = s.crossings()
	stats.RefineMoves = s.refine(o.RefinePasses)
	stats.CrossingsAfter = s.crossings()
	stats.Scale = s.normalize(o.Width, o.Height)

	return Result{Nodes: s.export(nodes), Stats: stats}
}
