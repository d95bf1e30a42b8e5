// Package layout computes 2D positions for systems-interconnection graphs.
//
// The package is a pure computation library: callers hand it a node list and
// an edge list and get back the same nodes, in the same order, augmented with
// canvas coordinates and a fixed box size. It performs no I/O, keeps no state
// between calls and never returns an error.
//
// # Algorithms
//
// [ForceDirected] is the primary entry point. It runs four stages:
//
//  1. Initial placement: nodes are dealt into a ceil(√n) × ceil(√n) grid over
//     the canvas (minus an 80-unit border) and jittered by up to half a cell.
//  2. Force simulation: pairwise repulsion (k/d²), Hooke springs along edges
//     (d·k) and a weak pull towards the canvas centre, with a temperature that
//     caps the per-iteration step and cools geometrically.
//  3. Crossing refinement: greedy hill-climbing that nudges each node through
//     eight fixed offsets, keeping the first one that lowers the number of edge
//     crossings involving that node.
//  4. Normalization: the whole drawing is scaled (at most 1.2×) and re-centred
//     into the viewport with 120 units of padding.
//
// [Circular] is a deterministic fallback that spaces nodes evenly on a circle.
//
// # Determinism
//
// The only randomness enters at initial placement. Set [Options.Seed] (or use
// [WithSeed]) to make a run bit-reproducible; a zero seed draws a fresh one.
//
//	nodes := []layout.Node{{ID: "web"}, {ID: "db"}, {ID: "cache"}}
//	edges := []layout.Edge{{Source: "web", Target: "db"}, {Source: "web", Target: "cache"}}
//	placed := layout.ForceDirected(nodes, edges, layout.WithSize(1024, 768), layout.WithSeed(7))
//
// # Concurrency
//
// All functions are safe for concurrent use. Each call builds its own working
// copy of the graph; nothing is shared between calls.
//
// # Complexity
//
// The force phase is O(iterations · n²). One refiner pass evaluates every
// incident edge against every other edge nine times per node, so a pass costs
// O(e²). Callers that need bounded latency should cap the node count
// before calling in (pkg/pipeline does this with Options.MaxNodes).
package layout
