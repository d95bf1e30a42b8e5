package layout

import "math"

// Point is a position on the canvas.
type Point struct {
	X, Y float64
}

// Node is a graph vertex handed to the engine. ID must be unique within one
// call; Label and Meta are caller payload and are passed through untouched.
type Node struct {
	ID    string
	Label string
	Meta  map[string]any
}

// Edge connects two nodes by ID. Direction is preserved for the caller but
// ignored by the physics. Edges naming unknown IDs are skipped.
type Edge struct {
	Source string
	Target string
}

// Positioned is a Node with its computed centre and box size.
type Positioned struct {
	Node
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the node's centre point.
func (p Positioned) Center() Point { return Point{X: p.X, Y: p.Y} }

// Bounds returns the node's box as min and max corners.
func (p Positioned) Bounds() (min, max Point) {
	hw, hh := p.Width/2, p.Height/2
	return Point{X: p.X - hw, Y: p.Y - hh}, Point{X: p.X + hw, Y: p.Y + hh}
}

// Stats describes what one ForceDirected run did.
type Stats struct {
	Nodes           int // input node count
	Springs         int // edges whose endpoints were both present
	SkippedEdges    int // edges dropped for naming an unknown node
	CrossingsBefore int // crossings after simulation, before refinement
	CrossingsAfter  int // crossings after refinement
	RefineMoves     int // accepted nudges
	Scale           float64
	Seed            uint64
}

// Result bundles positioned nodes with run statistics.
type Result struct {
	Nodes []Positioned
	Stats Stats
}

// vec is a force accumulator entry.
type vec struct{ x, y float64 }

func (v vec) len() float64 { return math.Hypot(v.x, v.y) }

// body is the mutable working state of one node during a run.
type body struct {
	id     string
	x, y   float64
	width  float64
	height float64
}

// spring is an edge resolved to body indices.
type spring struct{ a, b int }

func (s spring) touches(i int) bool { return s.a == i || s.b == i }

func (s spring) sharesEndpoint(o spring) bool {
	return s.a == o.a || s.a == o.b || s.b == o.a || s.b == o.b
}
