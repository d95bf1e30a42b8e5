package layout

// system is the working state of one layout call: bodies in input order, an
// id→index table built once, and edges resolved to index pairs.
type system struct {
	bodies  []body
	index   map[string]int
	springs []spring
	// incident[i] lists the springs touching body i.
	incident [][]int
	skipped  int
}

func newSystem(nodes []Node, edges []Edge) *system {
	s := &system{
		bodies: make([]body, len(nodes)),
		index:  make(map[string]int, len(nodes)),
	}
	for i, n := range nodes {
		s.bodies[i] = body{id: n.ID, width: NodeWidth, height: NodeHeight}
		s.index[n.ID] = i
	}
	s.link(edges)
	return s
}

// newSystemFrom seeds a system with already-positioned nodes.
func newSystemFrom(nodes []Positioned, edges []Edge) *system {
	s := &system{
		bodies: make([]body, len(nodes)),
		index:  make(map[string]int, len(nodes)),
	}
	for i, n := range nodes {
		w, h := n.Width, n.Height
		if w <= 0 {
			w = NodeWidth
		}
		if h <= 0 {
			h = NodeHeight
		}
		s.bodies[i] = body{id: n.ID, x: n.X, y: n.Y, width: w, height: h}
		s.index[n.ID] = i
	}
	s.link(edges)
	return s
}

func (s *system) link(edges []Edge) {
	s.springs = make([]spring, 0, len(edges))
	s.incident = make([][]int, len(s.bodies))
	for _, e := range edges {
		a, okA := s.index[e.Source]
		b, okB := s.index[e.Target]
		if !okA || !okB {
			s.skipped++
			continue
		}
		k := len(s.springs)
		s.springs = append(s.springs, spring{a: a, b: b})
		s.incident[a] = append(s.incident[a], k)
		if b != a {
			s.incident[b] = append(s.incident[b], k)
		}
	}
}

func (s *system) point(i int) Point { return Point{X: s.bodies[i].x, Y: s.bodies[i].y} }

// export copies positions back onto the caller's nodes, preserving order.
func (s *system) export(nodes []Node) []Positioned {
	out := make([]Positioned, len(nodes))
	for i, n := range nodes {
		b := s.bodies[i]
		out[i] = Positioned{Node: n, X: b.x, Y: b.y, Width: b.width, Height: b.height}
	}
	return out
}

// writeBack stores positions onto already-positioned nodes in place.
func (s *system) writeBack(nodes []Positioned) {
	for i := range nodes {
		nodes[i].X = s.bodies[i].x
		nodes[i].Y = s.bodies[i].y
	}
}
