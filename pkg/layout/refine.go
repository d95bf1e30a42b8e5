package layout

// nudges are the candidate moves tried, in order, for every node.
var nudges = [8]vec{
	{20, 0}, {-20, 0}, {0, 20}, {0, -20},
	{14, 14}, {-14, -14}, {14, -14}, {-14, 14},
}

// Refine runs the crossing refiner over already-positioned nodes, updating
// their X and Y in place. It returns the number of nudges it kept. A
// non-positive passes uses [DefaultRefinePasses].
//
// The refiner is greedy and local: for each node it keeps the first nudge
// that strictly lowers the crossings involving that node, and stops after a
// pass in which no node moved. It never increases the local count it
// measures, but it can settle in a local optimum.
func Refine(nodes []Positioned, edges []Edge, passes int) int {
	if passes <= 0 {
		passes = DefaultRefinePasses
	}
	s := newSystemFrom(nodes, edges)
	moves := s.refine(passes)
	s.writeBack(nodes)
	return moves
}

// CountCrossings returns the number of crossing edge pairs. Edges that share
// an endpoint never cross; edges naming unknown nodes are ignored.
func CountCrossings(nodes []Positioned, edges []Edge) int {
	return newSystemFrom(nodes, edges).crossings()
}

func (s *system) refine(passes int) int {
	moves := 0
	for pass := 0; pass < passes; pass++ {
		improved := false
		for i := range s.bodies {
			if s.nudge(i) {
				improved = true
				moves++
			}
		}
		if !improved {
			break
		}
	}
	return moves
}

// nudge tries each candidate offset on body i and keeps the first that
// strictly lowers its local crossing count.
func (s *system) nudge(i int) bool {
	if len(s.incident[i]) == 0 {
		return false
	}
	current := s.localCrossings(i)
	if current == 0 {
		return false
	}
	b := &s.bodies[i]
	x, y := b.x, b.y
	for _, d := range nudges {
		b.x, b.y = x+d.x, y+d.y
		if s.localCrossings(i) < current {
			return true
		}
	}
	b.x, b.y = x, y
	return false
}

// localCrossings counts crossings between springs touching body i and every
// spring that does not share an endpoint with them.
func (s *system) localCrossings(i int) int {
	count := 0
	for _, k := range s.incident[i] {
		e1 := s.springs[k]
		for m, e2 := range s.springs {
			if m == k || e1.sharesEndpoint(e2) {
				continue
			}
			if s.cross(e1, e2) {
				count++
			}
		}
	}
	return count
}

// crossings counts every crossing pair once.
func (s *system) crossings() int {
	count := 0
	for k := 0; k < len(s.springs); k++ {
		for m := k + 1; m < len(s.springs); m++ {
			e1, e2 := s.springs[k], s.springs[m]
			if !e1.sharesEndpoint(e2) && s.cross(e1, e2) {
				count++
			}
		}
	}
	return count
}

func (s *system) cross(e1, e2 spring) bool {
	return SegmentsIntersect(s.point(e1.a), s.point(e1.b), s.point(e2.a), s.point(e2.b))
}
