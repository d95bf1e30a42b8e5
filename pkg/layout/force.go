package layout

import "math"

// simulate relaxes body positions for o.Iterations steps. Every step reads
// the positions left by the previous one: all three force sources fill the
// accumulator before any body moves.
func (s *system) simulate(o Options) {
	n := len(s.bodies)
	if n == 0 {
		return
	}
	force := make([]vec, n)
	center := Point{X: o.Width / 2, Y: o.Height / 2}
	temperature := o.Temperature

	for iter := 0; iter < o.Iterations; iter++ {
		clear(force)
		s.repel(force, o.RepulsionStrength)
		s.attract(force, o.AttractionStrength)
		s.gravitate(force, center, o.CenterGravity)
		s.displace(force, temperature, o.Width, o.Height)
		temperature *= o.CoolingFactor
	}
}

// repel pushes every unordered pair apart with magnitude k/d².
func (s *system) repel(force []vec, k float64) {
	for i := 0; i < len(s.bodies); i++ {
		bi := &s.bodies[i]
		for j := i + 1; j < len(s.bodies); j++ {
			bj := &s.bodies[j]
			dx, dy := bi.x-bj.x, bi.y-bj.y
			d := math.Max(math.Hypot(dx, dy), 1)
			f := k / (d * d)
			fx, fy := dx/d*f, dy/d*f
			force[i].x += fx
			force[i].y += fy
			force[j].x -= fx
			force[j].y -= fy
		}
	}
}

// attract pulls spring endpoints together with magnitude d·k. Parallel
// springs each pull independently.
func (s *system) attract(force []vec, k float64) {
	for _, sp := range s.springs {
		a, b := &s.bodies[sp.a], &s.bodies[sp.b]
		dx, dy := b.x-a.x, b.y-a.y
		d := math.Max(math.Hypot(dx, dy), 1)
		f := d * k
		fx, fy := dx/d*f, dy/d*f
		force[sp.a].x += fx
		force[sp.a].y += fy
		force[sp.b].x -= fx
		force[sp.b].y -= fy
	}
}

// gravitate pulls every body towards center in proportion to its offset.
func (s *system) gravitate(force []vec, center Point, k float64) {
	for i := range s.bodies {
		force[i].x += (center.X - s.bodies[i].x) * k
		force[i].y += (center.Y - s.bodies[i].y) * k
	}
}

// displace moves each body along its net force by at most temperature and
// clamps it inside the margin.
func (s *system) displace(force []vec, temperature, width, height float64) {
	for i := range s.bodies {
		f := force[i]
		mag := f.len()
		if mag == 0 {
			continue
		}
		step := math.Min(mag, temperature)
		b := &s.bodies[i]
		b.x = clamp(b.x+f.x/mag*step, Margin, width-Margin)
		b.y = clamp(b.y+f.y/mag*step, Margin, height-Margin)
	}
}

// clamp bounds v to [lo, hi]. A canvas too small for its margins collapses
// onto the midpoint.
func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Min(math.Max(v, lo), hi)
}
