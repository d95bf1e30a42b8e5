package layout

import (
	"math"
	"math/rand/v2"
)

// newRand returns the placement RNG. A zero seed draws one from the runtime
// source; the chosen seed is returned so runs can be reported and replayed.
func newRand(seed uint64) (*rand.Rand, uint64) {
	if seed == 0 {
		seed = rand.Uint64() | 1
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), seed
}

// place deals bodies into a square grid over the drawable area and jitters
// each one by up to half a cell on both axes.
func (s *system) place(o Options, rng *rand.Rand) {
	n := len(s.bodies)
	if n == 0 {
		return
	}
	grid := int(math.Ceil(math.Sqrt(float64(n))))
	cellW := (o.Width - 2*Margin) / float64(grid)
	cellH := (o.Height - 2*Margin) / float64(grid)

	for i := range s.bodies {
		row, col := i/grid, i%grid
		cx := Margin + (float64(col)+0.5)*cellW
		cy := Margin + (float64(row)+0.5)*cellH
		s.bodies[i].x = cx + (rng.Float64()-0.5)*cellW
		s.bodies[i].y = cy + (rng.Float64()-0.5)*cellH
	}
}
