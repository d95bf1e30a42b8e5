package layout

import "math"

// normalize fits the drawing into a width×height viewport with
// ViewportPadding on every side. The scale never exceeds MaxScale, so sparse
// drawings keep their spacing instead of being blown up; an axis with no
// extent contributes a neutral scale of 1. Box sizes are not scaled.
//
// It returns the applied scale.
func (s *system) normalize(width, height float64) float64 {
	if len(s.bodies) == 0 {
		return 1
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, b := range s.bodies {
		minX = math.Min(minX, b.x-b.width/2)
		minY = math.Min(minY, b.y-b.height/2)
		maxX = math.Max(maxX, b.x+b.width/2)
		maxY = math.Max(maxY, b.y+b.height/2)
	}

	scaleX, scaleY := 1.0, 1.0
	if w := maxX - minX; w > 0 {
		scaleX = (width - 2*ViewportPadding) / w
	}
	if h := maxY - minY; h > 0 {
		scaleY = (height - 2*ViewportPadding) / h
	}
	scale := math.Min(math.Min(scaleX, scaleY), MaxScale)

	bx, by := (minX+maxX)/2, (minY+maxY)/2
	vx, vy := width/2, height/2
	for i := range s.bodies {
		b := &s.bodies[i]
		b.x = vx + (b.x-bx)*scale
		b.y = vy + (b.y-by)*scale
	}
	return scale
}
