package layout

import "math"

// Circular places nodes evenly on a circle of radius 0.35·min(width, height)
// centred in the viewport, in input order starting at angle 0 (east) and
// advancing by 2π/n. It is deterministic and O(n). Non-positive dimensions
// take [DefaultWidth] and [DefaultHeight].
func Circular(nodes []Node, width, height float64) []Positioned {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	out := make([]Positioned, len(nodes))
	if len(nodes) == 0 {
		return out
	}

	cx, cy := width/2, height/2
	radius := CircleRadiusFactor * math.Min(width, height)
	step := 2 * math.Pi / float64(len(nodes))
	for i, n := range nodes {
		angle := step * float64(i)
		out[i] = Positioned{
			Node:   n,
			X:      cx + radius*math.Cos(angle),
			Y:      cy + radius*math.Sin(angle),
			Width:  NodeWidth,
			Height: NodeHeight,
		}
	}
	return out
}
