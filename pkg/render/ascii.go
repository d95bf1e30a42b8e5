package render

import (
	"math"
	"strings"

	"github.com/matzehuels/sysmap/pkg/graph"
)

// ToASCII rasterises l onto a cols×rows character grid. Edges are drawn
// as dotted lines between box centres, then boxes are drawn on top with
// as much of the label as fits.
func ToASCII(l graph.Layout, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	grid := make([][]rune, rows)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", cols))
	}
	if l.Width <= 0 || l.Height <= 0 {
		return join(grid)
	}
	sx := float64(cols-1) / l.Width
	sy := float64(rows-1) / l.Height
	cell := func(x, y float64) (int, int) {
		return int(math.Round(x * sx)), int(math.Round(y * sy))
	}

	centres := make(map[string][2]int, len(l.Nodes))
	for _, n := range l.Nodes {
		c, r := cell(n.X, n.Y)
		centres[n.ID] = [2]int{c, r}
	}
	for _, e := range l.Edges {
		a, okA := centres[e.From]
		b, okB := centres[e.To]
		if !okA || !okB {
			continue
		}
		line(grid, a[0], a[1], b[0], b[1])
	}

	for _, n := range l.Nodes {
		c0, r0 := cell(n.X-n.Width/2, n.Y-n.Height/2)
		c1, r1 := cell(n.X+n.Width/2, n.Y+n.Height/2)
		box(grid, c0, r0, max(c1, c0+2), max(r1, r0+2), n.Label, n.ID)
	}
	return join(grid)
}

func set(grid [][]rune, c, r int, ch rune) {
	if r < 0 || r >= len(grid) || c < 0 || c >= len(grid[r]) {
		return
	}
	grid[r][c] = ch
}

// line draws a Bresenham line of dots.
func line(grid [][]rune, c0, r0, c1, r1 int) {
	dc, dr := abs(c1-c0), -abs(r1-r0)
	sc, sr := 1, 1
	if c0 > c1 {
		sc = -1
	}
	if r0 > r1 {
		sr = -1
	}
	e := dc + dr
	for {
		set(grid, c0, r0, '·')
		if c0 == c1 && r0 == r1 {
			return
		}
		if 2*e >= dr {
			e += dr
			c0 += sc
		}
		if 2*e <= dc {
			e += dc
			r0 += sr
		}
	}
}

func box(grid [][]rune, c0, r0, c1, r1 int, label, id string) {
	for c := c0; c <= c1; c++ {
		set(grid, c, r0, '─')
		set(grid, c, r1, '─')
	}
	for r := r0; r <= r1; r++ {
		set(grid, c0, r, '│')
		set(grid, c1, r, '│')
		for c := c0 + 1; c < c1 && r > r0 && r < r1; c++ {
			set(grid, c, r, ' ')
		}
	}
	set(grid, c0, r0, '┌')
	set(grid, c1, r0, '┐')
	set(grid, c0, r1, '└')
	set(grid, c1, r1, '┘')

	if label == "" {
		label = id
	}
	text := []rune(label)
	if room := c1 - c0 - 1; len(text) > room {
		text = text[:max(room, 0)]
	}
	mid := (r0 + r1) / 2
	start := c0 + 1 + (c1-c0-1-len(text))/2
	for i, ch := range text {
		set(grid, start+i, mid, ch)
	}
}

func join(grid [][]rune) string {
	var b strings.Builder
	for i, row := range grid {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimRight(string(row), " "))
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
