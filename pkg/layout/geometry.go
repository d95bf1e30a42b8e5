package layout

// ccw reports whether a, b, c make a strict counter-clockwise turn.
func ccw(a, b, c Point) bool {
	return (c.Y-a.Y)*(b.X-a.X) > (b.Y-a.Y)*(c.X-a.X)
}

// SegmentsIntersect reports whether segment p1-p2 properly crosses p3-p4,
// i.e. the endpoints of each segment lie on opposite sides of the other.
// Touching and collinear cases are not reliably reported; the refiner never
// asks about edges that share an endpoint.
func SegmentsIntersect(p1, p2, p3, p4 Point) bool {
	return ccw(p1, p3, p4) != ccw(p2, p3, p4) && ccw(p1, p2, p3) != ccw(p1, p2, p4)
}
