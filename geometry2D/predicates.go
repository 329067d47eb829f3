package geometry2D

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Orientation is positive when a, b, c turn counter-clockwise
func Orientation(a, b, c Coordinate) float64 {
	return r2.Cross(r2.Sub(b.Vec(), a.Vec()), r2.Sub(c.Vec(), a.Vec()))
}

/*
InCircle returns a value that is positive when d lies strictly inside the circle
through a, b and c, negative when outside and zero when the four points are
cocircular. The sign is independent of the winding of a, b, c.
*/
func InCircle(a, b, c, d Coordinate) (det float64) {
	var (
		ax, ay = a.X - d.X, a.Y - d.Y
		bx, by = b.X - d.X, b.Y - d.Y
		cx, cy = c.X - d.X, c.Y - d.Y
	)
	det = (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)
	if math.Signbit(Orientation(a, b, c)) {
		det = -det
	}
	return
}
