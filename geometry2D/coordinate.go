package geometry2D

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Coordinate is an immutable 2D point. It shares its layout with r2.Vec so the
// vector arithmetic comes from gonum.
type Coordinate r2.Vec

func NewCoordinate(x, y float64) Coordinate {
	return Coordinate{X: x, Y: y}
}

func (c Coordinate) Vec() r2.Vec {
	return r2.Vec(c)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%g,%g)", c.X, c.Y)
}

// Compare orders coordinates by X, then by Y
func Compare(a, b Coordinate) int {
	switch {
	case a.X < b.X:
		return -1
	case a.X > b.X:
		return 1
	case a.Y < b.Y:
		return -1
	case a.Y > b.Y:
		return 1
	}
	return 0
}

func Less(a, b Coordinate) bool {
	return Compare(a, b) < 0
}

func Distance(a, b Coordinate) float64 {
	return r2.Norm(r2.Sub(b.Vec(), a.Vec()))
}

func Midpoint(a, b Coordinate) Coordinate {
	return Coordinate{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Angle returns the angle in degrees at center between the rays to b and c
func Angle(center, b, c Coordinate) (degrees float64) {
	var (
		db    = r2.Sub(b.Vec(), center.Vec())
		dc    = r2.Sub(c.Vec(), center.Vec())
		denom = r2.Norm(db) * r2.Norm(dc)
	)
	if denom == 0 {
		return 0
	}
	cosine := r2.Dot(db, dc) / denom
	// Rounding can push the cosine just past +-1
	cosine = math.Max(-1, math.Min(1, cosine))
	degrees = 180. * math.Acos(cosine) / math.Pi
	return
}

/*
Edge stores two coordinates with the smaller one (by Compare) first, so the same
segment of the plane always produces the same key regardless of traversal order.
Edges are comparable and used directly as map keys.
*/
type Edge [2]Coordinate

func NewEdge(a, b Coordinate) Edge {
	if Less(b, a) {
		a, b = b, a
	}
	return Edge{a, b}
}

func (e Edge) Midpoint() Coordinate {
	return Midpoint(e[0], e[1])
}

func (e Edge) Length() float64 {
	return Distance(e[0], e[1])
}

func (e Edge) String() string {
	return fmt.Sprintf("[%s-%s]", e[0], e[1])
}
