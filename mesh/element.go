package mesh

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/atomic"

	"github.com/notargets/yada/geometry2D"
	"github.com/notargets/yada/types"
	"github.com/notargets/yada/utils"
)

var (
	ErrCoordinateCount = errors.New("an element needs 2 or 3 coordinates")
	ErrCollinear       = errors.New("collinear triangle has no circumcircle")
)

// Relative size of the circumcircle denominator below which a triangle is
// treated as collinear
const collinearTol = 1.e-12

const noEdge = -1

// ElementType distinguishes boundary segments from triangles
type ElementType uint8

const (
	Segment ElementType = iota
	Triangle
)

func (et ElementType) String() string {
	return [...]string{"Segment", "Triangle"}[et]
}

// Worklist priority, higher is refined first
const (
	PrioritySkinny = iota
	PriorityEncroached
	PrioritySegment
)

/*
Element is a boundary segment (2 coordinates) or a triangle (3 coordinates).
All geometry is derived once in NewElement and never changes. The neighbour set
and the garbage flag are shared state: they are only read or written by the
transaction that owns the element.
*/
type Element struct {
	coordinates  [3]geometry2D.Coordinate
	numCoord     int
	edges        [3]geometry2D.Edge
	midpoints    [3]geometry2D.Coordinate
	radii        [3]float64
	numEdge      int
	circumCenter geometry2D.Coordinate
	circumRadius float64
	minAngle     float64 // Smallest interior angle, degrees
	isSkinny     bool
	encroached   int // Index of the encroached edge, noEdge when none

	id          types.ElementID
	owner       utils.Owner
	neighbors   [3]types.ElementID
	numNeighbor int
	garbage     atomic.Bool
}

/*
NewElement builds a segment or a triangle. The coordinates are rotated so the
smallest (geometry2D.Compare) comes first, which makes two elements built from
the same points in a different cyclic order identical.
A triangle is skinny when any interior angle is under angleConstraint. When an
angle exceeds 90 degrees the edge opposite it is marked encroached; only the
first such angle is considered.
*/
func NewElement(coordinates []geometry2D.Coordinate, angleConstraint float64) (e *Element, err error) {
	var (
		n = len(coordinates)
	)
	if n < 2 || n > 3 {
		return nil, fmt.Errorf("%w: got %d", ErrCoordinateCount, n)
	}
	e = &Element{
		numCoord:   n,
		encroached: noEdge,
	}
	// Rotate the smallest coordinate into first position
	var minI int
	for i := 1; i < n; i++ {
		if geometry2D.Less(coordinates[i], coordinates[minI]) {
			minI = i
		}
	}
	for i := 0; i < n; i++ {
		e.coordinates[i] = coordinates[(minI+i)%n]
	}
	if n == 3 {
		if err = e.checkAngles(angleConstraint); err != nil {
			return nil, err
		}
	}
	if err = e.calculateCircumCircle(); err != nil {
		return nil, err
	}
	e.initEdges()
	return
}

func (e *Element) checkAngles(angleConstraint float64) (err error) {
	e.minAngle = 180.
	for i := 0; i < 3; i++ {
		angle := geometry2D.Angle(e.coordinates[i], e.coordinates[(i+1)%3], e.coordinates[(i+2)%3])
		if angle <= 0 || angle >= 180 {
			return fmt.Errorf("%w: angle %g at %s", ErrCollinear, angle, e.coordinates[i])
		}
		if angle > 90 && e.encroached == noEdge {
			e.encroached = (i + 1) % 3
		}
		if angle < angleConstraint {
			e.isSkinny = true
		}
		e.minAngle = math.Min(e.minAngle, angle)
	}
	return
}

func (e *Element) calculateCircumCircle() (err error) {
	var (
		a = e.coordinates[0]
		b = e.coordinates[1]
	)
	if e.numCoord == 2 {
		e.circumCenter = geometry2D.Midpoint(a, b)
		e.circumRadius = geometry2D.Distance(e.circumCenter, a)
		return
	}
	var (
		c                = e.coordinates[2]
		bxDelta, byDelta = b.X - a.X, b.Y - a.Y
		cxDelta, cyDelta = c.X - a.X, c.Y - a.Y
		bDistance2       = bxDelta*bxDelta + byDelta*byDelta
		cDistance2       = cxDelta*cxDelta + cyDelta*cyDelta
		xNumerator       = byDelta*cDistance2 - cyDelta*bDistance2
		yNumerator       = bxDelta*cDistance2 - cxDelta*bDistance2
		denominator      = 2 * (bxDelta*cyDelta - cxDelta*byDelta)
	)
	if math.Abs(denominator) <= collinearTol*(bDistance2+cDistance2) {
		return fmt.Errorf("%w: %s %s %s", ErrCollinear, a, b, c)
	}
	e.circumCenter = geometry2D.NewCoordinate(
		a.X-xNumerator/denominator,
		a.Y+yNumerator/denominator)
	e.circumRadius = geometry2D.Distance(e.circumCenter, a)
	return
}

func (e *Element) initEdges() {
	e.numEdge = e.numCoord*(e.numCoord-1)/2 // 1 for a segment, 3 for a triangle
	for i := 0; i < e.numEdge; i++ {
		first, second := e.coordinates[i], e.coordinates[(i+1)%e.numCoord]
		e.edges[i] = geometry2D.NewEdge(first, second)
		e.midpoints[i] = geometry2D.Midpoint(first, second)
		e.radii[i] = geometry2D.Distance(first, e.midpoints[i])
	}
}

func (e *Element) Ownership() *utils.Owner { return &e.owner }

func (e *Element) ID() types.ElementID { return e.id }

func (e *Element) Type() ElementType {
	if e.numCoord == 2 {
		return Segment
	}
	return Triangle
}

func (e *Element) IsSegment() bool { return e.numCoord == 2 }

func (e *Element) NumEdge() int { return e.numEdge }

func (e *Element) Edge(i int) geometry2D.Edge { return e.edges[i] }

func (e *Element) Midpoint(i int) geometry2D.Coordinate { return e.midpoints[i] }

// Radius is half the length of edge i
func (e *Element) Radius(i int) float64 { return e.radii[i] }

func (e *Element) Coordinates() []geometry2D.Coordinate {
	return e.coordinates[:e.numCoord]
}

func (e *Element) CircumCenter() geometry2D.Coordinate { return e.circumCenter }

func (e *Element) CircumRadius() float64 { return e.circumRadius }

// MinAngle is the smallest interior angle of a triangle, zero for a segment
func (e *Element) MinAngle() float64 { return e.minAngle }

func (e *Element) IsSkinny() bool { return e.isSkinny }

func (e *Element) IsInCircumCircle(p geometry2D.Coordinate) bool {
	return geometry2D.Distance(e.circumCenter, p) <= e.circumRadius
}

func (e *Element) EncroachedEdge() (edge geometry2D.Edge, ok bool) {
	if e.encroached == noEdge {
		return
	}
	return e.edges[e.encroached], true
}

func (e *Element) clearEncroached() {
	e.encroached = noEdge
}

func (e *Element) IsBad() bool {
	return e.encroached != noEdge || e.isSkinny
}

// NewPoint is the Steiner point that refines this element: the midpoint of the
// encroached edge if there is one, otherwise the circumcenter.
func (e *Element) NewPoint() geometry2D.Coordinate {
	if e.encroached != noEdge {
		return e.midpoints[e.encroached]
	}
	return e.circumCenter
}

func (e *Element) Priority() int {
	switch {
	case e.IsSegment():
		return PrioritySegment
	case e.encroached != noEdge:
		return PriorityEncroached
	}
	return PrioritySkinny
}

func (e *Element) Neighbors() []types.ElementID {
	return e.neighbors[:e.numNeighbor]
}

func (e *Element) HasNeighbor(id types.ElementID) bool {
	for _, nid := range e.Neighbors() {
		if nid == id {
			return true
		}
	}
	return false
}

// AddNeighbor is idempotent. An element can have at most one neighbour per edge.
func (e *Element) AddNeighbor(id types.ElementID) {
	if e.HasNeighbor(id) {
		return
	}
	if e.numNeighbor == e.numEdge {
		panic(fmt.Errorf("%s %v already has %d neighbors, cannot add %v",
			e.Type(), e.id, e.numNeighbor, id))
	}
	e.neighbors[e.numNeighbor] = id
	e.numNeighbor++
}

func (e *Element) RemoveNeighbor(id types.ElementID) (removed bool) {
	for i, nid := range e.Neighbors() {
		if nid == id {
			last := e.numNeighbor - 1
			e.neighbors[i] = e.neighbors[last]
			e.neighbors[last] = types.NoElement
			e.numNeighbor--
			return true
		}
	}
	return
}

// CommonEdge finds the edge shared with other
func (e *Element) CommonEdge(other *Element) (edge geometry2D.Edge, ok bool) {
	for i := 0; i < e.numEdge; i++ {
		for j := 0; j < other.numEdge; j++ {
			if e.edges[i] == other.edges[j] {
				return e.edges[i], true
			}
		}
	}
	return
}

func (e *Element) IsGarbage() bool { return e.garbage.Load() }

func (e *Element) String() string {
	return fmt.Sprintf("%s%v%v", e.Type(), e.id, e.Coordinates())
}

// Compare orders elements by edge count, then coordinates
func Compare(a, b *Element) int {
	if a.numEdge != b.numEdge {
		if a.numEdge < b.numEdge {
			return -1
		}
		return 1
	}
	for i := 0; i < a.numCoord; i++ {
		if c := geometry2D.Compare(a.coordinates[i], b.coordinates[i]); c != 0 {
			return c
		}
	}
	return 0
}
