package refine

import (
	"errors"
	"fmt"

	"github.com/notargets/yada/geometry2D"
	"github.com/notargets/yada/mesh"
	"github.com/notargets/yada/types"
	"github.com/notargets/yada/utils"
)

var ErrDegenerate = errors.New("degenerate cavity")

const DefaultMaxRetries = 8

/*
Region carves and retriangulates the cavity around one Steiner point at a time.
A worker owns one Region and reuses its scratch storage for every element it
refines; a Region must not be shared between goroutines.
*/
type Region struct {
	mesh       *mesh.Mesh
	maxRetries int

	center    geometry2D.Coordinate
	before    []*mesh.Element // Cavity, removed on commit
	visited   map[types.ElementID]struct{}
	queue     []*mesh.Element
	border    []geometry2D.Edge
	borderSet map[geometry2D.Edge]struct{}
	edgeMap   mesh.EdgeMap
	created   []*mesh.Element
	halves    [2]*mesh.Element
	spokes    map[geometry2D.Edge]int
	stepBad   []Item // Bad elements made by the current attempt
	bad       []Item // Bad elements made by committed steps
	stack     []types.ElementID

	degenerateRetries int
}

func NewRegion(m *mesh.Mesh, maxRetries int) *Region {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Region{
		mesh:       m,
		maxRetries: maxRetries,
		visited:    make(map[types.ElementID]struct{}),
		borderSet:  make(map[geometry2D.Edge]struct{}),
		edgeMap:    make(mesh.EdgeMap),
		spokes:     make(map[geometry2D.Edge]int),
	}
}

// Bad lists the bad elements created by the last Refine. The slice is reused
// by the next call.
func (r *Region) Bad() []Item { return r.bad }

// DegenerateRetries counts attempts repeated after a degenerate cavity
func (r *Region) DegenerateRetries() int { return r.degenerateRetries }

/*
Refine inserts the Steiner point of seed and retriangulates its cavity. When the
cavity of a triangle reaches a boundary segment that the new point encroaches
upon, the segment is refined first and the triangle is tried again afterwards,
if it still exists. delta is the change in element count over every committed
step, including those made before an error.
A stale or garbage seed is not an error and yields a zero delta.
*/
func (r *Region) Refine(seed types.ElementID) (delta int, err error) {
	r.bad = r.bad[:0]
	r.stack = append(r.stack[:0], seed)
	for len(r.stack) > 0 {
		top := r.stack[len(r.stack)-1]
		encroached, stepDelta, err := r.step(top)
		delta += stepDelta
		if err != nil {
			return delta, fmt.Errorf("refining %v: %w", top, err)
		}
		if encroached != types.NoElement {
			r.stack = append(r.stack, encroached)
			continue
		}
		r.stack = r.stack[:len(r.stack)-1]
	}
	return
}

// step runs one committed attempt on id, repeating degenerate attempts up to
// the retry limit.
func (r *Region) step(id types.ElementID) (encroached types.ElementID, delta int, err error) {
	for attempt := 0; ; attempt++ {
		encroached, delta, err = r.attempt(id)
		if !errors.Is(err, ErrDegenerate) || attempt >= r.maxRetries {
			return
		}
		r.degenerateRetries++
		utils.Backoff(attempt)
	}
}

func (r *Region) attempt(id types.ElementID) (encroached types.ElementID, delta int, err error) {
	err = r.mesh.Space().Atomically(func(tx *utils.Txn) (err error) {
		encroached, delta = types.NoElement, 0
		r.reset()
		seed := r.mesh.Lookup(id)
		if seed == nil {
			return
		}
		if err = tx.Acquire(seed); err != nil {
			return
		}
		if seed.IsGarbage() {
			return
		}
		var segment *mesh.Element
		if segment, err = r.grow(tx, seed); err != nil {
			return
		}
		if segment != nil {
			encroached = segment.ID()
			return
		}
		delta, err = r.retriangulate(tx, seed)
		return
	})
	if err == nil {
		r.bad = append(r.bad, r.stepBad...)
	}
	return
}

func (r *Region) reset() {
	r.before = r.before[:0]
	r.queue = r.queue[:0]
	r.border = r.border[:0]
	r.created = r.created[:0]
	r.stepBad = r.stepBad[:0]
	r.halves = [2]*mesh.Element{}
	clear(r.visited)
	clear(r.borderSet)
	clear(r.spokes)
	r.edgeMap.Clear()
}

/*
grow collects the cavity of the seed's new point breadth first. Every element
looked at is acquired before its neighbour set is read, whether it ends up in
the cavity or on its border. A triangle seed stops at the first boundary
segment whose diametral circle holds the new point, or that the point lies
beyond, and returns it. A segment seed never swallows another segment; that
segment's edge becomes part of the border.
*/
func (r *Region) grow(tx *utils.Txn, seed *mesh.Element) (encroached *mesh.Element, err error) {
	var (
		isSegment = seed.IsSegment()
	)
	r.center = seed.NewPoint()
	r.visited[seed.ID()] = struct{}{}
	r.queue = append(r.queue, seed)
	for head := 0; head < len(r.queue); head++ {
		current := r.queue[head]
		r.before = append(r.before, current)
		for _, nid := range current.Neighbors() {
			if _, seen := r.visited[nid]; seen {
				continue
			}
			nb := r.mesh.Lookup(nid)
			if nb == nil {
				panic(fmt.Errorf("%s lists released neighbor %v", current, nid))
			}
			if err = tx.Acquire(nb); err != nil {
				return
			}
			inside := nb.IsInCircumCircle(r.center)
			switch {
			case nb.IsSegment() && !isSegment && (inside || r.beyond(current, nb)):
				return nb, nil
			case inside && !nb.IsSegment():
				r.visited[nid] = struct{}{}
				r.queue = append(r.queue, nb)
				continue
			}
			edge, ok := current.CommonEdge(nb)
			if !ok {
				return nil, fmt.Errorf("%w: %s and %s share no edge", ErrDegenerate, current, nb)
			}
			if _, dup := r.borderSet[edge]; !dup {
				r.borderSet[edge] = struct{}{}
				r.border = append(r.border, edge)
				r.edgeMap[edge] = nid
			}
		}
	}
	return
}

// beyond reports whether the new point lies strictly on the far side of
// segment from the cavity triangle next to it.
func (r *Region) beyond(triangle, segment *mesh.Element) bool {
	var (
		edge = segment.Edge(0)
		apex geometry2D.Coordinate
	)
	for _, c := range triangle.Coordinates() {
		if c != edge[0] && c != edge[1] {
			apex = c
		}
	}
	return geometry2D.Orientation(edge[0], edge[1], apex)*
		geometry2D.Orientation(edge[0], edge[1], r.center) < 0
}

/*
retriangulate replaces the cavity with a fan of triangles from the new point to
each border edge. A segment seed is also split into two segments at the new
point. Every new element is built and the fan is checked to be closed before
the mesh is touched, so a degenerate cavity leaves the mesh unchanged.
*/
func (r *Region) retriangulate(tx *utils.Txn, seed *mesh.Element) (delta int, err error) {
	if seed.IsSegment() {
		ends := seed.Coordinates()
		for i, end := range ends {
			if end == r.center {
				return 0, fmt.Errorf("%w: %s too short to split", ErrDegenerate, seed)
			}
			if r.halves[i], err = r.mesh.NewElement(end, r.center); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrDegenerate, err)
			}
			r.spokes[r.halves[i].Edge(0)]++
		}
	}
	for _, edge := range r.border {
		e, buildErr := r.mesh.NewElement(r.center, edge[0], edge[1])
		if buildErr != nil {
			return 0, fmt.Errorf("%w: %v", ErrDegenerate, buildErr)
		}
		r.created = append(r.created, e)
		r.spokes[geometry2D.NewEdge(r.center, edge[0])]++
		r.spokes[geometry2D.NewEdge(r.center, edge[1])]++
	}
	for spoke, count := range r.spokes {
		if count != 2 {
			return 0, fmt.Errorf("%w: fan around %s is open at %s", ErrDegenerate, r.center, spoke)
		}
	}

	for _, e := range r.before {
		r.mesh.Remove(tx, e)
	}
	delta -= len(r.before)
	if seed.IsSegment() {
		r.mesh.RemoveBoundary(seed.Edge(0))
		for _, half := range r.halves {
			r.mesh.InsertBoundary(half.Edge(0))
			r.mesh.Insert(tx, half, r.edgeMap)
		}
		delta += 2
	}
	for _, e := range r.created {
		id := r.mesh.Insert(tx, e, r.edgeMap)
		if e.IsBad() {
			r.stepBad = append(r.stepBad, Item{ID: id, Priority: e.Priority()})
		}
	}
	delta += len(r.created)
	return
}
