package mesh

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/notargets/yada/geometry2D"
	"github.com/notargets/yada/types"
	"github.com/notargets/yada/utils"
)

/*
EdgeMap is the scratch map used while stitching elements together. An edge maps
to the element that first inserted it; once a second element shares the edge the
entry is replaced by NoElement, which marks the edge as paired.
*/
type EdgeMap map[geometry2D.Edge]types.ElementID

func (em EdgeMap) Clear() {
	for k := range em {
		delete(em, k)
	}
}

// Mesh is the shared collection of live elements plus the set of boundary edges
type Mesh struct {
	AngleConstraint float64

	arena        *Arena
	space        *utils.Space
	root         atomic.Uint64 // ElementID
	size         atomic.Int64
	boundary     sync.Map // geometry2D.Edge -> struct{}
	boundarySize atomic.Int64
}

func NewMesh(angleConstraint float64) *Mesh {
	return &Mesh{
		AngleConstraint: angleConstraint,
		arena:           NewArena(),
		space:           utils.NewSpace(),
	}
}

// Space is the transaction space every mutation of this mesh runs in
func (m *Mesh) Space() *utils.Space { return m.space }

func (m *Mesh) Lookup(id types.ElementID) *Element { return m.arena.Lookup(id) }

func (m *Mesh) Root() types.ElementID { return types.ElementID(m.root.Load()) }

// Size is the number of live elements
func (m *Mesh) Size() int { return int(m.size.Load()) }

func (m *Mesh) BoundarySize() int { return int(m.boundarySize.Load()) }

func (m *Mesh) NewElement(coordinates ...geometry2D.Coordinate) (*Element, error) {
	return NewElement(coordinates, m.AngleConstraint)
}

/*
Insert adds e to the mesh inside tx and stitches it to the elements that share
its edges through edgeMap. Any element found in edgeMap must already be owned by
tx. An edge can be shared by two elements at most; a third is a bookkeeping bug
and panics. An encroached edge that is not on the boundary is cleared since only
boundary segments can be split. An element is inserted at most once.
*/
func (m *Mesh) Insert(tx *utils.Txn, e *Element, edgeMap EdgeMap) (id types.ElementID) {
	if e.id != types.NoElement {
		panic(fmt.Errorf("%s already inserted as %v", e, e.id))
	}
	id = m.arena.Alloc(e)
	tx.Claim(e)
	m.root.CompareAndSwap(uint64(types.NoElement), uint64(id))
	for i := 0; i < e.NumEdge(); i++ {
		edge := e.Edge(i)
		sharerID, found := edgeMap[edge]
		if !found {
			edgeMap[edge] = id
			continue
		}
		if sharerID == types.NoElement {
			panic(fmt.Errorf("edge %s shared by more than two elements, inserting %s", edge, e))
		}
		sharer := m.Lookup(sharerID)
		if sharer == nil {
			panic(fmt.Errorf("edge %s maps to released element %v", edge, sharerID))
		}
		if !tx.Owns(sharer) {
			panic(fmt.Errorf("stitching %s to %s which the transaction does not own", e, sharer))
		}
		e.AddNeighbor(sharerID)
		sharer.AddNeighbor(id)
		edgeMap[edge] = types.NoElement
	}
	if edge, ok := e.EncroachedEdge(); ok && !m.IsBoundary(edge) {
		e.clearEncroached()
	}
	m.size.Inc()
	return
}

/*
Remove detaches e from its neighbours, marks it garbage and releases its slot.
tx must own e and all of its neighbours.
*/
func (m *Mesh) Remove(tx *utils.Txn, e *Element) {
	if !tx.Owns(e) {
		panic(fmt.Errorf("removing %s without owning it", e))
	}
	neighbors := make([]*Element, 0, 3)
	for _, nid := range e.Neighbors() {
		nb := m.Lookup(nid)
		if nb == nil {
			panic(fmt.Errorf("%s has released neighbor %v", e, nid))
		}
		if !tx.Owns(nb) {
			panic(fmt.Errorf("removing %s without owning neighbor %s", e, nb))
		}
		neighbors = append(neighbors, nb)
	}
	m.root.CompareAndSwap(uint64(e.id), uint64(types.NoElement))
	for _, nb := range neighbors {
		if !nb.RemoveNeighbor(e.id) {
			panic(fmt.Errorf("asymmetric neighbors: %s does not list %s", nb, e))
		}
	}
	e.numNeighbor = 0
	e.garbage.Store(true)
	m.arena.Release(e)
	m.size.Dec()
}

func (m *Mesh) InsertBoundary(edge geometry2D.Edge) (inserted bool) {
	if _, loaded := m.boundary.LoadOrStore(edge, struct{}{}); !loaded {
		m.boundarySize.Inc()
		return true
	}
	return false
}

func (m *Mesh) RemoveBoundary(edge geometry2D.Edge) (removed bool) {
	if _, loaded := m.boundary.LoadAndDelete(edge); loaded {
		m.boundarySize.Dec()
		return true
	}
	return false
}

func (m *Mesh) IsBoundary(edge geometry2D.Edge) bool {
	_, ok := m.boundary.Load(edge)
	return ok
}

func (m *Mesh) BoundaryEdges() (edges []geometry2D.Edge) {
	m.boundary.Range(func(key, _ any) bool {
		edges = append(edges, key.(geometry2D.Edge))
		return true
	})
	return
}

/*
ForEach walks the mesh breadth first from the root. It is not transactional and
must only run while no refinement is in progress. The walk stops early when fn
returns false.
*/
func (m *Mesh) ForEach(fn func(e *Element) bool) {
	var (
		root = m.Lookup(m.Root())
	)
	if root == nil {
		return
	}
	visited := map[types.ElementID]struct{}{root.id: {}}
	queue := []*Element{root}
	for head := 0; head < len(queue); head++ {
		e := queue[head]
		if !fn(e) {
			return
		}
		for _, nid := range e.Neighbors() {
			if _, seen := visited[nid]; seen {
				continue
			}
			visited[nid] = struct{}{}
			if nb := m.Lookup(nid); nb != nil {
				queue = append(queue, nb)
			}
		}
	}
}
