package mesh

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/notargets/yada/geometry2D"
	"github.com/notargets/yada/types"
	"github.com/notargets/yada/utils"
)

func TestMeshInsert(t *testing.T) {
	var (
		m       = NewMesh(20)
		edgeMap = make(EdgeMap)
	)
	a, _ := m.NewElement(coords(0, 0, 1, 0, 0, 1)...)
	b, _ := m.NewElement(coords(1, 0, 1, 1, 0, 1)...)
	s, _ := m.NewElement(coords(0, 0, 1, 0)...)
	err := m.Space().Atomically(func(tx *utils.Txn) error {
		m.InsertBoundary(s.Edge(0))
		m.Insert(tx, s, edgeMap)
		m.Insert(tx, a, edgeMap)
		m.Insert(tx, b, edgeMap)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Size())
	assert.Equal(t, s.ID(), m.Root())
	assert.True(t, a.HasNeighbor(b.ID()))
	assert.True(t, b.HasNeighbor(a.ID()))
	assert.True(t, a.HasNeighbor(s.ID()))
	assert.True(t, s.HasNeighbor(a.ID()))
	assert.Len(t, b.Neighbors(), 1)
	// Every claim is dropped at commit
	for _, e := range []*Element{a, b, s} {
		assert.Zero(t, e.Ownership().Holder())
	}
}

func TestMeshThirdSharer(t *testing.T) {
	var (
		m       = NewMesh(20)
		edgeMap = make(EdgeMap)
	)
	a, _ := m.NewElement(coords(0, 0, 1, 0, 0, 1)...)
	b, _ := m.NewElement(coords(1, 0, 1, 1, 0, 1)...)
	c, _ := m.NewElement(coords(1, 0, 0, 1, -1, -1)...)
	assert.Panics(t, func() {
		_ = m.Space().Atomically(func(tx *utils.Txn) error {
			m.Insert(tx, a, edgeMap)
			m.Insert(tx, b, edgeMap)
			m.Insert(tx, c, edgeMap)
			return nil
		})
	})
	// The panic released the claims taken before it
	assert.Zero(t, a.Ownership().Holder())
	assert.Zero(t, b.Ownership().Holder())
}

func TestMeshInsertTwice(t *testing.T) {
	var (
		m       = NewMesh(20)
		edgeMap = make(EdgeMap)
	)
	a, _ := m.NewElement(coords(0, 0, 1, 0, 0, 1)...)
	var panicked error
	func() {
		defer func() { panicked, _ = recover().(error) }()
		_ = m.Space().Atomically(func(tx *utils.Txn) error {
			m.Insert(tx, a, edgeMap)
			m.Insert(tx, a, edgeMap)
			return nil
		})
	}()
	assert.ErrorContains(t, panicked, fmt.Sprintf("already inserted as %v", types.NewElementID(0, 1)))
	// The first insert stands, no second slot was taken
	assert.Equal(t, 1, m.Size())
	assert.Equal(t, 1, m.arena.Slots())
	assert.Same(t, a, m.Lookup(a.ID()))
}

func TestMeshRemove(t *testing.T) {
	m, bad, err := Build(NewRightTriangleInput(), 20)
	require.NoError(t, err)
	assert.Empty(t, bad)
	assert.Equal(t, 4, m.Size())
	assert.Equal(t, 3, m.BoundarySize())

	var tri *Element
	m.ForEach(func(e *Element) bool {
		if !e.IsSegment() {
			tri = e
			return false
		}
		return true
	})
	require.NotNil(t, tri)
	require.Len(t, tri.Neighbors(), 3)

	{ // Removing without owning the neighbours panics
		assert.Panics(t, func() {
			_ = m.Space().Atomically(func(tx *utils.Txn) error {
				if err := tx.Acquire(tri); err != nil {
					return err
				}
				m.Remove(tx, tri)
				return nil
			})
		})
		assert.False(t, tri.IsGarbage())
	}

	segments := make([]*Element, 0, 3)
	for _, nid := range tri.Neighbors() {
		segments = append(segments, m.Lookup(nid))
	}
	triID := tri.ID()
	err = m.Space().Atomically(func(tx *utils.Txn) error {
		if err := tx.Acquire(tri); err != nil {
			return err
		}
		for _, s := range segments {
			if err := tx.Acquire(s); err != nil {
				return err
			}
		}
		m.Remove(tx, tri)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, tri.IsGarbage())
	assert.Nil(t, m.Lookup(triID))
	assert.Equal(t, 3, m.Size())
	for _, s := range segments {
		assert.Empty(t, s.Neighbors())
	}
}

func TestBoundarySet(t *testing.T) {
	var (
		m    = NewMesh(20)
		edge = geometry2D.NewEdge(coords(1, 1)[0], coords(0, 0)[0])
	)
	assert.True(t, m.InsertBoundary(edge))
	assert.False(t, m.InsertBoundary(geometry2D.NewEdge(coords(0, 0)[0], coords(1, 1)[0])))
	assert.Equal(t, 1, m.BoundarySize())
	assert.True(t, m.IsBoundary(edge))
	assert.Equal(t, []geometry2D.Edge{edge}, m.BoundaryEdges())
	assert.True(t, m.RemoveBoundary(edge))
	assert.False(t, m.RemoveBoundary(edge))
	assert.Zero(t, m.BoundarySize())
	assert.False(t, m.IsBoundary(edge))
}

func TestBuild(t *testing.T) {
	{ // Square grid of right isosceles triangles is already good
		input := NewGridInput(2, 1, 2, 1)
		require.NoError(t, input.Validate())
		assert.Equal(t, 10, input.NumElements())
		m, bad, err := Build(input, 20)
		require.NoError(t, err)
		assert.Empty(t, bad)
		assert.Equal(t, 10, m.Size())
		assert.Equal(t, 6, m.BoundarySize())
		report, err := m.Verify(10)
		require.NoError(t, err)
		assert.Equal(t, 4, report.Triangles)
		assert.Equal(t, 6, report.Segments)
		assert.Equal(t, 6, report.Vertices)
		assert.Equal(t, 9, report.Edges)
		assert.Equal(t, 1, report.EulerCharacteristic())
		assert.Zero(t, report.Bad())
		assert.Zero(t, report.NonDelaunayEdges)
		assert.InDelta(t, 45., report.MinAngle, 1.e-9)
		_, err = m.Verify(11)
		assert.Error(t, err)
	}
	{ // Stretched grid is all skinny
		input := NewGridInput(4, 2, 4, 0.5)
		m, bad, err := Build(input, 20)
		require.NoError(t, err)
		assert.Len(t, bad, 16)
		for _, id := range bad {
			e := m.Lookup(id)
			require.NotNil(t, e)
			assert.True(t, e.IsSkinny())
			_, encroached := e.EncroachedEdge()
			assert.False(t, encroached)
		}
		report, err := m.Verify(-1)
		assert.Error(t, err)
		assert.Equal(t, 16, report.Skinny)
		assert.Equal(t, 1, report.EulerCharacteristic())
	}
	{ // Obtuse triangle on the boundary starts encroached
		m, bad, err := Build(NewObtuseInput(), 20)
		require.NoError(t, err)
		require.Len(t, bad, 1)
		e := m.Lookup(bad[0])
		assert.Equal(t, PriorityEncroached, e.Priority())
		report, err := m.Verify(8)
		assert.Error(t, err)
		assert.Equal(t, 1, report.Encroached)
		assert.Zero(t, report.Skinny)
	}
}

func TestBuildInvalid(t *testing.T) {
	{ // Node out of range
		input := NewRightTriangleInput()
		input.Triangles[0][2] = 9
		_, _, err := Build(input, 20)
		assert.Error(t, err)
	}
	{ // Hull edges without segments
		input := NewGridInput(2, 2, 1, 1)
		input.Segments = input.Segments[:len(input.Segments)-1]
		assert.Error(t, input.Validate())
	}
	{ // Repeated segment
		input := NewRightTriangleInput()
		input.Segments = append(input.Segments, [2]int{1, 0})
		assert.Error(t, input.Validate())
	}
	{ // Collinear triangle passes the edge rules but not construction
		input := Input{
			Nodes:     coords(0, 0, 1, 0, 2, 0),
			Segments:  [][2]int{{0, 1}, {1, 2}, {2, 0}},
			Triangles: [][3]int{{0, 1, 2}},
		}
		require.NoError(t, input.Validate())
		_, _, err := Build(input, 20)
		assert.ErrorIs(t, err, ErrCollinear)
	}
}

func TestExport(t *testing.T) {
	m, _, err := Build(NewGridInput(3, 2, 3, 2), 20)
	require.NoError(t, err)
	out := m.Export()
	assert.Len(t, out.Nodes, 12)
	assert.Len(t, out.Triangles, 12)
	assert.Len(t, out.Segments, 10)
	require.NoError(t, out.Validate())

	again, _, err := Build(out, 20)
	require.NoError(t, err)
	_, err = again.Verify(m.Size())
	assert.NoError(t, err)
	assert.NotEqual(t, types.NoElement, again.Root())
}

func TestVerifyTopology(t *testing.T) {
	{ // One hole, V - E + F = 1 - 1
		m, _, err := Build(NewRingInput(), 10)
		require.NoError(t, err)
		report, err := m.Verify(16)
		assert.Equal(t, 8, report.Vertices)
		assert.Equal(t, 16, report.Edges)
		assert.Equal(t, 1, report.Components)
		assert.Equal(t, 2, report.BoundaryLoops)
		assert.Equal(t, 1, report.Holes())
		assert.Zero(t, report.EulerCharacteristic())
		// The corner triangles are obtuse against the outer sides, nothing else is wrong
		for _, e := range multierr.Errors(err) {
			assert.NotContains(t, e.Error(), "Euler")
		}

		// Joining the two loops claims the hole is gone
		bridge := geometry2D.NewEdge(geometry2D.NewCoordinate(0, 0), geometry2D.NewCoordinate(1, 1))
		require.True(t, m.InsertBoundary(bridge))
		report, err = m.Verify(16)
		assert.Equal(t, 1, report.BoundaryLoops)
		assert.ErrorContains(t, err, "Euler characteristic 0, expected 1")
	}
	{ // Two disjoint triangles
		var (
			tri1    = coords(0, 0, 1, 0, 0, 1)
			tri2    = coords(5, 5, 6, 5, 5, 6)
			edgeUse = make(map[geometry2D.Edge][]*Element)
			verts   = make(map[geometry2D.Coordinate]int)
		)
		for _, tri := range [][]geometry2D.Coordinate{tri1, tri2} {
			for i, c := range tri {
				verts[c] = len(verts)
				edgeUse[geometry2D.NewEdge(c, tri[(i+1)%3])] = nil
			}
		}
		edges, components, loops := topology(edgeUse, verts, func(geometry2D.Edge) bool { return true })
		assert.Equal(t, 6, edges)
		assert.Equal(t, 2, components)
		assert.Equal(t, 2, loops)
		_, components, loops = topology(edgeUse, verts, func(geometry2D.Edge) bool { return false })
		assert.Equal(t, 2, components)
		assert.Zero(t, loops)
	}
}
