package refine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/yada/geometry2D"
	"github.com/notargets/yada/mesh"
	"github.com/notargets/yada/types"
)

func findElement(m *mesh.Mesh, match func(e *mesh.Element) bool) (found *mesh.Element) {
	m.ForEach(func(e *mesh.Element) bool {
		if match(e) {
			found = e
			return false
		}
		return true
	})
	return
}

func TestRegionSplitSegment(t *testing.T) {
	m, _, err := mesh.Build(mesh.NewRightTriangleInput(), 20)
	require.NoError(t, err)
	var (
		bottom = geometry2D.NewEdge(geometry2D.NewCoordinate(0, 0), geometry2D.NewCoordinate(4, 0))
		region = NewRegion(m, DefaultMaxRetries)
	)
	seg := findElement(m, func(e *mesh.Element) bool { return e.IsSegment() && e.Edge(0) == bottom })
	require.NotNil(t, seg)

	delta, err := region.Refine(seg.ID())
	require.NoError(t, err)
	// Segment and triangle out, two halves and two triangles in
	assert.Equal(t, 2, delta)
	assert.Equal(t, 6, m.Size())
	assert.Equal(t, 4, m.BoundarySize())
	assert.True(t, seg.IsGarbage())
	assert.Nil(t, m.Lookup(seg.ID()))
	assert.False(t, m.IsBoundary(bottom))
	assert.True(t, m.IsBoundary(geometry2D.NewEdge(geometry2D.NewCoordinate(0, 0), geometry2D.NewCoordinate(2, 0))))
	assert.True(t, m.IsBoundary(geometry2D.NewEdge(geometry2D.NewCoordinate(2, 0), geometry2D.NewCoordinate(4, 0))))

	// The triangle on the right has an obtuse angle at the split point
	require.Len(t, region.Bad(), 1)
	assert.Equal(t, mesh.PriorityEncroached, region.Bad()[0].Priority)

	report, err := m.Verify(6)
	assert.Error(t, err)
	assert.Equal(t, 1, report.Encroached)
	assert.Equal(t, 4, report.Segments)
	assert.Equal(t, 2, report.Triangles)
	assert.Equal(t, 1, report.EulerCharacteristic())

	// A stale handle is a no-op
	delta, err = region.Refine(seg.ID())
	assert.NoError(t, err)
	assert.Zero(t, delta)
	assert.Empty(t, region.Bad())
}

func TestRegionEncroachedSegmentFirst(t *testing.T) {
	m, bad, err := mesh.Build(mesh.NewObtuseInput(), 20)
	require.NoError(t, err)
	require.Len(t, bad, 1)
	obtuse := m.Lookup(bad[0])
	require.NotNil(t, obtuse)

	region := NewRegion(m, DefaultMaxRetries)
	delta, err := region.Refine(bad[0])
	require.NoError(t, err)
	assert.Equal(t, 2, delta)
	assert.True(t, obtuse.IsGarbage())
	assert.Empty(t, region.Bad())
	assert.Equal(t, 5, m.BoundarySize())

	report, err := m.Verify(10)
	require.NoError(t, err)
	assert.Zero(t, report.Bad())
	assert.Equal(t, 5, report.Segments)
	assert.Equal(t, 1, report.EulerCharacteristic())
	assert.Zero(t, m.Space().Stats().Conflicts)
}

func TestRegionSkinny(t *testing.T) {
	m, bad, err := mesh.Build(mesh.NewGridInput(4, 2, 4, 0.5), 20)
	require.NoError(t, err)
	require.NotEmpty(t, bad)
	var (
		region = NewRegion(m, DefaultMaxRetries)
		size   = m.Size()
	)
	for _, seed := range bad[:4] {
		delta, err := region.Refine(seed)
		require.NoError(t, err)
		size += delta
		assert.Equal(t, size, m.Size())
		for _, it := range region.Bad() {
			// A later step of the same refinement may already have replaced it
			if e := m.Lookup(it.ID); e != nil {
				assert.True(t, e.IsBad())
				assert.Equal(t, e.Priority(), it.Priority)
			}
		}
	}
	report, _ := m.Verify(size)
	assert.Equal(t, size, report.Elements)
	assert.Equal(t, 1, report.EulerCharacteristic())
	assertBoundaryOnHull(t, m, 4, 0.5)
}

// assertBoundaryOnHull checks that refinement only ever split the rectangle's sides
func assertBoundaryOnHull(t *testing.T, m *mesh.Mesh, width, height float64) {
	var (
		length  float64
		onSides = func(a, b geometry2D.Coordinate) bool {
			return (a.X == 0 && b.X == 0) || (a.X == width && b.X == width) ||
				(a.Y == 0 && b.Y == 0) || (a.Y == height && b.Y == height)
		}
	)
	for _, edge := range m.BoundaryEdges() {
		assert.True(t, onSides(edge[0], edge[1]), "boundary edge %s is off the hull", edge)
		length += edge.Length()
	}
	assert.InDelta(t, 2*(width+height), length, 1.e-9)
	segments := 0
	m.ForEach(func(e *mesh.Element) bool {
		if e.IsSegment() {
			segments++
			assert.True(t, m.IsBoundary(e.Edge(0)))
		}
		return true
	})
	assert.Equal(t, m.BoundarySize(), segments)
}

func TestRegionStaleSeed(t *testing.T) {
	m, _, err := mesh.Build(mesh.NewRightTriangleInput(), 20)
	require.NoError(t, err)
	region := NewRegion(m, DefaultMaxRetries)
	delta, err := region.Refine(types.NewElementID(100, 7))
	assert.NoError(t, err)
	assert.Zero(t, delta)
	assert.Equal(t, 4, m.Size())
}

func TestRegionDegenerate(t *testing.T) {
	m, bad, err := mesh.Build(mesh.NewFoldedInput(), 20)
	require.NoError(t, err)
	require.Len(t, bad, 1)
	var (
		top        = m.Lookup(bad[0])
		maxRetries = 3
		region     = NewRegion(m, maxRetries)
		size       = m.Size()
		bottom     = geometry2D.NewEdge(geometry2D.NewCoordinate(0, 0), geometry2D.NewCoordinate(4, 0))
	)
	require.NotNil(t, top)
	assert.Equal(t, mesh.PriorityEncroached, top.Priority())

	{ // The bottom segment first, directly
		seg := findElement(m, func(e *mesh.Element) bool { return e.IsSegment() && e.Edge(0) == bottom })
		require.NotNil(t, seg)
		delta, err := region.Refine(seg.ID())
		assert.True(t, errors.Is(err, ErrDegenerate))
		assert.ErrorContains(t, err, mesh.ErrCollinear.Error())
		assert.Zero(t, delta)
		assert.Equal(t, maxRetries, region.DegenerateRetries())
		assert.Empty(t, region.Bad())
		assert.Same(t, seg, m.Lookup(seg.ID()))
	}
	{ // Through the encroached triangle, which stays bad
		delta, err := NewRegion(m, maxRetries).Refine(top.ID())
		assert.True(t, errors.Is(err, ErrDegenerate))
		assert.Zero(t, delta)
		assert.Same(t, top, m.Lookup(top.ID()))
		assert.True(t, top.IsBad())
	}
	// Nothing was written and nothing is left claimed
	assert.Equal(t, size, m.Size())
	assert.True(t, m.IsBoundary(bottom))
	assert.Equal(t, 4, m.BoundarySize())
	m.ForEach(func(e *mesh.Element) bool {
		assert.Zero(t, e.Ownership().Holder())
		return true
	})
	report, err := m.Verify(size)
	assert.Equal(t, 1, report.Encroached)
	assert.Equal(t, 1, report.EulerCharacteristic())
	assert.ErrorContains(t, err, "encroach")
}
