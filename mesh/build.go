package mesh

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/notargets/yada/geometry2D"
	"github.com/notargets/yada/types"
	"github.com/notargets/yada/utils"
)

/*
Input is a mesh as read from disk: node coordinates, boundary segments and
triangles, both given as indices into Nodes.
*/
type Input struct {
	Nodes     []geometry2D.Coordinate
	Segments  [][2]int
	Triangles [][3]int
}

func (in Input) NumElements() int {
	return len(in.Segments) + len(in.Triangles)
}

// Validate checks node references and the edge sharing rules of a planar mesh:
// every segment edge is unique and borders exactly one triangle, every other
// triangle edge is shared by exactly two triangles.
func (in Input) Validate() (err error) {
	var (
		Nv          = len(in.Nodes)
		segEdges    = make(map[geometry2D.Edge]int, len(in.Segments))
		triEdges    = make(map[geometry2D.Edge]int, 3*len(in.Triangles))
		checkVertex = func(kind string, k, v int) error {
			if v < 0 || v >= Nv {
				return fmt.Errorf("%s %d references node %d, have %d nodes", kind, k, v, Nv)
			}
			return nil
		}
	)
	for k, seg := range in.Segments {
		var segErr error
		for _, v := range seg {
			segErr = multierr.Append(segErr, checkVertex("segment", k, v))
		}
		if segErr == nil && seg[0] == seg[1] {
			segErr = fmt.Errorf("segment %d is degenerate", k)
		}
		if segErr != nil {
			err = multierr.Append(err, segErr)
			continue
		}
		segEdges[geometry2D.NewEdge(in.Nodes[seg[0]], in.Nodes[seg[1]])]++
	}
	for k, tri := range in.Triangles {
		var triErr error
		for _, v := range tri {
			triErr = multierr.Append(triErr, checkVertex("triangle", k, v))
		}
		if triErr != nil {
			err = multierr.Append(err, triErr)
			continue
		}
		for i := 0; i < 3; i++ {
			triEdges[geometry2D.NewEdge(in.Nodes[tri[i]], in.Nodes[tri[(i+1)%3]])]++
		}
	}
	for edge, count := range segEdges {
		if count > 1 {
			err = multierr.Append(err, fmt.Errorf("boundary edge %s repeated %d times", edge, count))
		}
		if triEdges[edge] != 1 {
			err = multierr.Append(err, fmt.Errorf("boundary edge %s borders %d triangles, need 1",
				edge, triEdges[edge]))
		}
	}
	for edge, count := range triEdges {
		if _, isBoundary := segEdges[edge]; isBoundary {
			continue
		}
		if count != 2 {
			err = multierr.Append(err, fmt.Errorf("interior edge %s shared by %d triangles, need 2 or a boundary segment",
				edge, count))
		}
	}
	return
}

/*
Build creates a mesh from input: segments are inserted first so that the
boundary set is complete before any triangle decides whether its encroached edge
is real. The handles of every element that starts out bad are returned so the
caller can seed the worklist.
*/
func Build(input Input, angleConstraint float64) (m *Mesh, bad []types.ElementID, err error) {
	if err = input.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid mesh: %w", err)
	}
	m = NewMesh(angleConstraint)
	var (
		edgeMap  = make(EdgeMap, len(input.Segments)+3*len(input.Triangles))
		elements = make([]*Element, 0, input.NumElements())
	)
	for k, seg := range input.Segments {
		e, buildErr := m.NewElement(input.Nodes[seg[0]], input.Nodes[seg[1]])
		if buildErr != nil {
			err = multierr.Append(err, fmt.Errorf("segment %d: %w", k, buildErr))
			continue
		}
		elements = append(elements, e)
	}
	for k, tri := range input.Triangles {
		e, buildErr := m.NewElement(input.Nodes[tri[0]], input.Nodes[tri[1]], input.Nodes[tri[2]])
		if buildErr != nil {
			err = multierr.Append(err, fmt.Errorf("triangle %d: %w", k, buildErr))
			continue
		}
		elements = append(elements, e)
	}
	if err != nil {
		return nil, nil, err
	}
	err = m.space.Atomically(func(tx *utils.Txn) error {
		for _, e := range elements {
			if e.IsSegment() {
				m.InsertBoundary(e.Edge(0))
			}
			m.Insert(tx, e, edgeMap)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	for _, e := range elements {
		if e.IsBad() {
			bad = append(bad, e.ID())
		}
	}
	return
}
