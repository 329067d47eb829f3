package mesh

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/yada/geometry2D"
	"github.com/notargets/yada/types"
)

// Report summarises a verification walk over the mesh
type Report struct {
	Elements         int
	Segments         int
	Triangles        int
	Vertices         int
	Edges            int
	Skinny           int // Triangles under the angle constraint
	Encroached       int // Triangles with an encroached boundary edge
	NonDelaunayEdges int // Interior edges failing the empty circumcircle test
	Components       int // Connected pieces of the vertex adjacency
	BoundaryLoops    int // Connected pieces of the boundary edges alone
	MinAngle         float64
	MeanMinAngle     float64
}

// EulerCharacteristic is V - E + F, 1 for a triangulated disk
func (r Report) EulerCharacteristic() int {
	return r.Vertices - r.Edges + r.Triangles
}

// Holes is the number of inner boundary loops; each component has one outer loop
func (r Report) Holes() int {
	return r.BoundaryLoops - r.Components
}

func (r Report) Bad() int {
	return r.Skinny + r.Encroached
}

func (r Report) Print() {
	fmt.Printf("Number of elements      = %d\n", r.Elements)
	fmt.Printf("  segments              = %d\n", r.Segments)
	fmt.Printf("  triangles             = %d\n", r.Triangles)
	fmt.Printf("Vertices, edges         = %d, %d\n", r.Vertices, r.Edges)
	fmt.Printf("Components, holes       = %d, %d\n", r.Components, r.Holes())
	fmt.Printf("Number of bad triangles = %d (%d skinny, %d encroached)\n", r.Bad(), r.Skinny, r.Encroached)
	fmt.Printf("Non Delaunay edges      = %d\n", r.NonDelaunayEdges)
	fmt.Printf("Minimum angle, mean     = %8.4f, %8.4f\n", r.MinAngle, r.MeanMinAngle)
}

// Relative tolerance applied to the in-circle determinant
const delaunayTol = 1.e-10

/*
Verify walks the mesh breadth first from the root and checks it: neighbour sets
are symmetric, every triangle meets the angle constraint, no boundary edge is
encroached, every boundary edge belongs to exactly one live segment and one
triangle, no edge is shared by more than two elements, and V - E + F equals the
number of components less the number of holes. When expected is not
negative the number of reachable elements must equal it. All violations are
combined into the returned error; the report is filled in either way.
*/
func (m *Mesh) Verify(expected int) (report Report, err error) {
	var (
		root      = m.Lookup(m.Root())
		visited   = make(map[types.ElementID]*Element)
		edgeUse   = make(map[geometry2D.Edge][]*Element)
		vertices  = make(map[geometry2D.Coordinate]int)
		minAngles []float64
	)
	if root == nil {
		if expected > 0 {
			err = fmt.Errorf("mesh has no root, expected %d elements", expected)
		}
		return
	}
	visited[root.id] = root
	queue := []*Element{root}
	for head := 0; head < len(queue); head++ {
		e := queue[head]
		if e.IsGarbage() {
			err = multierr.Append(err, fmt.Errorf("reached garbage element %s", e))
		}
		for _, c := range e.Coordinates() {
			if _, ok := vertices[c]; !ok {
				vertices[c] = len(vertices)
			}
		}
		for i := 0; i < e.NumEdge(); i++ {
			edgeUse[e.Edge(i)] = append(edgeUse[e.Edge(i)], e)
		}
		if e.IsSegment() {
			report.Segments++
		} else {
			report.Triangles++
			minAngles = append(minAngles, e.MinAngle())
			if e.IsSkinny() {
				report.Skinny++
			}
			if _, ok := e.EncroachedEdge(); ok {
				report.Encroached++
			}
		}
		for _, nid := range e.Neighbors() {
			nb := m.Lookup(nid)
			if nb == nil {
				err = multierr.Append(err, fmt.Errorf("%s lists released neighbor %v", e, nid))
				continue
			}
			if !nb.HasNeighbor(e.id) {
				err = multierr.Append(err, fmt.Errorf("asymmetric neighbors: %s lists %s but not the reverse", e, nb))
			}
			if _, ok := e.CommonEdge(nb); !ok {
				err = multierr.Append(err, fmt.Errorf("neighbors %s and %s share no edge", e, nb))
			}
			if _, seen := visited[nid]; !seen {
				visited[nid] = nb
				queue = append(queue, nb)
			}
		}
	}
	report.Elements = len(visited)
	report.Vertices = len(vertices)
	if report.Skinny > 0 {
		err = multierr.Append(err, fmt.Errorf("%d triangles below %g degrees", report.Skinny, m.AngleConstraint))
	}
	if report.Encroached > 0 {
		err = multierr.Append(err, fmt.Errorf("%d triangles encroach a boundary segment", report.Encroached))
	}
	if expected >= 0 && report.Elements != expected {
		err = multierr.Append(err, fmt.Errorf("reached %d elements, expected %d", report.Elements, expected))
	}
	if report.Elements != m.Size() {
		err = multierr.Append(err, fmt.Errorf("reached %d elements, mesh holds %d", report.Elements, m.Size()))
	}
	err = multierr.Append(err, m.checkEdges(edgeUse, &report))
	report.Edges, report.Components, report.BoundaryLoops = topology(edgeUse, vertices, m.IsBoundary)
	if report.Triangles > 0 {
		if want := report.Components - report.Holes(); report.EulerCharacteristic() != want {
			err = multierr.Append(err, fmt.Errorf("Euler characteristic %d, expected %d for %d components with %d holes",
				report.EulerCharacteristic(), want, report.Components, report.Holes()))
		}
	}
	if len(minAngles) > 0 {
		report.MinAngle = floats.Min(minAngles)
		report.MeanMinAngle = floats.Sum(minAngles) / float64(len(minAngles))
	}
	return
}

func (m *Mesh) checkEdges(edgeUse map[geometry2D.Edge][]*Element, report *Report) (err error) {
	for edge, users := range edgeUse {
		var (
			segments  []*Element
			triangles []*Element
		)
		for _, e := range users {
			if e.IsSegment() {
				segments = append(segments, e)
			} else {
				triangles = append(triangles, e)
			}
		}
		onBoundary := m.IsBoundary(edge)
		switch {
		case len(users) > 2:
			err = multierr.Append(err, fmt.Errorf("edge %s shared by %d elements", edge, len(users)))
		case len(segments) > 0 && !onBoundary:
			err = multierr.Append(err, fmt.Errorf("segment edge %s missing from the boundary set", edge))
		case onBoundary && (len(segments) != 1 || len(triangles) != 1):
			err = multierr.Append(err, fmt.Errorf("boundary edge %s used by %d segments and %d triangles",
				edge, len(segments), len(triangles)))
		case !onBoundary && len(triangles) != 2:
			err = multierr.Append(err, fmt.Errorf("interior edge %s used by %d triangles", edge, len(triangles)))
		case !onBoundary:
			if !isLocallyDelaunay(triangles[0], triangles[1], edge) {
				report.NonDelaunayEdges++
			}
		}
	}
	for _, edge := range m.BoundaryEdges() {
		if _, ok := edgeUse[edge]; !ok {
			err = multierr.Append(err, fmt.Errorf("boundary edge %s has no live segment", edge))
		}
	}
	return
}

func opposite(e *Element, edge geometry2D.Edge) geometry2D.Coordinate {
	for _, c := range e.Coordinates() {
		if c != edge[0] && c != edge[1] {
			return c
		}
	}
	panic(fmt.Errorf("%s has no vertex opposite %s", e, edge))
}

func isLocallyDelaunay(a, b *Element, edge geometry2D.Edge) bool {
	var (
		ca  = a.Coordinates()
		d   = opposite(b, edge)
		r2  = a.CircumRadius() * a.CircumRadius()
		det = geometry2D.InCircle(ca[0], ca[1], ca[2], d)
	)
	return det <= delaunayTol*r2*r2
}

/*
topology assembles the vertex adjacency of every walked edge, weighting boundary
edges 2 and interior edges 1. It returns the number of distinct edges, the
connected components of the whole graph and those of the boundary edges alone.
Boundary loops that touch at a vertex count as one.
*/
func topology(edgeUse map[geometry2D.Edge][]*Element, vertices map[geometry2D.Coordinate]int,
	isBoundary func(edge geometry2D.Edge) bool) (edges, components, loops int) {
	var (
		Nv = len(vertices)
	)
	if Nv == 0 {
		return
	}
	dok := sparse.NewDOK(Nv, Nv)
	for edge := range edgeUse {
		var (
			i, j   = vertices[edge[0]], vertices[edge[1]]
			weight = 1.
		)
		if isBoundary(edge) {
			weight = 2
		}
		dok.Set(i, j, weight)
		dok.Set(j, i, weight)
	}
	adj := dok.ToCSR()
	edges = adj.NNZ() / 2
	components = countComponents(adj, 1)
	loops = countComponents(adj, 2)
	return
}

// countComponents counts the groups of vertices joined by entries of at least
// minWeight. Vertices with no such entry belong to no group.
func countComponents(adj *sparse.CSR, minWeight float64) (count int) {
	var (
		Nv, _   = adj.Dims()
		visited = make([]bool, Nv)
		stack   = make([]int, 0, Nv)
	)
	hasEdge := func(i int) (found bool) {
		adj.DoRowNonZero(i, func(_, _ int, v float64) {
			found = found || v >= minWeight
		})
		return
	}
	for start := 0; start < Nv; start++ {
		if visited[start] || !hasEdge(start) {
			continue
		}
		count++
		visited[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			adj.DoRowNonZero(i, func(_, j int, v float64) {
				if v >= minWeight && !visited[j] {
					visited[j] = true
					stack = append(stack, j)
				}
			})
		}
	}
	return
}
