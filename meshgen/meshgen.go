package meshgen

import (
	"fmt"

	"github.com/pradeep-pyro/triangle"
	"go.uber.org/multierr"

	"github.com/notargets/yada/geometry2D"
	"github.com/notargets/yada/mesh"
)

// Grid is a rectangle of nx by ny cells, two right triangles per cell
func Grid(nx, ny int, width, height float64) (mesh.Input, error) {
	if nx < 1 || ny < 1 {
		return mesh.Input{}, fmt.Errorf("grid needs at least one cell each way, have %d x %d", nx, ny)
	}
	if width <= 0 || height <= 0 {
		return mesh.Input{}, fmt.Errorf("grid size must be positive, have %g x %g", width, height)
	}
	return mesh.NewGridInput(nx, ny, width, height), nil
}

/*
ConstrainedDelaunay triangulates the planar straight line graph in pslg, nodes
and boundary segments, with Triangle. Any triangles already in pslg are ignored.
Regions enclosed by segments around a hole point are left empty. Every segment
of the result must border exactly one triangle, so the segments have to enclose
the domain.
*/
func ConstrainedDelaunay(pslg mesh.Input, holes []geometry2D.Coordinate) (out mesh.Input, err error) {
	var (
		pts   = make([][2]float64, len(pslg.Nodes))
		segs  = make([][2]int32, len(pslg.Segments))
		hls   = make([][2]float64, len(holes))
		index = make(map[geometry2D.Coordinate]int)
	)
	if len(pslg.Nodes) < 3 {
		return out, fmt.Errorf("need at least 3 nodes to triangulate, have %d", len(pslg.Nodes))
	}
	for i, c := range pslg.Nodes {
		pts[i] = [2]float64{c.X, c.Y}
	}
	for i, s := range pslg.Segments {
		for j, v := range s {
			if v < 0 || v >= len(pslg.Nodes) {
				return out, fmt.Errorf("segment %d references node %d, have %d nodes", i, v, len(pslg.Nodes))
			}
			segs[i][j] = int32(v)
		}
	}
	for i, h := range holes {
		hls[i] = [2]float64{h.X, h.Y}
	}
	verts, faces := triangle.ConstrainedDelaunay(pts, segs, hls)

	out.Nodes = make([]geometry2D.Coordinate, len(verts))
	for i, v := range verts {
		out.Nodes[i] = geometry2D.NewCoordinate(v[0], v[1])
		index[out.Nodes[i]] = i
	}
	out.Triangles = make([][3]int, len(faces))
	for k, f := range faces {
		out.Triangles[k] = [3]int{int(f[0]), int(f[1]), int(f[2])}
	}
	// Triangle may renumber vertices, so segments are matched by coordinates
	out.Segments = make([][2]int, 0, len(pslg.Segments))
	for i, s := range pslg.Segments {
		a, okA := index[pslg.Nodes[s[0]]]
		b, okB := index[pslg.Nodes[s[1]]]
		if !okA || !okB {
			err = multierr.Append(err, fmt.Errorf("segment %d lost its endpoints in the triangulation", i))
			continue
		}
		out.Segments = append(out.Segments, [2]int{a, b})
	}
	if err != nil {
		return
	}
	if err = out.Validate(); err != nil {
		return out, fmt.Errorf("triangulation does not match the segments: %w", err)
	}
	return
}
