package readfiles

import (
	"github.com/notargets/avs/chart2d"
	graphics2D "github.com/notargets/avs/geometry"

	"github.com/notargets/yada/mesh"
	"github.com/notargets/yada/utils"
)

// NewTriMesh converts a mesh into the avs triangle mesh used for plotting
func NewTriMesh(input mesh.Input) (trimesh graphics2D.TriMesh) {
	var (
		K = len(input.Triangles)
	)
	trimesh.Geometry = make([]graphics2D.Point, len(input.Nodes))
	for i, c := range input.Nodes {
		trimesh.Geometry[i].X[0] = float32(c.X)
		trimesh.Geometry[i].X[1] = float32(c.Y)
	}
	trimesh.Triangles = make([]graphics2D.Triangle, K)
	for k, tri := range input.Triangles {
		for i := 0; i < 3; i++ {
			trimesh.Triangles[k].Nodes[i] = int32(tri[i])
		}
	}
	return
}

// PlotMesh draws the triangles in white and the boundary vertices in red
func PlotMesh(input mesh.Input, plotPoints bool) (chart *chart2d.Chart2D) {
	var (
		trimesh = NewTriMesh(input)
	)
	box := graphics2D.NewBoundingBox(trimesh.GetGeometry())
	box = box.Scale(1.5)
	chart = chart2d.NewChart2D(1920, 1920, box.XMin[0], box.XMax[0], box.XMin[1], box.XMax[1])
	go chart.Plot()
	if err := chart.AddTriMesh("TriMesh", trimesh,
		chart2d.CrossGlyph, chart2d.Solid, utils.GetColor(utils.White)); err != nil {
		panic("unable to add graph series")
	}
	if !plotPoints {
		return
	}
	x, y := BoundaryPoints(input)
	if err := chart.AddSeries("Boundary", x, y,
		chart2d.CircleGlyph, chart2d.NoLine, utils.GetColor(utils.Red)); err != nil {
		panic(err)
	}
	return
}

// BoundaryPoints returns the coordinates of every vertex on a segment, once each
func BoundaryPoints(input mesh.Input) (x, y []float64) {
	seen := make(map[int]bool, 2*len(input.Segments))
	for _, seg := range input.Segments {
		for _, v := range seg {
			if seen[v] {
				continue
			}
			seen[v] = true
			x = append(x, input.Nodes[v].X)
			y = append(y, input.Nodes[v].Y)
		}
	}
	return
}
