package mesh

import (
	"github.com/notargets/yada/geometry2D"
)

// Standard meshes shared by the tests of this and dependent packages

/*
NewGridInput covers the rectangle [0,width]x[0,height] with nx by ny cells, each
split into two right triangles. The diagonals alternate like a checkerboard so
the mesh has no preferred direction. Every hull edge is a boundary segment.
Stretched cells (width/nx much larger than height/ny) give skinny triangles.
*/
func NewGridInput(nx, ny int, width, height float64) (in Input) {
	var (
		dx, dy = width / float64(nx), height / float64(ny)
		nodeID = func(i, j int) int { return j*(nx+1) + i }
	)
	in.Nodes = make([]geometry2D.Coordinate, 0, (nx+1)*(ny+1))
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			in.Nodes = append(in.Nodes, geometry2D.NewCoordinate(float64(i)*dx, float64(j)*dy))
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			var (
				sw, se = nodeID(i, j), nodeID(i+1, j)
				nw, ne = nodeID(i, j+1), nodeID(i+1, j+1)
			)
			if (i+j)%2 == 0 {
				in.Triangles = append(in.Triangles, [3]int{sw, se, ne}, [3]int{sw, ne, nw})
			} else {
				in.Triangles = append(in.Triangles, [3]int{sw, se, nw}, [3]int{se, ne, nw})
			}
		}
	}
	for i := 0; i < nx; i++ {
		in.Segments = append(in.Segments,
			[2]int{nodeID(i, 0), nodeID(i+1, 0)},
			[2]int{nodeID(i, ny), nodeID(i+1, ny)})
	}
	for j := 0; j < ny; j++ {
		in.Segments = append(in.Segments,
			[2]int{nodeID(0, j), nodeID(0, j+1)},
			[2]int{nodeID(nx, j), nodeID(nx, j+1)})
	}
	return
}

// NewRightTriangleInput is the 3-4-5 triangle with its three sides as segments
func NewRightTriangleInput() Input {
	return Input{
		Nodes: []geometry2D.Coordinate{
			geometry2D.NewCoordinate(0, 0),
			geometry2D.NewCoordinate(4, 0),
			geometry2D.NewCoordinate(0, 3),
		},
		Segments:  [][2]int{{0, 1}, {1, 2}, {2, 0}},
		Triangles: [][3]int{{0, 1, 2}},
	}
}

/*
NewObtuseInput is a square split along one diagonal and then fanned from a
point pushed close to the bottom side. The triangle on the bottom side has an
angle above 90 degrees opposite that boundary segment, so it starts encroached.
*/
func NewObtuseInput() Input {
	return Input{
		Nodes: []geometry2D.Coordinate{
			geometry2D.NewCoordinate(0, 0),
			geometry2D.NewCoordinate(2, 0),
			geometry2D.NewCoordinate(2, 2),
			geometry2D.NewCoordinate(0, 2),
			geometry2D.NewCoordinate(1, 0.4),
		},
		Segments: [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
		Triangles: [][3]int{
			{0, 1, 4},
			{1, 2, 4},
			{2, 3, 4},
			{3, 0, 4},
		},
	}
}

// NewRingInput is the 4x4 square with the 2x2 square at its centre cut out,
// eight triangles around one hole.
func NewRingInput() Input {
	return Input{
		Nodes: []geometry2D.Coordinate{
			geometry2D.NewCoordinate(0, 0),
			geometry2D.NewCoordinate(4, 0),
			geometry2D.NewCoordinate(4, 4),
			geometry2D.NewCoordinate(0, 4),
			geometry2D.NewCoordinate(1, 1),
			geometry2D.NewCoordinate(3, 1),
			geometry2D.NewCoordinate(3, 3),
			geometry2D.NewCoordinate(1, 3),
		},
		Segments: [][2]int{
			{0, 1}, {1, 2}, {2, 3}, {3, 0},
			{4, 5}, {5, 6}, {6, 7}, {7, 4},
		},
		Triangles: [][3]int{
			{0, 1, 5}, {0, 5, 4},
			{1, 2, 6}, {1, 6, 5},
			{2, 3, 7}, {2, 7, 6},
			{3, 0, 4}, {3, 4, 7},
		},
	}
}

/*
NewFoldedInput passes every edge sharing rule but overlaps itself: the triangle
below the top one folds back across it, and its vertical side is a boundary
segment through the midpoint of the bottom segment. The top triangle is obtuse
against the bottom segment, so it starts encroached, and splitting that segment
can never be retriangulated.
*/
func NewFoldedInput() Input {
	return Input{
		Nodes: []geometry2D.Coordinate{
			geometry2D.NewCoordinate(0, 0),
			geometry2D.NewCoordinate(4, 0),
			geometry2D.NewCoordinate(2, 1),
			geometry2D.NewCoordinate(2, -1),
		},
		Segments:  [][2]int{{0, 1}, {0, 2}, {3, 2}, {3, 1}},
		Triangles: [][3]int{{0, 1, 2}, {1, 2, 3}},
	}
}
