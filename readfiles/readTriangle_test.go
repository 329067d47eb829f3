package readfiles

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/yada/geometry2D"
	"github.com/notargets/yada/mesh"
)

// A unit square cut along one diagonal, ids starting at 1
var (
	squareNode = []byte(`# square
4 2 0 1
1 0.0 0.0 1
2 1.0 0.0 1

3 1.0 1.0 1   # top right
4 0.0 1.0 1
`)
	squarePoly = []byte(`0 2 0 1
4 1
1 1 2 1
2 2 3 1
3 3 4 1
4 4 1 1
1
1 5.0 5.0
`)
	squareEle = []byte(`2 3 0
1 1 2 3
2 1 3 4
`)
)

func writeSquare(t *testing.T, fs afero.Fs, prefix string) {
	require.NoError(t, afero.WriteFile(fs, prefix+".node", squareNode, 0644))
	require.NoError(t, afero.WriteFile(fs, prefix+".poly", squarePoly, 0644))
	require.NoError(t, afero.WriteFile(fs, prefix+".ele", squareEle, 0644))
}

func TestReadTriangle(t *testing.T) {
	{ // Nodes
		nodes, ids, err := ReadNodes(bytes.NewReader(squareNode), "square.node")
		require.NoError(t, err)
		assert.Len(t, nodes, 4)
		assert.Equal(t, geometry2D.NewCoordinate(1, 1), nodes[2])
		assert.Equal(t, NodeIDs{1: 0, 2: 1, 3: 2, 4: 3}, ids)
	}
	{ // Segments and holes
		_, ids, _ := ReadNodes(bytes.NewReader(squareNode), "square.node")
		segments, holes, err := ReadSegments(bytes.NewReader(squarePoly), "square.poly", ids)
		require.NoError(t, err)
		assert.Equal(t, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}, segments)
		assert.Equal(t, []geometry2D.Coordinate{geometry2D.NewCoordinate(5, 5)}, holes)
	}
	{ // Zero based ids and no hole section
		nodes, ids, err := ReadNodes(bytes.NewReader([]byte("3 2\n0 0 0\n1 4 0\n2 0 3\n")), "tri.node")
		require.NoError(t, err)
		assert.Len(t, nodes, 3)
		segments, holes, err := ReadSegments(bytes.NewReader([]byte("0 2 0 0\n3 0\n0 0 1\n1 1 2\n2 2 0\n")), "tri.poly", ids)
		require.NoError(t, err)
		assert.Nil(t, holes)
		assert.Equal(t, [][2]int{{0, 1}, {1, 2}, {2, 0}}, segments)
		triangles, err := ReadTriangles(bytes.NewReader([]byte("1 3 1\n0 0 1 2 0.5\n")), "tri.ele", ids)
		require.NoError(t, err)
		assert.Equal(t, [][3]int{{0, 1, 2}}, triangles)
	}
	{ // Segment count without the vertex header, with and without markers
		_, ids, _ := ReadNodes(bytes.NewReader(squareNode), "square.node")
		for _, poly := range []string{
			"4 1\n1 1 2 1\n2 2 3 1\n3 3 4 1\n4 4 1 1\n",
			"4\n1 1 2\n2 2 3\n3 3 4\n4 4 1\n0\n",
		} {
			segments, holes, err := ReadSegments(bytes.NewReader([]byte(poly)), "bare.poly", ids)
			require.NoError(t, err)
			assert.Empty(t, holes)
			assert.Equal(t, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}, segments)
		}
	}
	{ // Errors carry the file name and line
		_, _, err := ReadNodes(bytes.NewReader([]byte("2 3\n")), "bad.node")
		assert.ErrorContains(t, err, "bad.node line 1")
		_, _, err = ReadNodes(bytes.NewReader([]byte("2 2\n1 0 0\n")), "short.node")
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
		_, _, err = ReadNodes(bytes.NewReader([]byte("2 2\n1 0 0\n1 1 1\n")), "dup.node")
		assert.ErrorContains(t, err, "defined twice")
		_, _, err = ReadNodes(bytes.NewReader([]byte("1 2\n1 zero 0\n")), "nan.node")
		assert.Error(t, err)
		_, ids, _ := ReadNodes(bytes.NewReader(squareNode), "square.node")
		_, err = ReadTriangles(bytes.NewReader([]byte("1 3\n1 1 2 9\n")), "bad.ele", ids)
		assert.ErrorContains(t, err, "unknown node 9")
		_, err = ReadTriangles(bytes.NewReader([]byte("1 6\n1 1 2 3 4 5 6\n")), "quad.ele", ids)
		assert.Error(t, err)
		_, _, err = ReadSegments(bytes.NewReader([]byte("4 2 0 0\n")), "inline.poly", ids)
		assert.ErrorContains(t, err, "4 vertices listed")
		_, _, err = ReadSegments(bytes.NewReader([]byte("-1 0\n")), "negative.poly", ids)
		assert.ErrorContains(t, err, "negative segment count")
	}
}

func TestReadWriteMesh(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSquare(t, fs, "square")
	input, err := ReadMesh(fs, "square", false)
	require.NoError(t, err)
	require.NoError(t, input.Validate())
	assert.Equal(t, 6, input.NumElements())

	m, bad, err := mesh.Build(input, 20)
	require.NoError(t, err)
	assert.Empty(t, bad)
	_, err = m.Verify(6)
	require.NoError(t, err)

	// Round trip through the writer
	require.NoError(t, WriteMesh(fs, "out/square", m.Export()))
	again, err := ReadMesh(fs, "out/square", false)
	require.NoError(t, err)
	assert.Len(t, again.Nodes, 4)
	assert.Len(t, again.Segments, 4)
	assert.Len(t, again.Triangles, 2)
	require.NoError(t, again.Validate())

	_, err = ReadMesh(fs, "missing", false)
	assert.ErrorContains(t, err, "unable to open file missing.node")

	pslg, holes, _, err := ReadPSLG(fs, "square", false)
	require.NoError(t, err)
	assert.Len(t, holes, 1)
	assert.Empty(t, pslg.Triangles)
}

func TestPlotSupport(t *testing.T) {
	input := mesh.NewGridInput(2, 1, 2, 1)
	trimesh := NewTriMesh(input)
	assert.Len(t, trimesh.Geometry, 6)
	assert.Len(t, trimesh.Triangles, 4)
	assert.Equal(t, float32(2), trimesh.Geometry[5].X[0])
	x, y := BoundaryPoints(input)
	assert.Len(t, x, 6)
	assert.Len(t, y, 6)
}
