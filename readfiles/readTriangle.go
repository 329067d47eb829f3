package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/notargets/yada/geometry2D"
	"github.com/notargets/yada/mesh"
)

/*
Readers and writers for the file formats of Shewchuk's Triangle:
  <prefix>.node  vertices     header: count dim [attributes [markers]]
  <prefix>.poly  segments     header: 0 dim [attributes [markers]], then count [markers];
                              the vertex header may be left out
  <prefix>.ele   triangles    header: count nodesPerTriangle [attributes]
Each row starts with its own id. Node ids may start at 0 or 1; segment and
triangle rows refer to node ids, not positions. Everything after a '#' is a
comment and blank lines are skipped.
*/

// NodeIDs maps node ids as written in a .node file to positions in Nodes
type NodeIDs map[int]int

type lineReader struct {
	scanner *bufio.Scanner
	name    string
	line    int
}

func newLineReader(r io.Reader, name string) *lineReader {
	return &lineReader{scanner: bufio.NewScanner(r), name: name}
}

// next returns the fields of the next line holding data
func (lr *lineReader) next() (fields []string, err error) {
	for lr.scanner.Scan() {
		lr.line++
		text := lr.scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		if fields = strings.Fields(text); len(fields) > 0 {
			return
		}
	}
	if err = lr.scanner.Err(); err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, lr.errorf("%w", err)
}

func (lr *lineReader) errorf(format string, args ...any) error {
	return fmt.Errorf("%s line %d: %w", lr.name, lr.line, fmt.Errorf(format, args...))
}

// ints reads the next line and parses at least n leading integers
func (lr *lineReader) ints(n int) (vals []int, err error) {
	var fields []string
	if fields, err = lr.next(); err != nil {
		return
	}
	if len(fields) < n {
		return nil, lr.errorf("need %d values, found %d", n, len(fields))
	}
	vals = make([]int, len(fields))
	for i, f := range fields {
		if vals[i], err = strconv.Atoi(f); err != nil {
			if i < n {
				return nil, lr.errorf("%w", err)
			}
			// Trailing attributes may be floating point
			vals, err = vals[:i], nil
			break
		}
	}
	return
}

func ReadNodes(r io.Reader, name string) (nodes []geometry2D.Coordinate, ids NodeIDs, err error) {
	var (
		lr     = newLineReader(r, name)
		header []int
	)
	if header, err = lr.ints(2); err != nil {
		return
	}
	count, dim := header[0], header[1]
	if dim != 2 {
		return nil, nil, lr.errorf("dimension %d, only 2 is supported", dim)
	}
	nodes = make([]geometry2D.Coordinate, count)
	ids = make(NodeIDs, count)
	for i := 0; i < count; i++ {
		var fields []string
		if fields, err = lr.next(); err != nil {
			return nil, nil, err
		}
		if len(fields) < 3 {
			return nil, nil, lr.errorf("node row needs an id and 2 coordinates")
		}
		var (
			id     int
			x, y   float64
			rowErr error
		)
		id, rowErr = strconv.Atoi(fields[0])
		rowErr = multierr.Append(rowErr, parseFloat(fields[1], &x))
		rowErr = multierr.Append(rowErr, parseFloat(fields[2], &y))
		if rowErr != nil {
			return nil, nil, lr.errorf("%w", rowErr)
		}
		if _, dup := ids[id]; dup {
			return nil, nil, lr.errorf("node %d defined twice", id)
		}
		ids[id] = i
		nodes[i] = geometry2D.NewCoordinate(x, y)
	}
	return
}

func parseFloat(s string, f *float64) (err error) {
	*f, err = strconv.ParseFloat(s, 64)
	return
}

func (ids NodeIDs) resolve(lr *lineReader, row []int) (err error) {
	for i, id := range row {
		pos, ok := ids[id]
		if !ok {
			return lr.errorf("unknown node %d", id)
		}
		row[i] = pos
	}
	return
}

// ReadSegments reads the segment section of a .poly file and, if present, its holes
func ReadSegments(r io.Reader, name string, ids NodeIDs) (segments [][2]int, holes []geometry2D.Coordinate, err error) {
	var (
		lr     = newLineReader(r, name)
		header []int
	)
	if header, err = lr.ints(1); err != nil {
		return
	}
	// A full vertex header has 4 fields, a bare segment header 1 or 2
	if len(header) > 2 {
		if header[0] != 0 {
			return nil, nil, lr.errorf("%d vertices listed in the .poly file, keep them in the .node file", header[0])
		}
		if header, err = lr.ints(1); err != nil {
			return
		}
	}
	if header[0] < 0 {
		return nil, nil, lr.errorf("negative segment count %d", header[0])
	}
	segments = make([][2]int, header[0])
	for i := range segments {
		var row []int
		if row, err = lr.ints(3); err != nil {
			return nil, nil, err
		}
		seg := []int{row[1], row[2]}
		if err = ids.resolve(lr, seg); err != nil {
			return nil, nil, err
		}
		segments[i] = [2]int{seg[0], seg[1]}
	}
	// The hole section is optional
	if header, err = lr.ints(1); err != nil {
		return segments, nil, nil
	}
	for i := 0; i < header[0]; i++ {
		var fields []string
		if fields, err = lr.next(); err != nil {
			return nil, nil, err
		}
		if len(fields) < 3 {
			return nil, nil, lr.errorf("hole row needs an id and 2 coordinates")
		}
		var x, y float64
		if err = multierr.Combine(parseFloat(fields[1], &x), parseFloat(fields[2], &y)); err != nil {
			return nil, nil, lr.errorf("%w", err)
		}
		holes = append(holes, geometry2D.NewCoordinate(x, y))
	}
	return
}

func ReadTriangles(r io.Reader, name string, ids NodeIDs) (triangles [][3]int, err error) {
	var (
		lr     = newLineReader(r, name)
		header []int
	)
	if header, err = lr.ints(2); err != nil {
		return
	}
	count, perTriangle := header[0], header[1]
	if perTriangle != 3 {
		return nil, lr.errorf("%d nodes per triangle, only 3 is supported", perTriangle)
	}
	triangles = make([][3]int, count)
	for i := range triangles {
		var row []int
		if row, err = lr.ints(4); err != nil {
			return nil, err
		}
		tri := row[1:4]
		if err = ids.resolve(lr, tri); err != nil {
			return nil, err
		}
		triangles[i] = [3]int{tri[0], tri[1], tri[2]}
	}
	return
}

func readFile(fs afero.Fs, filename string, read func(r io.Reader) error) (err error) {
	var (
		file afero.File
	)
	if file, err = fs.Open(filename); err != nil {
		return fmt.Errorf("unable to open file %s: %w", filename, err)
	}
	defer file.Close()
	return read(file)
}

// ReadPSLG reads <prefix>.node and <prefix>.poly, the input of a triangulation
func ReadPSLG(fs afero.Fs, prefix string, verbose bool) (input mesh.Input, holes []geometry2D.Coordinate, ids NodeIDs, err error) {
	if verbose {
		fmt.Printf("Reading Triangle files with prefix: %s\n", prefix)
	}
	err = readFile(fs, prefix+".node", func(r io.Reader) (err error) {
		input.Nodes, ids, err = ReadNodes(r, prefix+".node")
		return
	})
	if err != nil {
		return
	}
	err = readFile(fs, prefix+".poly", func(r io.Reader) (err error) {
		input.Segments, holes, err = ReadSegments(r, prefix+".poly", ids)
		return
	})
	if verbose && err == nil {
		fmt.Printf("Nv = %d, segments = %d, holes = %d\n", len(input.Nodes), len(input.Segments), len(holes))
	}
	return
}

// ReadMesh reads a complete mesh from <prefix>.node, <prefix>.poly and <prefix>.ele
func ReadMesh(fs afero.Fs, prefix string, verbose bool) (input mesh.Input, err error) {
	var (
		ids NodeIDs
	)
	if input, _, ids, err = ReadPSLG(fs, prefix, verbose); err != nil {
		return
	}
	err = readFile(fs, prefix+".ele", func(r io.Reader) (err error) {
		input.Triangles, err = ReadTriangles(r, prefix+".ele", ids)
		return
	})
	if verbose && err == nil {
		fmt.Printf("K = %d\n", len(input.Triangles))
	}
	return
}

// WriteMesh writes input as <prefix>.node, <prefix>.poly and <prefix>.ele with ids starting at 1
func WriteMesh(fs afero.Fs, prefix string, input mesh.Input) (err error) {
	var (
		node, poly, ele strings.Builder
	)
	fmt.Fprintf(&node, "%d 2 0 0\n", len(input.Nodes))
	for i, c := range input.Nodes {
		fmt.Fprintf(&node, "%d %s %s\n", i+1,
			strconv.FormatFloat(c.X, 'g', -1, 64), strconv.FormatFloat(c.Y, 'g', -1, 64))
	}
	fmt.Fprintf(&poly, "0 2 0 0\n%d 0\n", len(input.Segments))
	for i, s := range input.Segments {
		fmt.Fprintf(&poly, "%d %d %d\n", i+1, s[0]+1, s[1]+1)
	}
	fmt.Fprintf(&poly, "0\n")
	fmt.Fprintf(&ele, "%d 3 0\n", len(input.Triangles))
	for i, t := range input.Triangles {
		fmt.Fprintf(&ele, "%d %d %d %d\n", i+1, t[0]+1, t[1]+1, t[2]+1)
	}
	for _, f := range []struct {
		name string
		body *strings.Builder
	}{{".node", &node}, {".poly", &poly}, {".ele", &ele}} {
		err = multierr.Append(err, afero.WriteFile(fs, prefix+f.name, []byte(f.body.String()), 0644))
	}
	return
}
