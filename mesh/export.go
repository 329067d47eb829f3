package mesh

import (
	"github.com/notargets/yada/geometry2D"
)

// Export converts the live mesh back into node, segment and triangle lists.
// Like ForEach it must not run concurrently with refinement.
func (m *Mesh) Export() (out Input) {
	var (
		index = make(map[geometry2D.Coordinate]int)
		node  = func(c geometry2D.Coordinate) int {
			if i, ok := index[c]; ok {
				return i
			}
			index[c] = len(out.Nodes)
			out.Nodes = append(out.Nodes, c)
			return index[c]
		}
	)
	m.ForEach(func(e *Element) bool {
		c := e.Coordinates()
		if e.IsSegment() {
			out.Segments = append(out.Segments, [2]int{node(c[0]), node(c[1])})
		} else {
			out.Triangles = append(out.Triangles, [3]int{node(c[0]), node(c[1]), node(c[2])})
		}
		return true
	})
	return
}
