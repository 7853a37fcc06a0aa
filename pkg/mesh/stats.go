package mesh

import (
	"fmt"
	"strings"

	"github.com/mgio/mgio-go/pkg/rules"
	"github.com/mgio/mgio-go/pkg/shape"
)

// LevelStats summarizes one level.
type LevelStats struct {
	Elements int
	Refined  int
	Leaves   int
	Orphans  int
	Copies   int
}

// Stats summarizes a mesh.
type Stats struct {
	Nodes    int
	Elements int
	Levels   []LevelStats
	Kinds    map[shape.NodeKind]int
	Shapes   map[shape.Shape]int
	Classes  map[rules.Class]int
}

// Stats computes a summary of the mesh.
func (m *Mesh) Stats() Stats {
	st := Stats{
		Nodes:    len(m.nodes),
		Elements: len(m.elems),
		Levels:   make([]LevelStats, len(m.levels)),
		Kinds:    make(map[shape.NodeKind]int),
		Shapes:   make(map[shape.Shape]int),
		Classes:  make(map[rules.Class]int),
	}
	for i := range m.nodes {
		st.Kinds[m.nodes[i].Kind]++
	}
	for k, level := range m.levels {
		ls := &st.Levels[k]
		ls.Elements = len(level)
		for _, id := range level {
			e := &m.elems[id]
			st.Shapes[e.Shape]++
			if e.Refined() {
				ls.Refined++
				st.Classes[e.Class]++
			} else {
				ls.Leaves++
			}
			if e.Orphan {
				ls.Orphans++
			}
			if e.Priority == PrioCopy {
				ls.Copies++
			}
		}
	}
	return st
}

// String renders the summary as a small table.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "nodes: %d  elements: %d  levels: %d\n", s.Nodes, s.Elements, len(s.Levels))
	for k, ls := range s.Levels {
		fmt.Fprintf(&b, "  level %-2d elements=%-6d refined=%-6d leaves=%-6d orphans=%-4d copies=%d\n",
			k, ls.Elements, ls.Refined, ls.Leaves, ls.Orphans, ls.Copies)
	}
	for _, kind := range []shape.NodeKind{shape.Corner, shape.EdgeMidpoint, shape.FaceMidpoint, shape.Center} {
		if n := s.Kinds[kind]; n > 0 {
			fmt.Fprintf(&b, "  %-14s %d\n", kind, n)
		}
	}
	return b.String()
}
