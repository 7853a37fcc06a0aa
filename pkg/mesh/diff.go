package mesh

import (
	"fmt"
	"maps"
	"slices"

	"github.com/mgio/mgio-go/pkg/boundary"
)

// Diff compares two meshes structurally and describes the first difference,
// or returns nil when they are equivalent. Nodes are matched by identity key
// and elements by GID, so handles and arena order may differ.
func Diff(a, b *Mesh) error {
	if a.NodeCount() != b.NodeCount() {
		return fmt.Errorf("node count %d != %d", a.NodeCount(), b.NodeCount())
	}
	if a.ElemCount() != b.ElemCount() {
		return fmt.Errorf("element count %d != %d", a.ElemCount(), b.ElemCount())
	}
	if a.Levels() != b.Levels() {
		return fmt.Errorf("level count %d != %d", a.Levels(), b.Levels())
	}
	for k := 0; k < a.Levels(); k++ {
		if len(a.Level(k)) != len(b.Level(k)) {
			return fmt.Errorf("level %d: %d != %d elements", k, len(a.Level(k)), len(b.Level(k)))
		}
	}

	bNodes := make(map[int64]NodeID, b.NodeCount())
	for i := range b.nodes {
		bNodes[b.nodes[i].Key()] = NodeID(i)
	}
	for i := range a.nodes {
		na := &a.nodes[i]
		id, ok := bNodes[na.Key()]
		if !ok {
			return fmt.Errorf("node %d missing", na.Key())
		}
		nb := &b.nodes[id]
		switch {
		case na.Kind != nb.Kind:
			return fmt.Errorf("node %d: kind %s != %s", na.Key(), na.Kind, nb.Kind)
		case na.Level != nb.Level:
			return fmt.Errorf("node %d: level %d != %d", na.Key(), na.Level, nb.Level)
		case na.Pos != nb.Pos:
			return fmt.Errorf("node %d: position %v != %v", na.Key(), na.Pos, nb.Pos)
		case !boundary.Equal(na.Boundary, nb.Boundary):
			return fmt.Errorf("node %d: boundary point differs", na.Key())
		}
	}

	for i := range a.elems {
		ea := &a.elems[i]
		id, ok := b.elemByGID[ea.GID]
		if !ok {
			return fmt.Errorf("element %d missing", ea.GID)
		}
		if err := diffElement(a, ea, b, &b.elems[id]); err != nil {
			return fmt.Errorf("element %d: %w", ea.GID, err)
		}
	}
	return nil
}

func diffElement(a *Mesh, ea *Element, b *Mesh, eb *Element) error {
	switch {
	case ea.Shape != eb.Shape:
		return fmt.Errorf("shape %s != %s", ea.Shape, eb.Shape)
	case ea.Level != eb.Level:
		return fmt.Errorf("level %d != %d", ea.Level, eb.Level)
	case ea.Subdomain != eb.Subdomain:
		return fmt.Errorf("subdomain %d != %d", ea.Subdomain, eb.Subdomain)
	case ea.Orphan != eb.Orphan:
		return fmt.Errorf("orphan %t != %t", ea.Orphan, eb.Orphan)
	case ea.Refined() != eb.Refined():
		return fmt.Errorf("refined %t != %t", ea.Refined(), eb.Refined())
	case a.parentGID(ea) != b.parentGID(eb):
		return fmt.Errorf("parent %d != %d", a.parentGID(ea), b.parentGID(eb))
	}
	if ea.Refined() {
		if ea.Rule != eb.Rule {
			return fmt.Errorf("rule %s != %s", ea.Rule, eb.Rule)
		}
		if ea.Class != eb.Class {
			return fmt.Errorf("class %s != %s", ea.Class, eb.Class)
		}
		if !slices.Equal(a.elemGIDs(ea.Sons), b.elemGIDs(eb.Sons)) {
			return fmt.Errorf("sons %v != %v", a.elemGIDs(ea.Sons), b.elemGIDs(eb.Sons))
		}
		if !slices.Equal(a.nodeKeys(ea.MidNodes), b.nodeKeys(eb.MidNodes)) {
			return fmt.Errorf("midpoints %v != %v", a.nodeKeys(ea.MidNodes), b.nodeKeys(eb.MidNodes))
		}
	}
	if !slices.Equal(a.nodeKeys(ea.Corners), b.nodeKeys(eb.Corners)) {
		return fmt.Errorf("corners %v != %v", a.nodeKeys(ea.Corners), b.nodeKeys(eb.Corners))
	}
	if !slices.Equal(a.elemGIDs(ea.Neighbors), b.elemGIDs(eb.Neighbors)) {
		return fmt.Errorf("neighbors %v != %v", a.elemGIDs(ea.Neighbors), b.elemGIDs(eb.Neighbors))
	}
	if !maps.Equal(ea.Remote, eb.Remote) && (len(ea.Remote) != 0 || len(eb.Remote) != 0) {
		return fmt.Errorf("remote neighbors %v != %v", ea.Remote, eb.Remote)
	}
	return nil
}

func (m *Mesh) parentGID(e *Element) int64 {
	if e.Parent != NoElem {
		return m.elems[e.Parent].GID
	}
	return e.ParentGID
}

func (m *Mesh) elemGIDs(ids []ElemID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		if id == NoElem {
			out[i] = NoGID
			continue
		}
		out[i] = m.elems[id].GID
	}
	return out
}

func (m *Mesh) nodeKeys(ids []NodeID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		if id == NoNode {
			out[i] = NoGID
			continue
		}
		out[i] = m.nodes[id].Key()
	}
	return out
}
