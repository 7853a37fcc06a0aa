package mesh

import (
	"fmt"
	"slices"
)

// Relink completes the orphan adoptions recorded by Install and checks the
// orphans that remain. It must run once after every refinement of a decode
// has been installed.
//
// An orphan whose parent is resident but did not claim it is rejected with
// ErrOrphanConflict. Orphans whose parent is not resident keep their tag.
func (m *Mesh) Relink() error {
	pending := m.adopt
	m.adopt = nil

	for _, a := range pending {
		p := &m.elems[a.parent]
		o := &m.elems[a.orphan]
		want := m.sonCorners(p, &p.Rule.Sons[a.son])
		if !slices.Equal(want, o.Corners) {
			return fmt.Errorf("%w: orphan %d corners differ from son %d of element %d", ErrOrphanConflict, o.GID, a.son, p.GID)
		}
		o.Parent = a.parent
		o.ParentGID = p.GID
		o.SonIndex = a.son
		o.Orphan = false
	}

	for _, a := range pending {
		p := &m.elems[a.parent]
		for side, ref := range p.Rule.Sons[a.son].Sides {
			if ref.Inherited() {
				m.indexSide(a.orphan, side)
				continue
			}
			m.elems[a.orphan].Neighbors[side] = p.Sons[ref.Sibling]
		}
	}

	for id := range m.elems {
		e := &m.elems[id]
		if !e.Orphan || e.ParentGID == NoGID {
			continue
		}
		if _, resident := m.elemByGID[e.ParentGID]; resident {
			return fmt.Errorf("%w: orphan %d names resident parent %d", ErrOrphanConflict, e.GID, e.ParentGID)
		}
	}
	return nil
}

// RebuildLevels reorders every level list so that it holds the roots of the
// level first, then the sons reached by a pre-order walk of each root in
// turn. Decoders that install refinements out of order use it to restore the
// order a sequential walk produces.
func (m *Mesh) RebuildLevels() {
	roots := m.Roots()
	levels := make([][]ElemID, len(m.levels))
	for _, id := range roots {
		l := m.elems[id].Level
		levels[l] = append(levels[l], id)
	}

	var walk func(id ElemID)
	walk = func(id ElemID) {
		for _, s := range m.elems[id].Sons {
			son := &m.elems[s]
			if son.Parent != id {
				continue
			}
			levels[son.Level] = append(levels[son.Level], s)
			walk(s)
		}
	}
	for _, id := range roots {
		walk(id)
	}
	m.levels = levels
}

// Orphans returns the elements still tagged as orphans.
func (m *Mesh) Orphans() []ElemID {
	var out []ElemID
	for _, id := range m.Roots() {
		if m.elems[id].Orphan {
			out = append(out, id)
		}
	}
	return out
}
