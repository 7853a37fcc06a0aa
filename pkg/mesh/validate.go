package mesh

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"
)

// Validate checks the structural invariants of the mesh and returns every
// violation found, wrapped with ErrInvalid.
func (m *Mesh) Validate() error {
	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if len(m.nodeByGID) != len(m.nodes) {
		fail("%d node GIDs for %d nodes", len(m.nodeByGID), len(m.nodes))
	}
	for gid, id := range m.nodeByGID {
		if int(id) >= len(m.nodes) || m.nodes[id].GID != gid {
			fail("node GID table entry %d points at node %d", gid, id)
		}
	}
	if len(m.elemByGID) != len(m.elems) {
		fail("%d element GIDs for %d elements", len(m.elemByGID), len(m.elems))
	}
	for gid, id := range m.elemByGID {
		if int(id) >= len(m.elems) || m.elems[id].GID != gid {
			fail("element GID table entry %d points at element %d", gid, id)
		}
	}

	listed := 0
	for k, level := range m.levels {
		for _, id := range level {
			if m.elems[id].Level != k {
				fail("element %d listed on level %d has level %d", m.elems[id].GID, k, m.elems[id].Level)
			}
		}
		listed += len(level)
	}
	if listed != len(m.elems) {
		fail("%d elements listed on levels, %d allocated", listed, len(m.elems))
	}

	for i := range m.elems {
		id := ElemID(i)
		e := &m.elems[i]
		m.validateElement(id, e, fail)
	}
	return result.ErrorOrNil()
}

func (m *Mesh) validateElement(id ElemID, e *Element, fail func(string, ...any)) {
	if len(e.Corners) != e.Shape.Corners() {
		fail("element %d has %d corners", e.GID, len(e.Corners))
		return
	}
	for _, c := range e.Corners {
		if c < 0 || int(c) >= len(m.nodes) {
			fail("element %d corner %d out of range", e.GID, c)
			return
		}
	}

	switch {
	case e.Parent == NoElem && e.Level == 0 && e.Orphan:
		fail("coarse element %d is tagged orphan", e.GID)
	case e.Parent == NoElem && e.Level > 0 && !e.Orphan:
		fail("element %d on level %d has no parent and no orphan tag", e.GID, e.Level)
	case e.Parent != NoElem:
		p := &m.elems[e.Parent]
		if e.Orphan {
			fail("element %d has resident parent %d but is tagged orphan", e.GID, p.GID)
		}
		if e.Level != p.Level+1 {
			fail("element %d on level %d has parent on level %d", e.GID, e.Level, p.Level)
		}
		if e.SonIndex < 0 || e.SonIndex >= len(p.Sons) || p.Sons[e.SonIndex] != id {
			fail("element %d is not son %d of element %d", e.GID, e.SonIndex, p.GID)
		} else if want := m.sonCorners(p, &p.Rule.Sons[e.SonIndex]); !slices.Equal(want, e.Corners) {
			fail("element %d corners differ from rule %s son %d", e.GID, p.Rule, e.SonIndex)
		}
	}

	if e.Refined() {
		if len(e.Sons) != e.Rule.SonCount() {
			fail("element %d has %d sons, rule %s makes %d", e.GID, len(e.Sons), e.Rule, e.Rule.SonCount())
		}
		for k, s := range e.Sons {
			if s == NoElem {
				continue
			}
			if m.elems[s].Parent != id && !m.elems[s].Orphan {
				fail("son %d of element %d points at another parent", k, e.GID)
			}
		}
		for _, slot := range e.Rule.NewSlots() {
			n := e.Mid(slot)
			if n == NoNode {
				fail("element %d rule %s slot %d has no node", e.GID, e.Rule, slot)
				continue
			}
			if key, shared := m.entityKey(e, slot); shared && m.entities[key] != n {
				fail("element %d slot %d does not use the shared midpoint", e.GID, slot)
			}
		}
	}

	if len(e.Neighbors) != e.Shape.Sides() {
		fail("element %d has %d neighbor entries", e.GID, len(e.Neighbors))
		return
	}
	for side, nb := range e.Neighbors {
		if nb == NoElem {
			continue
		}
		other := &m.elems[nb]
		if other.Level != e.Level {
			fail("element %d side %d faces element %d on level %d", e.GID, side, other.GID, other.Level)
		}
		if !slices.Contains(other.Neighbors, id) {
			fail("element %d side %d faces element %d which does not face back", e.GID, side, other.GID)
		}
	}
}
