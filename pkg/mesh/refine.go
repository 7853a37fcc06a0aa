package mesh

import (
	"fmt"
	"slices"

	"github.com/mgio/mgio-go/pkg/boundary"
	"github.com/mgio/mgio-go/pkg/rules"
	"github.com/mgio/mgio-go/pkg/shape"
)

// entityKey identifies an edge or face by its sorted corner nodes, padded
// with NoNode.
type entityKey [4]NodeID

// sideKey identifies an element side on one level.
type sideKey struct {
	level int
	nodes entityKey
}

type sideRef struct {
	elem ElemID
	side int
}

// adoption is an orphan claimed by a resident parent while decoding. It is
// completed by Relink.
type adoption struct {
	parent ElemID
	son    int
	orphan ElemID
}

func makeKey(nodes []NodeID) entityKey {
	k := entityKey{NoNode, NoNode, NoNode, NoNode}
	copy(k[:], nodes)
	slices.Sort(k[:len(nodes)])
	return k
}

// entityKey returns the key of the entity under slot of e: its spanning
// corner nodes. The center slot has no key.
func (m *Mesh) entityKey(e *Element, slot int) (entityKey, bool) {
	kind := e.Shape.SlotKind(slot)
	if !kind.Shared() || kind == shape.Corner {
		return entityKey{}, false
	}
	corners := e.Shape.SlotCorners(slot)
	nodes := make([]NodeID, len(corners))
	for i, c := range corners {
		nodes[i] = e.Corners[c]
	}
	return makeKey(nodes), true
}

// SharedMid returns the node already created on the entity under slot of
// element id by any element, or NoNode.
func (m *Mesh) SharedMid(id ElemID, slot int) NodeID {
	key, ok := m.entityKey(&m.elems[id], slot)
	if !ok {
		return NoNode
	}
	if n, found := m.entities[key]; found {
		return n
	}
	return NoNode
}

// Refine subdivides element id with rule r, creating the midpoints the rule
// needs and reusing those that neighbors already created. It returns the
// sons in rule order.
func (m *Mesh) Refine(id ElemID, r *rules.Rule) ([]ElemID, error) {
	if int(id) < 0 || int(id) >= len(m.elems) {
		return nil, fmt.Errorf("%w: element %d", ErrInvalidHandle, id)
	}
	e := &m.elems[id]
	if r.Shape != e.Shape {
		return nil, fmt.Errorf("%w: %s applied to %s", rules.ErrUnknownRule, r, e.Shape)
	}
	if e.Refined() {
		return nil, fmt.Errorf("%w: element %d", ErrAlreadyRefined, e.GID)
	}

	nc := e.Shape.Corners()
	mids := make([]NodeID, e.Shape.NewSlots())
	for i := range mids {
		mids[i] = NoNode
	}
	for _, slot := range r.NewSlots() {
		if n := m.SharedMid(id, slot); n != NoNode {
			mids[slot-nc] = n
			continue
		}
		n, err := m.AddNode(m.midpoint(id, slot))
		if err != nil {
			return nil, err
		}
		mids[slot-nc] = n
	}
	return m.Install(id, r, r.Class, mids, nil)
}

// midpoint builds the node for a new slot of element id.
func (m *Mesh) midpoint(id ElemID, slot int) Node {
	e := &m.elems[id]
	corners := e.Shape.SlotCorners(slot)

	var pos [3]float64
	points := make([]boundary.Point, 0, len(corners))
	for _, c := range corners {
		n := &m.nodes[e.Corners[c]]
		for axis := range pos {
			pos[axis] += n.Pos[axis]
		}
		if n.Boundary != nil {
			points = append(points, n.Boundary)
		}
	}
	for axis := range pos {
		pos[axis] /= float64(len(corners))
	}

	n := NewNode(e.Shape.SlotKind(slot), pos)
	n.Level = e.Level + 1
	if m.Geometry != nil && len(points) == len(corners) {
		if bp, ok := m.Geometry.Interpolate(points); ok {
			n.Boundary = bp
		}
	}
	return n
}

// Install subdivides element id with rule r using nodes the caller already
// owns. mids has one entry per new-node slot of the shape; every slot the rule
// populates must be set. sonGIDs, when not nil, gives the GID of each son.
//
// A son GID naming an existing orphan whose recorded parent is this element
// adopts the orphan instead of creating a new element. Adoption completes in
// Relink.
func (m *Mesh) Install(id ElemID, r *rules.Rule, class rules.Class, mids []NodeID, sonGIDs []int64) ([]ElemID, error) {
	if int(id) < 0 || int(id) >= len(m.elems) {
		return nil, fmt.Errorf("%w: element %d", ErrInvalidHandle, id)
	}
	parent := &m.elems[id]
	if r.Shape != parent.Shape {
		return nil, fmt.Errorf("%w: %s applied to %s", rules.ErrUnknownRule, r, parent.Shape)
	}
	if parent.Refined() {
		return nil, fmt.Errorf("%w: element %d", ErrAlreadyRefined, parent.GID)
	}
	if len(mids) != parent.Shape.NewSlots() {
		return nil, fmt.Errorf("%w: %d new-node slots, got %d", ErrInvalid, parent.Shape.NewSlots(), len(mids))
	}
	if sonGIDs != nil && len(sonGIDs) != r.SonCount() {
		return nil, fmt.Errorf("%w: %s has %d sons, got %d GIDs", ErrInvalid, r, r.SonCount(), len(sonGIDs))
	}

	nc := parent.Shape.Corners()
	for _, slot := range r.NewSlots() {
		n := mids[slot-nc]
		if n == NoNode {
			return nil, fmt.Errorf("%w: %s slot %d of element %d", ErrMissingNode, r, slot, parent.GID)
		}
		if int(n) < 0 || int(n) >= len(m.nodes) {
			return nil, fmt.Errorf("%w: node %d", ErrInvalidHandle, n)
		}
		key, shared := m.entityKey(parent, slot)
		if !shared {
			continue
		}
		if have, found := m.entities[key]; found && have != n {
			return nil, fmt.Errorf("%w: slot %d of element %d", ErrEntityConflict, slot, parent.GID)
		}
	}
	for _, slot := range r.NewSlots() {
		if key, shared := m.entityKey(parent, slot); shared {
			m.entities[key] = mids[slot-nc]
		}
	}

	parent.Rule = r
	parent.Class = class
	parent.MidNodes = append([]NodeID(nil), mids...)
	parent.Sons = make([]ElemID, r.SonCount())

	level := parent.Level + 1
	created := make([]bool, r.SonCount())
	for k := range r.Sons {
		p := &m.elems[id]
		corners := m.sonCorners(p, &r.Sons[k])
		gid := NoGID
		if sonGIDs != nil {
			gid = sonGIDs[k]
		}

		if existing, found := m.elemByGID[gid]; found && gid != NoGID {
			o := &m.elems[existing]
			if !o.Orphan || o.ParentGID != p.GID || o.SonIndex != k || o.Shape != r.Sons[k].Shape || o.Level != level {
				return nil, fmt.Errorf("%w: element %d", ErrDuplicateGID, gid)
			}
			p.Sons[k] = existing
			m.adopt = append(m.adopt, adoption{parent: id, son: k, orphan: existing})
			continue
		}

		son := Element{
			GID:       gid,
			Shape:     r.Sons[k].Shape,
			Corners:   corners,
			Neighbors: noNeighbors(r.Sons[k].Shape.Sides()),
			Subdomain: p.Subdomain,
			Level:     level,
			Parent:    id,
			ParentGID: p.GID,
			SonIndex:  k,
		}
		sid, err := m.appendElement(son)
		if err != nil {
			return nil, err
		}
		m.elems[id].Sons[k] = sid
		created[k] = true
	}

	sons := m.elems[id].Sons
	for k, sid := range sons {
		if created[k] {
			m.wireSon(id, k, sid)
		}
	}
	return sons, nil
}

func (m *Mesh) sonCorners(parent *Element, son *rules.Son) []NodeID {
	nc := parent.Shape.Corners()
	out := make([]NodeID, len(son.Corners))
	for i, slot := range son.Corners {
		if slot < nc {
			out[i] = parent.Corners[slot]
		} else {
			out[i] = parent.MidNodes[slot-nc]
		}
	}
	return out
}

// wireSon sets the sibling neighbors of son k from the rule and offers its
// inherited sides to the side index.
func (m *Mesh) wireSon(parent ElemID, k int, sid ElemID) {
	p := &m.elems[parent]
	son := &p.Rule.Sons[k]
	for side, ref := range son.Sides {
		if ref.Inherited() {
			m.indexSide(sid, side)
			continue
		}
		m.elems[sid].Neighbors[side] = p.Sons[ref.Sibling]
	}
}

func (m *Mesh) sideKeyOf(id ElemID, side int) sideKey {
	e := &m.elems[id]
	sc := e.Shape.SideCorners(side)
	nodes := make([]NodeID, len(sc))
	for i, c := range sc {
		nodes[i] = e.Corners[c]
	}
	return sideKey{level: e.Level, nodes: makeKey(nodes)}
}

// indexSide matches side of id against an open side with the same corner
// nodes on the same level, or leaves it open.
func (m *Mesh) indexSide(id ElemID, side int) {
	e := &m.elems[id]
	if e.Neighbors[side] != NoElem {
		return
	}
	if _, remote := e.Remote[side]; remote {
		return
	}
	key := m.sideKeyOf(id, side)
	other, open := m.sides[key]
	if !open {
		m.sides[key] = sideRef{elem: id, side: side}
		return
	}
	if other.elem == id {
		return
	}
	delete(m.sides, key)
	m.SetNeighbor(id, side, other.elem, other.side)
}

// LinkNeighbors matches every unset side of the root elements against the
// other open sides of its level. Coarse grids built without explicit
// neighbor tables call it once after adding their elements.
func (m *Mesh) LinkNeighbors() {
	for _, id := range m.Roots() {
		for side := range m.elems[id].Neighbors {
			m.indexSide(id, side)
		}
	}
}

// RefineLevel applies pick to every unrefined element of level k and refines
// those it returns a rule for. It returns the number of elements refined.
func (m *Mesh) RefineLevel(k int, pick func(ElemID, *Element) *rules.Rule) (int, error) {
	ids := slices.Clone(m.Level(k))
	count := 0
	for _, id := range ids {
		e := &m.elems[id]
		if e.Refined() {
			continue
		}
		r := pick(id, e)
		if r == nil {
			continue
		}
		if _, err := m.Refine(id, r); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
