package mesh

import (
	"errors"
	"fmt"

	"github.com/mgio/mgio-go/pkg/boundary"
	"github.com/mgio/mgio-go/pkg/rules"
	"github.com/mgio/mgio-go/pkg/shape"
)

// Mesh errors.
var (
	ErrDuplicateGID   = errors.New("duplicate global identifier")
	ErrInvalidHandle  = errors.New("invalid handle")
	ErrAlreadyRefined = errors.New("element already refined")
	ErrMissingNode    = errors.New("rule slot has no node")
	ErrEntityConflict = errors.New("entity already has a different midpoint")
	ErrOrphanConflict = errors.New("orphan does not match its resident parent")
	ErrInvalid        = errors.New("mesh invariant violated")
)

// NodeID is a handle to a node in a Mesh arena.
type NodeID int32

// ElemID is a handle to an element in a Mesh arena.
type ElemID int32

const (
	// NoNode is the absent node handle.
	NoNode NodeID = -1
	// NoElem is the absent element handle: a domain boundary, or a neighbor
	// that is not resident.
	NoElem ElemID = -1
	// NoGID is the absent global identifier.
	NoGID int64 = -1
)

// Priority is the ownership class of a replicated object.
type Priority uint8

const (
	// PrioMaster marks the owning replica.
	PrioMaster Priority = 0
	// PrioCopy marks a non-owning replica that must not mutate shared state.
	PrioCopy Priority = 1
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PrioMaster:
		return "MASTER"
	case PrioCopy:
		return "COPY"
	default:
		return "UNKNOWN"
	}
}

// Link references a replica of the same object on another partition.
type Link struct {
	Rank int
	GID  int64
}

// Node is one physical location of the mesh.
type Node struct {
	GID int64

	// Ident is the identity replicas share across partitions. NoGID means
	// the node is identified by its GID.
	Ident int64

	Kind     shape.NodeKind
	Pos      [3]float64
	Boundary boundary.Point
	Level    int

	Priority Priority
	Peers    []int
	Links    []Link
}

// Key returns the identity used to match replicas and stream references.
func (n *Node) Key() int64 {
	if n.Ident != NoGID {
		return n.Ident
	}
	return n.GID
}

// NewNode returns a node of the given kind at pos with no identifiers yet.
func NewNode(kind shape.NodeKind, pos [3]float64) Node {
	return Node{GID: NoGID, Ident: NoGID, Kind: kind, Pos: pos}
}

// Element is one cell of the mesh on some level.
type Element struct {
	GID   int64
	Shape shape.Shape

	// Corners holds one node per shape corner.
	Corners []NodeID

	// MidNodes holds one entry per new-node slot (slot - corners); NoNode
	// where the rule creates nothing. Nil while unrefined.
	MidNodes []NodeID

	// Neighbors holds one entry per side.
	Neighbors []ElemID

	// Remote maps a side to the GID of a neighbor living on another
	// partition.
	Remote map[int]int64

	Subdomain int32
	Level     int

	Parent    ElemID
	ParentGID int64
	SonIndex  int
	Orphan    bool

	Rule  *rules.Rule
	Class rules.Class
	Sons  []ElemID

	Priority Priority
	Peers    []int
	Links    []Link
}

// NewElement returns an unrefined root element with the given corners.
func NewElement(s shape.Shape, corners ...NodeID) Element {
	return Element{
		GID:       NoGID,
		Shape:     s,
		Corners:   corners,
		Parent:    NoElem,
		ParentGID: NoGID,
		SonIndex:  -1,
	}
}

// Refined reports whether the element has been subdivided.
func (e *Element) Refined() bool {
	return e.Rule != nil
}

// Root reports whether the element has no resident parent.
func (e *Element) Root() bool {
	return e.Parent == NoElem
}

// Mid returns the node in a new-node slot, or NoNode.
func (e *Element) Mid(slot int) NodeID {
	i := slot - e.Shape.Corners()
	if e.MidNodes == nil || i < 0 || i >= len(e.MidNodes) {
		return NoNode
	}
	return e.MidNodes[i]
}

// Mesh is a multi-level mesh held in arenas.
type Mesh struct {
	// Rank and Parts identify the partition this mesh holds. A serial mesh
	// has Rank 0 and Parts 1.
	Rank  int
	Parts int

	// Geometry places boundary midpoints during refinement. Optional.
	Geometry boundary.Interpolator

	nodes  []Node
	elems  []Element
	levels [][]ElemID

	nodeByGID map[int64]NodeID
	elemByGID map[int64]ElemID

	entities map[entityKey]NodeID
	sides    map[sideKey]sideRef
	adopt    []adoption

	nextNodeGID int64
	nextElemGID int64
	disposed    bool
}

// New creates an empty serial mesh.
func New() *Mesh {
	return &Mesh{
		Parts:     1,
		nodeByGID: make(map[int64]NodeID),
		elemByGID: make(map[int64]ElemID),
		entities:  make(map[entityKey]NodeID),
		sides:     make(map[sideKey]sideRef),
	}
}

// Reserve grows the arenas so that nodes and elements more records can be
// added without reallocation.
func (m *Mesh) Reserve(nodes, elems int) {
	if nodes > 0 && cap(m.nodes)-len(m.nodes) < nodes {
		grown := make([]Node, len(m.nodes), len(m.nodes)+nodes)
		copy(grown, m.nodes)
		m.nodes = grown
	}
	if elems > 0 && cap(m.elems)-len(m.elems) < elems {
		grown := make([]Element, len(m.elems), len(m.elems)+elems)
		copy(grown, m.elems)
		m.elems = grown
	}
}

// Dispose releases every node and element. The mesh must not be used
// afterwards.
func (m *Mesh) Dispose() {
	m.nodes = nil
	m.elems = nil
	m.levels = nil
	m.nodeByGID = nil
	m.elemByGID = nil
	m.entities = nil
	m.sides = nil
	m.adopt = nil
	m.disposed = true
}

// Disposed reports whether Dispose has been called.
func (m *Mesh) Disposed() bool {
	return m.disposed
}

// Dim returns the spatial dimension, taken from the first element.
func (m *Mesh) Dim() int {
	if len(m.elems) == 0 {
		return 0
	}
	return m.elems[0].Shape.Dim()
}

// NodeCount returns the number of nodes.
func (m *Mesh) NodeCount() int {
	return len(m.nodes)
}

// ElemCount returns the number of elements on all levels.
func (m *Mesh) ElemCount() int {
	return len(m.elems)
}

// Node returns the node for id. It panics on an invalid handle.
func (m *Mesh) Node(id NodeID) *Node {
	return &m.nodes[id]
}

// Elem returns the element for id. It panics on an invalid handle.
func (m *Mesh) Elem(id ElemID) *Element {
	return &m.elems[id]
}

// NodeByGID looks up a node by global identifier.
func (m *Mesh) NodeByGID(gid int64) (NodeID, bool) {
	id, ok := m.nodeByGID[gid]
	return id, ok
}

// ElemByGID looks up an element by global identifier.
func (m *Mesh) ElemByGID(gid int64) (ElemID, bool) {
	id, ok := m.elemByGID[gid]
	return id, ok
}

// Levels returns the number of levels.
func (m *Mesh) Levels() int {
	return len(m.levels)
}

// Level returns the elements of level k in creation order.
func (m *Mesh) Level(k int) []ElemID {
	if k < 0 || k >= len(m.levels) {
		return nil
	}
	return m.levels[k]
}

// Roots returns every element without a resident parent: the coarse grid
// followed by orphans, level by level.
func (m *Mesh) Roots() []ElemID {
	var roots []ElemID
	for _, level := range m.levels {
		for _, id := range level {
			if m.elems[id].Parent == NoElem {
				roots = append(roots, id)
			}
		}
	}
	return roots
}

// AddNode appends a node. A node with GID NoGID receives the next free GID.
func (m *Mesh) AddNode(n Node) (NodeID, error) {
	if n.GID == NoGID {
		n.GID = m.nextNodeGID
	}
	if _, dup := m.nodeByGID[n.GID]; dup {
		return NoNode, fmt.Errorf("%w: node %d", ErrDuplicateGID, n.GID)
	}
	if n.GID >= m.nextNodeGID {
		m.nextNodeGID = n.GID + 1
	}
	id := NodeID(len(m.nodes))
	m.nodes = append(m.nodes, n)
	m.nodeByGID[n.GID] = id
	return id, nil
}

// AddElement appends a root element: a coarse element on level 0, or an
// orphan on a deeper level. Neighbors start unset; see SetNeighbor and
// LinkNeighbors.
func (m *Mesh) AddElement(e Element) (ElemID, error) {
	if !e.Shape.Valid() {
		return NoElem, fmt.Errorf("%w: shape %d", ErrInvalid, e.Shape)
	}
	if len(e.Corners) != e.Shape.Corners() {
		return NoElem, fmt.Errorf("%w: %s needs %d corners, got %d", ErrInvalid, e.Shape, e.Shape.Corners(), len(e.Corners))
	}
	for _, c := range e.Corners {
		if c < 0 || int(c) >= len(m.nodes) {
			return NoElem, fmt.Errorf("%w: corner node %d", ErrInvalidHandle, c)
		}
	}
	if e.Level > 0 && !e.Orphan {
		return NoElem, fmt.Errorf("%w: root on level %d must be an orphan", ErrInvalid, e.Level)
	}
	e.Corners = append([]NodeID(nil), e.Corners...)
	e.Parent = NoElem
	e.Neighbors = noNeighbors(e.Shape.Sides())
	return m.appendElement(e)
}

func (m *Mesh) appendElement(e Element) (ElemID, error) {
	if e.GID == NoGID {
		e.GID = m.nextElemGID
	}
	if _, dup := m.elemByGID[e.GID]; dup {
		return NoElem, fmt.Errorf("%w: element %d", ErrDuplicateGID, e.GID)
	}
	if e.GID >= m.nextElemGID {
		m.nextElemGID = e.GID + 1
	}
	id := ElemID(len(m.elems))
	m.elems = append(m.elems, e)
	m.elemByGID[e.GID] = id
	for len(m.levels) <= e.Level {
		m.levels = append(m.levels, nil)
	}
	m.levels[e.Level] = append(m.levels[e.Level], id)
	return id, nil
}

// SetNodeGID changes a node's global identifier.
func (m *Mesh) SetNodeGID(id NodeID, gid int64) error {
	n := &m.nodes[id]
	if n.GID == gid {
		return nil
	}
	if other, dup := m.nodeByGID[gid]; dup && other != id {
		return fmt.Errorf("%w: node %d", ErrDuplicateGID, gid)
	}
	delete(m.nodeByGID, n.GID)
	n.GID = gid
	m.nodeByGID[gid] = id
	if gid >= m.nextNodeGID {
		m.nextNodeGID = gid + 1
	}
	return nil
}

// SetElemGID changes an element's global identifier.
func (m *Mesh) SetElemGID(id ElemID, gid int64) error {
	e := &m.elems[id]
	if e.GID == gid {
		return nil
	}
	if other, dup := m.elemByGID[gid]; dup && other != id {
		return fmt.Errorf("%w: element %d", ErrDuplicateGID, gid)
	}
	delete(m.elemByGID, e.GID)
	e.GID = gid
	m.elemByGID[gid] = id
	if gid >= m.nextElemGID {
		m.nextElemGID = gid + 1
	}
	return nil
}

// NextNodeGID returns the smallest GID above every node GID seen so far.
func (m *Mesh) NextNodeGID() int64 {
	return m.nextNodeGID
}

// ReserveNodeGIDs keeps GIDs below limit out of reach of nodes added later
// without an explicit GID.
func (m *Mesh) ReserveNodeGIDs(limit int64) {
	m.nextNodeGID = max(m.nextNodeGID, limit)
}

// NextElemGID returns the smallest GID above every element GID seen so far.
func (m *Mesh) NextElemGID() int64 {
	return m.nextElemGID
}

// SetNeighbor links side sa of a with side sb of b in both directions.
func (m *Mesh) SetNeighbor(a ElemID, sa int, b ElemID, sb int) {
	m.elems[a].Neighbors[sa] = b
	if b != NoElem {
		m.elems[b].Neighbors[sb] = a
	}
}

// SetRemote records that side s of e faces an element on another partition.
func (m *Mesh) SetRemote(e ElemID, s int, gid int64) {
	el := &m.elems[e]
	if el.Remote == nil {
		el.Remote = make(map[int]int64)
	}
	el.Remote[s] = gid
}

func noNeighbors(n int) []ElemID {
	out := make([]ElemID, n)
	for i := range out {
		out[i] = NoElem
	}
	return out
}
