package distributed

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/mgio/mgio-go/pkg/mesh"
)

// ErrNotSerial is returned when splitting a mesh that already is a partition.
var ErrNotSerial = errors.New("mesh is not serial")

// Assign picks the rank of an element at the cut level.
type Assign func(m *mesh.Mesh, id mesh.ElemID) int

// ByAxis assigns elements to parts equal slabs along axis by the position
// of their centroid.
func ByAxis(m *mesh.Mesh, parts, axis int) Assign {
	lo, hi := math.Inf(1), math.Inf(-1)
	for id := range m.NodeCount() {
		p := m.Node(mesh.NodeID(id)).Pos[axis]
		lo, hi = min(lo, p), max(hi, p)
	}
	width := hi - lo
	return func(m *mesh.Mesh, id mesh.ElemID) int {
		if width <= 0 {
			return 0
		}
		e := m.Elem(id)
		var c float64
		for _, n := range e.Corners {
			c += m.Node(n).Pos[axis]
		}
		c /= float64(len(e.Corners))
		rank := int((c - lo) / width * float64(parts))
		return min(max(rank, 0), parts-1)
	}
}

// Split cuts m into parts partition meshes.
//
// The cut runs through level: every element on that level, and every leaf
// above it, is handed to the rank assign picks, together with its whole
// subtree. The ancestors of a cut element live on the rank of the first cut
// element below their coarse root. A cut element assigned elsewhere stays
// there as an unrefined copy and appears on its own rank as an orphan.
//
// Nodes used by more than one partition list the other ranks as peers; the
// lowest rank holds the master. Sides facing an element that is not
// resident are recorded as remote. Element and node GIDs are kept.
func Split(m *mesh.Mesh, parts, level int, assign Assign) ([]*mesh.Mesh, error) {
	if m == nil || m.Disposed() {
		return nil, fmt.Errorf("distributed: %w: mesh is nil or disposed", mesh.ErrInvalid)
	}
	if m.Parts > 1 {
		return nil, fmt.Errorf("distributed: %w: partition %d of %d", ErrNotSerial, m.Rank, m.Parts)
	}
	if parts < 1 || level < 0 {
		return nil, fmt.Errorf("distributed: split into %d parts at level %d", parts, level)
	}

	s := &splitter{
		m:      m,
		level:  level,
		assign: assign,
		users:  make(map[mesh.NodeID][]int),
		parts:  make([]*partition, parts),
	}
	for rank := range s.parts {
		p := mesh.New()
		p.Rank, p.Parts = rank, parts
		p.Geometry = m.Geometry
		s.parts[rank] = &partition{m: p, nodes: make(map[mesh.NodeID]mesh.NodeID)}
	}

	for _, root := range m.Roots() {
		e := m.Elem(root)
		if e.Orphan {
			return nil, fmt.Errorf("distributed: %w: orphan %d", ErrNotSerial, e.GID)
		}
		home, err := s.rank(s.firstCut(root))
		if err != nil {
			return nil, err
		}
		lid, err := s.place(home, root, mesh.NewElement(e.Shape))
		if err != nil {
			return nil, err
		}
		if err := s.walk(root, home, lid); err != nil {
			return nil, err
		}
	}

	out := make([]*mesh.Mesh, parts)
	for rank, p := range s.parts {
		p.m.LinkNeighbors()
		s.remotes(p)
		s.peers(rank, p)
		out[rank] = p.m
	}
	return out, nil
}

type partition struct {
	m     *mesh.Mesh
	nodes map[mesh.NodeID]mesh.NodeID
}

type splitter struct {
	m      *mesh.Mesh
	level  int
	assign Assign
	users  map[mesh.NodeID][]int
	parts  []*partition
}

func (s *splitter) cut(id mesh.ElemID) bool {
	e := s.m.Elem(id)
	return e.Level >= s.level || !e.Refined()
}

func (s *splitter) firstCut(id mesh.ElemID) mesh.ElemID {
	for !s.cut(id) {
		id = s.m.Elem(id).Sons[0]
	}
	return id
}

func (s *splitter) rank(id mesh.ElemID) (int, error) {
	r := s.assign(s.m, id)
	if r < 0 || r >= len(s.parts) {
		return 0, fmt.Errorf("distributed: element %d assigned to rank %d of %d", s.m.Elem(id).GID, r, len(s.parts))
	}
	return r, nil
}

// node returns the local copy of global node g on rank.
func (s *splitter) node(rank int, g mesh.NodeID) (mesh.NodeID, error) {
	p := s.parts[rank]
	if id, ok := p.nodes[g]; ok {
		return id, nil
	}
	n := *s.m.Node(g)
	n.Priority, n.Peers, n.Links = mesh.PrioMaster, nil, nil
	id, err := p.m.AddNode(n)
	if err != nil {
		return mesh.NoNode, err
	}
	p.nodes[g] = id
	if !slices.Contains(s.users[g], rank) {
		s.users[g] = append(s.users[g], rank)
	}
	return id, nil
}

// place adds global element g to rank as a root, filling tmpl with its
// corners and identity.
func (s *splitter) place(rank int, g mesh.ElemID, tmpl mesh.Element) (mesh.ElemID, error) {
	e := s.m.Elem(g)
	tmpl.GID = e.GID
	tmpl.Level = e.Level
	tmpl.Subdomain = e.Subdomain
	tmpl.Corners = make([]mesh.NodeID, len(e.Corners))
	for i, c := range e.Corners {
		id, err := s.node(rank, c)
		if err != nil {
			return mesh.NoElem, err
		}
		tmpl.Corners[i] = id
	}
	return s.parts[rank].m.AddElement(tmpl)
}

// walk copies the refinement of global element g onto rank, where it lives
// as lid.
func (s *splitter) walk(g mesh.ElemID, rank int, lid mesh.ElemID) error {
	e := s.m.Elem(g)
	if !e.Refined() {
		return nil
	}
	p := s.parts[rank]

	mids := make([]mesh.NodeID, e.Shape.NewSlots())
	for i, n := range e.MidNodes {
		mids[i] = mesh.NoNode
		if n == mesh.NoNode {
			continue
		}
		id, err := s.node(rank, n)
		if err != nil {
			return err
		}
		mids[i] = id
	}
	sonGIDs := make([]int64, len(e.Sons))
	for k, son := range e.Sons {
		sonGIDs[k] = s.m.Elem(son).GID
	}
	sons, err := p.m.Install(lid, e.Rule, e.Class, mids, sonGIDs)
	if err != nil {
		return fmt.Errorf("distributed: element %d on rank %d: %w", e.GID, rank, err)
	}

	above := !s.cut(g)
	for k, son := range e.Sons {
		if !above || !s.cut(son) {
			if err := s.walk(son, rank, sons[k]); err != nil {
				return err
			}
			continue
		}
		owner, err := s.rank(son)
		if err != nil {
			return err
		}
		if owner == rank {
			if err := s.walk(son, rank, sons[k]); err != nil {
				return err
			}
			continue
		}

		leaf := p.m.Elem(sons[k])
		leaf.Priority = mesh.PrioCopy
		leaf.Peers = []int{owner}

		tmpl := mesh.NewElement(s.m.Elem(son).Shape)
		tmpl.Orphan = true
		tmpl.ParentGID = e.GID
		tmpl.SonIndex = k
		tmpl.Peers = []int{rank}
		oid, err := s.place(owner, son, tmpl)
		if err != nil {
			return err
		}
		if err := s.walk(son, owner, oid); err != nil {
			return err
		}
	}
	return nil
}

// remotes records the sides of p that face an element living elsewhere.
func (s *splitter) remotes(p *partition) {
	for id := range p.m.ElemCount() {
		lid := mesh.ElemID(id)
		e := p.m.Elem(lid)
		gid, _ := s.m.ElemByGID(e.GID)
		for side, nb := range s.m.Elem(gid).Neighbors {
			if nb == mesh.NoElem || e.Neighbors[side] != mesh.NoElem {
				continue
			}
			other := s.m.Elem(nb).GID
			if _, resident := p.m.ElemByGID(other); !resident {
				p.m.SetRemote(lid, side, other)
			}
		}
	}
}

// peers sets the peer ranks and priority of every node of rank.
func (s *splitter) peers(rank int, p *partition) {
	for g, id := range p.nodes {
		users := s.users[g]
		if len(users) < 2 {
			continue
		}
		n := p.m.Node(id)
		n.Peers = n.Peers[:0]
		for _, r := range users {
			if r != rank {
				n.Peers = append(n.Peers, r)
			}
		}
		slices.Sort(n.Peers)
		if slices.Min(users) != rank {
			n.Priority = mesh.PrioCopy
		}
	}
}
