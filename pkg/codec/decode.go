package codec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mgio/mgio-go/pkg/boundary"
	"github.com/mgio/mgio-go/pkg/log"
	"github.com/mgio/mgio-go/pkg/mesh"
	"github.com/mgio/mgio-go/pkg/rules"
	"github.com/mgio/mgio-go/pkg/shape"
	"github.com/mgio/mgio-go/pkg/version"
	"github.com/mgio/mgio-go/pkg/wire"
)

// reserveLimit caps the arena preallocation taken from untrusted header
// counts.
const reserveLimit = 1 << 20

// Decode reads a stream written by Encode and rebuilds the mesh. On error the
// partially built mesh is disposed and nil is returned.
func Decode(ctx context.Context, r io.Reader, opts DecodeOptions) (*mesh.Mesh, error) {
	return newDecoder(r, opts, false).run(ctx)
}

// DecodeCoarseGrid reads the header and the coarse section and returns the
// level 0 elements. Orphans and everything after the coarse section are
// ignored.
func DecodeCoarseGrid(ctx context.Context, r io.Reader, opts DecodeOptions) (*mesh.Mesh, error) {
	return newDecoder(r, opts, true).run(ctx)
}

// ReadHeader reads and checks the header frame of a stream.
func ReadHeader(r io.Reader) (*wire.Header, error) {
	d := newDecoder(r, DecodeOptions{}, true)
	if err := d.header(); err != nil {
		_, err = d.fail(err)
		return nil, err
	}
	return &d.hdr, nil
}

type decoder struct {
	fr     *wire.FrameReader
	opts   DecodeOptions
	events log.Scope
	logger *slog.Logger
	coarse bool

	m       *mesh.Mesh
	hdr     wire.Header
	section wire.Section
	frames  uint64
	records uint64

	idents    map[int64]mesh.NodeID
	blobs     map[string]boundary.Point
	roots     []mesh.ElemID
	rootGIDs  []int64
	externals []external
}

// external is a side reference resolved once every element is resident.
type external struct {
	elem mesh.ElemID
	side int
	gid  int64
}

// tree is one parsed root frame.
type tree struct {
	rec  *wire.RefinementRecord
	rule *rules.Rule
	sons []*tree
}

type pending struct {
	elem mesh.ElemID
	t    *tree
}

func newDecoder(r io.Reader, opts DecodeOptions, coarse bool) *decoder {
	fr := wire.NewFrameReaderWithMaxSize(r, maxFrame(opts.MaxFrameSize))
	events := log.Scope{
		Logger:    log.OrNoop(opts.Events),
		Direction: log.DirectionIn,
	}
	fr.SetEvents(events)
	return &decoder{
		fr:     fr,
		opts:   opts,
		events: events,
		logger: opts.Logger,
		coarse: coarse,
		idents: make(map[int64]mesh.NodeID),
		blobs:  make(map[string]boundary.Point),
	}
}

func (d *decoder) debugLog(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *decoder) fail(err error) (*mesh.Mesh, error) {
	err = &Error{Op: "decode", Section: d.section, Err: classify(err)}
	d.events.Error(log.LayerRecord, err, d.section.String(), "decode")
	d.debugLog("decode failed", "section", d.section, "offset", d.fr.Offset(), "error", err)
	if d.m != nil {
		d.m.Dispose()
	}
	return nil, err
}

func (d *decoder) read(v any) error {
	if err := wire.ReadRecord(d.fr, v); err != nil {
		return err
	}
	d.frames++
	return nil
}

func (d *decoder) run(ctx context.Context) (*mesh.Mesh, error) {
	d.section = wire.SectionHeader
	if err := d.header(); err != nil {
		return d.fail(err)
	}
	d.events.Section(wire.SectionHeader.String(), 1, 0)

	d.m = mesh.New()
	d.m.Rank = int(d.hdr.Rank)
	d.m.Parts = int(d.hdr.Parts)
	d.m.Reserve(int(min(d.hdr.Nodes, reserveLimit)), int(min(d.hdr.Elements, reserveLimit)))

	d.section = wire.SectionCoarse
	start := time.Now()
	if err := d.coarseSection(); err != nil {
		return d.fail(err)
	}
	d.events.Section(wire.SectionCoarse.String(), int(d.hdr.Points+d.hdr.Roots), time.Since(start))
	d.debugLog("coarse section read", "points", d.hdr.Points, "roots", d.hdr.Roots)

	if !d.coarse {
		d.section = wire.SectionTree
		start = time.Now()
		if err := d.trees(ctx); err != nil {
			return d.fail(err)
		}
		if err := d.m.Relink(); err != nil {
			return d.fail(err)
		}
		if d.opts.Resolution == ResolveDeferred {
			d.m.RebuildLevels()
		}
		d.events.Section(wire.SectionTree.String(), int(d.records), time.Since(start))
	}
	if err := d.resolveExternals(); err != nil {
		return d.fail(err)
	}

	if !d.coarse {
		d.section = wire.SectionIdentify
		if err := d.identify(); err != nil {
			return d.fail(err)
		}

		d.section = wire.SectionTrailer
		if err := d.trailer(); err != nil {
			return d.fail(err)
		}
		d.events.Section(wire.SectionTrailer.String(), 1, 0)
	}

	if g, ok := d.opts.Boundary.(boundary.Interpolator); ok {
		d.m.Geometry = g
	}
	d.debugLog("stream read", "nodes", d.m.NodeCount(), "elements", d.m.ElemCount(), "levels", d.m.Levels())
	return d.m, nil
}

func (d *decoder) header() error {
	h := &d.hdr
	if err := d.read(h); err != nil {
		return err
	}
	if h.Magic != wire.Magic {
		return corrupt("bad magic %q", h.Magic)
	}
	if err := version.Readable(h.Version); err != nil {
		return corrupt("%v", err)
	}
	if h.Dim != 2 && h.Dim != 3 && h.Roots > 0 {
		return corrupt("dimension %d", h.Dim)
	}
	if h.Parts == 0 || h.Rank >= h.Parts {
		return corrupt("rank %d of %d partitions", h.Rank, h.Parts)
	}
	if h.IdentLimit < 0 {
		return corrupt("identifier limit %d", h.IdentLimit)
	}
	session, err := uuid.FromBytes(h.Session)
	if err != nil {
		return corrupt("session: %v", err)
	}

	d.events.SessionID = session.String()
	d.events.Rank = int(h.Rank)
	d.events.Parts = int(h.Parts)
	d.fr.SetEvents(d.events)
	return nil
}

func (d *decoder) point(blob []byte) (boundary.Point, error) {
	if d.opts.Boundary == nil {
		return nil, fmt.Errorf("%w: stream carries boundary points and no serializer is set", ErrBoundary)
	}
	if p, ok := d.blobs[string(blob)]; ok {
		return p, nil
	}
	p, err := d.opts.Boundary.DeserializeBoundaryPoint(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBoundary, err)
	}
	d.blobs[string(blob)] = p
	return p, nil
}

func (d *decoder) coarseSection() error {
	var cs wire.CoarseSection
	if err := d.read(&cs); err != nil {
		return err
	}
	if uint64(len(cs.Points)) != d.hdr.Points || uint64(len(cs.Elements)) != d.hdr.Roots {
		return corrupt("coarse section has %d points and %d roots, header says %d and %d",
			len(cs.Points), len(cs.Elements), d.hdr.Points, d.hdr.Roots)
	}

	offset := max(d.opts.NodeGIDOffset, d.hdr.IdentLimit)
	points := make([]mesh.NodeID, len(cs.Points))
	for i, p := range cs.Points {
		if p.Ident < 0 || p.Ident >= d.hdr.IdentLimit {
			return corrupt("point %d: identifier %d outside 0-%d", i, p.Ident, d.hdr.IdentLimit-1)
		}
		if _, dup := d.idents[p.Ident]; dup {
			return corrupt("point %d: duplicate identifier %d", i, p.Ident)
		}
		if p.Kind > uint8(shape.Center) {
			return corrupt("point %d: node kind %d", i, p.Kind)
		}
		n := mesh.NewNode(shape.NodeKind(p.Kind), p.Pos)
		n.GID = offset + int64(i)
		n.Ident = p.Ident
		n.Level = int(p.Level)
		if p.Boundary != wire.NoIndex {
			if p.Boundary < 0 || int(p.Boundary) >= len(cs.Blobs) {
				return corrupt("point %d: boundary blob %d of %d", i, p.Boundary, len(cs.Blobs))
			}
			bp, err := d.point(cs.Blobs[p.Boundary])
			if err != nil {
				return err
			}
			n.Boundary = bp
		}
		id, err := d.m.AddNode(n)
		if err != nil {
			return err
		}
		d.idents[p.Ident] = id
		points[i] = id
	}

	d.roots = make([]mesh.ElemID, len(cs.Elements))
	d.rootGIDs = make([]int64, len(cs.Elements))
	for i, er := range cs.Elements {
		s := shape.Shape(er.Shape)
		switch {
		case !s.Valid():
			return corrupt("root %d: shape %d", i, er.Shape)
		case s.Dim() != int(d.hdr.Dim):
			return corrupt("root %d: %s in a %d-D stream", i, s, d.hdr.Dim)
		case len(er.Corners) != s.Corners(), len(er.Neighbors) != s.Sides():
			return corrupt("root %d: %s with %d corners and %d sides", i, s, len(er.Corners), len(er.Neighbors))
		case er.GID < 0:
			return corrupt("root %d: element identifier %d", i, er.GID)
		}
		d.rootGIDs[i] = er.GID
		if d.coarse && er.Level > 0 {
			d.roots[i] = mesh.NoElem
			continue
		}

		corners := make([]mesh.NodeID, len(er.Corners))
		for c, idx := range er.Corners {
			if int(idx) >= len(points) {
				return corrupt("root %d: corner %d references point %d of %d", i, c, idx, len(points))
			}
			corners[c] = points[idx]
		}
		el := mesh.NewElement(s, corners...)
		el.GID = er.GID
		el.Subdomain = er.Subdomain
		el.Level = int(er.Level)
		if er.Orphan {
			el.Orphan = true
			el.ParentGID = er.ParentGID
			el.SonIndex = int(er.SonIndex)
		}
		id, err := d.m.AddElement(el)
		if err != nil {
			return err
		}
		d.roots[i] = id
	}

	for i, er := range cs.Elements {
		id := d.roots[i]
		if id == mesh.NoElem {
			continue
		}
		el := d.m.Elem(id)
		for s, nb := range er.Neighbors {
			if nb == wire.NoIndex {
				continue
			}
			if nb < 0 || int(nb) >= len(d.roots) {
				return corrupt("root %d: side %d references root %d of %d", i, s, nb, len(d.roots))
			}
			other := d.roots[nb]
			if other == mesh.NoElem {
				continue
			}
			if d.m.Elem(other).Level != el.Level {
				return corrupt("root %d: side %d faces a root on level %d", i, s, d.m.Elem(other).Level)
			}
			el.Neighbors[s] = other
		}
		if err := d.stash(id, er.External); err != nil {
			return err
		}
	}
	d.m.LinkNeighbors()
	return nil
}

func (d *decoder) stash(id mesh.ElemID, refs []wire.ExternalRef) error {
	sides := d.m.Elem(id).Shape.Sides()
	for _, x := range refs {
		if int(x.Side) >= sides {
			return corrupt("element %d: external reference on side %d", d.m.Elem(id).GID, x.Side)
		}
		d.externals = append(d.externals, external{elem: id, side: int(x.Side), gid: x.GID})
	}
	return nil
}

func (d *decoder) trees(ctx context.Context) error {
	var queue []pending
	for i, id := range d.roots {
		if err := ctx.Err(); err != nil {
			return err
		}
		var tf wire.TreeFrame
		if err := d.read(&tf); err != nil {
			return err
		}
		if tf.Root != d.rootGIDs[i] {
			return corrupt("tree %d belongs to element %d, expected %d", i, tf.Root, d.rootGIDs[i])
		}
		t, err := d.parse(d.m.Elem(id).Shape, tf.Records)
		if err != nil {
			return err
		}
		if d.opts.Resolution == ResolveDeferred {
			queue = append(queue, pending{elem: id, t: t})
			continue
		}
		if err := d.installTree(ctx, id, t); err != nil {
			return err
		}
	}
	if d.opts.Resolution == ResolveDeferred {
		return d.installDeferred(ctx, queue)
	}
	return nil
}

// parse checks the records of one tree frame against the rule catalog.
func (d *decoder) parse(s shape.Shape, recs []wire.RefinementRecord) (*tree, error) {
	i := 0
	t, err := d.parseRecord(s, recs, &i)
	if err != nil {
		return nil, err
	}
	if i != len(recs) {
		return nil, corrupt("%d records after the end of the tree", len(recs)-i)
	}
	return t, nil
}

func (d *decoder) parseRecord(s shape.Shape, recs []wire.RefinementRecord, i *int) (*tree, error) {
	if *i >= len(recs) {
		return nil, corrupt("tree ends after %d records", len(recs))
	}
	rec := &recs[*i]
	*i++
	d.records++

	t := &tree{rec: rec}
	switch rec.Marker {
	case wire.MarkerLeaf:
		if len(rec.Slots) > 0 || len(rec.Sons) > 0 {
			return nil, corrupt("leaf record %d carries slots or sons", *i-1)
		}
		return t, nil
	case wire.MarkerRefined:
	default:
		return nil, corrupt("record %d: marker %d", *i-1, rec.Marker)
	}

	r, err := rules.ForShape(s, int(rec.Rule))
	if err != nil {
		return nil, err
	}
	if len(rec.Slots) != len(r.NewSlots()) || len(rec.Sons) != r.SonCount() {
		return nil, corrupt("record %d: %s needs %d slots and %d sons, got %d and %d",
			*i-1, r, len(r.NewSlots()), r.SonCount(), len(rec.Slots), len(rec.Sons))
	}
	for _, gid := range rec.Sons {
		if gid < 0 {
			return nil, corrupt("record %d: son identifier %d", *i-1, gid)
		}
	}
	t.rule = r
	t.sons = make([]*tree, len(r.Sons))
	for k := range r.Sons {
		son, err := d.parseRecord(r.Sons[k].Shape, recs, i)
		if err != nil {
			return nil, err
		}
		t.sons[k] = son
	}
	return t, nil
}

func (d *decoder) installTree(ctx context.Context, id mesh.ElemID, t *tree) error {
	_, sons, err := d.install(id, t, false, false)
	if err != nil {
		return err
	}
	for k, sid := range sons {
		if err := d.installTree(ctx, sid, t.sons[k]); err != nil {
			return err
		}
	}
	return nil
}

// installDeferred installs records in passes. A record whose absent slots do
// not resolve yet waits for the next pass; a pass that installs nothing ends
// the decode.
func (d *decoder) installDeferred(ctx context.Context, queue []pending) error {
	for pass := 0; len(queue) > 0; pass++ {
		var next []pending
		progress := false
		for len(queue) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := queue[0]
			queue = queue[1:]
			ok, sons, err := d.install(p.elem, p.t, true, pass > 0)
			if err != nil {
				return err
			}
			if !ok {
				next = append(next, p)
				continue
			}
			progress = true
			for k, sid := range sons {
				queue = append(queue, pending{elem: sid, t: p.t.sons[k]})
			}
		}
		if !progress {
			el := d.m.Elem(next[0].elem)
			return fmt.Errorf("%w: %d refinements unresolved after %d passes, first is element %d",
				ErrDanglingNodeReference, len(next), pass+1, el.GID)
		}
		d.debugLog("deferred pass", "pass", pass, "waiting", len(next))
		queue = next
	}
	return nil
}

// install applies the record of one element. It reports false when an
// absent slot does not resolve and wait is set.
func (d *decoder) install(id mesh.ElemID, t *tree, wait, late bool) (bool, []mesh.ElemID, error) {
	el := d.m.Elem(id)
	ev := log.RecordEvent{Element: el.GID, Level: el.Level, Rule: -1, Deferred: late}

	if t.rule == nil {
		if err := d.stash(id, t.rec.External); err != nil {
			return false, nil, err
		}
		d.events.Record(ev)
		return true, nil, nil
	}

	s := el.Shape
	nc := s.Corners()
	mids := make([]mesh.NodeID, s.NewSlots())
	for i := range mids {
		mids[i] = mesh.NoNode
	}
	for i, slot := range t.rule.NewSlots() {
		if t.rec.Slots[i].Present() {
			continue
		}
		if s.SlotKind(slot) == shape.Center {
			return false, nil, corrupt("element %d: center slot %d is absent", el.GID, slot)
		}
		n := d.m.SharedMid(id, slot)
		if n == mesh.NoNode {
			if wait {
				return false, nil, nil
			}
			return false, nil, fmt.Errorf("%w: slot %d of element %d (%s)", ErrDanglingNodeReference, slot, el.GID, t.rule)
		}
		mids[slot-nc] = n
		ev.Resolved++
	}

	level := el.Level + 1
	for i, slot := range t.rule.NewSlots() {
		sr := &t.rec.Slots[i]
		if !sr.Present() {
			continue
		}
		n, created, err := d.node(sr, s.SlotKind(slot), level)
		if err != nil {
			return false, nil, err
		}
		mids[slot-nc] = n
		if created {
			ev.Created++
		}
	}

	sons, err := d.m.Install(id, t.rule, rules.Class(t.rec.Class), mids, t.rec.Sons)
	if err != nil {
		return false, nil, err
	}
	if err := d.stash(id, t.rec.External); err != nil {
		return false, nil, err
	}
	ev.Rule = t.rule.ID()
	d.events.Record(ev)
	return true, sons, nil
}

// node returns the node a present slot names, creating it on first use.
func (d *decoder) node(sr *wire.SlotRecord, kind shape.NodeKind, level int) (mesh.NodeID, bool, error) {
	if id, ok := d.idents[sr.Ident]; ok {
		if have := d.m.Node(id).Kind; have != kind {
			return mesh.NoNode, false, corrupt("node %d is %s, slot needs %s", sr.Ident, have, kind)
		}
		return id, false, nil
	}
	if sr.Ident < 0 || sr.Ident >= d.hdr.IdentLimit {
		return mesh.NoNode, false, corrupt("node identifier %d outside 0-%d", sr.Ident, d.hdr.IdentLimit-1)
	}

	if sr.Level != 0 {
		if sr.Level >= d.hdr.Levels {
			return mesh.NoNode, false, corrupt("node %d on level %d of %d", sr.Ident, sr.Level, d.hdr.Levels)
		}
		level = int(sr.Level)
	}

	n := mesh.NewNode(kind, sr.Pos)
	n.GID = sr.Ident
	n.Ident = sr.Ident
	n.Level = level
	if len(sr.Boundary) > 0 {
		bp, err := d.point(sr.Boundary)
		if err != nil {
			return mesh.NoNode, false, err
		}
		n.Boundary = bp
	}
	id, err := d.m.AddNode(n)
	if err != nil {
		return mesh.NoNode, false, err
	}
	d.idents[sr.Ident] = id
	return id, true, nil
}

// resolveExternals links the sides named by external references, or marks
// them remote when the element is not resident.
func (d *decoder) resolveExternals() error {
	for _, x := range d.externals {
		el := d.m.Elem(x.elem)
		cur := el.Neighbors[x.side]
		nb, resident := d.m.ElemByGID(x.gid)
		if !resident {
			if cur != mesh.NoElem {
				return corrupt("element %d side %d faces element %d, stream names remote %d",
					el.GID, x.side, d.m.Elem(cur).GID, x.gid)
			}
			d.m.SetRemote(x.elem, x.side, x.gid)
			continue
		}
		if cur == nb {
			continue
		}
		if cur != mesh.NoElem || nb == x.elem {
			return corrupt("element %d side %d: conflicting neighbor %d", el.GID, x.side, x.gid)
		}
		other := d.m.Elem(nb)
		if other.Level != el.Level {
			return corrupt("element %d side %d: neighbor %d is on level %d", el.GID, x.side, x.gid, other.Level)
		}
		sb := facingSide(d.m, el, x.side, nb)
		if sb < 0 {
			return corrupt("element %d side %d: neighbor %d has no matching side", el.GID, x.side, x.gid)
		}
		if back := other.Neighbors[sb]; back != mesh.NoElem && back != x.elem {
			return corrupt("element %d side %d: neighbor %d already faces element %d", el.GID, x.side, x.gid, d.m.Elem(back).GID)
		}
		d.m.SetNeighbor(x.elem, x.side, nb, sb)
	}
	return nil
}

func (d *decoder) identify() error {
	var is wire.IdentifySection
	if err := d.read(&is); err != nil {
		return err
	}
	for _, r := range is.Records {
		peers := make([]int, len(r.Peers))
		for i, p := range r.Peers {
			if p >= d.hdr.Parts || p == d.hdr.Rank {
				return corrupt("object %d: peer rank %d of %d partitions", r.ID, p, d.hdr.Parts)
			}
			peers[i] = int(p)
		}
		if mesh.Priority(r.Priority) > mesh.PrioCopy {
			return corrupt("object %d: priority %d", r.ID, r.Priority)
		}

		switch r.Kind {
		case wire.IdentNode:
			id, ok := d.idents[r.ID]
			if !ok {
				return corrupt("identification names unknown node %d", r.ID)
			}
			n := d.m.Node(id)
			n.Peers = peers
			n.Priority = mesh.Priority(r.Priority)
		case wire.IdentElement:
			id, ok := d.m.ElemByGID(r.ID)
			if !ok {
				return corrupt("identification names unknown element %d", r.ID)
			}
			el := d.m.Elem(id)
			el.Peers = peers
			el.Priority = mesh.Priority(r.Priority)
		default:
			return corrupt("identification kind %d", r.Kind)
		}
	}
	d.events.Section(wire.SectionIdentify.String(), len(is.Records), 0)
	return nil
}

func (d *decoder) trailer() error {
	frames := d.frames
	var t wire.Trailer
	if err := d.read(&t); err != nil {
		return err
	}
	if t.Frames != frames {
		return corrupt("trailer counts %d frames, read %d", t.Frames, frames)
	}
	if t.Nodes != uint64(d.m.NodeCount()) || t.Elements != d.records {
		return corrupt("trailer counts %d nodes and %d records, read %d and %d",
			t.Nodes, t.Elements, d.m.NodeCount(), d.records)
	}
	return nil
}
