package codec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mgio/mgio-go/pkg/log"
	"github.com/mgio/mgio-go/pkg/mesh"
	"github.com/mgio/mgio-go/pkg/version"
	"github.com/mgio/mgio-go/pkg/wire"
)

// Encode writes m to w: the header, the coarse section, one tree frame per
// root element, the identification section and the trailer.
func Encode(ctx context.Context, m *mesh.Mesh, w io.Writer, opts EncodeOptions) error {
	return newEncoder(m, w, opts, false).run(ctx)
}

// EncodeCoarseGrid writes only the level 0 elements of m and their corners.
// Every tree frame holds a single leaf record, so the stream decodes with
// both Decode and DecodeCoarseGrid.
func EncodeCoarseGrid(ctx context.Context, m *mesh.Mesh, w io.Writer, opts EncodeOptions) error {
	return newEncoder(m, w, opts, true).run(ctx)
}

type encoder struct {
	m      *mesh.Mesh
	opts   EncodeOptions
	fw     *wire.FrameWriter
	events log.Scope
	logger *slog.Logger
	coarse bool

	roots     []mesh.ElemID
	rootIndex map[mesh.ElemID]int32
	points    map[mesh.NodeID]bool

	// written holds every node a record has carried so far.
	written map[mesh.NodeID]bool
	// installed holds every entity whose midpoint the reader knows.
	installed map[entity]bool
	// lowest maps an entity to the smallest GID of the elements refining it.
	lowest map[entity]int64

	section wire.Section
	records uint64
}

func newEncoder(m *mesh.Mesh, w io.Writer, opts EncodeOptions, coarse bool) *encoder {
	if opts.Session == uuid.Nil {
		opts.Session = uuid.New()
	}
	fw := wire.NewFrameWriterWithMaxSize(w, maxFrame(opts.MaxFrameSize))
	events := log.Scope{
		Logger:    log.OrNoop(opts.Events),
		SessionID: opts.Session.String(),
		Direction: log.DirectionOut,
	}
	if m != nil {
		events.Rank, events.Parts = m.Rank, m.Parts
	}
	fw.SetEvents(events)
	return &encoder{
		m:         m,
		opts:      opts,
		fw:        fw,
		events:    events,
		logger:    opts.Logger,
		coarse:    coarse,
		rootIndex: make(map[mesh.ElemID]int32),
		points:    make(map[mesh.NodeID]bool),
		written:   make(map[mesh.NodeID]bool),
		installed: make(map[entity]bool),
		lowest:    make(map[entity]int64),
	}
}

func (e *encoder) debugLog(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *encoder) fail(err error) error {
	err = &Error{Op: "encode", Section: e.section, Err: err}
	e.events.Error(log.LayerRecord, err, e.section.String(), "encode")
	e.debugLog("encode failed", "section", e.section, "error", err)
	return err
}

// write encodes one frame. Writer failures are I/O errors; an oversized
// frame is reported as is.
func (e *encoder) write(v any) error {
	err := wire.WriteRecord(e.fw, v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, wire.ErrFrameTooLarge):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
}

func (e *encoder) run(ctx context.Context) error {
	if e.m == nil || e.m.Disposed() {
		return e.fail(fmt.Errorf("%w: mesh is nil or disposed", mesh.ErrInvalid))
	}
	for _, id := range e.m.Roots() {
		if e.coarse && e.m.Elem(id).Level > 0 {
			continue
		}
		e.rootIndex[id] = int32(len(e.roots))
		e.roots = append(e.roots, id)
	}
	if !e.coarse && e.opts.Canonical == CanonicalLowestGID {
		for _, id := range e.roots {
			e.scanLowest(id)
		}
	}

	e.section = wire.SectionCoarse
	start := time.Now()
	cs, err := e.coarseSection()
	if err != nil {
		return e.fail(err)
	}

	e.section = wire.SectionHeader
	if err := e.write(e.header(cs)); err != nil {
		return e.fail(err)
	}
	e.events.Section(wire.SectionHeader.String(), 1, 0)

	e.section = wire.SectionCoarse
	if err := e.write(cs); err != nil {
		return e.fail(err)
	}
	e.events.Section(wire.SectionCoarse.String(), len(cs.Points)+len(cs.Elements), time.Since(start))
	e.debugLog("coarse section written", "points", len(cs.Points), "roots", len(cs.Elements))

	e.section = wire.SectionTree
	start = time.Now()
	for _, id := range e.roots {
		if err := ctx.Err(); err != nil {
			return e.fail(err)
		}
		tf := wire.TreeFrame{Root: e.m.Elem(id).GID}
		if err := e.tree(id, &tf.Records); err != nil {
			return e.fail(err)
		}
		if err := e.write(&tf); err != nil {
			return e.fail(err)
		}
	}
	e.events.Section(wire.SectionTree.String(), int(e.records), time.Since(start))

	e.section = wire.SectionIdentify
	ident := e.identify()
	if err := e.write(ident); err != nil {
		return e.fail(err)
	}
	e.events.Section(wire.SectionIdentify.String(), len(ident.Records), 0)

	e.section = wire.SectionTrailer
	trailer := wire.Trailer{
		Nodes:    uint64(len(e.written)),
		Elements: e.records,
		Frames:   uint64(e.fw.Frames()),
	}
	if err := e.write(&trailer); err != nil {
		return e.fail(err)
	}
	e.events.Section(wire.SectionTrailer.String(), 1, 0)
	e.debugLog("stream written", "nodes", trailer.Nodes, "elements", trailer.Elements, "bytes", e.fw.Offset())
	return nil
}

func (e *encoder) header(cs *wire.CoarseSection) *wire.Header {
	h := &wire.Header{
		Magic:             wire.Magic,
		Version:           version.Current,
		Dim:               uint8(e.m.Dim()),
		Rank:              uint32(e.m.Rank),
		Parts:             uint32(max(e.m.Parts, 1)),
		Session:           e.opts.Session[:],
		Points:            uint64(len(cs.Points)),
		Roots:             uint64(len(cs.Elements)),
		Nodes:             uint64(e.m.NodeCount()),
		Elements:          uint64(e.m.ElemCount()),
		Levels:            uint32(e.m.Levels()),
		ExternalNeighbors: e.opts.ExternalNeighbors,
		Canonical:         uint8(e.opts.Canonical),
	}
	if e.coarse {
		h.Nodes = uint64(len(cs.Points))
		h.Elements = uint64(len(cs.Elements))
		h.Levels = min(h.Levels, 1)
	}
	for id := range e.m.NodeCount() {
		n := e.m.Node(mesh.NodeID(id))
		if e.coarse && !e.points[mesh.NodeID(id)] {
			continue
		}
		if k := n.Key(); k+1 > h.IdentLimit {
			h.IdentLimit = k + 1
		}
		if n.Boundary != nil {
			h.Boundary = true
		}
	}
	return h
}

// coarseSection lists the corners of every root in order of first use, then
// the roots themselves.
func (e *encoder) coarseSection() (*wire.CoarseSection, error) {
	cs := &wire.CoarseSection{}
	pointIndex := make(map[mesh.NodeID]uint32)

	for _, id := range e.roots {
		el := e.m.Elem(id)
		for _, c := range el.Corners {
			if _, seen := pointIndex[c]; seen {
				continue
			}
			n := e.m.Node(c)
			pr := wire.PointRecord{
				Ident:    n.Key(),
				Kind:     uint8(n.Kind),
				Level:    uint32(n.Level),
				Pos:      n.Pos,
				Boundary: wire.NoIndex,
			}
			if n.Boundary != nil {
				blob, err := e.boundary(n)
				if err != nil {
					return nil, err
				}
				pr.Boundary = int32(len(cs.Blobs))
				cs.Blobs = append(cs.Blobs, blob)
			}
			pointIndex[c] = uint32(len(cs.Points))
			cs.Points = append(cs.Points, pr)
			e.points[c] = true
			e.written[c] = true
		}
	}

	for _, id := range e.roots {
		el := e.m.Elem(id)
		rec := wire.ElementRecord{
			GID:       el.GID,
			Shape:     uint8(el.Shape),
			Corners:   make([]uint32, len(el.Corners)),
			Neighbors: make([]int32, len(el.Neighbors)),
			Subdomain: el.Subdomain,
			Level:     uint32(el.Level),
		}
		for i, c := range el.Corners {
			rec.Corners[i] = pointIndex[c]
		}
		for s, nb := range el.Neighbors {
			rec.Neighbors[s] = wire.NoIndex
			if idx, ok := e.rootIndex[nb]; ok && nb != mesh.NoElem {
				rec.Neighbors[s] = idx
			}
		}
		if e.opts.ExternalNeighbors {
			rec.External = e.externals(id, func(nb mesh.ElemID) bool {
				_, root := e.rootIndex[nb]
				return !root
			})
		}
		if el.Orphan {
			rec.Orphan = true
			rec.ParentGID = el.ParentGID
			rec.SonIndex = int32(el.SonIndex)
		}
		cs.Elements = append(cs.Elements, rec)
	}
	return cs, nil
}

// externals lists the remote sides of id and the local neighbors accepted by
// cross, in side order.
func (e *encoder) externals(id mesh.ElemID, cross func(mesh.ElemID) bool) []wire.ExternalRef {
	el := e.m.Elem(id)
	var out []wire.ExternalRef
	for s, nb := range el.Neighbors {
		if gid, ok := el.Remote[s]; ok && nb == mesh.NoElem {
			out = append(out, wire.ExternalRef{Side: uint8(s), GID: gid})
			continue
		}
		if nb != mesh.NoElem && cross(nb) {
			out = append(out, wire.ExternalRef{Side: uint8(s), GID: e.m.Elem(nb).GID})
		}
	}
	return out
}

func (e *encoder) boundary(n *mesh.Node) ([]byte, error) {
	if e.opts.Boundary == nil {
		return nil, fmt.Errorf("%w: node %d has a boundary point and no serializer is set", ErrBoundary, n.Key())
	}
	blob, err := e.opts.Boundary.SerializeBoundaryPoint(n.Boundary)
	if err != nil {
		return nil, fmt.Errorf("%w: node %d: %w", ErrBoundary, n.Key(), err)
	}
	return blob, nil
}

func (e *encoder) scanLowest(id mesh.ElemID) {
	el := e.m.Elem(id)
	if !el.Refined() {
		return
	}
	for _, slot := range el.Rule.NewSlots() {
		key, shared := slotEntity(el, slot)
		if !shared {
			continue
		}
		if have, ok := e.lowest[key]; !ok || el.GID < have {
			e.lowest[key] = el.GID
		}
	}
	for _, s := range el.Sons {
		e.scanLowest(s)
	}
}

// tree appends the pre-order records of the subtree rooted at id.
func (e *encoder) tree(id mesh.ElemID, out *[]wire.RefinementRecord) error {
	el := e.m.Elem(id)
	rec := wire.RefinementRecord{Marker: wire.MarkerLeaf}
	if e.opts.ExternalNeighbors && !el.Root() {
		// Root sides are already listed in the coarse section.
		rec.External = e.externals(id, func(nb mesh.ElemID) bool {
			return e.m.Elem(nb).Parent != el.Parent
		})
	}
	ev := log.RecordEvent{Element: el.GID, Level: el.Level, Rule: -1}

	if e.coarse || !el.Refined() {
		*out = append(*out, rec)
		e.records++
		e.events.Record(ev)
		return nil
	}

	r := el.Rule
	rec.Marker = wire.MarkerRefined
	rec.Rule = int32(r.ID())
	rec.Class = uint8(el.Class)
	rec.Slots = make([]wire.SlotRecord, 0, len(r.NewSlots()))
	rec.Sons = make([]int64, len(el.Sons))
	ev.Rule = r.ID()

	for _, slot := range r.NewSlots() {
		n := el.Mid(slot)
		if n == mesh.NoNode {
			return fmt.Errorf("%w: element %d has no node in slot %d of %s", mesh.ErrMissingNode, el.GID, slot, r)
		}
		key, shared := slotEntity(el, slot)
		if shared && !e.present(el, n, key) {
			rec.Slots = append(rec.Slots, wire.SlotRecord{Ident: wire.NoIdent})
			ev.Resolved++
			continue
		}
		node := e.m.Node(n)
		sr := wire.SlotRecord{Ident: node.Key(), Pos: node.Pos}
		if node.Level != el.Level+1 {
			sr.Level = uint32(node.Level)
		}
		if node.Boundary != nil {
			blob, err := e.boundary(node)
			if err != nil {
				return err
			}
			sr.Boundary = blob
		}
		rec.Slots = append(rec.Slots, sr)
		e.written[n] = true
		ev.Created++
	}
	for _, slot := range r.NewSlots() {
		if key, shared := slotEntity(el, slot); shared {
			e.installed[key] = true
		}
	}
	for k, s := range el.Sons {
		rec.Sons[k] = e.m.Elem(s).GID
	}

	*out = append(*out, rec)
	e.records++
	e.events.Record(ev)

	for _, s := range el.Sons {
		if err := e.tree(s, out); err != nil {
			return err
		}
	}
	return nil
}

// present reports whether el carries node n of a shared entity.
func (e *encoder) present(el *mesh.Element, n mesh.NodeID, key entity) bool {
	if e.points[n] {
		// The reader only knows coarse points by identifier.
		return true
	}
	switch e.opts.Canonical {
	case CanonicalLowestGID:
		return e.lowest[key] == el.GID
	default:
		return !e.installed[key]
	}
}

func (e *encoder) identify() *wire.IdentifySection {
	is := &wire.IdentifySection{}
	for id := range e.m.NodeCount() {
		nid := mesh.NodeID(id)
		n := e.m.Node(nid)
		if len(n.Peers) == 0 || !e.written[nid] {
			continue
		}
		is.Records = append(is.Records, wire.IdentRecord{
			Kind:     wire.IdentNode,
			ID:       n.Key(),
			Peers:    peers(n.Peers),
			Priority: uint8(n.Priority),
		})
	}
	for id := range e.m.ElemCount() {
		el := e.m.Elem(mesh.ElemID(id))
		if len(el.Peers) == 0 {
			continue
		}
		if e.coarse {
			if _, root := e.rootIndex[mesh.ElemID(id)]; !root {
				continue
			}
		}
		is.Records = append(is.Records, wire.IdentRecord{
			Kind:     wire.IdentElement,
			ID:       el.GID,
			Peers:    peers(el.Peers),
			Priority: uint8(el.Priority),
		})
	}
	return is
}

func peers(in []int) []uint32 {
	out := make([]uint32, len(in))
	for i, p := range in {
		out[i] = uint32(p)
	}
	return out
}
