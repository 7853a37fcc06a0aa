package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/mgio/mgio-go/pkg/log"
	"github.com/mgio/mgio-go/pkg/mesh"
)

// Options configures a Reconciler.
type Options struct {
	// Logger receives debug output. Nil disables it.
	Logger *slog.Logger

	// Events receives one identity event per reconciled object.
	Events log.Logger

	// Session stamps the events.
	Session string
}

// Report summarizes one reconciliation.
type Report struct {
	// Nodes and Elements count the replicated objects registered.
	Nodes    int
	Elements int

	// Changed counts the objects whose GID, priority or links changed.
	Changed int

	// Broken holds one ErrBrokenIdentity per peer that never registered a
	// replica, or nil.
	Broken error
}

// Reconciler runs the identify and commit phases for one partition.
type Reconciler struct {
	id     Identifier
	logger *slog.Logger
	events log.Logger
	sess   string
}

// New creates a reconciler that binds replicas through id.
func New(id Identifier, opts Options) *Reconciler {
	return &Reconciler{
		id:     id,
		logger: opts.Logger,
		events: log.OrNoop(opts.Events),
		sess:   opts.Session,
	}
}

func (r *Reconciler) debugLog(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

// Reconcile registers every node and element of m that lists peers, waits
// for the commit barrier and rewrites the replicas to agree with their owner.
//
// Errors from the Identifier are returned before m is touched. Peers that
// never registered are collected in Report.Broken and do not fail the call.
func (r *Reconciler) Reconcile(ctx context.Context, m *mesh.Mesh) (Report, error) {
	var rep Report
	if m == nil || m.Disposed() {
		return rep, ErrNoMesh
	}

	if err := r.id.BeginIdentify(); err != nil {
		return rep, fmt.Errorf("reconcile: begin: %w", err)
	}
	for id := range m.NodeCount() {
		n := m.Node(mesh.NodeID(id))
		if len(n.Peers) == 0 {
			continue
		}
		rep.Nodes++
		local := Replica{Kind: KindNode, Key: n.Key(), GID: n.GID, Rank: m.Rank, Priority: n.Priority}
		if err := r.register(local, n.Peers, m.Rank); err != nil {
			return Report{}, err
		}
	}
	for id := range m.ElemCount() {
		e := m.Elem(mesh.ElemID(id))
		if len(e.Peers) == 0 {
			continue
		}
		rep.Elements++
		local := Replica{Kind: KindElement, Key: e.GID, GID: e.GID, Rank: m.Rank, Priority: e.Priority}
		if err := r.register(local, e.Peers, m.Rank); err != nil {
			return Report{}, err
		}
	}
	r.debugLog("identify registered", "rank", m.Rank, "nodes", rep.Nodes, "elements", rep.Elements)

	classes, err := r.id.EndIdentify(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reconcile: commit: %w", err)
	}
	byKey := make(map[classKey]*Class, len(classes))
	for i := range classes {
		c := &classes[i]
		byKey[classKey{c.Kind, c.Key}] = c
	}

	events := log.Scope{Logger: r.events, SessionID: r.sess, Rank: m.Rank, Parts: m.Parts}
	var broken *multierror.Error

	for id := range m.NodeCount() {
		nid := mesh.NodeID(id)
		n := m.Node(nid)
		if len(n.Peers) == 0 {
			continue
		}
		key := n.Key()
		c := byKey[classKey{KindNode, key}]
		broken = missing(broken, KindNode, key, n.Peers, m.Rank, c)
		if c == nil || len(c.Replicas) < 2 {
			continue
		}
		owner := c.Owner()
		old := n.GID
		if err := m.SetNodeGID(nid, owner.GID); err != nil {
			return Report{}, fmt.Errorf("reconcile: %w", err)
		}
		n = m.Node(nid)
		if commit(&n.Priority, &n.Links, c, m.Rank, owner) || old != owner.GID {
			rep.Changed++
		}
		events.Identity(identity(KindNode, key, old, owner, n.Priority))
	}

	for id := range m.ElemCount() {
		eid := mesh.ElemID(id)
		e := m.Elem(eid)
		if len(e.Peers) == 0 {
			continue
		}
		key := e.GID
		c := byKey[classKey{KindElement, key}]
		broken = missing(broken, KindElement, key, e.Peers, m.Rank, c)
		if c == nil || len(c.Replicas) < 2 {
			continue
		}
		owner := c.Owner()
		old := e.GID
		if err := m.SetElemGID(eid, owner.GID); err != nil {
			return Report{}, fmt.Errorf("reconcile: %w", err)
		}
		e = m.Elem(eid)
		if commit(&e.Priority, &e.Links, c, m.Rank, owner) || old != owner.GID {
			rep.Changed++
		}
		events.Identity(identity(KindElement, key, old, owner, e.Priority))
	}

	rep.Broken = broken.ErrorOrNil()
	if rep.Broken != nil {
		events.Error(log.LayerReconcile, rep.Broken, "", "reconcile")
		r.debugLog("identify incomplete", "rank", m.Rank, "broken", len(broken.Errors))
	}
	r.debugLog("identify committed", "rank", m.Rank, "changed", rep.Changed)
	return rep, nil
}

func (r *Reconciler) register(local Replica, peers []int, self int) error {
	for _, p := range peers {
		if p == self {
			continue
		}
		if err := r.id.RegisterPair(local, p); err != nil {
			return fmt.Errorf("reconcile: register: %w", err)
		}
	}
	return nil
}

// missing appends an ErrBrokenIdentity for every peer absent from c.
func missing(errs *multierror.Error, kind Kind, key int64, peers []int, self int, c *Class) *multierror.Error {
	for _, p := range peers {
		if p == self || (c != nil && c.Has(p)) {
			continue
		}
		errs = multierror.Append(errs, fmt.Errorf("%w: %s %d on rank %d", ErrBrokenIdentity, kind, key, p))
	}
	return errs
}

// commit sets the priority and links of the local replica and reports
// whether either changed.
func commit(prio *mesh.Priority, links *[]mesh.Link, c *Class, self int, owner Replica) bool {
	want := mesh.PrioCopy
	if owner.Rank == self {
		want = mesh.PrioMaster
	}
	next := make([]mesh.Link, 0, len(c.Replicas)-1)
	for _, rep := range c.Replicas {
		if rep.Rank != self {
			next = append(next, mesh.Link{Rank: rep.Rank, GID: owner.GID})
		}
	}
	changed := *prio != want || !slices.Equal(*links, next)
	*prio = want
	*links = next
	return changed
}

func identity(kind Kind, key, old int64, owner Replica, prio mesh.Priority) log.IdentityEvent {
	return log.IdentityEvent{
		Kind:     kind.String(),
		Key:      key,
		OldGID:   old,
		NewGID:   owner.GID,
		Owner:    owner.Rank,
		Priority: prio.String(),
	}
}
