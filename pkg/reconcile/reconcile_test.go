package reconcile_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mgio/mgio-go/pkg/log"
	"github.com/mgio/mgio-go/pkg/mesh"
	"github.com/mgio/mgio-go/pkg/reconcile"
	"github.com/mgio/mgio-go/pkg/reconcile/mocks"
	"github.com/mgio/mgio-go/pkg/shape"
)

// half builds one quadrilateral of a two cell row. Rank 0 holds x in [0, 1],
// rank 1 holds x in [1, 2]; the two nodes on x = 1 are shared.
func half(t *testing.T, rank int, base int64, shared bool) *mesh.Mesh {
	t.Helper()
	m := mesh.New()
	m.Rank, m.Parts = rank, 2

	x := float64(rank)
	pos := [][3]float64{{x, 0, 0}, {x + 1, 0, 0}, {x + 1, 1, 0}, {x, 1, 0}}
	ids := make([]mesh.NodeID, 0, len(pos))
	for i, p := range pos {
		n := mesh.NewNode(shape.Corner, p)
		n.GID = base + int64(i)
		if p[0] == 1 {
			n.Ident = 10 + int64(p[1])
			if shared {
				n.Peers = []int{1 - rank}
			}
		}
		id, err := m.AddNode(n)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	e := mesh.NewElement(shape.Quadrilateral, ids...)
	e.GID = int64(rank)
	_, err := m.AddElement(e)
	require.NoError(t, err)
	return m
}

// sharedNodes returns the nodes on x = 1 ordered by y.
func sharedNodes(m *mesh.Mesh) []*mesh.Node {
	var out []*mesh.Node
	for id := range m.NodeCount() {
		if n := m.Node(mesh.NodeID(id)); n.Pos[0] == 1 {
			out = append(out, n)
		}
	}
	if len(out) == 2 && out[0].Pos[1] > out[1].Pos[1] {
		out[0], out[1] = out[1], out[0]
	}
	return out
}

func reconcileAll(t *testing.T, parts []*mesh.Mesh, opts reconcile.Options) []reconcile.Report {
	t.Helper()
	x := reconcile.NewExchange(len(parts))
	reports := make([]reconcile.Report, len(parts))
	g, ctx := errgroup.WithContext(context.Background())
	for rank, m := range parts {
		g.Go(func() error {
			rep, err := reconcile.New(x.Endpoint(rank), opts).Reconcile(ctx, m)
			reports[rank] = rep
			return err
		})
	}
	require.NoError(t, g.Wait())
	return reports
}

func TestReconcileSharesBoundaryNodes(t *testing.T) {
	left := half(t, 0, 100, true)
	right := half(t, 1, 200, true)

	before := sharedNodes(right)
	assert.Equal(t, int64(200), before[0].GID)

	reports := reconcileAll(t, []*mesh.Mesh{left, right}, reconcile.Options{})

	for rank, rep := range reports {
		assert.NoError(t, rep.Broken, "rank %d", rank)
		assert.Equal(t, 2, rep.Nodes)
		assert.Equal(t, 2, rep.Changed)
	}

	l, r := sharedNodes(left), sharedNodes(right)
	for i := range l {
		assert.Equal(t, l[i].GID, r[i].GID)
		assert.Equal(t, mesh.PrioMaster, l[i].Priority)
		assert.Equal(t, mesh.PrioCopy, r[i].Priority)
		assert.Equal(t, []mesh.Link{{Rank: 1, GID: l[i].GID}}, l[i].Links)
		assert.Equal(t, []mesh.Link{{Rank: 0, GID: l[i].GID}}, r[i].Links)
	}
	assert.Equal(t, int64(101), r[0].GID)
	assert.Equal(t, int64(102), r[1].GID)

	id, ok := right.NodeByGID(101)
	require.True(t, ok)
	assert.Equal(t, 1.0, right.Node(id).Pos[0])
	_, ok = right.NodeByGID(200)
	assert.False(t, ok)

	// Interior nodes keep their local GIDs.
	_, ok = right.NodeByGID(201)
	assert.True(t, ok)
}

func TestReconcileIdempotent(t *testing.T) {
	parts := []*mesh.Mesh{half(t, 0, 100, true), half(t, 1, 200, true)}
	reconcileAll(t, parts, reconcile.Options{})

	reports := reconcileAll(t, parts, reconcile.Options{})
	for _, rep := range reports {
		assert.Zero(t, rep.Changed)
		assert.NoError(t, rep.Broken)
	}
	assert.Equal(t, int64(101), sharedNodes(parts[1])[0].GID)
}

func TestReconcileExplicitPriority(t *testing.T) {
	left := half(t, 0, 100, true)
	right := half(t, 1, 200, true)
	for _, n := range sharedNodes(left) {
		n.Priority = mesh.PrioCopy
	}

	reconcileAll(t, []*mesh.Mesh{left, right}, reconcile.Options{})

	l, r := sharedNodes(left), sharedNodes(right)
	assert.Equal(t, int64(200), l[0].GID)
	assert.Equal(t, int64(200), r[0].GID)
	assert.Equal(t, mesh.PrioCopy, l[0].Priority)
	assert.Equal(t, mesh.PrioMaster, r[0].Priority)
}

func TestReconcileSharedElement(t *testing.T) {
	left := half(t, 0, 100, false)
	right := half(t, 1, 200, false)
	// Both ranks hold a copy of element 0.
	copyID, err := right.AddElement(mesh.NewElement(shape.Quadrilateral, 0, 1, 2, 3))
	require.NoError(t, err)
	require.NoError(t, right.SetElemGID(copyID, 0))
	right.Elem(copyID).Peers = []int{0}
	left.Elem(0).Peers = []int{1}

	reports := reconcileAll(t, []*mesh.Mesh{left, right}, reconcile.Options{})
	assert.Equal(t, 1, reports[0].Elements)
	assert.Equal(t, 1, reports[1].Elements)
	assert.Equal(t, mesh.PrioMaster, left.Elem(0).Priority)
	assert.Equal(t, mesh.PrioCopy, right.Elem(copyID).Priority)
	assert.Equal(t, []mesh.Link{{Rank: 0, GID: 0}}, right.Elem(copyID).Links)
}

func TestReconcileBrokenIdentity(t *testing.T) {
	left := half(t, 0, 100, true)
	right := half(t, 1, 200, false)

	reports := reconcileAll(t, []*mesh.Mesh{left, right}, reconcile.Options{})

	broken := reports[0].Broken
	require.Error(t, broken)
	assert.ErrorIs(t, broken, reconcile.ErrBrokenIdentity)
	var merr *multierror.Error
	require.True(t, errors.As(broken, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.NoError(t, reports[1].Broken)

	// The local replicas stay as they were.
	for _, n := range sharedNodes(left) {
		assert.Empty(t, n.Links)
		assert.Equal(t, mesh.PrioMaster, n.Priority)
	}
	assert.Equal(t, int64(101), sharedNodes(left)[0].GID)
	assert.Equal(t, int64(200), sharedNodes(right)[0].GID)
}

func TestReconcileEvents(t *testing.T) {
	var events capturingLogger
	parts := []*mesh.Mesh{half(t, 0, 100, true), half(t, 1, 200, true)}
	reconcileAll(t, parts, reconcile.Options{Events: &events, Session: "s"})

	var owners []int
	for _, ev := range events.all() {
		require.NotNil(t, ev.Identity)
		assert.Equal(t, log.LayerReconcile, ev.Layer)
		assert.Equal(t, "s", ev.SessionID)
		assert.Equal(t, "NODE", ev.Identity.Kind)
		owners = append(owners, ev.Identity.Owner)
	}
	assert.Equal(t, []int{0, 0, 0, 0}, owners)
}

func TestReconcileRegistersReplicas(t *testing.T) {
	m := half(t, 0, 100, true)
	id := mocks.NewMockIdentifier(t)

	var got []reconcile.Replica
	id.EXPECT().BeginIdentify().Return(nil).Once()
	id.EXPECT().RegisterPair(mock.Anything, 1).Run(func(local reconcile.Replica, _ int) {
		got = append(got, local)
	}).Return(nil).Times(2)
	id.EXPECT().EndIdentify(mock.Anything).Return([]reconcile.Class{
		{Kind: reconcile.KindNode, Key: 10, Replicas: []reconcile.Replica{
			{Kind: reconcile.KindNode, Key: 10, GID: 101, Rank: 0},
			{Kind: reconcile.KindNode, Key: 10, GID: 7, Rank: 1},
		}},
		{Kind: reconcile.KindNode, Key: 11, Replicas: []reconcile.Replica{
			{Kind: reconcile.KindNode, Key: 11, GID: 102, Rank: 0},
			{Kind: reconcile.KindNode, Key: 11, GID: 8, Rank: 1},
		}},
	}, nil).Once()

	rep, err := reconcile.New(id, reconcile.Options{}).Reconcile(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Changed)
	assert.ElementsMatch(t, []reconcile.Replica{
		{Kind: reconcile.KindNode, Key: 10, GID: 101, Rank: 0},
		{Kind: reconcile.KindNode, Key: 11, GID: 102, Rank: 0},
	}, got)
}

func TestReconcileCommitCancelled(t *testing.T) {
	m := half(t, 1, 200, true)
	id := mocks.NewMockIdentifier(t)
	id.EXPECT().BeginIdentify().Return(nil).Once()
	id.EXPECT().RegisterPair(mock.Anything, 0).Return(nil).Times(2)
	id.EXPECT().EndIdentify(mock.Anything).Return(nil, context.Canceled).Once()

	_, err := reconcile.New(id, reconcile.Options{}).Reconcile(context.Background(), m)
	assert.ErrorIs(t, err, context.Canceled)

	// Nothing was touched.
	for _, n := range sharedNodes(m) {
		assert.Empty(t, n.Links)
	}
	assert.Equal(t, int64(200), sharedNodes(m)[0].GID)
}

func TestReconcileBeginFails(t *testing.T) {
	id := mocks.NewMockIdentifier(t)
	id.EXPECT().BeginIdentify().Return(reconcile.ErrAlreadyOpen).Once()

	_, err := reconcile.New(id, reconcile.Options{}).Reconcile(context.Background(), half(t, 0, 0, true))
	assert.ErrorIs(t, err, reconcile.ErrAlreadyOpen)
}

func TestReconcileNoMesh(t *testing.T) {
	r := reconcile.New(reconcile.NewExchange(1).Endpoint(0), reconcile.Options{})
	_, err := r.Reconcile(context.Background(), nil)
	assert.ErrorIs(t, err, reconcile.ErrNoMesh)

	m := mesh.New()
	m.Dispose()
	_, err = r.Reconcile(context.Background(), m)
	assert.ErrorIs(t, err, reconcile.ErrNoMesh)
}

func TestClassOwner(t *testing.T) {
	rep := func(rank int, prio mesh.Priority) reconcile.Replica {
		return reconcile.Replica{Rank: rank, Priority: prio, GID: int64(100 * rank)}
	}
	tests := []struct {
		name     string
		replicas []reconcile.Replica
		owner    int
	}{
		{"lowest master", []reconcile.Replica{rep(0, mesh.PrioMaster), rep(1, mesh.PrioMaster)}, 0},
		{"claim wins", []reconcile.Replica{rep(0, mesh.PrioCopy), rep(2, mesh.PrioMaster), rep(1, mesh.PrioCopy)}, 2},
		{"no claim", []reconcile.Replica{rep(3, mesh.PrioCopy), rep(1, mesh.PrioCopy)}, 1},
		{"lowest of claims", []reconcile.Replica{rep(3, mesh.PrioMaster), rep(0, mesh.PrioCopy), rep(2, mesh.PrioMaster)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := reconcile.Class{Replicas: tt.replicas}
			assert.Equal(t, tt.owner, c.Owner().Rank)
		})
	}
}

type capturingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *capturingLogger) Log(ev log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *capturingLogger) all() []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]log.Event(nil), c.events...)
}

func TestExchangeWaitsForEveryPartition(t *testing.T) {
	x := reconcile.NewExchange(2)
	a, b := x.Endpoint(0), x.Endpoint(1)

	require.NoError(t, a.BeginIdentify())
	require.NoError(t, a.RegisterPair(reconcile.Replica{Kind: reconcile.KindNode, Key: 5, GID: 50}, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := a.EndIdentify(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The withdrawn registration can be retried once the peer shows up.
	require.NoError(t, b.BeginIdentify())
	require.NoError(t, b.RegisterPair(reconcile.Replica{Kind: reconcile.KindNode, Key: 5, GID: 90}, 0))

	var ca, cb []reconcile.Class
	var g errgroup.Group
	g.Go(func() (err error) {
		ca, err = a.EndIdentify(context.Background())
		return err
	})
	g.Go(func() (err error) {
		cb, err = b.EndIdentify(context.Background())
		return err
	})
	require.NoError(t, g.Wait())

	require.Len(t, ca, 1)
	assert.Equal(t, ca, cb)
	assert.Equal(t, []reconcile.Replica{
		{Kind: reconcile.KindNode, Key: 5, GID: 50, Rank: 0},
		{Kind: reconcile.KindNode, Key: 5, GID: 90, Rank: 1},
	}, ca[0].Replicas)
}

func TestExchangeClassesAreLocal(t *testing.T) {
	x := reconcile.NewExchange(3)
	regs := map[int][]int64{0: {1, 2}, 1: {2}, 2: {3}}

	classes := make([][]reconcile.Class, 3)
	var g errgroup.Group
	for rank := range 3 {
		g.Go(func() (err error) {
			p := x.Endpoint(rank)
			if err := p.BeginIdentify(); err != nil {
				return err
			}
			for _, key := range regs[rank] {
				if err := p.RegisterPair(reconcile.Replica{Kind: reconcile.KindElement, Key: key, GID: key}, (rank+1)%3); err != nil {
					return err
				}
			}
			classes[rank], err = p.EndIdentify(context.Background())
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, classes[0], 2)
	assert.Len(t, classes[0][1].Replicas, 2)
	assert.Len(t, classes[2], 1)
	assert.False(t, classes[2][0].Has(0))
	assert.True(t, classes[2][0].Has(2))
}

func TestEndpointPhases(t *testing.T) {
	p := reconcile.NewExchange(2).Endpoint(1)
	assert.Equal(t, 1, p.Rank())

	assert.ErrorIs(t, p.RegisterPair(reconcile.Replica{}, 0), reconcile.ErrNotOpen)
	_, err := p.EndIdentify(context.Background())
	assert.ErrorIs(t, err, reconcile.ErrNotOpen)

	require.NoError(t, p.BeginIdentify())
	assert.ErrorIs(t, p.BeginIdentify(), reconcile.ErrAlreadyOpen)
	assert.Error(t, p.RegisterPair(reconcile.Replica{}, 2))
	assert.Error(t, p.RegisterPair(reconcile.Replica{}, -1))

	assert.Panics(t, func() { reconcile.NewExchange(2).Endpoint(2) })
}
