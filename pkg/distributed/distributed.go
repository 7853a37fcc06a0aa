package distributed

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mgio/mgio-go/pkg/codec"
	"github.com/mgio/mgio-go/pkg/log"
	"github.com/mgio/mgio-go/pkg/mesh"
	"github.com/mgio/mgio-go/pkg/reconcile"
)

// Sink opens the stream a partition is written to.
type Sink func(rank int) (io.WriteCloser, error)

// Source opens the stream a partition is read from. Load opens every
// stream twice: once for its header and once to decode it.
type Source func(rank int) (io.ReadCloser, error)

// SaveOptions configures Save.
type SaveOptions struct {
	// Encode is applied to every partition. Its Session is shared by all
	// partitions; a random one is used when zero.
	Encode codec.EncodeOptions
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Decode is applied to every partition. NodeGIDOffset is the base of
	// the per-partition ranges and may be zero.
	Decode codec.DecodeOptions

	// SkipReconcile returns the partitions as decoded.
	SkipReconcile bool

	// Logger receives debug output. Nil disables it.
	Logger *slog.Logger

	// Events receives identity events.
	Events log.Logger
}

// Result holds the partitions of a loaded mesh.
type Result struct {
	Session uuid.UUID
	Parts   []*mesh.Mesh
	Reports []reconcile.Report
}

// Broken returns the first partition whose reconciliation left a peer
// unresolved, and its error, or -1 and nil.
func (r *Result) Broken() (int, error) {
	for rank, rep := range r.Reports {
		if rep.Broken != nil {
			return rank, rep.Broken
		}
	}
	return -1, nil
}

// Dispose releases every partition.
func (r *Result) Dispose() {
	for _, m := range r.Parts {
		if m != nil {
			m.Dispose()
		}
	}
}

// Save writes every partition to the stream sink opens for its rank, one
// goroutine per partition. The first failure cancels the others.
func Save(ctx context.Context, parts []*mesh.Mesh, sink Sink, opts SaveOptions) (uuid.UUID, error) {
	enc := opts.Encode
	if enc.Session == uuid.Nil {
		enc.Session = uuid.New()
	}
	if len(parts) > 1 {
		enc.ExternalNeighbors = true
	}

	g, ctx := errgroup.WithContext(ctx)
	for rank, m := range parts {
		g.Go(func() error {
			if m == nil || m.Rank != rank || m.Parts != len(parts) {
				return fmt.Errorf("distributed: partition %d does not belong at rank %d of %d", rank, rank, len(parts))
			}
			w, err := sink(rank)
			if err != nil {
				return fmt.Errorf("distributed: open rank %d: %w", rank, err)
			}
			err = codec.Encode(ctx, m, w, enc)
			if cerr := w.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("distributed: close rank %d: %w: %w", rank, codec.ErrIO, cerr)
			}
			return err
		})
	}
	return enc.Session, g.Wait()
}

// Load decodes parts partitions from source, one goroutine per partition,
// and reconciles their replicas. Any decode failure cancels the other
// workers, disposes every partition and is returned. Nodes added to a loaded
// partition later get GIDs above the ranges of all partitions.
func Load(ctx context.Context, parts int, source Source, opts LoadOptions) (*Result, error) {
	if parts < 1 {
		return nil, fmt.Errorf("distributed: %d partitions", parts)
	}
	offsets, end, session, err := offsets(parts, source, opts.Decode.NodeGIDOffset)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Session: session,
		Parts:   make([]*mesh.Mesh, parts),
		Reports: make([]reconcile.Report, parts),
	}
	x := reconcile.NewExchange(parts)

	g, ctx := errgroup.WithContext(ctx)
	for rank := range parts {
		g.Go(func() error {
			m, err := decode(ctx, rank, source, offsets[rank], opts.Decode)
			if err != nil {
				return err
			}
			res.Parts[rank] = m
			if opts.SkipReconcile {
				return nil
			}
			r := reconcile.New(x.Endpoint(rank), reconcile.Options{
				Logger:  opts.Logger,
				Events:  opts.Events,
				Session: session.String(),
			})
			res.Reports[rank], err = r.Reconcile(ctx, m)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		res.Dispose()
		return nil, err
	}
	for _, m := range res.Parts {
		m.ReserveNodeGIDs(end)
	}
	if opts.Logger != nil {
		opts.Logger.Debug("partitions loaded", "parts", parts, "offsets", offsets)
	}
	return res, nil
}

func decode(ctx context.Context, rank int, source Source, offset int64, opts codec.DecodeOptions) (*mesh.Mesh, error) {
	r, err := source(rank)
	if err != nil {
		return nil, fmt.Errorf("distributed: open rank %d: %w", rank, err)
	}
	defer r.Close()
	opts.NodeGIDOffset = offset
	return codec.Decode(ctx, r, opts)
}

// offsets reads every header and returns the first coarse node GID of each
// partition, the end of the last range, and the session the partitions were
// saved in. The ranges follow each other above every node identity used by
// any partition.
func offsets(parts int, source Source, base int64) ([]int64, int64, uuid.UUID, error) {
	var session uuid.UUID
	limit := base
	points := make([]int64, parts)
	for rank := range parts {
		r, err := source(rank)
		if err != nil {
			return nil, 0, uuid.Nil, fmt.Errorf("distributed: open rank %d: %w", rank, err)
		}
		hdr, err := codec.ReadHeader(r)
		r.Close()
		if err != nil {
			return nil, 0, uuid.Nil, err
		}
		if int(hdr.Rank) != rank || int(hdr.Parts) != parts {
			return nil, 0, uuid.Nil, fmt.Errorf("distributed: %w: stream %d holds rank %d of %d",
				codec.ErrCorruptData, rank, hdr.Rank, hdr.Parts)
		}
		s, _ := uuid.FromBytes(hdr.Session)
		if rank == 0 {
			session = s
		} else if s != session {
			return nil, 0, uuid.Nil, fmt.Errorf("distributed: %w: stream %d belongs to session %s, not %s",
				codec.ErrCorruptData, rank, s, session)
		}
		limit = max(limit, hdr.IdentLimit)
		points[rank] = int64(hdr.Points)
	}
	out := make([]int64, parts)
	next := limit
	for rank := range parts {
		out[rank] = next
		next += points[rank]
	}
	return out, next, session, nil
}
