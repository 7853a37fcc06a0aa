package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mgio/mgio-go/pkg/boundary"
	"github.com/mgio/mgio-go/pkg/codec"
	"github.com/mgio/mgio-go/pkg/config"
	"github.com/mgio/mgio-go/pkg/distributed"
	"github.com/mgio/mgio-go/pkg/log"
	"github.com/mgio/mgio-go/pkg/mesh"
	"github.com/mgio/mgio-go/pkg/persistence"
	"github.com/mgio/mgio-go/pkg/wire"
)

// Env carries what every mesh command needs.
type Env struct {
	// Config holds the codec, partition and log settings.
	Config *config.Config

	// Logger receives debug output. Nil disables it.
	Logger *slog.Logger

	// Out receives the command's report.
	Out io.Writer
}

func (e *Env) debugLog(msg string, args ...any) {
	if e.Logger != nil {
		e.Logger.Debug(msg, args...)
	}
}

// events opens the configured event capture. Identity and error events are
// also written to Logger when it is enabled for debug output. The returned
// logger is nil when neither applies; close must be called either way.
func (e *Env) events() (log.Logger, func() error, error) {
	multi := log.NewMultiLogger()
	closeFn := func() error { return nil }

	if path := e.Config.Log.Events; path != "" {
		fl, err := log.NewFileLogger(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open event log: %w", err)
		}
		multi.Route(fl, log.Filter{})
		closeFn = func() error {
			e.debugLog("event log closed", "path", path, "events", fl.Count())
			return fl.Close()
		}
	}
	if e.Logger != nil && e.Logger.Enabled(context.Background(), slog.LevelDebug) {
		multi.Route(log.NewSlogAdapter(e.Logger), log.Filter{
			Categories: []log.Category{log.CategoryIdentity, log.CategoryError},
		})
	}

	if multi.Len() == 0 {
		return nil, closeFn, nil
	}
	return multi, closeFn, nil
}

// partition splits m as the partition settings say. A single part is m
// itself.
func (e *Env) partition(m *mesh.Mesh) ([]*mesh.Mesh, error) {
	p := e.Config.Partition
	if p.Parts == 1 && m.Parts == 1 {
		return []*mesh.Mesh{m}, nil
	}
	axis, err := config.ParseAxis(p.Axis)
	if err != nil {
		return nil, err
	}
	parts, err := distributed.Split(m, p.Parts, p.Level, distributed.ByAxis(m, p.Parts, axis))
	if err != nil {
		return nil, err
	}
	e.debugLog("mesh split", "parts", p.Parts, "level", p.Level, "axis", p.Axis)
	return parts, nil
}

// save writes parts into the directory at path, replacing what it held.
func (e *Env) save(ctx context.Context, parts []*mesh.Mesh, path string) (*persistence.Manifest, error) {
	events, closeEvents, err := e.events()
	if err != nil {
		return nil, err
	}
	defer closeEvents()

	d := persistence.NewDir(path)
	if err := d.Clear(); err != nil {
		return nil, fmt.Errorf("failed to clear %s: %w", path, err)
	}

	enc := e.Config.EncodeOptions()
	enc.Boundary = boundary.PatchSerializer{}
	enc.Logger = e.Logger
	enc.Events = events

	session, err := distributed.Save(ctx, parts, d.Create, distributed.SaveOptions{Encode: enc})
	if err != nil {
		return nil, err
	}
	return d.Commit(session, len(parts))
}

// load reads every partition of the directory at path. Streams written with
// the lowest-gid policy are decoded deferred even when strict is configured.
func (e *Env) load(ctx context.Context, path string, skipReconcile bool) (*distributed.Result, error) {
	events, closeEvents, err := e.events()
	if err != nil {
		return nil, err
	}
	defer closeEvents()

	d := persistence.NewDir(path)
	man, err := d.Manifest()
	if err != nil {
		return nil, err
	}

	dec := e.Config.DecodeOptions()
	dec.Boundary = boundary.PatchSerializer{}
	dec.Logger = e.Logger
	dec.Events = events

	hdr, err := readHeader(d, 0)
	if err != nil {
		return nil, err
	}
	if codec.Canonical(hdr.Canonical) == codec.CanonicalLowestGID && dec.Resolution == codec.ResolveStrict {
		e.debugLog("stream written lowest-gid, decoding deferred", "path", path)
		dec.Resolution = codec.ResolveDeferred
	}

	res, err := distributed.Load(ctx, man.Parts, d.Open, distributed.LoadOptions{
		Decode:        dec,
		SkipReconcile: skipReconcile,
		Logger:        e.Logger,
		Events:        events,
	})
	if err != nil {
		return nil, err
	}
	if man.Session != res.Session.String() {
		res.Dispose()
		return nil, fmt.Errorf("%w: manifest session %s, streams %s", codec.ErrCorruptData, man.Session, res.Session)
	}
	return res, nil
}

func readHeader(d *persistence.Dir, rank int) (*wire.Header, error) {
	r, err := d.Open(rank)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return codec.ReadHeader(r)
}

func sessionString(b []byte) string {
	s, err := uuid.FromBytes(b)
	if err != nil {
		return fmt.Sprintf("%x", b)
	}
	return s.String()
}
