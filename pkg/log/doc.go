// Package log captures structured events from mesh streams.
//
// It is separate from operational logging (slog). Where slog messages are
// meant for operators, the events recorded here form a machine-readable trace
// of what an encode, decode or reconcile did: which frames were moved, which
// sections and records were processed, which identities were rewritten and
// which errors occurred.
//
// # Basic Usage
//
// Codec and reconciler options accept a Logger:
//
//	// During development: print events through slog
//	opts.Events = log.NewSlogAdapter(slog.Default())
//
//	// For later analysis: append to a binary file
//	opts.Events, _ = log.NewFileLogger("/var/tmp/run.mlog")
//
//	// Everything to the file, identity and error events to slog
//	errs := log.Filter{Categories: []log.Category{log.CategoryIdentity, log.CategoryError}}
//	opts.Events = log.NewMultiLogger(fileLogger).
//	    Route(log.NewSlogAdapter(slog.Default()), errs)
//
// # Event Types
//
// Events are captured at three layers:
//   - Frame: raw length-prefixed frames (FrameEvent)
//   - Record: sections and refinement records (SectionEvent, RecordEvent)
//   - Reconcile: identity decisions (IdentityEvent)
//
// Errors at any layer have a dedicated payload.
//
// # File Format
//
// Log files are a sequence of CBOR-encoded events with the .mlog extension.
// Each event carries the EventTag CBOR tag; untagged events still decode.
// A capture cut short by a crash reads up to the damaged event, which is
// reported as ErrTruncated. The "mgio log" command prints and filters them.
package log
