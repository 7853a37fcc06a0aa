package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Parts > 1 {
		attrs = append(attrs, slog.Int("rank", event.Rank), slog.Int("parts", event.Parts))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Int64("offset", event.Frame.Offset),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Section != nil:
		attrs = append(attrs,
			slog.String("section", event.Section.Name),
			slog.Int("records", event.Section.Records),
		)
		if event.Section.Elapsed > 0 {
			attrs = append(attrs, slog.Duration("elapsed", event.Section.Elapsed))
		}
	case event.Record != nil:
		attrs = append(attrs,
			slog.Int64("element", event.Record.Element),
			slog.Int("level", event.Record.Level),
			slog.Int("rule", event.Record.Rule),
		)
		if event.Record.Created > 0 || event.Record.Resolved > 0 {
			attrs = append(attrs,
				slog.Int("created", event.Record.Created),
				slog.Int("resolved", event.Record.Resolved),
			)
		}
		if event.Record.Deferred {
			attrs = append(attrs, slog.Bool("deferred", true))
		}
	case event.Identity != nil:
		attrs = append(attrs,
			slog.String("kind", event.Identity.Kind),
			slog.Int64("key", event.Identity.Key),
			slog.Int64("old_gid", event.Identity.OldGID),
			slog.Int64("new_gid", event.Identity.NewGID),
			slog.Int("owner", event.Identity.Owner),
			slog.String("priority", event.Identity.Priority),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Section != "" {
			attrs = append(attrs, slog.String("error_section", event.Error.Section))
		}
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "mesh stream", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
