// Package commands implements the mgio CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mgio/mgio-go/pkg/log"
)

// eventType returns the label of the payload an event carries.
func eventType(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Section != nil:
		return "Section"
	case event.Record != nil:
		return "Record"
	case event.Identity != nil:
		return "Identity"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] rank/parts DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [session:%s] %d/%d %-3s %s %s\n",
		ts, shortenSessionID(event.SessionID), event.Rank, max(event.Parts, 1),
		event.Direction, event.Layer, eventType(event))

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Section != nil:
		formatSectionDetails(w, event.Section)
	case event.Record != nil:
		formatRecordDetails(w, event.Record)
	case event.Identity != nil:
		formatIdentityDetails(w, event.Identity)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes at offset %d\n", frame.Size, frame.Offset)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatSectionDetails(w io.Writer, s *log.SectionEvent) {
	fmt.Fprintf(w, "  Section: %s\n", s.Name)
	fmt.Fprintf(w, "  Records: %d\n", s.Records)
	if s.Elapsed > 0 {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(s.Elapsed))
	}
}

func formatRecordDetails(w io.Writer, r *log.RecordEvent) {
	fmt.Fprintf(w, "  Element: %d  Level: %d  Rule: %d\n", r.Element, r.Level, r.Rule)
	if r.Created > 0 || r.Resolved > 0 {
		fmt.Fprintf(w, "  Nodes: %d created, %d resolved\n", r.Created, r.Resolved)
	}
	if r.Deferred {
		fmt.Fprintln(w, "  Deferred")
	}
}

func formatIdentityDetails(w io.Writer, id *log.IdentityEvent) {
	fmt.Fprintf(w, "  %s %d: GID %d -> %d\n", id.Kind, id.Key, id.OldGID, id.NewGID)
	fmt.Fprintf(w, "  Owner: rank %d  Priority: %s\n", id.Owner, id.Priority)
}

func formatErrorDetails(w io.Writer, err *log.ErrorData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Section != "" {
		fmt.Fprintf(w, "  Section: %s\n", err.Section)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

var (
	layerNames = map[string]log.Layer{
		"frame":     log.LayerFrame,
		"record":    log.LayerRecord,
		"reconcile": log.LayerReconcile,
	}
	directionNames = map[string]log.Direction{
		"in":  log.DirectionIn,
		"out": log.DirectionOut,
	}
	categoryNames = map[string]log.Category{
		"data":     log.CategoryData,
		"section":  log.CategorySection,
		"identity": log.CategoryIdentity,
		"error":    log.CategoryError,
	}
)

// lookupName resolves a case-insensitive flag value against names.
func lookupName[T any](what string, names map[string]T, s string) (T, error) {
	if v, ok := names[strings.ToLower(s)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s: %s (must be one of %s)", what, s, strings.Join(slices.Sorted(maps.Keys(names)), ", "))
}

func parseLayer(s string) (log.Layer, error) { return lookupName("layer", layerNames, s) }

func parseDirection(s string) (log.Direction, error) {
	return lookupName("direction", directionNames, s)
}

func parseCategory(s string) (log.Category, error) {
	return lookupName("category", categoryNames, s)
}

// parseRank parses a partition rank flag.
func parseRank(s string) (int, error) {
	rank, err := strconv.Atoi(s)
	if err != nil || rank < 0 {
		return 0, fmt.Errorf("invalid rank: %s (must be a non-negative integer)", s)
	}
	return rank, nil
}

// RunView prints the events of the capture at path that match opts.
// opts.Output is ignored.
func RunView(path string, opts FilterOptions, output io.Writer) error {
	filter, err := opts.toFilter()
	if err != nil {
		return err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}
