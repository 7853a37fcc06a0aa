package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mgio/mgio-go/pkg/log"
)

// exportFormats lists the supported export formats.
var exportFormats = map[string]func(io.Writer) rowWriter{
	"jsonl": newJSONLWriter,
	"csv":   newCSVWriter,
}

type rowWriter interface {
	write(event log.Event) error
	flush() error
}

// RunExport writes every event of the capture at path in format to output,
// or to stdout when output is empty.
func RunExport(path, format, output string) error {
	newWriter, ok := exportFormats[format]
	if !ok {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	rw := newWriter(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := rw.write(event); err != nil {
			return fmt.Errorf("failed to export event %d: %w", reader.Decoded(), err)
		}
	}
	return rw.flush()
}

type jsonlWriter struct{ enc *json.Encoder }

func newJSONLWriter(w io.Writer) rowWriter {
	return jsonlWriter{enc: json.NewEncoder(w)}
}

func (j jsonlWriter) write(event log.Event) error { return j.enc.Encode(event) }
func (j jsonlWriter) flush() error               { return nil }

var csvColumns = []string{"timestamp", "session_id", "rank", "parts", "direction", "layer", "category", "type", "subject"}

type csvWriter struct {
	w      *csv.Writer
	header bool
}

func newCSVWriter(w io.Writer) rowWriter {
	return &csvWriter{w: csv.NewWriter(w)}
}

func (c *csvWriter) write(event log.Event) error {
	if !c.header {
		if err := c.w.Write(csvColumns); err != nil {
			return err
		}
		c.header = true
	}
	return c.w.Write([]string{
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		event.SessionID,
		strconv.Itoa(event.Rank),
		strconv.Itoa(event.Parts),
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		eventType(event),
		subject(event),
	})
}

// flush writes the header for an empty capture too.
func (c *csvWriter) flush() error {
	if !c.header {
		if err := c.w.Write(csvColumns); err != nil {
			return err
		}
	}
	c.w.Flush()
	return c.w.Error()
}

// subject names what an event is about: a section, an element or a
// reconciled object.
func subject(event log.Event) string {
	switch {
	case event.Section != nil:
		return event.Section.Name
	case event.Record != nil:
		return strconv.FormatInt(event.Record.Element, 10)
	case event.Identity != nil:
		return fmt.Sprintf("%s:%d", event.Identity.Kind, event.Identity.Key)
	case event.Error != nil:
		return event.Error.Section
	default:
		return ""
	}
}
