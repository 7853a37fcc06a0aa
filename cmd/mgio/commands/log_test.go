package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/mgio/mgio-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer reader.Close()

	var events []log.Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, event)
	}
}

var ts = time.Date(2026, 3, 9, 14, 2, 11, 250000000, time.UTC)

func sampleEvents() []log.Event {
	return []log.Event{
		{
			Timestamp: ts,
			SessionID: "5f0c1d2e-aaaa-bbbb-cccc-000000000001",
			Rank:      0,
			Parts:     2,
			Direction: log.DirectionOut,
			Layer:     log.LayerFrame,
			Category:  log.CategoryData,
			Frame:     &log.FrameEvent{Size: 96, Offset: 4, Data: []byte{0xa1, 0x01}, Truncated: true},
		},
		{
			Timestamp: ts.Add(time.Millisecond),
			SessionID: "5f0c1d2e-aaaa-bbbb-cccc-000000000001",
			Rank:      1,
			Parts:     2,
			Direction: log.DirectionIn,
			Layer:     log.LayerRecord,
			Category:  log.CategorySection,
			Section:   &log.SectionEvent{Name: "trees", Records: 4, Elapsed: 1500 * time.Microsecond},
		},
		{
			Timestamp: ts.Add(2 * time.Millisecond),
			SessionID: "5f0c1d2e-aaaa-bbbb-cccc-000000000001",
			Rank:      1,
			Parts:     2,
			Direction: log.DirectionIn,
			Layer:     log.LayerRecord,
			Category:  log.CategoryData,
			Record:    &log.RecordEvent{Element: 7, Level: 1, Rule: 3, Created: 2, Resolved: 3, Deferred: true},
		},
		{
			Timestamp: ts.Add(3 * time.Millisecond),
			SessionID: "5f0c1d2e-aaaa-bbbb-cccc-000000000001",
			Rank:      1,
			Parts:     2,
			Direction: log.DirectionIn,
			Layer:     log.LayerReconcile,
			Category:  log.CategoryIdentity,
			Identity:  &log.IdentityEvent{Kind: "NODE", Key: 11, OldGID: 203, NewGID: 102, Owner: 0, Priority: "COPY"},
		},
		{
			Timestamp: ts.Add(4 * time.Millisecond),
			SessionID: "9e9e9e9e-0000-0000-0000-000000000002",
			Rank:      0,
			Parts:     1,
			Direction: log.DirectionIn,
			Layer:     log.LayerRecord,
			Category:  log.CategoryError,
			Error:     &log.ErrorData{Layer: log.LayerRecord, Message: "corrupt stream data", Section: "trees", Context: "element 9"},
		},
	}
}

func TestFormatEvents(t *testing.T) {
	tests := []struct {
		name  string
		event log.Event
		want  []string
	}{
		{"frame", sampleEvents()[0], []string{
			"2026-03-09T14:02:11.250000Z", "[session:5f0c1d2e]", "0/2", "OUT", "FRAME Frame",
			"Size: 96 bytes at offset 4", "Data: a101 (truncated)",
		}},
		{"section", sampleEvents()[1], []string{
			"1/2", "IN", "RECORD Section", "Section: trees", "Records: 4", "Duration: 1.500ms",
		}},
		{"record", sampleEvents()[2], []string{
			"Element: 7  Level: 1  Rule: 3", "Nodes: 2 created, 3 resolved", "Deferred",
		}},
		{"identity", sampleEvents()[3], []string{
			"RECONCILE Identity", "NODE 11: GID 203 -> 102", "Owner: rank 0  Priority: COPY",
		}},
		{"error", sampleEvents()[4], []string{
			"0/1", "Message: corrupt stream data", "Section: trees", "Context: element 9",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatEvent(&buf, tt.event)
			output := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("expected %q in output:\n%s", want, output)
				}
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "0.500us"},
		{2333 * time.Microsecond, "2.333ms"},
		{1500 * time.Millisecond, "1.500s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := parseLayer("Reconcile"); err != nil || l != log.LayerReconcile {
		t.Errorf("parseLayer = %v, %v", l, err)
	}
	if _, err := parseLayer("service"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := parseDirection("OUT"); err != nil || d != log.DirectionOut {
		t.Errorf("parseDirection = %v, %v", d, err)
	}
	if c, err := parseCategory("identity"); err != nil || c != log.CategoryIdentity {
		t.Errorf("parseCategory = %v, %v", c, err)
	}
	if _, err := parseCategory("message"); err == nil || !strings.Contains(err.Error(), "data, error, identity, section") {
		t.Errorf("parseCategory error = %v, want the sorted choices", err)
	}
	if r, err := parseRank("3"); err != nil || r != 3 {
		t.Errorf("parseRank = %v, %v", r, err)
	}
	if _, err := parseRank("-1"); err == nil {
		t.Error("expected error for negative rank")
	}
}

func TestRunView(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	t.Run("All", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RunView(path, FilterOptions{}, &buf); err != nil {
			t.Fatalf("RunView failed: %v", err)
		}
		if n := strings.Count(buf.String(), "[session:"); n != 5 {
			t.Errorf("expected 5 events, got %d", n)
		}
	})

	t.Run("ByLayerAndRank", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RunView(path, FilterOptions{Layer: "record", Rank: "1"}, &buf); err != nil {
			t.Fatalf("RunView failed: %v", err)
		}
		output := buf.String()
		if n := strings.Count(output, "[session:"); n != 2 {
			t.Errorf("expected 2 events, got %d:\n%s", n, output)
		}
		if strings.Contains(output, "Identity") {
			t.Errorf("reconcile event not filtered:\n%s", output)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if err := RunView(filepath.Join(t.TempDir(), "none.mlog"), FilterOptions{}, io.Discard); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestExportToJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}

	var event log.Event
	if err := json.Unmarshal([]byte(lines[3]), &event); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if event.Identity == nil || event.Identity.NewGID != 102 {
		t.Errorf("identity not exported: %+v", event)
	}
}

func TestExportToCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected header + 5 rows, got %d", len(rows))
	}
	if rows[0][1] != "session_id" || rows[0][8] != "subject" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	want := [][]string{
		{"Frame", ""},
		{"Section", "trees"},
		{"Record", "7"},
		{"Identity", "NODE:11"},
		{"Error", "trees"},
	}
	for i, w := range want {
		row := rows[i+1]
		if row[7] != w[0] || row[8] != w[1] {
			t.Errorf("row %d type/subject = %s/%s, want %s/%s", i+1, row[7], row[8], w[0], w[1])
		}
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	tests := []struct {
		name string
		opts FilterOptions
		want int
	}{
		{"session", FilterOptions{SessionID: "5f0c1d2e-aaaa-bbbb-cccc-000000000001"}, 4},
		{"rank", FilterOptions{Rank: "1"}, 3},
		{"category", FilterOptions{Category: "identity"}, 1},
		{"category list", FilterOptions{Category: "identity, error"}, 2},
		{"direction", FilterOptions{Direction: "out"}, 1},
		{"layer and rank", FilterOptions{Layer: "record", Rank: "0"}, 1},
		{"time range", FilterOptions{
			TimeStart: ts.Add(time.Millisecond).Format(time.RFC3339Nano),
			TimeEnd:   ts.Add(3 * time.Millisecond).Format(time.RFC3339Nano),
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Output = filepath.Join(t.TempDir(), "filtered.mlog")
			n, err := RunFilter(path, tt.opts)
			if err != nil {
				t.Fatalf("RunFilter failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("RunFilter = %d, want %d", n, tt.want)
			}
			if got := len(readAll(t, tt.opts.Output)); got != tt.want {
				t.Errorf("output holds %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.mlog")

	for _, opts := range []FilterOptions{
		{Output: out, Rank: "first"},
		{Output: out, Layer: "transport"},
		{Output: out, TimeStart: "yesterday"},
	} {
		if _, err := RunFilter(path, opts); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}

	_, err := RunFilter(path, FilterOptions{Output: out, Rank: "first", Direction: "sideways", Category: "data,bogus"})
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 3 {
		t.Errorf("expected 3 aggregated errors, got %v", err)
	}
}

func TestRunStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 5",
		"RECORD:      3",
		"IDENTITY:    1",
		"Sessions: 2",
		"[5f0c1d2e] 4 events, 2/2 ranks",
		"Records: 1 (1 deferred)",
		"Identities: 1 (1 renamed)",
		"Errors: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestRunStatsEmpty(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Time Range") {
		t.Error("empty log should not print a time range")
	}
}
