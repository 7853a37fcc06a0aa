package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func logOnce(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterRecordEvent(t *testing.T) {
	entry := logOnce(t, Event{
		Timestamp: time.Now(),
		SessionID: "s-1",
		Direction: DirectionIn,
		Layer:     LayerRecord,
		Category:  CategoryData,
		Rank:      1,
		Parts:     2,
		Record:    &RecordEvent{Element: 12, Level: 1, Rule: 6, Deferred: true},
	})

	checks := map[string]any{
		"session":   "s-1",
		"direction": "IN",
		"layer":     "RECORD",
		"element":   float64(12),
		"rule":      float64(6),
		"rank":      float64(1),
		"deferred":  true,
	}
	for key, want := range checks {
		if entry[key] != want {
			t.Errorf("%s: got %v, want %v", key, entry[key], want)
		}
	}
}

func TestSlogAdapterSerialOmitsRank(t *testing.T) {
	entry := logOnce(t, Event{Timestamp: time.Now(), Section: &SectionEvent{Name: "HEADER", Records: 1}})
	if _, ok := entry["rank"]; ok {
		t.Error("rank should be omitted for serial streams")
	}
	if entry["section"] != "HEADER" {
		t.Errorf("section: got %v", entry["section"])
	}
}

func TestScopeStampsEvents(t *testing.T) {
	mock := &mockLogger{}
	scope := Scope{Logger: mock, SessionID: "s-9", Rank: 3, Parts: 4, Direction: DirectionOut}

	big := make([]byte, MaxFrameDataSize+10)
	scope.Frame(big, 128, 4)
	scope.Section("TREE", 5, 0)
	scope.Record(RecordEvent{Element: 1, Rule: -1})
	scope.Identity(IdentityEvent{Kind: "NODE", Key: 1})
	scope.Error(LayerRecord, errors.New("boom"), "TREE", "decode")
	scope.Error(LayerRecord, nil, "", "")

	if len(mock.events) != 5 {
		t.Fatalf("got %d events, want 5", len(mock.events))
	}
	for _, ev := range mock.events {
		if ev.SessionID != "s-9" || ev.Rank != 3 || ev.Parts != 4 || ev.Direction != DirectionOut {
			t.Errorf("event not stamped: %+v", ev)
		}
	}
	frame := mock.events[0].Frame
	if frame.Size != len(big)+4 || len(frame.Data) != MaxFrameDataSize || !frame.Truncated {
		t.Errorf("frame: size=%d data=%d truncated=%t", frame.Size, len(frame.Data), frame.Truncated)
	}
	if mock.events[4].Category != CategoryError || mock.events[4].Error.Message != "boom" {
		t.Errorf("error event: %+v", mock.events[4])
	}

	var zero Scope
	if zero.Enabled() {
		t.Error("zero Scope should be disabled")
	}
	zero.Section("TREE", 1, 0)
	if (Scope{Logger: NoopLogger{}}).Enabled() {
		t.Error("NoopLogger scope should be disabled")
	}
}
