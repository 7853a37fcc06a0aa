package log

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, SessionID: "a", Rank: 0, Direction: DirectionOut, Layer: LayerFrame, Category: CategoryData},
		{Timestamp: base.Add(time.Second), SessionID: "a", Rank: 1, Direction: DirectionOut, Layer: LayerRecord, Category: CategorySection},
		{Timestamp: base.Add(2 * time.Second), SessionID: "b", Rank: 1, Direction: DirectionIn, Layer: LayerReconcile, Category: CategoryIdentity},
		{Timestamp: base.Add(3 * time.Second), SessionID: "b", Rank: 0, Direction: DirectionIn, Layer: LayerRecord, Category: CategoryError},
	}
	path := createTestLogFile(t, events)

	rank1 := 1
	in := DirectionIn
	record := LayerRecord
	errCat := CategoryError
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"session", Filter{SessionID: "a"}, 2},
		{"rank", Filter{Rank: &rank1}, 2},
		{"direction", Filter{Direction: &in}, 2},
		{"layer", Filter{Layer: &record}, 2},
		{"category", Filter{Category: &errCat}, 1},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"combined", Filter{SessionID: "b", Layer: &record}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer reader.Close()

			count := 0
			for {
				_, err := reader.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("Next failed: %v", err)
				}
				count++
			}
			if count != tt.want {
				t.Errorf("got %d events, want %d", count, tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "nope.mlog")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReaderCategories(t *testing.T) {
	path := createTestLogFile(t, []Event{
		{Timestamp: time.Now(), Category: CategoryData},
		{Timestamp: time.Now(), Category: CategoryIdentity},
		{Timestamp: time.Now(), Category: CategoryError},
		{Timestamp: time.Now(), Category: CategorySection},
	})

	events, err := ReadAll(path, Filter{Categories: []Category{CategoryIdentity, CategoryError}})
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Category != CategoryIdentity || events[1].Category != CategoryError {
		t.Errorf("categories: got %v, %v", events[0].Category, events[1].Category)
	}
}

func TestReaderTruncated(t *testing.T) {
	path := createTestLogFile(t, []Event{
		{Timestamp: time.Now(), SessionID: "first"},
		{Timestamp: time.Now(), SessionID: "second"},
	})
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-3], 0644); err != nil {
		t.Fatal(err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Next(); err != nil {
		t.Fatalf("first Next failed: %v", err)
	}
	if _, err := reader.Next(); !errors.Is(err, ErrTruncated) {
		t.Errorf("second Next error = %v, want ErrTruncated", err)
	}
	if reader.Decoded() != 1 {
		t.Errorf("Decoded() = %d, want 1", reader.Decoded())
	}

	events, err := ReadAll(path, Filter{})
	if !errors.Is(err, ErrTruncated) || len(events) != 1 {
		t.Errorf("ReadAll = %d events, %v; want 1 event and ErrTruncated", len(events), err)
	}
}
