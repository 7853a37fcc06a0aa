package version

import (
	"slices"
	"testing"
)

func TestLoadCurrentFormat(t *testing.T) {
	m, err := LoadCurrentFormat()
	if err != nil {
		t.Fatalf("LoadCurrentFormat() error: %v", err)
	}
	if m.Version != Current {
		t.Errorf("Version = %q, want %q", m.Version, Current)
	}
	if m.Description == "" {
		t.Error("Description is empty")
	}

	want := []string{"HEADER", "COARSE", "TREE", "IDENTIFY", "TRAILER"}
	if got := m.SectionNames(); !slices.Equal(got, want) {
		t.Errorf("SectionNames() = %v, want %v", got, want)
	}
	if got := m.MandatoryFeatures(); !slices.Equal(got, []string{"absent_slots", "orphans"}) {
		t.Errorf("MandatoryFeatures() = %v", got)
	}
	if len(m.Shapes) != 4 {
		t.Errorf("Shapes = %v", m.Shapes)
	}

	again, _ := LoadFormat(Current)
	if again != m {
		t.Error("manifest should be cached")
	}
}

func TestLoadFormatNotFound(t *testing.T) {
	if _, err := LoadFormat("99.99"); err == nil {
		t.Fatal("LoadFormat(99.99) should return error")
	}
}

func TestAvailableFormats(t *testing.T) {
	versions, err := AvailableFormats()
	if err != nil {
		t.Fatalf("AvailableFormats() error: %v", err)
	}
	if !slices.Contains(versions, "1.0") {
		t.Errorf("AvailableFormats() = %v, want to contain %q", versions, "1.0")
	}
}

func TestCheckFeatures(t *testing.T) {
	m, err := LoadCurrentFormat()
	if err != nil {
		t.Fatal(err)
	}
	if err := m.CheckFeatures([]string{"orphans", "external_neighbors"}); err != nil {
		t.Errorf("CheckFeatures: %v", err)
	}
	if err := m.CheckFeatures([]string{"orphans", "teleport"}); err == nil {
		t.Error("CheckFeatures should reject unknown features")
	}
}
