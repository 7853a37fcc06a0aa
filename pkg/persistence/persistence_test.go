package persistence

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mgio/mgio-go/pkg/codec"
)

func TestManifestStore(t *testing.T) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		dir := t.TempDir()
		store := NewManifestStore(filepath.Join(dir, "sub", ManifestName))

		m := &Manifest{
			Session: "s-1",
			Parts:   2,
			Files: []PartFile{
				{Rank: 0, Name: PartName(0), Size: 10, Digest: "aa"},
				{Rank: 1, Name: PartName(1), Size: 12, Digest: "bb"},
			},
		}
		if err := store.Save(m); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Version != ManifestVersion {
			t.Errorf("Version = %d, want %d", got.Version, ManifestVersion)
		}
		if got.SavedAt.IsZero() {
			t.Error("SavedAt not set")
		}
		if f, ok := got.File(1); !ok || f.Digest != "bb" {
			t.Errorf("File(1) = %+v, %v", f, ok)
		}
		if err := got.Check(); err != nil {
			t.Errorf("Check() error = %v", err)
		}
	})

	t.Run("KeepsSavedAt", func(t *testing.T) {
		store := NewManifestStore(filepath.Join(t.TempDir(), ManifestName))
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		if err := store.Save(&Manifest{SavedAt: at}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !got.SavedAt.Equal(at) {
			t.Errorf("SavedAt = %v, want %v", got.SavedAt, at)
		}
	})

	t.Run("LoadNonExistent", func(t *testing.T) {
		store := NewManifestStore(filepath.Join(t.TempDir(), "nonexistent.json"))

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %v, want nil for non-existent file", got)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ManifestName)
		store := NewManifestStore(path)
		_ = store.Save(&Manifest{Parts: 1})

		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("manifest still exists: %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Errorf("second Clear() error = %v", err)
		}
	})
}

func TestManifestCheck(t *testing.T) {
	tests := []struct {
		name string
		m    Manifest
		ok   bool
	}{
		{"complete", Manifest{Parts: 2, Files: []PartFile{{Rank: 1}, {Rank: 0}}}, true},
		{"no parts", Manifest{}, false},
		{"missing file", Manifest{Parts: 2, Files: []PartFile{{Rank: 0}}}, false},
		{"duplicate rank", Manifest{Parts: 2, Files: []PartFile{{Rank: 0}, {Rank: 0}}}, false},
		{"newer version", Manifest{Version: ManifestVersion + 1, Parts: 1, Files: []PartFile{{Rank: 0}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Check()
			if (err == nil) != tt.ok {
				t.Errorf("Check() error = %v, want ok %v", err, tt.ok)
			}
		})
	}
}

func writePart(t *testing.T, d *Dir, rank int, data string) {
	t.Helper()
	w, err := d.Create(rank)
	if err != nil {
		t.Fatalf("Create(%d) error = %v", rank, err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
}

func readPart(t *testing.T, d *Dir, rank int) (string, error) {
	t.Helper()
	r, err := d.Open(rank)
	if err != nil {
		return "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	return string(data), err
}

func TestDir(t *testing.T) {
	session := uuid.New()

	t.Run("RoundTrip", func(t *testing.T) {
		d := NewDir(filepath.Join(t.TempDir(), "mesh"))
		writePart(t, d, 1, "second")
		writePart(t, d, 0, "first")

		m, err := d.Commit(session, 2)
		if err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		if m.Session != session.String() || m.Files[0].Rank != 0 || m.Files[1].Size != 6 {
			t.Errorf("manifest = %+v", m)
		}
		if len(m.Files[0].Digest) != 64 {
			t.Errorf("digest %q is not BLAKE2b-256 hex", m.Files[0].Digest)
		}

		for rank, want := range []string{"first", "second"} {
			got, err := readPart(t, d, rank)
			if err != nil {
				t.Fatalf("Open(%d) error = %v", rank, err)
			}
			if got != want {
				t.Errorf("rank %d = %q, want %q", rank, got, want)
			}
		}

		// A second handle on the same directory reads the same manifest.
		again, err := NewDir(d.Path()).Manifest()
		if err != nil {
			t.Fatalf("Manifest() error = %v", err)
		}
		if again.Parts != 2 {
			t.Errorf("Parts = %d, want 2", again.Parts)
		}
	})

	t.Run("CommitIncomplete", func(t *testing.T) {
		d := NewDir(t.TempDir())
		writePart(t, d, 0, "only")
		if _, err := d.Commit(session, 2); err == nil {
			t.Error("Commit() with a missing rank succeeded")
		}
	})

	t.Run("Tampered", func(t *testing.T) {
		d := NewDir(t.TempDir())
		writePart(t, d, 0, "payload")
		if _, err := d.Commit(session, 1); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}

		path := filepath.Join(d.Path(), PartName(0))
		if err := os.WriteFile(path, []byte("PAYLOAD"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := readPart(t, d, 0)
		if !errors.Is(err, ErrDigestMismatch) || !errors.Is(err, codec.ErrCorruptData) {
			t.Errorf("Open() error = %v, want digest mismatch", err)
		}

		if err := os.WriteFile(path, []byte("short"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := readPart(t, d, 0); !errors.Is(err, ErrDigestMismatch) {
			t.Errorf("Open() error = %v, want size mismatch", err)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		d := NewDir(t.TempDir())
		if _, err := d.Manifest(); !errors.Is(err, ErrNoManifest) {
			t.Errorf("Manifest() error = %v, want ErrNoManifest", err)
		}

		writePart(t, d, 0, "x")
		if _, err := d.Commit(session, 1); err != nil {
			t.Fatal(err)
		}
		if err := os.Remove(filepath.Join(d.Path(), PartName(0))); err != nil {
			t.Fatal(err)
		}
		if _, err := d.Open(0); !errors.Is(err, codec.ErrIO) {
			t.Errorf("Open() error = %v, want ErrIO", err)
		}
		if _, err := d.Open(3); !errors.Is(err, codec.ErrCorruptData) {
			t.Errorf("Open(3) error = %v, want ErrCorruptData", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		d := NewDir(t.TempDir())
		writePart(t, d, 0, "x")
		if _, err := d.Commit(session, 1); err != nil {
			t.Fatal(err)
		}
		if err := d.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		entries, _ := os.ReadDir(d.Path())
		if len(entries) != 0 {
			t.Errorf("%d entries left after Clear()", len(entries))
		}
	})
}
