package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ManifestVersion is the current version of the manifest file format.
const ManifestVersion = 1

// Manifest describes a saved partition set.
type Manifest struct {
	// Version is the manifest file format version.
	Version int `json:"version"`

	// SavedAt is when the manifest was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Session is the save session shared by every stream header (UUID).
	Session string `json:"session"`

	// Format is the stream format version the partitions were written in.
	Format string `json:"format,omitempty"`

	// Parts is the number of partitions.
	Parts int `json:"parts"`

	// Files lists one entry per partition, ordered by rank.
	Files []PartFile `json:"files"`
}

// PartFile describes the stream of one partition.
type PartFile struct {
	// Rank is the partition the file holds.
	Rank int `json:"rank"`

	// Name is the file name relative to the manifest.
	Name string `json:"name"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// Digest is the hex BLAKE2b-256 digest of the file.
	Digest string `json:"digest"`
}

// File returns the entry for rank.
func (m *Manifest) File(rank int) (PartFile, bool) {
	for _, f := range m.Files {
		if f.Rank == rank {
			return f, true
		}
	}
	return PartFile{}, false
}

// Check reports a manifest that does not list exactly one file per rank.
func (m *Manifest) Check() error {
	if m.Version > ManifestVersion {
		return fmt.Errorf("manifest version %d is newer than %d", m.Version, ManifestVersion)
	}
	if m.Parts < 1 || len(m.Files) != m.Parts {
		return fmt.Errorf("manifest lists %d files for %d partitions", len(m.Files), m.Parts)
	}
	for rank := range m.Parts {
		if _, ok := m.File(rank); !ok {
			return fmt.Errorf("manifest has no file for rank %d", rank)
		}
	}
	return nil
}

// ManifestStore manages persistence of a manifest to a JSON file.
type ManifestStore struct {
	mu   sync.Mutex
	path string
}

// NewManifestStore creates a new manifest store.
func NewManifestStore(path string) *ManifestStore {
	return &ManifestStore{path: path}
}

// Path returns the manifest file path.
func (s *ManifestStore) Path() string {
	return s.path
}

// Save persists the manifest to disk.
func (s *ManifestStore) Save(m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	m.Version = ManifestVersion
	if m.SavedAt.IsZero() {
		m.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	// Write next to the target and rename, so readers never see half a
	// manifest.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the manifest from disk.
// Returns nil, nil if the file doesn't exist.
func (s *ManifestStore) Load() (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}

	return m, nil
}

// Clear removes the manifest file.
func (s *ManifestStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
