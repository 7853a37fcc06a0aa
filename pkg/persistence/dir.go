package persistence

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/mgio/mgio-go/pkg/codec"
	"github.com/mgio/mgio-go/pkg/version"
)

// ManifestName is the manifest file name inside a partition directory.
const ManifestName = "manifest.json"

// Persistence errors.
var (
	ErrNoManifest     = errors.New("directory has no manifest")
	ErrDigestMismatch = errors.New("partition digest mismatch")
)

// Dir is a directory holding one stream per partition and a manifest.
//
// Create and Open match the sink and source signatures of the distributed
// package. Create may be called from several goroutines.
type Dir struct {
	path  string
	store *ManifestStore

	mu      sync.Mutex
	written map[int]PartFile
}

// NewDir returns the partition directory at path.
func NewDir(path string) *Dir {
	return &Dir{
		path:    path,
		store:   NewManifestStore(filepath.Join(path, ManifestName)),
		written: make(map[int]PartFile),
	}
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// PartName returns the file name of rank's stream.
func PartName(rank int) string {
	return fmt.Sprintf("part-%04d.mgio", rank)
}

// Create opens rank's stream for writing. The file is digested while it is
// written; Commit records it.
func (d *Dir) Create(rank int) (io.WriteCloser, error) {
	if err := os.MkdirAll(d.path, 0755); err != nil {
		return nil, err
	}
	name := PartName(rank)
	f, err := os.Create(filepath.Join(d.path, name))
	if err != nil {
		return nil, err
	}
	h, _ := blake2b.New256(nil)
	return &digestWriter{d: d, f: f, h: h, part: PartFile{Rank: rank, Name: name}}, nil
}

type digestWriter struct {
	d    *Dir
	f    *os.File
	h    hash.Hash
	part PartFile
}

func (w *digestWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.h.Write(p[:n])
	w.part.Size += int64(n)
	return n, err
}

func (w *digestWriter) Close() error {
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	w.part.Digest = hex.EncodeToString(w.h.Sum(nil))

	w.d.mu.Lock()
	w.d.written[w.part.Rank] = w.part
	w.d.mu.Unlock()
	return nil
}

// Commit writes the manifest for the files created so far. It fails unless
// exactly ranks 0 to parts-1 were written.
func (d *Dir) Commit(session uuid.UUID, parts int) (*Manifest, error) {
	d.mu.Lock()
	files := make([]PartFile, 0, len(d.written))
	for _, f := range d.written {
		files = append(files, f)
	}
	d.mu.Unlock()
	sort.Slice(files, func(i, j int) bool { return files[i].Rank < files[j].Rank })

	m := &Manifest{
		Session: session.String(),
		Format:  version.Current,
		Parts:   parts,
		Files:   files,
	}
	if err := m.Check(); err != nil {
		return nil, fmt.Errorf("persistence: %w", err)
	}
	if err := d.store.Save(m); err != nil {
		return nil, fmt.Errorf("persistence: save manifest: %w", err)
	}
	return m, nil
}

// Manifest loads the directory's manifest.
func (d *Dir) Manifest() (*Manifest, error) {
	m, err := d.store.Load()
	if err != nil {
		return nil, fmt.Errorf("persistence: %w: %w", codec.ErrCorruptData, err)
	}
	if m == nil {
		return nil, fmt.Errorf("persistence: %w: %s", ErrNoManifest, d.path)
	}
	if err := m.Check(); err != nil {
		return nil, fmt.Errorf("persistence: %w: %w", codec.ErrCorruptData, err)
	}
	return m, nil
}

// Open verifies rank's stream against the manifest and opens it for
// reading. A size or digest mismatch is ErrDigestMismatch and
// codec.ErrCorruptData.
func (d *Dir) Open(rank int) (io.ReadCloser, error) {
	m, err := d.Manifest()
	if err != nil {
		return nil, err
	}
	part, ok := m.File(rank)
	if !ok {
		return nil, fmt.Errorf("persistence: %w: no file for rank %d", codec.ErrCorruptData, rank)
	}
	path := filepath.Join(d.path, part.Name)
	if err := Verify(path, part); err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Verify checks the file at path against part.
func Verify(path string, part PartFile) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("persistence: %w: %w", codec.ErrIO, err)
	}
	defer f.Close()

	h, _ := blake2b.New256(nil)
	size, err := io.Copy(h, f)
	if err != nil {
		return fmt.Errorf("persistence: %w: %w", codec.ErrIO, err)
	}
	if size != part.Size {
		return fmt.Errorf("persistence: %w: %w: %s is %d bytes, manifest says %d",
			ErrDigestMismatch, codec.ErrCorruptData, part.Name, size, part.Size)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != part.Digest {
		return fmt.Errorf("persistence: %w: %w: %s", ErrDigestMismatch, codec.ErrCorruptData, part.Name)
	}
	return nil
}

// Clear removes the manifest and every partition file it lists.
func (d *Dir) Clear() error {
	m, err := d.store.Load()
	if err != nil {
		return err
	}
	if m != nil {
		for _, f := range m.Files {
			if err := os.Remove(filepath.Join(d.path, f.Name)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	d.mu.Lock()
	d.written = make(map[int]PartFile)
	d.mu.Unlock()
	return d.store.Clear()
}
