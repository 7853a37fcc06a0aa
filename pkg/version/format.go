package version

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed formats/*.yaml
var formatFS embed.FS

// FormatManifest describes what a stream format version contains.
type FormatManifest struct {
	Version     string                 `yaml:"version"`
	Description string                 `yaml:"description"`
	Sections    []SectionSpec          `yaml:"sections"`
	Features    map[string]FeatureSpec `yaml:"features"`
	Shapes      []string               `yaml:"shapes"`
}

// SectionSpec describes one stream section.
type SectionSpec struct {
	Name   string `yaml:"name"`
	Frames string `yaml:"frames"`
	Record string `yaml:"record"`
}

// FeatureSpec describes one optional or mandatory capability.
type FeatureSpec struct {
	Mandatory   bool   `yaml:"mandatory"`
	Description string `yaml:"description"`
}

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*FormatManifest)
)

// LoadFormat loads a format manifest by version string (e.g. "1.0").
func LoadFormat(ver string) (*FormatManifest, error) {
	cacheMu.RLock()
	if m, ok := cache[ver]; ok {
		cacheMu.RUnlock()
		return m, nil
	}
	cacheMu.RUnlock()

	data, err := formatFS.ReadFile("formats/" + ver + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("format version %q not found: %w", ver, err)
	}

	var m FormatManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing format %q: %w", ver, err)
	}

	cacheMu.Lock()
	cache[ver] = &m
	cacheMu.Unlock()

	return &m, nil
}

// LoadCurrentFormat loads the manifest for the current format version.
func LoadCurrentFormat() (*FormatManifest, error) {
	return LoadFormat(Current)
}

// AvailableFormats returns the version strings of all embedded manifests.
func AvailableFormats() ([]string, error) {
	entries, err := formatFS.ReadDir("formats")
	if err != nil {
		return nil, fmt.Errorf("reading formats directory: %w", err)
	}

	var versions []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") {
			versions = append(versions, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// MandatoryFeatures returns the names of all mandatory features, sorted.
func (m *FormatManifest) MandatoryFeatures() []string {
	var out []string
	for name, fs := range m.Features {
		if fs.Mandatory {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// SectionNames returns the section names in stream order.
func (m *FormatManifest) SectionNames() []string {
	out := make([]string, len(m.Sections))
	for i, s := range m.Sections {
		out[i] = s.Name
	}
	return out
}

// CheckFeatures returns an error naming every feature in used that the
// manifest does not define.
func (m *FormatManifest) CheckFeatures(used []string) error {
	var unknown []string
	for _, name := range used {
		if _, ok := m.Features[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("format %s does not define %s", m.Version, strings.Join(unknown, ", "))
	}
	return nil
}
