package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgio/mgio-go/pkg/codec"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	enc := cfg.EncodeOptions()
	assert.Equal(t, codec.CanonicalFirstVisited, enc.Canonical)
	dec := cfg.DecodeOptions()
	assert.Equal(t, codec.ResolveStrict, dec.Resolution)
	assert.Equal(t, 1, cfg.Partition.Parts)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
codec:
  canonical: lowest-gid
  resolution: deferred
  max_frame_size: 4096
  node_gid_offset: 1000
partition:
  parts: 4
  axis: z
log:
  level: debug
  events: run.mlog
`))
	require.NoError(t, err)

	enc := cfg.EncodeOptions()
	assert.Equal(t, codec.CanonicalLowestGID, enc.Canonical)
	assert.Equal(t, uint32(4096), enc.MaxFrameSize)

	dec := cfg.DecodeOptions()
	assert.Equal(t, codec.ResolveDeferred, dec.Resolution)
	assert.Equal(t, int64(1000), dec.NodeGIDOffset)
	assert.Equal(t, uint32(4096), dec.MaxFrameSize)

	assert.Equal(t, 4, cfg.Partition.Parts)
	assert.Equal(t, "run.mlog", cfg.Log.Events)

	axis, err := ParseAxis(cfg.Partition.Axis)
	require.NoError(t, err)
	assert.Equal(t, 2, axis)
	lvl, err := ParseLevel(cfg.Log.Level)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("partition:\n  parts: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Partition.Parts)
	assert.Equal(t, "x", cfg.Partition.Axis)
	assert.Equal(t, "first-visited", cfg.Codec.Canonical)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		errs int
	}{
		{"bad canonical", "codec:\n  canonical: newest\n", 1},
		{"bad resolution", "codec:\n  resolution: lazy\n", 1},
		{"small frames", "codec:\n  max_frame_size: 16\n", 1},
		{"negative offset", "codec:\n  node_gid_offset: -1\n", 1},
		{"no parts", "partition:\n  parts: 0\n", 1},
		{"negative level", "partition:\n  level: -2\n", 1},
		{"bad axis", "partition:\n  axis: w\n", 1},
		{"bad log level", "log:\n  level: loud\n", 1},
		{"several", "partition:\n  parts: 0\n  axis: w\nlog:\n  level: loud\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, "invalid configuration", le.Message)

			var merr *multierror.Error
			require.ErrorAs(t, err, &merr)
			assert.Len(t, merr.Errors, tt.errs)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("codec: [unterminated"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "failed to parse YAML", le.Message)
	assert.NotNil(t, le.Cause)
}

func TestLoad(t *testing.T) {
	t.Run("EmptyPath", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mgio.yaml")
		require.NoError(t, os.WriteFile(path, []byte("partition:\n  parts: 2\n"), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Partition.Parts)
	})

	t.Run("Missing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.yaml")
		_, err := Load(path)

		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, path, le.File)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("InvalidNamesFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("partition:\n  axis: q\n"), 0644))

		_, err := Load(path)
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, path, le.File)
		assert.Contains(t, err.Error(), path)
	})
}
