// Package config loads the YAML settings shared by the mgio tools.
//
// A file only needs to name the values it changes; everything else keeps the
// value from Default. Command-line flags override the loaded values.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/mgio/mgio-go/pkg/codec"
)

// Config holds the tool settings.
type Config struct {
	Codec     Codec     `yaml:"codec"`
	Partition Partition `yaml:"partition"`
	Log       Log       `yaml:"log"`
}

// Codec configures encoding and decoding.
type Codec struct {
	// Canonical is the canonicity policy: first-visited or lowest-gid.
	Canonical string `yaml:"canonical"`

	// Resolution is the decode resolution mode: strict or deferred.
	Resolution string `yaml:"resolution"`

	// MaxFrameSize bounds a single frame payload in bytes. Zero keeps the
	// wire default.
	MaxFrameSize uint32 `yaml:"max_frame_size"`

	// NodeGIDOffset is the first GID given to coarse nodes when loading.
	NodeGIDOffset int64 `yaml:"node_gid_offset"`
}

// Partition configures splitting a serial mesh.
type Partition struct {
	// Parts is the number of partitions.
	Parts int `yaml:"parts"`

	// Level is the refinement level the mesh is cut at.
	Level int `yaml:"level"`

	// Axis is the coordinate the partitions are laid out along: x, y or z.
	Axis string `yaml:"axis"`
}

// Log configures diagnostics.
type Log struct {
	// Level is the slog level: debug, info, warn or error.
	Level string `yaml:"level"`

	// Events is the path of an .mlog event capture. Empty disables capture.
	Events string `yaml:"events"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Codec: Codec{
			Canonical:  codec.CanonicalFirstVisited.String(),
			Resolution: codec.ResolveStrict.String(),
		},
		Partition: Partition{
			Parts: 1,
			Axis:  "x",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// LoadError provides details about a configuration loading error.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File == "" {
		return "config: " + msg
	}
	return e.File + ": " + msg
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Parse reads settings from YAML data on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &LoadError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{
			Message: "invalid configuration",
			Cause:   err,
		}
	}
	return cfg, nil
}

// Load reads settings from a file. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
		}
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs *multierror.Error
	if _, err := codec.ParseCanonical(c.Codec.Canonical); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := codec.ParseResolution(c.Codec.Resolution); err != nil {
		errs = multierror.Append(errs, err)
	}
	if c.Codec.MaxFrameSize != 0 && c.Codec.MaxFrameSize < 1024 {
		errs = multierror.Append(errs, fmt.Errorf("max_frame_size %d is below 1024", c.Codec.MaxFrameSize))
	}
	if c.Codec.NodeGIDOffset < 0 {
		errs = multierror.Append(errs, fmt.Errorf("node_gid_offset %d is negative", c.Codec.NodeGIDOffset))
	}
	if c.Partition.Parts < 1 {
		errs = multierror.Append(errs, fmt.Errorf("parts %d must be at least 1", c.Partition.Parts))
	}
	if c.Partition.Level < 0 {
		errs = multierror.Append(errs, fmt.Errorf("level %d is negative", c.Partition.Level))
	}
	if _, err := ParseAxis(c.Partition.Axis); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// EncodeOptions returns the codec settings for writing.
func (c *Config) EncodeOptions() codec.EncodeOptions {
	canon, _ := codec.ParseCanonical(c.Codec.Canonical)
	return codec.EncodeOptions{
		Canonical:    canon,
		MaxFrameSize: c.Codec.MaxFrameSize,
	}
}

// DecodeOptions returns the codec settings for reading.
func (c *Config) DecodeOptions() codec.DecodeOptions {
	res, _ := codec.ParseResolution(c.Codec.Resolution)
	return codec.DecodeOptions{
		Resolution:    res,
		NodeGIDOffset: c.Codec.NodeGIDOffset,
		MaxFrameSize:  c.Codec.MaxFrameSize,
	}
}

// ParseAxis maps x, y and z to 0, 1 and 2.
func ParseAxis(s string) (int, error) {
	switch strings.ToLower(s) {
	case "x", "":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", s)
	}
}

// ParseLevel parses a slog level name (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", s)
	}
}
