package codec

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mgio/mgio-go/pkg/boundary"
	"github.com/mgio/mgio-go/pkg/log"
	"github.com/mgio/mgio-go/pkg/wire"
)

// Canonical selects which of the elements refining a shared edge or face
// writes the midpoint.
type Canonical uint8

const (
	// CanonicalFirstVisited lets the first refiner in stream order write the
	// midpoint. Streams written this way decode with ResolveStrict.
	CanonicalFirstVisited Canonical = 0

	// CanonicalLowestGID lets the refiner with the smallest GID write the
	// midpoint, independent of traversal order. Readers need ResolveDeferred.
	CanonicalLowestGID Canonical = 1
)

// String returns the policy name.
func (c Canonical) String() string {
	switch c {
	case CanonicalFirstVisited:
		return "first-visited"
	case CanonicalLowestGID:
		return "lowest-gid"
	default:
		return "unknown"
	}
}

// ParseCanonical parses a policy name.
func ParseCanonical(s string) (Canonical, error) {
	switch strings.ToLower(s) {
	case "first-visited", "":
		return CanonicalFirstVisited, nil
	case "lowest-gid":
		return CanonicalLowestGID, nil
	default:
		return 0, fmt.Errorf("unknown canonicity policy %q", s)
	}
}

// Resolution selects how absent slots are resolved while decoding.
type Resolution uint8

const (
	// ResolveStrict requires every absent slot to resolve when it is read.
	ResolveStrict Resolution = 0

	// ResolveDeferred reads all trees first and installs refinements as
	// their absent slots become resolvable.
	ResolveDeferred Resolution = 1
)

// String returns the strategy name.
func (r Resolution) String() string {
	switch r {
	case ResolveStrict:
		return "strict"
	case ResolveDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// ParseResolution parses a strategy name.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(s) {
	case "strict", "":
		return ResolveStrict, nil
	case "deferred":
		return ResolveDeferred, nil
	default:
		return 0, fmt.Errorf("unknown resolution strategy %q", s)
	}
}

// EncodeOptions configures Encode.
type EncodeOptions struct {
	// Canonical is the canonicity policy for shared midpoints.
	Canonical Canonical

	// ExternalNeighbors writes neighbor references across root trees and
	// partitions. Partitioned meshes need it to keep remote neighbors.
	ExternalNeighbors bool

	// Boundary serializes boundary points. Required when any node carries
	// one.
	Boundary boundary.Serializer

	// Session identifies the save; a random one is used when zero.
	Session uuid.UUID

	// MaxFrameSize limits a single frame. Zero means wire.DefaultMaxFrameSize.
	MaxFrameSize uint32

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// Events receives stream events. Optional.
	Events log.Logger
}

// DecodeOptions configures Decode.
type DecodeOptions struct {
	// Resolution is the strategy for absent slots.
	Resolution Resolution

	// NodeGIDOffset is the first GID given to coarse-section nodes. The
	// decoder never goes below the stream's identifier limit, so that
	// coarse nodes cannot collide with nodes created by refinement.
	NodeGIDOffset int64

	// Boundary deserializes boundary blobs. Required when the stream
	// carries any. When it also implements boundary.Interpolator, the
	// decoded mesh uses it for further refinement.
	Boundary boundary.Serializer

	// MaxFrameSize limits a single frame. Zero means wire.DefaultMaxFrameSize.
	MaxFrameSize uint32

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// Events receives stream events. Optional.
	Events log.Logger
}

func maxFrame(n uint32) uint32 {
	if n == 0 {
		return wire.DefaultMaxFrameSize
	}
	return n
}
