package log

import (
	"time"
)

// Event is one captured stream event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID is the stream session (UUID) the event belongs to.
	SessionID string `cbor:"2,keyasint"`

	// Direction is In while decoding and Out while encoding.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Rank is the partition the event concerns.
	Rank int `cbor:"6,keyasint,omitempty"`

	// Parts is the partition count of the stream.
	Parts int `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame    *FrameEvent    `cbor:"10,keyasint,omitempty"` // Frame layer
	Section  *SectionEvent  `cbor:"11,keyasint,omitempty"` // Record layer
	Record   *RecordEvent   `cbor:"12,keyasint,omitempty"` // Record layer
	Identity *IdentityEvent `cbor:"13,keyasint,omitempty"` // Reconcile layer
	Error    *ErrorData     `cbor:"14,keyasint,omitempty"` // Any layer
}

// Direction indicates which way data flows.
type Direction uint8

const (
	// DirectionIn indicates data read from a stream.
	DirectionIn Direction = 0
	// DirectionOut indicates data written to a stream.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerFrame is the framing layer (raw bytes).
	LayerFrame Layer = 0
	// LayerRecord is the record layer (decoded sections and records).
	LayerRecord Layer = 1
	// LayerReconcile is the distributed identity layer.
	LayerReconcile Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerFrame:
		return "FRAME"
	case LayerRecord:
		return "RECORD"
	case LayerReconcile:
		return "RECONCILE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryData indicates frames and records moving through a stream.
	CategoryData Category = 0
	// CategorySection indicates the start or end of a stream section.
	CategorySection Category = 1
	// CategoryIdentity indicates an identity decision.
	CategoryIdentity Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryData:
		return "DATA"
	case CategorySection:
		return "SECTION"
	case CategoryIdentity:
		return "IDENTITY"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// Offset is the stream position of the length prefix.
	Offset int64 `cbor:"4,keyasint,omitempty"`
}

// SectionEvent captures a completed stream section.
type SectionEvent struct {
	// Name of the section (HEADER, COARSE, TREE, IDENTIFY, TRAILER).
	Name string `cbor:"1,keyasint"`

	// Records is the number of records in the section.
	Records int `cbor:"2,keyasint"`

	// Elapsed is the time spent on the section.
	Elapsed time.Duration `cbor:"3,keyasint,omitempty"`
}

// RecordEvent captures one refinement record.
type RecordEvent struct {
	// Element is the GID of the element the record describes.
	Element int64 `cbor:"1,keyasint"`

	// Level of the element.
	Level int `cbor:"2,keyasint"`

	// Rule is the flattened rule id, or -1 for a leaf.
	Rule int `cbor:"3,keyasint"`

	// Created is the number of nodes the record created.
	Created int `cbor:"4,keyasint,omitempty"`

	// Resolved is the number of nodes taken from shared entities.
	Resolved int `cbor:"5,keyasint,omitempty"`

	// Deferred is set when the record was installed on a later pass.
	Deferred bool `cbor:"6,keyasint,omitempty"`
}

// IdentityEvent captures the reconciliation of one replicated object.
type IdentityEvent struct {
	// Kind is NODE or ELEMENT.
	Kind string `cbor:"1,keyasint"`

	// Key is the identity shared by the replicas.
	Key int64 `cbor:"2,keyasint"`

	// OldGID is the local GID before reconciliation.
	OldGID int64 `cbor:"3,keyasint"`

	// NewGID is the GID adopted from the owner.
	NewGID int64 `cbor:"4,keyasint"`

	// Owner is the rank of the owning replica.
	Owner int `cbor:"5,keyasint"`

	// Priority is MASTER or COPY.
	Priority string `cbor:"6,keyasint"`
}

// ErrorData captures errors at any layer.
type ErrorData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Section is the stream section being processed, if any.
	Section string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
