package wire

// Magic identifies a mesh stream.
const Magic = "MGIO"

// NoIdent marks an absent node reference.
const NoIdent int64 = -1

// NoIndex marks an absent index into a section list.
const NoIndex int32 = -1

// Marker distinguishes leaf records from refined ones.
type Marker uint8

const (
	// MarkerLeaf is an element without sons.
	MarkerLeaf Marker = 0
	// MarkerRefined is an element followed by the subtrees of its sons.
	MarkerRefined Marker = 1
)

// String returns the marker name.
func (m Marker) String() string {
	switch m {
	case MarkerLeaf:
		return "LEAF"
	case MarkerRefined:
		return "REFINED"
	default:
		return "UNKNOWN"
	}
}

// Section names a part of the stream.
type Section uint8

const (
	SectionHeader   Section = 0
	SectionCoarse   Section = 1
	SectionTree     Section = 2
	SectionIdentify Section = 3
	SectionTrailer  Section = 4
)

// String returns the section name.
func (s Section) String() string {
	switch s {
	case SectionHeader:
		return "HEADER"
	case SectionCoarse:
		return "COARSE"
	case SectionTree:
		return "TREE"
	case SectionIdentify:
		return "IDENTIFY"
	case SectionTrailer:
		return "TRAILER"
	default:
		return "UNKNOWN"
	}
}

// Header opens every stream.
type Header struct {
	// Magic is always "MGIO".
	Magic string `cbor:"1,keyasint"`

	// Version is the format version as "major.minor".
	Version string `cbor:"2,keyasint"`

	// Dim is the spatial dimension (2 or 3).
	Dim uint8 `cbor:"3,keyasint"`

	// Rank and Parts identify the partition held by the stream.
	Rank  uint32 `cbor:"4,keyasint"`
	Parts uint32 `cbor:"5,keyasint"`

	// Session identifies the save operation (UUID); all partitions written
	// together share it.
	Session []byte `cbor:"6,keyasint"`

	// Points and Roots are the lengths of the coarse section lists.
	Points uint64 `cbor:"7,keyasint"`
	Roots  uint64 `cbor:"8,keyasint"`

	// Nodes and Elements are the totals of the mesh.
	Nodes    uint64 `cbor:"9,keyasint"`
	Elements uint64 `cbor:"10,keyasint"`

	// Levels is the number of levels.
	Levels uint32 `cbor:"11,keyasint"`

	// IdentLimit is one above the largest node identifier in the stream.
	IdentLimit int64 `cbor:"12,keyasint"`

	// ExternalNeighbors is set when records carry neighbor references that
	// cross root trees.
	ExternalNeighbors bool `cbor:"13,keyasint,omitempty"`

	// Canonical is the canonicity policy the writer used.
	Canonical uint8 `cbor:"14,keyasint,omitempty"`

	// Boundary is set when the stream carries boundary blobs.
	Boundary bool `cbor:"15,keyasint,omitempty"`
}

// PointRecord is one node of the coarse section.
type PointRecord struct {
	// Ident is the node's stream identifier.
	Ident int64 `cbor:"1,keyasint"`

	// Kind is the shape.NodeKind of the node.
	Kind uint8 `cbor:"2,keyasint,omitempty"`

	// Level the node was created on.
	Level uint32 `cbor:"3,keyasint,omitempty"`

	// Pos is the position.
	Pos [3]float64 `cbor:"4,keyasint"`

	// Boundary indexes CoarseSection.Blobs, or NoIndex.
	Boundary int32 `cbor:"5,keyasint"`
}

// ExternalRef names the neighbor across a side by element GID.
type ExternalRef struct {
	Side uint8 `cbor:"1,keyasint"`
	GID  int64 `cbor:"2,keyasint"`
}

// ElementRecord is one root element of the coarse section.
type ElementRecord struct {
	GID   int64 `cbor:"1,keyasint"`
	Shape uint8 `cbor:"2,keyasint"`

	// Corners index CoarseSection.Points.
	Corners []uint32 `cbor:"3,keyasint"`

	// Neighbors index CoarseSection.Elements per side, or NoIndex.
	Neighbors []int32 `cbor:"4,keyasint"`

	// External lists sides facing elements outside the coarse section.
	External []ExternalRef `cbor:"5,keyasint,omitempty"`

	Subdomain int32  `cbor:"6,keyasint,omitempty"`
	Level     uint32 `cbor:"7,keyasint,omitempty"`

	// Orphan fields: set for roots whose parent lives elsewhere.
	Orphan    bool  `cbor:"8,keyasint,omitempty"`
	ParentGID int64 `cbor:"9,keyasint,omitempty"`
	SonIndex  int32 `cbor:"10,keyasint,omitempty"`
}

// CoarseSection holds the coarse grid and the orphans.
type CoarseSection struct {
	Points   []PointRecord   `cbor:"1,keyasint"`
	Elements []ElementRecord `cbor:"2,keyasint"`
	Blobs    [][]byte        `cbor:"3,keyasint,omitempty"`
}

// SlotRecord is one new-node slot of a refinement.
type SlotRecord struct {
	// Ident is the node's stream identifier, or NoIdent when the node is
	// resolved through the shared entity.
	Ident int64 `cbor:"1,keyasint"`

	Pos      [3]float64 `cbor:"2,keyasint,omitempty"`
	Boundary []byte     `cbor:"3,keyasint,omitempty"`

	// Level the node was created on, when it differs from the writing
	// element's level plus one. Sons that keep a parent edge share midpoints
	// with elements on other levels.
	Level uint32 `cbor:"4,keyasint,omitempty"`
}

// Present reports whether the slot carries its node.
func (s SlotRecord) Present() bool {
	return s.Ident != NoIdent
}

// RefinementRecord describes one element of a tree.
type RefinementRecord struct {
	Marker Marker `cbor:"1,keyasint"`

	// Rule is the flattened rule id.
	Rule int32 `cbor:"2,keyasint,omitempty"`

	// Class is the rules.Class of the refinement.
	Class uint8 `cbor:"3,keyasint,omitempty"`

	// Slots has one entry per new-node slot of the rule, ascending.
	Slots []SlotRecord `cbor:"4,keyasint,omitempty"`

	// Sons are the son GIDs in rule order.
	Sons []int64 `cbor:"5,keyasint,omitempty"`

	// External lists sides facing elements of other trees or partitions.
	External []ExternalRef `cbor:"6,keyasint,omitempty"`
}

// TreeFrame holds the records of one root element.
type TreeFrame struct {
	// Root is the GID of the root element.
	Root int64 `cbor:"1,keyasint"`

	// Records in pre-order.
	Records []RefinementRecord `cbor:"2,keyasint"`
}

// Identity kinds.
const (
	IdentNode    uint8 = 0
	IdentElement uint8 = 1
)

// IdentRecord lists the partitions holding replicas of one object.
type IdentRecord struct {
	// Kind is IdentNode or IdentElement.
	Kind uint8 `cbor:"1,keyasint"`

	// ID is the node's stream identifier or the element's GID.
	ID int64 `cbor:"2,keyasint"`

	// Peers are the other ranks holding a replica.
	Peers []uint32 `cbor:"3,keyasint"`

	// Priority is the mesh.Priority of this replica.
	Priority uint8 `cbor:"4,keyasint,omitempty"`
}

// IdentifySection holds the replication table.
type IdentifySection struct {
	Records []IdentRecord `cbor:"1,keyasint"`
}

// Trailer closes every stream.
type Trailer struct {
	Nodes    uint64 `cbor:"1,keyasint"`
	Elements uint64 `cbor:"2,keyasint"`
	Frames   uint64 `cbor:"3,keyasint"`
}
