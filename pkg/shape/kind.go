package shape

// NodeKind classifies a node by the entity it was created on.
type NodeKind uint8

const (
	// Corner is a node of the coarse grid or a corner inherited by a son.
	Corner NodeKind = 0
	// EdgeMidpoint is created on an edge and shared by every element on it.
	EdgeMidpoint NodeKind = 1
	// FaceMidpoint is created on a face and shared by both elements on it.
	FaceMidpoint NodeKind = 2
	// Center is created in the interior and never shared.
	Center NodeKind = 3
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case Corner:
		return "CORNER"
	case EdgeMidpoint:
		return "EDGE_MIDPOINT"
	case FaceMidpoint:
		return "FACE_MIDPOINT"
	case Center:
		return "CENTER"
	default:
		return "UNKNOWN"
	}
}

// Shared reports whether nodes of this kind can belong to more than one
// element of the same level.
func (k NodeKind) Shared() bool {
	return k == EdgeMidpoint || k == FaceMidpoint || k == Corner
}
