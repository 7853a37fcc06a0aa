package shape

import "fmt"

// Shape identifies the reference geometry of an element.
type Shape uint8

const (
	// Triangle is a 2-D element with 3 corners.
	Triangle Shape = 0
	// Quadrilateral is a 2-D element with 4 corners.
	Quadrilateral Shape = 1
	// Tetrahedron is a 3-D element with 4 corners.
	Tetrahedron Shape = 2
	// Hexahedron is a 3-D element with 8 corners.
	Hexahedron Shape = 3
)

// All lists every shape in tag order.
var All = []Shape{Triangle, Quadrilateral, Tetrahedron, Hexahedron}

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case Triangle:
		return "TRIANGLE"
	case Quadrilateral:
		return "QUADRILATERAL"
	case Tetrahedron:
		return "TETRAHEDRON"
	case Hexahedron:
		return "HEXAHEDRON"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is a known shape tag.
func (s Shape) Valid() bool {
	return s <= Hexahedron
}

// Parse converts a shape name (case-insensitive short or long form) to a Shape.
func Parse(name string) (Shape, error) {
	switch name {
	case "tri", "triangle", "TRIANGLE":
		return Triangle, nil
	case "quad", "quadrilateral", "QUADRILATERAL":
		return Quadrilateral, nil
	case "tet", "tetrahedron", "TETRAHEDRON":
		return Tetrahedron, nil
	case "hex", "hexahedron", "HEXAHEDRON":
		return Hexahedron, nil
	}
	return 0, fmt.Errorf("unknown shape %q", name)
}

// Dim returns the spatial dimension of the shape.
func (s Shape) Dim() int {
	switch s {
	case Triangle, Quadrilateral:
		return 2
	case Tetrahedron, Hexahedron:
		return 3
	default:
		return 0
	}
}

// Corners returns the number of corners.
func (s Shape) Corners() int {
	switch s {
	case Triangle:
		return 3
	case Quadrilateral, Tetrahedron:
		return 4
	case Hexahedron:
		return 8
	default:
		return 0
	}
}

// Edges returns the number of edges.
func (s Shape) Edges() int {
	return len(s.edgeTable())
}

// Faces returns the number of faces. 2-D shapes have no faces of their own;
// the element itself is the face and its midpoint is the center slot.
func (s Shape) Faces() int {
	if s.Dim() != 3 {
		return 0
	}
	return len(s.faceTable())
}

// Sides returns the number of sides: edges in 2-D, faces in 3-D.
func (s Shape) Sides() int {
	if s.Dim() == 3 {
		return s.Faces()
	}
	return s.Edges()
}

// EdgeCorners returns the two corner indices of edge e.
func (s Shape) EdgeCorners(e int) [2]int {
	return s.edgeTable()[e]
}

// SideCorners returns the ordered corner indices of side i.
func (s Shape) SideCorners(i int) []int {
	if s.Dim() == 3 {
		return s.faceTable()[i]
	}
	e := s.edgeTable()[i]
	return []int{e[0], e[1]}
}

// FaceCorners returns the ordered corner indices of face f (3-D only).
func (s Shape) FaceCorners(f int) []int {
	return s.faceTable()[f]
}

// SideShape returns the number of corners a side has: 2 for an edge,
// 3 or 4 for a face.
func (s Shape) SideShape(i int) int {
	return len(s.SideCorners(i))
}

// Slots returns the total number of node slots (corners plus new-node slots).
func (s Shape) Slots() int {
	return s.Corners() + s.NewSlots()
}

// NewSlots returns the number of new-node slots a rule can populate.
func (s Shape) NewSlots() int {
	return s.Edges() + s.Faces() + 1
}

// CenterSlot returns the slot index of the interior center.
func (s Shape) CenterSlot() int {
	return s.Slots() - 1
}

// EdgeSlot returns the slot index of the midpoint of edge e.
func (s Shape) EdgeSlot(e int) int {
	return s.Corners() + e
}

// FaceSlot returns the slot index of the midpoint of face f.
func (s Shape) FaceSlot(f int) int {
	return s.Corners() + s.Edges() + f
}

// SlotKind returns what kind of node lives in slot.
func (s Shape) SlotKind(slot int) NodeKind {
	nc, ne, nf := s.Corners(), s.Edges(), s.Faces()
	switch {
	case slot < nc:
		return Corner
	case slot < nc+ne:
		return EdgeMidpoint
	case slot < nc+ne+nf:
		return FaceMidpoint
	default:
		return Center
	}
}

// SlotCorners returns the corners that span the entity a slot sits on: the
// corner itself, the two ends of an edge, the corners of a face, or every
// corner for the center.
func (s Shape) SlotCorners(slot int) []int {
	switch s.SlotKind(slot) {
	case Corner:
		return []int{slot}
	case EdgeMidpoint:
		e := s.EdgeCorners(slot - s.Corners())
		return []int{e[0], e[1]}
	case FaceMidpoint:
		return s.FaceCorners(slot - s.Corners() - s.Edges())
	default:
		all := make([]int, s.Corners())
		for i := range all {
			all[i] = i
		}
		return all
	}
}

// SlotOnSide reports whether slot lies on side i of the shape.
func (s Shape) SlotOnSide(slot, side int) bool {
	switch s.SlotKind(slot) {
	case Center:
		return false
	case FaceMidpoint:
		return s.Dim() == 3 && slot-s.Corners()-s.Edges() == side
	}
	sc := s.SideCorners(side)
	for _, c := range s.SlotCorners(slot) {
		if !containsInt(sc, c) {
			return false
		}
	}
	return true
}

// EdgeBetween returns the edge joining corners a and b, or -1.
func (s Shape) EdgeBetween(a, b int) int {
	for i, e := range s.edgeTable() {
		if (e[0] == a && e[1] == b) || (e[0] == b && e[1] == a) {
			return i
		}
	}
	return -1
}

// FaceWith returns the face whose corner set equals corners, or -1.
func (s Shape) FaceWith(corners []int) int {
	if s.Dim() != 3 {
		return -1
	}
	for i, f := range s.faceTable() {
		if sameSet(f, corners) {
			return i
		}
	}
	return -1
}

func (s Shape) edgeTable() [][2]int {
	switch s {
	case Triangle:
		return triEdges
	case Quadrilateral:
		return quadEdges
	case Tetrahedron:
		return tetEdges
	case Hexahedron:
		return hexEdges
	default:
		return nil
	}
}

func (s Shape) faceTable() [][]int {
	switch s {
	case Tetrahedron:
		return tetFaces
	case Hexahedron:
		return hexFaces
	default:
		return nil
	}
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		if !containsInt(b, x) {
			return false
		}
	}
	return true
}
