package rules

import (
	"errors"
	"fmt"

	"github.com/mgio/mgio-go/pkg/shape"
)

// ErrUnknownRule indicates a rule index or flattened rule id outside the catalog.
// Decoding cannot continue past it: son shapes are unknown.
var ErrUnknownRule = errors.New("unknown refinement rule")

// Class is the coarse classification of a refinement. It is carried for the
// solver and is opaque to the codec.
type Class uint8

const (
	// ClassCopy replicates the element unchanged on the next level.
	ClassCopy Class = 0
	// ClassRed is a regular refinement of every edge.
	ClassRed Class = 1
	// ClassGreen is an irregular closure refinement.
	ClassGreen Class = 2
	// ClassBlue is an anisotropic refinement.
	ClassBlue Class = 3
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassCopy:
		return "COPY"
	case ClassRed:
		return "RED"
	case ClassGreen:
		return "GREEN"
	case ClassBlue:
		return "BLUE"
	default:
		return "UNKNOWN"
	}
}

// NoSide marks a SideRef field that does not apply.
const NoSide = -1

// SideRef says where a son side leads: to a sibling son, or out through a
// side of the parent. Exactly one of Sibling and ParentSide is set.
type SideRef struct {
	Sibling    int
	ParentSide int
}

// Inherited reports whether the son side lies on a parent side.
func (r SideRef) Inherited() bool {
	return r.ParentSide != NoSide
}

// Son describes one son produced by a rule.
type Son struct {
	// Shape of the son element.
	Shape shape.Shape

	// Corners lists, for every son corner, the parent slot it is taken from.
	Corners []int

	// Sides holds one entry per son side.
	Sides []SideRef
}

// Rule is one catalog entry.
type Rule struct {
	Shape   shape.Shape
	Index   int
	Name    string
	Class   Class
	Pattern uint32
	Sons    []Son

	id    int
	slots []int
}

// SonCount returns the number of sons the rule produces.
func (r *Rule) SonCount() int {
	return len(r.Sons)
}

// ID returns the flattened rule identifier.
func (r *Rule) ID() int {
	return r.id
}

// HasSlot reports whether the rule populates the given parent slot.
func (r *Rule) HasSlot(slot int) bool {
	nc := r.Shape.Corners()
	if slot < nc {
		return false
	}
	return r.Pattern&(1<<uint(slot-nc)) != 0
}

// NewSlots returns the populated new-node slots in ascending order.
func (r *Rule) NewSlots() []int {
	return r.slots
}

// String returns a short description such as "QUADRILATERAL/red".
func (r *Rule) String() string {
	return fmt.Sprintf("%s/%s", r.Shape, r.Name)
}
