package rules

import (
	"fmt"

	"github.com/mgio/mgio-go/pkg/shape"
)

// catalog holds every rule, indexed by shape tag. offsets holds the first
// flattened id of each shape.
var (
	catalog [][]*Rule
	offsets []int
	total   int
)

func init() {
	catalog = make([][]*Rule, len(shape.All))
	catalog[shape.Triangle] = triangleRules()
	catalog[shape.Quadrilateral] = quadRules()
	catalog[shape.Tetrahedron] = tetRules()
	catalog[shape.Hexahedron] = hexRules()

	offsets = make([]int, len(shape.All))
	for _, s := range shape.All {
		offsets[s] = total
		for i, r := range catalog[s] {
			r.Shape = s
			r.Index = i
			r.id = total + i
			finish(r)
		}
		total += len(catalog[s])
	}
}

// Lookup returns the rule with the given index for shape s.
func Lookup(s shape.Shape, index int) (*Rule, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: shape %d", ErrUnknownRule, s)
	}
	list := catalog[s]
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%w: %s has rules 0-%d, got %d", ErrUnknownRule, s, len(list)-1, index)
	}
	return list[index], nil
}

// RuleCount returns the number of rules defined for shape s.
func RuleCount(s shape.Shape) int {
	if !s.Valid() {
		return 0
	}
	return len(catalog[s])
}

// RuleOffset returns the flattened id of rule 0 of shape s.
func RuleOffset(s shape.Shape) int {
	if !s.Valid() {
		return -1
	}
	return offsets[s]
}

// Total returns the number of rules across all shapes.
func Total() int {
	return total
}

// Flatten maps (shape, index) to the single integer stored in streams.
func Flatten(s shape.Shape, index int) (int, error) {
	r, err := Lookup(s, index)
	if err != nil {
		return -1, err
	}
	return r.id, nil
}

// Unflatten returns the rule for a flattened id.
func Unflatten(id int) (*Rule, error) {
	if id < 0 || id >= total {
		return nil, fmt.Errorf("%w: id %d outside 0-%d", ErrUnknownRule, id, total-1)
	}
	for i := len(shape.All) - 1; i >= 0; i-- {
		if id >= offsets[i] {
			return catalog[i][id-offsets[i]], nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrUnknownRule, id)
}

// ForShape resolves a flattened id and checks it belongs to shape s.
func ForShape(s shape.Shape, id int) (*Rule, error) {
	r, err := Unflatten(id)
	if err != nil {
		return nil, err
	}
	if r.Shape != s {
		return nil, fmt.Errorf("%w: id %d is %s, element is %s", ErrUnknownRule, id, r, s)
	}
	return r, nil
}

// Find returns the rule of shape s whose pattern is exactly pattern.
// Pattern 0 yields the copy rule.
func Find(s shape.Shape, pattern uint32) (*Rule, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: shape %d", ErrUnknownRule, s)
	}
	for _, r := range catalog[s] {
		if r.Pattern == pattern {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s rule with pattern %#x", ErrUnknownRule, s, pattern)
}

// Named returns the rule of shape s with the given name.
func Named(s shape.Shape, name string) (*Rule, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: shape %d", ErrUnknownRule, s)
	}
	for _, r := range catalog[s] {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s rule named %q", ErrUnknownRule, s, name)
}

// All returns the rules of shape s in index order.
func All(s shape.Shape) []*Rule {
	if !s.Valid() {
		return nil
	}
	return catalog[s]
}

// finish derives the pattern and son side wiring from the son corner slots.
func finish(r *Rule) {
	nc := r.Shape.Corners()
	for _, son := range r.Sons {
		for _, slot := range son.Corners {
			if slot >= nc {
				r.Pattern |= 1 << uint(slot-nc)
			}
		}
	}
	for slot := nc; slot < r.Shape.Slots(); slot++ {
		if r.HasSlot(slot) {
			r.slots = append(r.slots, slot)
		}
	}

	for k := range r.Sons {
		son := &r.Sons[k]
		son.Sides = make([]SideRef, son.Shape.Sides())
		for i := range son.Sides {
			son.Sides[i] = wireSide(r, k, sideSlots(son, i))
		}
	}
}

// wireSide finds where the side spanned by slots leads.
func wireSide(r *Rule, k int, slots []int) SideRef {
	for j := range r.Sons {
		if j == k {
			continue
		}
		other := &r.Sons[j]
		for i := 0; i < other.Shape.Sides(); i++ {
			if sameSlots(sideSlots(other, i), slots) {
				return SideRef{Sibling: j, ParentSide: NoSide}
			}
		}
	}
	for p := 0; p < r.Shape.Sides(); p++ {
		on := true
		for _, slot := range slots {
			if !r.Shape.SlotOnSide(slot, p) {
				on = false
				break
			}
		}
		if on {
			return SideRef{Sibling: NoSide, ParentSide: p}
		}
	}
	panic(fmt.Sprintf("rules: %s/%s son %d side %v is neither shared nor on the parent boundary", r.Shape, r.Name, k, slots))
}

func sideSlots(son *Son, side int) []int {
	sc := son.Shape.SideCorners(side)
	out := make([]int, len(sc))
	for i, c := range sc {
		out[i] = son.Corners[c]
	}
	return out
}

func sameSlots(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		found := false
		for _, y := range b {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
