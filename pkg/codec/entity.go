package codec

import (
	"slices"

	"github.com/mgio/mgio-go/pkg/mesh"
	"github.com/mgio/mgio-go/pkg/shape"
)

// entity identifies an edge, face or side by its sorted corner nodes.
type entity [4]mesh.NodeID

func makeEntity(e *mesh.Element, corners []int) entity {
	k := entity{mesh.NoNode, mesh.NoNode, mesh.NoNode, mesh.NoNode}
	for i, c := range corners {
		k[i] = e.Corners[c]
	}
	slices.Sort(k[:len(corners)])
	return k
}

// slotEntity returns the entity under a new-node slot. Center slots have none.
func slotEntity(e *mesh.Element, slot int) (entity, bool) {
	switch e.Shape.SlotKind(slot) {
	case shape.EdgeMidpoint, shape.FaceMidpoint:
		return makeEntity(e, e.Shape.SlotCorners(slot)), true
	default:
		return entity{}, false
	}
}

func sideEntity(e *mesh.Element, side int) entity {
	return makeEntity(e, e.Shape.SideCorners(side))
}

// facingSide returns the side of nb with the same corner nodes as side of e.
func facingSide(m *mesh.Mesh, e *mesh.Element, side int, nb mesh.ElemID) int {
	want := sideEntity(e, side)
	other := m.Elem(nb)
	for s := range other.Shape.Sides() {
		if sideEntity(other, s) == want {
			return s
		}
	}
	return -1
}
