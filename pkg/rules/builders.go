package rules

import (
	"strconv"

	"github.com/mgio/mgio-go/pkg/shape"
)

// Rule tables. Only Name, Class and the son shapes/corner slots are written
// by hand; Shape, Index, Pattern and side wiring are filled in by finish.

func triangleRules() []*Rule {
	s := shape.Triangle
	list := []*Rule{
		copyRule(s),
		simplexRed(s),
	}
	for e := 0; e < s.Edges(); e++ {
		list = append(list, bisect(s, e))
	}
	return list
}

func quadRules() []*Rule {
	s := shape.Quadrilateral
	red := &Rule{Name: "red", Class: ClassRed}
	for c := 0; c < 4; c++ {
		lo := s.GridCorner(c)
		red.Sons = append(red.Sons, gridSon(s, lo, [3]int{lo[0] + 1, lo[1] + 1, 0}))
	}

	blueX := &Rule{Name: "blue-e0e2", Class: ClassBlue, Sons: []Son{
		gridSon(s, [3]int{0, 0, 0}, [3]int{1, 2, 0}),
		gridSon(s, [3]int{1, 0, 0}, [3]int{2, 2, 0}),
	}}
	blueY := &Rule{Name: "blue-e1e3", Class: ClassBlue, Sons: []Son{
		gridSon(s, [3]int{0, 0, 0}, [3]int{2, 1, 0}),
		gridSon(s, [3]int{0, 1, 0}, [3]int{2, 2, 0}),
	}}

	list := []*Rule{copyRule(s), red, blueX, blueY}
	for e := 0; e < s.Edges(); e++ {
		list = append(list, quadGreen(e))
	}
	return list
}

func tetRules() []*Rule {
	s := shape.Tetrahedron
	list := []*Rule{
		copyRule(s),
		simplexRed(s),
	}
	for e := 0; e < s.Edges(); e++ {
		list = append(list, bisect(s, e))
	}
	return list
}

func hexRules() []*Rule {
	s := shape.Hexahedron
	red := &Rule{Name: "red", Class: ClassRed}
	for c := 0; c < s.Corners(); c++ {
		lo := s.GridCorner(c)
		red.Sons = append(red.Sons, gridSon(s, lo, [3]int{lo[0] + 1, lo[1] + 1, lo[2] + 1}))
	}
	return []*Rule{copyRule(s), red}
}

func copyRule(s shape.Shape) *Rule {
	corners := make([]int, s.Corners())
	for i := range corners {
		corners[i] = i
	}
	return &Rule{Name: "copy", Class: ClassCopy, Sons: []Son{{Shape: s, Corners: corners}}}
}

// bisect splits a simplex through the midpoint of edge e.
func bisect(s shape.Shape, e int) *Rule {
	ab := s.EdgeCorners(e)
	m := s.EdgeSlot(e)
	first := make([]int, s.Corners())
	second := make([]int, s.Corners())
	for i := range first {
		first[i], second[i] = i, i
	}
	first[ab[1]] = m
	second[ab[0]] = m
	return &Rule{
		Name:  "bisect-e" + strconv.Itoa(e),
		Class: ClassGreen,
		Sons:  []Son{{Shape: s, Corners: first}, {Shape: s, Corners: second}},
	}
}

// simplexRed cuts every edge of a triangle or tetrahedron. Each corner keeps a
// scaled copy of the parent; the remainder is the middle triangle, or the
// octahedron split along the e2-e4 diagonal.
func simplexRed(s shape.Shape) *Rule {
	r := &Rule{Name: "red", Class: ClassRed}
	nc := s.Corners()
	for i := 0; i < nc; i++ {
		corners := make([]int, nc)
		for j := range corners {
			if j == i {
				corners[j] = j
				continue
			}
			corners[j] = s.EdgeSlot(s.EdgeBetween(i, j))
		}
		r.Sons = append(r.Sons, Son{Shape: s, Corners: corners})
	}

	mid := func(a, b int) int { return s.EdgeSlot(s.EdgeBetween(a, b)) }
	if s == shape.Triangle {
		r.Sons = append(r.Sons, Son{Shape: s, Corners: []int{mid(0, 1), mid(1, 2), mid(2, 0)}})
		return r
	}

	d0, d1 := mid(0, 2), mid(1, 3)
	ring := []int{mid(0, 1), mid(1, 2), mid(2, 3), mid(0, 3)}
	for i := range ring {
		r.Sons = append(r.Sons, Son{Shape: s, Corners: []int{d0, d1, ring[i], ring[(i+1)%len(ring)]}})
	}
	return r
}

// quadGreen closes a quadrilateral with a hanging node on edge e using three
// triangles.
func quadGreen(e int) *Rule {
	s := shape.Quadrilateral
	a, b, c, d := e, (e+1)%4, (e+2)%4, (e+3)%4
	m := s.EdgeSlot(e)
	return &Rule{
		Name:  "green-e" + strconv.Itoa(e),
		Class: ClassGreen,
		Sons: []Son{
			{Shape: shape.Triangle, Corners: []int{a, m, d}},
			{Shape: shape.Triangle, Corners: []int{m, b, c}},
			{Shape: shape.Triangle, Corners: []int{m, c, d}},
		},
	}
}

// gridSon builds a tensor-product son spanning [lo, hi] on the half-step
// lattice {0,1,2}^dim of the parent.
func gridSon(s shape.Shape, lo, hi [3]int) Son {
	corners := make([]int, s.Corners())
	for j := range corners {
		g := s.GridCorner(j)
		var p [3]int
		for axis := 0; axis < s.Dim(); axis++ {
			p[axis] = lo[axis] + g[axis]*(hi[axis]-lo[axis])
		}
		corners[j] = gridSlot(s, p)
	}
	return Son{Shape: s, Corners: corners}
}

// gridSlot maps a half-step lattice point to the parent slot located there.
func gridSlot(s shape.Shape, p [3]int) int {
	dim := s.Dim()
	var half []int
	for axis := 0; axis < dim; axis++ {
		if p[axis] == 1 {
			half = append(half, axis)
		}
	}
	if len(half) == dim {
		return s.CenterSlot()
	}

	// Expand every half coordinate to both ends to collect the spanning corners.
	points := [][3]int{p}
	for _, axis := range half {
		var next [][3]int
		for _, q := range points {
			lo, hi := q, q
			lo[axis], hi[axis] = 0, 2
			next = append(next, lo, hi)
		}
		points = next
	}
	corners := make([]int, len(points))
	for i, q := range points {
		corners[i] = gridCornerAt(s, [3]int{q[0] / 2, q[1] / 2, q[2] / 2})
	}

	switch len(half) {
	case 0:
		return corners[0]
	case 1:
		return s.EdgeSlot(s.EdgeBetween(corners[0], corners[1]))
	default:
		return s.FaceSlot(s.FaceWith(corners))
	}
}

func gridCornerAt(s shape.Shape, g [3]int) int {
	for c := 0; c < s.Corners(); c++ {
		if s.GridCorner(c) == g {
			return c
		}
	}
	panic("rules: lattice point is not a corner")
}
