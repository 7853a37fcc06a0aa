package examples

import (
	"fmt"
	"math"

	"github.com/mgio/mgio-go/pkg/mesh"
	"github.com/mgio/mgio-go/pkg/rules"
	"github.com/mgio/mgio-go/pkg/shape"
)

// red returns the regular refinement of s.
func red(s shape.Shape) *rules.Rule {
	r, err := rules.Named(s, "red")
	if err != nil {
		panic(fmt.Sprintf("examples: %v", err))
	}
	return r
}

// Uniform refines every leaf of the finest level with the red rule of its
// shape, levels times.
func Uniform(m *mesh.Mesh, levels int) error {
	for range levels {
		top := m.Levels() - 1
		if _, err := m.RefineLevel(top, func(_ mesh.ElemID, e *mesh.Element) *rules.Rule {
			return red(e.Shape)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Region refines, levels times, the leaves of the finest level whose centroid
// lies within radius of center. Elements next to refined ones are left with
// hanging nodes.
func Region(m *mesh.Mesh, levels int, center [3]float64, radius float64) error {
	for range levels {
		top := m.Levels() - 1
		if _, err := m.RefineLevel(top, func(_ mesh.ElemID, e *mesh.Element) *rules.Rule {
			if distance(Centroid(m, e), center) > radius {
				return nil
			}
			return red(e.Shape)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Centroid returns the average position of the corners of e.
func Centroid(m *mesh.Mesh, e *mesh.Element) [3]float64 {
	var c [3]float64
	for _, id := range e.Corners {
		p := m.Node(id).Pos
		for axis := range c {
			c[axis] += p[axis]
		}
	}
	for axis := range c {
		c[axis] /= float64(len(e.Corners))
	}
	return c
}

func distance(a, b [3]float64) float64 {
	var sum float64
	for axis := range a {
		d := a[axis] - b[axis]
		sum += d * d
	}
	return math.Sqrt(sum)
}
