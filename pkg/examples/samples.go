package examples

import (
	"fmt"
	"sort"

	"github.com/mgio/mgio-go/pkg/mesh"
	"github.com/mgio/mgio-go/pkg/rules"
	"github.com/mgio/mgio-go/pkg/shape"
)

// SampleConfig sizes a sample.
type SampleConfig struct {
	// Cells per axis of the coarse grid.
	Cells int

	// Levels of refinement applied on top of the coarse grid.
	Levels int
}

type builder func(cfg SampleConfig) (*mesh.Mesh, error)

var samples = map[string]builder{
	"tri":      uniform(shape.Triangle),
	"quad":     uniform(shape.Quadrilateral),
	"tet":      uniform(shape.Tetrahedron),
	"hex":      uniform(shape.Hexahedron),
	"quad-hot": region(shape.Quadrilateral),
	"hex-hot":  region(shape.Hexahedron),
	"annulus":  annulus,
	"closure":  closure,
}

// Names returns the sample names in sorted order.
func Names() []string {
	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sample builds the named sample.
func Sample(name string, cfg SampleConfig) (*mesh.Mesh, error) {
	b, ok := samples[name]
	if !ok {
		return nil, fmt.Errorf("examples: unknown sample %q (have %v)", name, Names())
	}
	if cfg.Cells < 1 {
		cfg.Cells = 2
	}
	if cfg.Levels < 0 {
		return nil, fmt.Errorf("examples: negative level count %d", cfg.Levels)
	}
	return b(cfg)
}

func uniform(s shape.Shape) builder {
	return func(cfg SampleConfig) (*mesh.Mesh, error) {
		m, err := Grid(s, cfg.Cells, cfg.Cells, cfg.Cells)
		if err != nil {
			return nil, err
		}
		return m, Uniform(m, cfg.Levels)
	}
}

// region refines around the lower left corner of the box.
func region(s shape.Shape) builder {
	return func(cfg SampleConfig) (*mesh.Mesh, error) {
		m, err := Grid(s, cfg.Cells, cfg.Cells, cfg.Cells)
		if err != nil {
			return nil, err
		}
		return m, Region(m, cfg.Levels, [3]float64{}, float64(cfg.Cells)/2)
	}
}

// annulus is a triangle grid with boundary points on every side.
func annulus(cfg SampleConfig) (*mesh.Mesh, error) {
	m, err := Grid(shape.Triangle, cfg.Cells, cfg.Cells, 0)
	if err != nil {
		return nil, err
	}
	WithBoundary(m, cfg.Cells, cfg.Cells, 0)
	return m, Uniform(m, cfg.Levels)
}

// closure refines the first quadrilateral of each level with the red rule
// and closes its hanging nodes in the neighbors with green rules.
func closure(cfg SampleConfig) (*mesh.Mesh, error) {
	m, err := Grid(shape.Quadrilateral, cfg.Cells, cfg.Cells, 0)
	if err != nil {
		return nil, err
	}
	for range cfg.Levels {
		top := m.Levels() - 1
		var hot mesh.ElemID = mesh.NoElem
		for _, id := range m.Level(top) {
			if e := m.Elem(id); e.Shape == shape.Quadrilateral && !e.Refined() {
				hot = id
				break
			}
		}
		if hot == mesh.NoElem {
			break
		}
		if _, err := m.Refine(hot, red(shape.Quadrilateral)); err != nil {
			return nil, err
		}
		for side, nb := range m.Elem(hot).Neighbors {
			if nb == mesh.NoElem || m.Elem(nb).Refined() || m.Elem(nb).Shape != shape.Quadrilateral {
				continue
			}
			e := m.Elem(hot)
			back := facing(m, e, side, nb)
			if back < 0 {
				continue
			}
			g, err := rules.Named(shape.Quadrilateral, fmt.Sprintf("green-e%d", back))
			if err != nil {
				return nil, err
			}
			if _, err := m.Refine(nb, g); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// facing returns the edge of nb shared with side of e, or -1.
func facing(m *mesh.Mesh, e *mesh.Element, side int, nb mesh.ElemID) int {
	ec := e.Shape.SideCorners(side)
	a, b := e.Corners[ec[0]], e.Corners[ec[1]]
	other := m.Elem(nb)
	for s := range other.Shape.Sides() {
		sc := other.Shape.SideCorners(s)
		x, y := other.Corners[sc[0]], other.Corners[sc[1]]
		if (x == a && y == b) || (x == b && y == a) {
			return s
		}
	}
	return -1
}
