package examples

import (
	"fmt"

	"github.com/mgio/mgio-go/pkg/boundary"
	"github.com/mgio/mgio-go/pkg/mesh"
	"github.com/mgio/mgio-go/pkg/shape"
)

// kuhn lists the six tetrahedra of a cube along its main diagonal, by cube
// corner bits (x | y<<1 | z<<2). Neighboring cubes split their shared faces
// the same way, so the result is conforming.
var kuhn = [6][4]int{
	{0, 1, 3, 7},
	{0, 1, 5, 7},
	{0, 2, 3, 7},
	{0, 2, 6, 7},
	{0, 4, 5, 7},
	{0, 4, 6, 7},
}

// Grid builds a structured coarse grid of nx*ny(*nz) unit cells on [0,nx]x[0,ny](x[0,nz]).
// Quadrilaterals and hexahedra use one element per cell, triangles two and
// tetrahedra six. nz is ignored for 2-D shapes.
func Grid(s shape.Shape, nx, ny, nz int) (*mesh.Mesh, error) {
	if nx < 1 || ny < 1 || (s.Dim() == 3 && nz < 1) {
		return nil, fmt.Errorf("examples: grid needs at least one cell per axis, got %dx%dx%d", nx, ny, nz)
	}
	if !s.Valid() {
		return nil, fmt.Errorf("examples: shape %d", s)
	}
	if s.Dim() == 2 {
		nz = 0
	}

	m := mesh.New()
	index := func(i, j, k int) mesh.NodeID {
		return mesh.NodeID((k*(ny+1)+j)*(nx+1) + i)
	}
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				n := mesh.NewNode(shape.Corner, [3]float64{float64(i), float64(j), float64(k)})
				if _, err := m.AddNode(n); err != nil {
					return nil, err
				}
			}
		}
	}

	add := func(s shape.Shape, corners ...mesh.NodeID) error {
		_, err := m.AddElement(mesh.NewElement(s, corners...))
		return err
	}
	cube := func(i, j, k, bits int) mesh.NodeID {
		return index(i+bits&1, j+(bits>>1)&1, k+(bits>>2)&1)
	}

	for k := 0; k < max(nz, 1); k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				var err error
				switch s {
				case shape.Triangle:
					p00, p10, p11, p01 := index(i, j, 0), index(i+1, j, 0), index(i+1, j+1, 0), index(i, j+1, 0)
					if err = add(s, p00, p10, p11); err == nil {
						err = add(s, p00, p11, p01)
					}
				case shape.Quadrilateral:
					err = add(s, index(i, j, 0), index(i+1, j, 0), index(i+1, j+1, 0), index(i, j+1, 0))
				case shape.Tetrahedron:
					for _, t := range kuhn {
						if err = add(s, cube(i, j, k, t[0]), cube(i, j, k, t[1]), cube(i, j, k, t[2]), cube(i, j, k, t[3])); err != nil {
							break
						}
					}
				case shape.Hexahedron:
					corners := make([]mesh.NodeID, 8)
					for c := range corners {
						g := s.GridCorner(c)
						corners[c] = index(i+g[0], j+g[1], k+g[2])
					}
					err = add(s, corners...)
				}
				if err != nil {
					return nil, err
				}
			}
		}
	}
	m.LinkNeighbors()
	return m, nil
}

// Patch ids used by WithBoundary, one per side of the box.
const (
	PatchXMin int32 = iota
	PatchXMax
	PatchYMin
	PatchYMax
	PatchZMin
	PatchZMax
)

// WithBoundary attaches a boundary.PatchPoint to every node on the box
// [0,nx]x[0,ny](x[0,nz]) and installs the patch serializer as the mesh
// geometry, so that refinement places boundary midpoints on the same patch.
// A node on several sides takes the first patch in PatchXMin..PatchZMax order.
func WithBoundary(m *mesh.Mesh, nx, ny, nz int) {
	for id := range m.NodeCount() {
		n := m.Node(mesh.NodeID(id))
		x, y, z := n.Pos[0], n.Pos[1], n.Pos[2]
		var p *boundary.PatchPoint
		switch {
		case x == 0:
			p = &boundary.PatchPoint{Patch: PatchXMin, Local: [2]float64{y, z}}
		case x == float64(nx):
			p = &boundary.PatchPoint{Patch: PatchXMax, Local: [2]float64{y, z}}
		case y == 0:
			p = &boundary.PatchPoint{Patch: PatchYMin, Local: [2]float64{x, z}}
		case y == float64(ny):
			p = &boundary.PatchPoint{Patch: PatchYMax, Local: [2]float64{x, z}}
		case m.Dim() == 3 && z == 0:
			p = &boundary.PatchPoint{Patch: PatchZMin, Local: [2]float64{x, y}}
		case m.Dim() == 3 && z == float64(nz):
			p = &boundary.PatchPoint{Patch: PatchZMax, Local: [2]float64{x, y}}
		}
		if p != nil {
			n.Boundary = p
		}
	}
	m.Geometry = boundary.PatchSerializer{}
}
