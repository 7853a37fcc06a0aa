package examples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgio/mgio-go/pkg/boundary"
	"github.com/mgio/mgio-go/pkg/mesh"
	"github.com/mgio/mgio-go/pkg/shape"
)

func TestGridCounts(t *testing.T) {
	tests := []struct {
		shape    shape.Shape
		nodes    int
		elements int
	}{
		{shape.Triangle, 9, 8},
		{shape.Quadrilateral, 9, 4},
		{shape.Tetrahedron, 27, 48},
		{shape.Hexahedron, 27, 8},
	}

	for _, tt := range tests {
		t.Run(tt.shape.String(), func(t *testing.T) {
			m, err := Grid(tt.shape, 2, 2, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.nodes, m.NodeCount())
			assert.Equal(t, tt.elements, m.ElemCount())
			assert.NoError(t, m.Validate())
		})
	}
}

func TestGridNeighbors(t *testing.T) {
	m, err := Grid(shape.Quadrilateral, 2, 1, 0)
	require.NoError(t, err)

	left, right := m.Elem(0), m.Elem(1)
	// Edge 1 of the left cell is edge 3 of the right one.
	assert.Equal(t, mesh.ElemID(1), left.Neighbors[1])
	assert.Equal(t, mesh.ElemID(0), right.Neighbors[3])
	assert.Equal(t, mesh.NoElem, left.Neighbors[3])
}

func TestGridRejectsEmpty(t *testing.T) {
	_, err := Grid(shape.Hexahedron, 1, 1, 0)
	assert.Error(t, err)
}

func TestUniform(t *testing.T) {
	m, err := Grid(shape.Hexahedron, 1, 1, 1)
	require.NoError(t, err)
	require.NoError(t, Uniform(m, 2))

	assert.Equal(t, 3, m.Levels())
	assert.Len(t, m.Level(2), 64)
	// A 4x4x4 lattice of cells has 5^3 nodes.
	assert.Equal(t, 125, m.NodeCount())
	assert.NoError(t, m.Validate())
}

func TestRegion(t *testing.T) {
	m, err := Grid(shape.Quadrilateral, 4, 4, 0)
	require.NoError(t, err)
	require.NoError(t, Region(m, 1, [3]float64{}, 1))

	st := m.Stats()
	assert.Equal(t, 1, st.Levels[0].Refined)
	assert.Equal(t, 4, st.Levels[1].Elements)
}

func TestWithBoundary(t *testing.T) {
	m, err := Grid(shape.Triangle, 2, 2, 0)
	require.NoError(t, err)
	WithBoundary(m, 2, 2, 0)
	require.NoError(t, Uniform(m, 1))

	var onBoundary int
	for id := range m.NodeCount() {
		n := m.Node(mesh.NodeID(id))
		if n.Boundary == nil {
			continue
		}
		onBoundary++
		if n.Pos[0] == 2 && n.Pos[1] > 0 && n.Pos[1] < 2 {
			assert.Equal(t, PatchXMax, n.Boundary.PatchID())
		}
	}
	// 8 coarse boundary nodes plus the midpoints of the four x-side edges.
	// Edges along y=0 and y=2 end on different patches.
	assert.Equal(t, 12, onBoundary)
	assert.IsType(t, boundary.PatchSerializer{}, m.Geometry)
}

func TestSamples(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			m, err := Sample(name, SampleConfig{Cells: 2, Levels: 2})
			require.NoError(t, err)
			assert.NotZero(t, m.ElemCount())
			assert.NoError(t, m.Validate())
		})
	}

	_, err := Sample("nope", SampleConfig{})
	assert.Error(t, err)
}
