package shape

// Reference topology. Corners of 2-D shapes run counter-clockwise. The
// hexahedron numbers the bottom face 0-3 and the top face 4-7 so that
// corner i+4 sits above corner i.

var triEdges = [][2]int{{0, 1}, {1, 2}, {2, 0}}

var quadEdges = [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}

var tetEdges = [][2]int{{0, 1}, {1, 2}, {0, 2}, {0, 3}, {1, 3}, {2, 3}}

var tetFaces = [][]int{{0, 2, 1}, {1, 2, 3}, {0, 3, 2}, {0, 1, 3}}

var hexEdges = [][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
}

var hexFaces = [][]int{
	{0, 3, 2, 1},
	{0, 1, 5, 4},
	{1, 2, 6, 5},
	{2, 3, 7, 6},
	{3, 0, 4, 7},
	{4, 5, 6, 7},
}

// GridCorner returns the lattice position of a corner of a tensor-product
// shape (Quadrilateral or Hexahedron) in {0,1}^dim.
func (s Shape) GridCorner(c int) [3]int {
	switch s {
	case Quadrilateral:
		return quadGrid[c]
	case Hexahedron:
		return hexGrid[c]
	default:
		return [3]int{}
	}
}

var quadGrid = [][3]int{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}

var hexGrid = [][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}
