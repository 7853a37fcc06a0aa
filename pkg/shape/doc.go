// Package shape defines the element shapes a mesh can hold and their
// reference topology.
//
// A Shape is a closed set of tags. Every table in this package is indexed by
// the tag and switches over it exhaustively, so adding a shape means adding
// one case to each switch.
//
// # Node Slots
//
// Refinement rules address nodes by slot. For a shape with nc corners,
// ne edges and nf faces the slot layout is:
//
//	[0, nc)                 corners
//	[nc, nc+ne)             edge midpoints (edge k at nc+k)
//	[nc+ne, nc+ne+nf)       face midpoints (3-D shapes only)
//	nc+ne+nf                interior center
//
// Slots from nc upward are "new-node" slots; a rule's pattern bitmask uses
// bit i for slot nc+i.
package shape
