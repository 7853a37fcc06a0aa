// Package examples builds sample meshes for tests, benchmarks and the mgio
// command.
//
// The samples show:
//   - Structured coarse grids of every shape (Grid)
//   - Uniform and region-driven refinement (Uniform, Region)
//   - Boundary points on the domain sides (WithBoundary)
//
// Available samples are listed by Names and built by Sample.
package examples
