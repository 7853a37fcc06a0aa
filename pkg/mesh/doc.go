// Package mesh holds the in-memory multi-level mesh.
//
// Nodes and elements live in arenas owned by the Mesh and are referenced by
// integer handles (NodeID, ElemID) rather than pointers. Handles stay valid for
// the lifetime of the Mesh; Dispose releases every record at once.
//
// Every node and element also carries a global identifier (GID) that is
// unique across the whole distributed mesh. The Mesh keeps GID lookup tables
// so decoders and the reconciler can resolve cross references by GID.
//
// # Shared Midpoints
//
// A midpoint created on an edge or face belongs to that entity, not to the
// element that refined it. The Mesh keys midpoints by the set of corner nodes
// spanning the entity, so a second element refining the same edge reuses the
// existing node instead of creating a new one.
//
// # Levels
//
// Level 0 holds the coarse grid. Level k holds the sons produced by refining
// level k-1 elements, plus orphans: elements whose parent lives on another
// partition.
package mesh
