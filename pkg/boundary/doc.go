// Package boundary defines the boundary-geometry collaborator.
//
// Nodes on the domain boundary carry an opaque Point supplied by the geometry
// module instead of (or in addition to) a plain position. The codec never
// looks inside a Point: it asks a Serializer for a blob on encode and for a
// Point on decode.
//
// PatchPoint and PatchSerializer are a reference implementation that stores a
// patch id plus local coordinates as CBOR.
package boundary
