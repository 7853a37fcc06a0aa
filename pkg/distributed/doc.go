// Package distributed saves and loads meshes split across partitions.
//
// Split cuts a serial mesh into partition meshes. Save encodes every
// partition in its own goroutine, and Load decodes them the same way before
// the partitions meet at the reconcile barrier, where replicated nodes and
// elements agree on one GID and one owner.
//
// Decoding inside a partition is sequential and touches only that
// partition's mesh. The reconcile exchange is the only point where the
// workers wait for each other.
//
// # Node GIDs
//
// A decoder numbers the coarse points of its stream from a node GID offset.
// Load gives every partition its own range above the largest node identity
// of all streams, so replicas of a boundary node decode with distinct GIDs
// and reconciliation replaces them with the owner's.
package distributed
