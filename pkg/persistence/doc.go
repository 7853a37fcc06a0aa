// Package persistence stores a partitioned mesh as a directory of streams.
//
// Every partition is written to its own file. A JSON manifest next to them
// records the save session, the partition count and, per file, its size and
// BLAKE2b-256 digest. Files are verified against the manifest before they
// are read, so a damaged or swapped partition is reported as corrupt data
// instead of being decoded.
package persistence
