// Package rules is the catalog of refinement rules.
//
// A rule describes how one element shape subdivides into sons: which new-node
// slots the subdivision populates (the pattern), the shape and corner slots of
// every son, and how each son side is wired, either to a sibling son or to
// the parent side it inherits.
//
// The catalog is built once at package initialisation and never mutated
// afterwards, so lookups need no locking. Rule identifiers are flattened into
// a single integer space across shapes (see Flatten) so a stream can store one
// integer per refined element.
package rules
