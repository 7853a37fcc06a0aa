// Package wire defines the binary layout of mesh streams.
//
// A stream is a sequence of length-prefixed frames (4-byte big-endian length
// followed by the payload). Every payload is one CBOR (RFC 8949) record with
// integer keys for compactness.
//
// # Stream Layout
//
//	HEADER    one Header
//	COARSE    one CoarseSection: points, root elements, boundary blobs
//	TREE      one TreeFrame per root element, in root order
//	IDENTIFY  one IdentifySection
//	TRAILER   one Trailer
//
// A TreeFrame holds the refinement records of one root element in pre-order:
// the record of an element is followed by the subtrees of its sons in rule
// order. Leaves have a record too, so a frame can be parsed without lookahead.
//
// # Node References
//
// Nodes created by refinement are referenced by a stream identifier. A slot
// record with Ident NoIdent is absent: the node sits on an edge or face that
// another element refined, and the reader resolves it from that element.
package wire
