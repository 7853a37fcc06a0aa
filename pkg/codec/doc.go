// Package codec writes meshes to streams and reads them back.
//
// Encode writes the coarse grid once and every refinement after it, one
// frame per root element, so that the hierarchy can be rebuilt level by level
// without holding the whole stream in memory. Decode reverses it and rebuilds
// neighbor links and shared midpoints as it goes.
//
// # Shared Midpoints
//
// A midpoint on an edge or face shared by several elements is written once.
// Which element writes it is the canonicity policy (see Canonical); the
// others write an absent slot that the reader resolves from the shared
// entity. With ResolveStrict the entity must already be known when the
// absent slot is read. ResolveDeferred reads every tree first and retries
// until nothing more can be resolved, which accepts streams written with any
// policy.
//
// # Errors
//
// Every error returned is an *Error naming the operation and stream section.
// Classify with errors.Is against ErrIO, ErrCorruptData,
// ErrDanglingNodeReference and rules.ErrUnknownRule. A failed decode never
// returns a partial mesh.
package codec
