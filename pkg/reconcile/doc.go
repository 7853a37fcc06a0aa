// Package reconcile merges the replicas of nodes and elements that several
// partitions hold after decoding their own part of a distributed mesh.
//
// Reconciliation runs in two phases. In the open phase every partition
// registers, through an Identifier, each local object that lists peers
// together with the ranks it expects to find the same object on. The commit
// phase is a collective barrier: once every partition has registered, the
// Identifier returns the equivalence classes the registrations formed and the
// Reconciler elects one owner per class. The owner keeps PrioMaster, every
// other replica becomes a PrioCopy that takes over the owner's GID and links
// back to the other replicas.
//
// Election is deterministic: the lowest rank among the replicas that already
// claim PrioMaster wins, and without a claim the lowest rank wins. Running
// Reconcile again on a reconciled mesh therefore changes nothing.
//
// A peer that never registers the object is reported as ErrBrokenIdentity in
// Report.Broken. The local replica is kept without a link to that peer and
// the caller decides whether the mesh is usable.
//
// Exchange is the in-process Identifier used when all partitions live in
// one program; Endpoint(rank) is handed to the worker of each partition.
package reconcile
