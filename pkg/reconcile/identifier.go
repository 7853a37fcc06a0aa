package reconcile

import (
	"context"
	"errors"
	"sort"

	"github.com/mgio/mgio-go/pkg/mesh"
)

// Reconciliation errors.
var (
	ErrBrokenIdentity = errors.New("peer never registered the replica")
	ErrNotOpen        = errors.New("identify phase not open")
	ErrAlreadyOpen    = errors.New("identify phase already open")
	ErrNoMesh         = errors.New("no mesh to reconcile")
)

// Kind tells nodes and elements apart. Keys of different kinds never match.
type Kind uint8

const (
	KindNode    Kind = 0
	KindElement Kind = 1
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNode:
		return "NODE"
	case KindElement:
		return "ELEMENT"
	default:
		return "UNKNOWN"
	}
}

// Replica is one partition's copy of a replicated object as seen during
// identification.
type Replica struct {
	Kind Kind

	// Key is the identity the replicas share: the node Key or the element GID.
	Key int64

	// GID is the local global identifier of the copy.
	GID int64

	Rank     int
	Priority mesh.Priority
}

// Class is the set of replicas registered for one object, ordered by rank.
type Class struct {
	Kind     Kind
	Key      int64
	Replicas []Replica
}

// Has reports whether rank registered a replica in the class.
func (c *Class) Has(rank int) bool {
	for _, r := range c.Replicas {
		if r.Rank == rank {
			return true
		}
	}
	return false
}

// Owner returns the elected owner: the lowest rank among the replicas with
// PrioMaster, or the lowest rank when none claims it.
func (c *Class) Owner() Replica {
	var owner Replica
	found, master := false, false
	for _, r := range c.Replicas {
		claims := r.Priority == mesh.PrioMaster
		switch {
		case !found:
		case claims && !master:
		case claims == master && r.Rank < owner.Rank:
		default:
			continue
		}
		owner, found, master = r, true, claims
	}
	return owner
}

// Identifier is the distributed runtime that binds registered replicas into
// classes.
//
// A partition calls BeginIdentify, registers every replica it holds once per
// peer rank, then calls EndIdentify. EndIdentify blocks until every partition
// has finished registering and returns the classes of the keys registered
// locally.
type Identifier interface {
	BeginIdentify() error
	RegisterPair(local Replica, peer int) error
	EndIdentify(ctx context.Context) ([]Class, error)
}

type classKey struct {
	kind Kind
	key  int64
}

func sortClasses(classes []Class) {
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Kind != classes[j].Kind {
			return classes[i].Kind < classes[j].Kind
		}
		return classes[i].Key < classes[j].Key
	})
	for _, c := range classes {
		sort.Slice(c.Replicas, func(i, j int) bool { return c.Replicas[i].Rank < c.Replicas[j].Rank })
	}
}
