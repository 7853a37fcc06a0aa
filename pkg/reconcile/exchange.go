package reconcile

import (
	"context"
	"fmt"
	"sync"
)

// Exchange binds the registrations of a fixed number of in-process
// partitions. Each identify round is a barrier: EndIdentify returns once all
// partitions have called it.
type Exchange struct {
	parts int

	mu    sync.Mutex
	round *round
}

type round struct {
	arrived int
	regs    []map[classKey]Replica
	in      []bool
	done    chan struct{}
}

func newRound(parts int) *round {
	return &round{
		regs: make([]map[classKey]Replica, parts),
		in:   make([]bool, parts),
		done: make(chan struct{}),
	}
}

// NewExchange creates an exchange for parts partitions.
func NewExchange(parts int) *Exchange {
	if parts < 1 {
		parts = 1
	}
	return &Exchange{parts: parts, round: newRound(parts)}
}

// Parts returns the number of partitions taking part in every round.
func (x *Exchange) Parts() int {
	return x.parts
}

// Endpoint returns the Identifier for partition rank. It panics if rank is
// out of range.
func (x *Exchange) Endpoint(rank int) *Endpoint {
	if rank < 0 || rank >= x.parts {
		panic(fmt.Sprintf("reconcile: rank %d out of range [0, %d)", rank, x.parts))
	}
	return &Endpoint{x: x, rank: rank}
}

// submit enters regs for rank into the current round and returns it.
func (x *Exchange) submit(rank int, regs map[classKey]Replica) (*round, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	r := x.round
	if r.in[rank] {
		return nil, fmt.Errorf("reconcile: rank %d already waiting", rank)
	}
	r.in[rank] = true
	r.regs[rank] = regs
	r.arrived++
	if r.arrived == x.parts {
		close(r.done)
		x.round = newRound(x.parts)
	}
	return r, nil
}

// withdraw removes rank from r unless the round already completed.
func (x *Exchange) withdraw(r *round, rank int) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	select {
	case <-r.done:
		return false
	default:
	}
	r.in[rank] = false
	r.regs[rank] = nil
	r.arrived--
	return true
}

// Endpoint is one partition's view of an Exchange. It is not safe for
// concurrent use; each partition worker owns its endpoint.
type Endpoint struct {
	x    *Exchange
	rank int

	open bool
	regs map[classKey]Replica
}

// Rank returns the partition the endpoint registers for.
func (p *Endpoint) Rank() int {
	return p.rank
}

// BeginIdentify opens the registration phase.
func (p *Endpoint) BeginIdentify() error {
	if p.open {
		return ErrAlreadyOpen
	}
	p.open = true
	p.regs = make(map[classKey]Replica)
	return nil
}

// RegisterPair registers local as expected on peer. The replica is stamped
// with the endpoint's rank. Registering the same object for several peers
// keeps a single replica.
func (p *Endpoint) RegisterPair(local Replica, peer int) error {
	if !p.open {
		return ErrNotOpen
	}
	if peer < 0 || peer >= p.x.parts {
		return fmt.Errorf("reconcile: %s %d: peer rank %d out of range [0, %d)",
			local.Kind, local.Key, peer, p.x.parts)
	}
	local.Rank = p.rank
	p.regs[classKey{local.Kind, local.Key}] = local
	return nil
}

// EndIdentify waits for every partition to end its registration and returns
// the classes of the locally registered keys. If ctx ends first, the
// registrations are withdrawn and the phase stays open so that it can be
// retried.
func (p *Endpoint) EndIdentify(ctx context.Context) ([]Class, error) {
	if !p.open {
		return nil, ErrNotOpen
	}
	r, err := p.x.submit(p.rank, p.regs)
	if err != nil {
		return nil, err
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		if p.x.withdraw(r, p.rank) {
			return nil, ctx.Err()
		}
		// The round completed while we were being cancelled.
	}

	p.open = false
	mine := p.regs
	p.regs = nil

	classes := make([]Class, 0, len(mine))
	for key := range mine {
		c := Class{Kind: key.kind, Key: key.key}
		for _, regs := range r.regs {
			if rep, ok := regs[key]; ok {
				c.Replicas = append(c.Replicas, rep)
			}
		}
		classes = append(classes, c)
	}
	sortClasses(classes)
	return classes, nil
}
