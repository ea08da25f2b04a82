// Package role implements the Role Container (spec §4.2): the closed
// sum Acceptor | Proposer plus the single mutual-exclusion domain that
// guards it. Grounded on the teacher's Role sketch
// (internal/paxos/acceptor.go's header comments) and on Node's
// single-mutex discipline (internal/node/node.go), but re-specified for
// CASPaxos: a Proposer here carries a pending client op and a full
// per-round promise/acceptance bookkeeping set, not a multi-Paxos
// accepted-proposal/accepted-value pair.
package role

import (
	"sync"

	"github.com/arjakob/caspaxos/internal/ballot"
	"github.com/arjakob/caspaxos/internal/envelope"
)

// Role is the closed sum. Exhaustive type switches (never an
// inheritance hierarchy) are how callers pattern-match it, per spec §9.
type Role interface {
	isRole()
}

// Acceptor is the initial, passive role.
type Acceptor struct{}

func (Acceptor) isRole() {}

// PromiseRecord is one (node, ballot, state) triple collected by a
// proposer during the promise phase.
type PromiseRecord struct {
	NodeID string
	Ballot ballot.Ballot
	Value  map[string]int64
}

// Proposer carries all per-round bookkeeping for an in-flight CASPaxos
// round (spec §3).
type Proposer struct {
	// Op is the client operation this round is trying to apply.
	Op envelope.Envelope

	// LastAcceptBroadcast is the ballot at which this proposer last
	// broadcast Accept, or the zero ballot if it never has. It MUST be
	// carried over verbatim across a fresh propose() call while already
	// a Proposer (spec §4.5, §9) so a stale, lower-ballot Promise flood
	// can never re-trigger a duplicate Accept broadcast.
	LastAcceptBroadcast ballot.Ballot

	// Promises collects (src, ballot, state) for the in-flight ballot.
	Promises []PromiseRecord

	// Acceptances records which nodes have sent Accepted for
	// LastAcceptBroadcast.
	Acceptances map[string]struct{}

	// PendingClientReply is stashed once majority promises are reached
	// and apply() has run; delivered to the client once a majority of
	// Accepted arrives. Its presence guards exactly-once delivery.
	PendingClientReply *envelope.Body
}

func (*Proposer) isRole() {}

// Container is the single mutual-exclusion domain guarding Role. Callers
// must hold Lock for the entire read-modify-write of proposer
// bookkeeping and release it before any transport send (spec §5).
type Container struct {
	mu      sync.Mutex
	current Role
}

// NewContainer returns a Container initialized to Acceptor, the spec's
// required starting role.
func NewContainer() *Container {
	return &Container{current: Acceptor{}}
}

// Lock acquires the role's mutual-exclusion domain.
func (c *Container) Lock() { c.mu.Lock() }

// Unlock releases it.
func (c *Container) Unlock() { c.mu.Unlock() }

// Current returns the role in effect. The caller must hold Lock.
func (c *Container) Current() Role { return c.current }

// Set installs a new role. The caller must hold Lock.
func (c *Container) Set(r Role) { c.current = r }

// BeginPropose transitions Acceptor -> Proposer (or Proposer -> Proposer)
// for a fresh client op, preserving LastAcceptBroadcast across the
// transition per spec §4.2/§4.5/§9. The caller must hold Lock.
func (c *Container) BeginPropose(op envelope.Envelope) *Proposer {
	carried := ballot.Zero
	if p, ok := c.current.(*Proposer); ok {
		carried = p.LastAcceptBroadcast
	}
	next := &Proposer{
		Op:                  op,
		LastAcceptBroadcast: carried,
		Acceptances:         make(map[string]struct{}),
	}
	c.current = next
	return next
}
