// Package ballot implements the replica's ballot number and the atomic
// counter guarding it (spec §3, §4.1).
//
// A Ballot is the pair (Number, NodeID) compared lexicographically, per
// the spec's mandated pair scheme (§9): Number first, NodeID as a
// deterministic tiebreaker. This is the safe scheme; the numeric-only
// variant is not implemented because two proposers incrementing from the
// same value could then produce equal ballots with different node
// identities mapping to the same number.
package ballot

import (
	"fmt"
	"sync"
)

// Ballot totally orders proposals across the cluster.
type Ballot struct {
	Number uint64
	NodeID string
}

// Zero is the ballot no real proposal ever uses; it compares less than
// every ballot with Number > 0.
var Zero = Ballot{}

// IsZero reports whether b is the zero ballot.
func (b Ballot) IsZero() bool {
	return b.Number == 0
}

// Less reports whether b sorts strictly before other.
func (b Ballot) Less(other Ballot) bool {
	if b.Number != other.Number {
		return b.Number < other.Number
	}
	return b.NodeID < other.NodeID
}

// Equal reports whether b and other are the same ballot.
func (b Ballot) Equal(other Ballot) bool {
	return b.Number == other.Number && b.NodeID == other.NodeID
}

// String renders the ballot for logs, e.g. "7@n2".
func (b Ballot) String() string {
	return fmt.Sprintf("%d@%s", b.Number, b.NodeID)
}

// Counter is the per-replica monotonic ballot generator described in
// §4.1: Current reads the stored value, Next advances it atomically,
// TryAdvance folds in a ballot seen from elsewhere via monotone max, and
// IsStale compares against it without mutating it. A
// single mutex is sufficient — the pattern is the teacher's single
// exclusion domain, generalized from an int64 round counter
// (internal/paxos/proposer.go's highestRound) to the spec's ballot pair.
type Counter struct {
	mu      sync.Mutex
	highest Ballot
	nodeID  string
}

// NewCounter creates a counter for the replica identified by nodeID.
func NewCounter(nodeID string) *Counter {
	return &Counter{nodeID: nodeID}
}

// Current returns the highest ballot this replica has seen or generated,
// without advancing it.
func (c *Counter) Current() Ballot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highest
}

// Next advances the stored ballot to one strictly greater than the
// current highest and returns it. The new ballot always carries this
// replica's node id, so concurrent Next calls on different replicas
// never collide even if their Number happens to coincide.
func (c *Counter) Next() Ballot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.highest = Ballot{Number: c.highest.Number + 1, NodeID: c.nodeID}
	return c.highest
}

// IsStale reports whether b is strictly less than the stored highest,
// without mutating it. Used by handlers that must reject a ballot but
// never advance highest_known_ballot on their own (spec §4.6's Accept
// handler, and the proposer's own check on an incoming Promise).
func (c *Counter) IsStale(b Ballot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return b.Less(c.highest)
}

// TryAdvance is the Promise handler's combined check-and-set (spec
// §4.4): if b is stale, it reports false and leaves highest untouched.
// Otherwise it sets highest := b — even when b equals the current
// highest, the idempotent-renewal case the spec's contract explicitly
// permits — and reports true.
func (c *Counter) TryAdvance(b Ballot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b.Less(c.highest) {
		return false
	}
	c.highest = b
	return true
}
