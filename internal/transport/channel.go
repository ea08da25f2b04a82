package transport

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arjakob/caspaxos/internal/envelope"
)

// Network is the shared in-memory registry of per-node inboxes, grounded
// on the teacher's internal/transport.Network sketch: every
// ChannelTransport joined to the same Network can reach every other one.
type Network struct {
	mu      sync.RWMutex
	inboxes map[string]chan envelope.Envelope
}

// NewNetwork creates an empty registry.
func NewNetwork() *Network {
	return &Network{inboxes: make(map[string]chan envelope.Envelope)}
}

// inboxBufferSize is generous enough that a full three-to-five node demo
// or test never drops a message under normal scheduling; Broadcast still
// falls back to a non-blocking drop if a peer's inbox is saturated,
// matching spec.md's best-effort transport.
const inboxBufferSize = 256

// Join registers nodeID with the network and returns its transport. peers
// is the full cluster membership excluding nodeID itself.
func (n *Network) Join(nodeID string, peers []string) *ChannelTransport {
	inbox := make(chan envelope.Envelope, inboxBufferSize)

	n.mu.Lock()
	n.inboxes[nodeID] = inbox
	n.mu.Unlock()

	return &ChannelTransport{
		network: n,
		nodeID:  nodeID,
		peers:   peers,
		inbox:   inbox,
	}
}

func (n *Network) deliver(env envelope.Envelope) error {
	n.mu.RLock()
	inbox, ok := n.inboxes[env.Dest]
	n.mu.RUnlock()
	if !ok {
		return ErrUnknownNode
	}

	select {
	case inbox <- env:
		return nil
	default:
		// Best-effort: drop rather than block a handler goroutine
		// forever on a saturated peer. The protocol tolerates loss.
		return nil
	}
}

// ChannelTransport is the in-process reference Transport, grounded on
// the teacher's MemoryTransport but simplified: membership is fixed at
// construction (spec §3's "set of peer identities is fixed for the
// lifetime of the replica"), so there is no dynamic AddNode/runtime
// discovery to model.
type ChannelTransport struct {
	network *Network
	nodeID  string
	peers   []string

	inbox chan envelope.Envelope

	closeOnce sync.Once
}

func (t *ChannelTransport) NodeID() string { return t.nodeID }

func (t *ChannelTransport) Send(dest string, body envelope.Body) error {
	return t.network.deliver(envelope.Envelope{Src: t.nodeID, Dest: dest, Body: body})
}

// Broadcast fans the send out to every node in the cluster, itself
// included, concurrently via errgroup — grounded on the domain stack's
// wiring of golang.org/x/sync/errgroup for fan-out sends.
func (t *ChannelTransport) Broadcast(body envelope.Body) error {
	targets := make([]string, 0, len(t.peers)+1)
	targets = append(targets, t.nodeID)
	targets = append(targets, t.peers...)

	var g errgroup.Group
	for _, dest := range targets {
		dest := dest
		g.Go(func() error {
			return t.Send(dest, body)
		})
	}
	return g.Wait()
}

func (t *ChannelTransport) Inbound() <-chan envelope.Envelope {
	return t.inbox
}

func (t *ChannelTransport) Close() error {
	t.closeOnce.Do(func() {
		t.network.mu.Lock()
		delete(t.network.inboxes, t.nodeID)
		t.network.mu.Unlock()
	})
	return nil
}
