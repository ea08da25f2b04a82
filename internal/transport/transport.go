// Package transport defines the replica's view of the node transport:
// a channel abstraction with send(dest, body)/broadcast(body) and an
// inbound queue (spec §1, §6). spec.md treats the transport as an
// external collaborator; this package still ships a reference
// implementation (ChannelTransport) so the core is runnable in-process,
// the same way the teacher ships internal/transport.MemoryTransport
// alongside the Transport interface it's built from.
package transport

import (
	"errors"

	"github.com/arjakob/caspaxos/internal/envelope"
)

// ErrUnknownNode is returned by Send when dest names no known peer.
var ErrUnknownNode = errors.New("transport: unknown destination node")

// ErrClosed is the error value for a closed transport. Neither
// ChannelTransport nor StdioTransport returns it: a closed
// ChannelTransport only stops receiving, and StdioTransport's Close does
// nothing.
var ErrClosed = errors.New("transport: closed")

// Transport is everything the dispatcher and the consensus handlers need
// from the node transport. Send and Broadcast fill in the envelope's src
// themselves; callers only supply the dest (for Send) and the body.
type Transport interface {
	// NodeID returns this transport's own node identity.
	NodeID() string

	// Send delivers body to dest, wrapped in an envelope addressed from
	// this node. Delivery is best-effort: a lost message is tolerated by
	// the protocol, never retried here (spec §7).
	Send(dest string, body envelope.Body) error

	// Broadcast delivers body to every node in the fixed membership,
	// this node included.
	Broadcast(body envelope.Body) error

	// Inbound is this node's queue of envelopes addressed to it.
	Inbound() <-chan envelope.Envelope

	// Close releases the transport's resources.
	Close() error
}
