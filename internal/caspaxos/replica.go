// Package caspaxos implements the Consensus Handlers and Client Adapter
// (spec §4.4–§4.8): the Propose/Promise/Accept/Accepted protocol and the
// mapping from client Read/Write/Cas operations onto CASPaxos rounds.
// Grounded throughout on original_source/src/cas_paxos.rs, re-expressed
// in the teacher's Go idiom — explicit error returns, methods on a
// *Replica, no panic-as-control-flow except the spec's one intentional
// protocol-violation assertion.
package caspaxos

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/arjakob/caspaxos/internal/ballot"
	"github.com/arjakob/caspaxos/internal/envelope"
	"github.com/arjakob/caspaxos/internal/metrics"
	"github.com/arjakob/caspaxos/internal/role"
	"github.com/arjakob/caspaxos/internal/statemachine"
	"github.com/arjakob/caspaxos/internal/transport"
)

// Replica is the single long-running core described in spec §2: it owns
// the three guarded resources (ballot counter, role, state machine) and
// implements dispatcher.Handler over inbound envelopes.
type Replica struct {
	nodeID  string
	peers   []string
	quorum  int
	trans   transport.Transport
	logger  *zap.Logger
	metrics *metrics.Registry

	ballots *ballot.Counter
	role    *role.Container

	smMu sync.Mutex
	sm   *statemachine.KV

	nextMsgID atomic.Int64
}

// New builds a Replica in the initial Acceptor role, addressed by
// t.NodeID(), with peers as the rest of the fixed cluster membership
// (spec §3: "set of peer identities is fixed for the lifetime of the
// replica"). quorumOverride, if positive, replaces the computed strict
// majority (internal/config exposes this as an escape hatch for tests
// and operators; 0 means "compute it").
func New(t transport.Transport, peers []string, logger *zap.Logger, m *metrics.Registry, quorumOverride int) *Replica {
	nodeID := t.NodeID()
	quorum := quorumOverride
	if quorum <= 0 {
		quorum = majority(len(peers) + 1)
	}
	return &Replica{
		nodeID:  nodeID,
		peers:   peers,
		quorum:  quorum,
		trans:   t,
		logger:  logger,
		metrics: m,
		ballots: ballot.NewCounter(nodeID),
		role:    role.NewContainer(),
		sm:      statemachine.New(),
	}
}

// majority is ⌊(clusterSize)/2⌋ + 1 (spec §4.5): a strict majority of
// the full membership, self included.
func majority(clusterSize int) int {
	return clusterSize/2 + 1
}

func (r *Replica) newMsgID() int64 {
	return r.nextMsgID.Add(1)
}

// Handle implements dispatcher.Handler. It is the Message Dispatcher's
// routing table (spec §4.3), dispatching purely on the inner body kind.
func (r *Replica) Handle(env envelope.Envelope) {
	switch body := env.Body.Inner.(type) {
	case envelope.Init:
		r.handleInit(env)
	case envelope.Read, envelope.Write, envelope.Cas:
		r.propose(env)
	case envelope.Proxy:
		r.handleProxy(env)
	case envelope.Propose:
		r.promise(env, body)
	case envelope.Promise:
		r.handlePromise(env, body)
	case envelope.Accept:
		r.accept(env, body)
	case envelope.Accepted:
		r.handleAccepted(env, body)
	case envelope.Error:
		r.logger.Info("received error reply",
			zap.String("from", env.Src),
			zap.String("code", string(body.Code)),
			zap.String("text", body.Text),
		)
	case envelope.InitOk, envelope.ReadOk, envelope.WriteOk, envelope.CasOk:
		r.logger.Error("protocol violation: received an ack body meant for a client",
			zap.String("from", env.Src),
			zap.String("kind", body.Kind()),
		)
		panic(fmt.Sprintf("caspaxos: replica received unexpected ack body %q from %s", body.Kind(), env.Src))
	default:
		panic(fmt.Sprintf("caspaxos: unhandled body kind %T", body))
	}
}

func (r *Replica) handleInit(env envelope.Envelope) {
	r.reply(env, envelope.InitOk{})
}

// handleProxy unwraps a Proxy envelope and re-enters Handle with the
// original message untouched, so its Src is preserved as the eventual
// reply destination (spec §4.8, §9's "envelope rewrite with preserved
// original src").
func (r *Replica) handleProxy(env envelope.Envelope) {
	proxy := env.Body.Inner.(envelope.Proxy)
	r.Handle(proxy.ProxiedMsg)
}

// reply sends inner back to the envelope's sender, addressed as a reply
// to its msg_id.
func (r *Replica) reply(env envelope.Envelope, inner envelope.Message) {
	body := envelope.Body{
		MsgID:     r.newMsgID(),
		InReplyTo: env.Body.MsgID,
		Inner:     inner,
	}
	if err := r.trans.Send(env.Src, body); err != nil {
		r.logger.Info("send failed", zap.String("dest", env.Src), zap.Error(err))
	}
}

func (r *Replica) rejectBallot(env envelope.Envelope) {
	r.metrics.BallotRejectionsTotal.Inc()
	r.reply(env, envelope.Error{
		Code: envelope.PreconditionFailed,
		Text: "expected a greater ballot number",
	})
}
