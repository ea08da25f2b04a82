package caspaxos

import (
	"go.uber.org/zap"

	"github.com/arjakob/caspaxos/internal/ballot"
	"github.com/arjakob/caspaxos/internal/envelope"
	"github.com/arjakob/caspaxos/internal/role"
)

// promise is the acceptor-side handler for Propose{B} (spec §4.4),
// grounded on cas_paxos.rs's promise().
func (r *Replica) promise(env envelope.Envelope, msg envelope.Propose) {
	b := ballot.Ballot{Number: msg.BallotNumber, NodeID: msg.BallotNode}

	if !r.ballots.TryAdvance(b) {
		r.logger.Info("rejecting stale propose", zap.String("from", env.Src), zap.String("ballot", b.String()))
		r.rejectBallot(env)
		return
	}
	r.metrics.HighestKnownBallot.Set(float64(b.Number))

	r.smMu.Lock()
	snapshot := r.sm.Snapshot()
	r.smMu.Unlock()

	r.metrics.PromisesTotal.Inc()
	r.logger.Debug("promising", zap.String("to", env.Src), zap.String("ballot", b.String()))
	r.reply(env, envelope.Promise{
		BallotNumber: b.Number,
		BallotNode:   b.NodeID,
		Value:        snapshot,
	})
}

// accept is the acceptor-side handler for Accept{B, S} (spec §4.6),
// grounded on cas_paxos.rs's accept(). A replica currently acting as a
// Proposer does not accept during its own in-flight round (spec §9).
func (r *Replica) accept(env envelope.Envelope, msg envelope.Accept) {
	r.role.Lock()
	_, isProposer := r.role.Current().(*role.Proposer)
	r.role.Unlock()
	if isProposer {
		return
	}

	b := ballot.Ballot{Number: msg.BallotNumber, NodeID: msg.BallotNode}
	if r.ballots.IsStale(b) {
		r.logger.Info("rejecting stale accept", zap.String("from", env.Src), zap.String("ballot", b.String()))
		r.rejectBallot(env)
		return
	}

	sm, err := statemachineFromWire(msg.Value)
	if err != nil {
		r.logger.Error("decoding accept value", zap.Error(err))
		return
	}

	r.smMu.Lock()
	r.sm = sm
	r.smMu.Unlock()

	r.metrics.AcceptsTotal.Inc()
	r.logger.Debug("accepted", zap.String("ballot", b.String()))
	r.reply(env, envelope.Accepted{BallotNumber: b.Number, BallotNode: b.NodeID})
}
