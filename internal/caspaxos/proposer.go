package caspaxos

import (
	"go.uber.org/zap"

	"github.com/arjakob/caspaxos/internal/ballot"
	"github.com/arjakob/caspaxos/internal/envelope"
	"github.com/arjakob/caspaxos/internal/role"
)

// propose starts a fresh round for a client-originated Read/Write/Cas
// envelope (spec §4.5). The role transition preserves last_accept_broadcast
// across rounds via role.Container.BeginPropose; only afterwards does the
// replica mint and broadcast the new ballot.
func (r *Replica) propose(clientEnv envelope.Envelope) {
	r.role.Lock()
	r.role.BeginPropose(clientEnv)
	r.role.Unlock()

	b := r.ballots.Next()
	r.metrics.ProposalsTotal.Inc()
	r.metrics.HighestKnownBallot.Set(float64(b.Number))
	r.logger.Debug("proposing", zap.String("ballot", b.String()), zap.String("op", clientEnv.Body.Inner.Kind()))

	body := envelope.Body{
		MsgID: r.newMsgID(),
		Inner: envelope.Propose{BallotNumber: b.Number, BallotNode: b.NodeID},
	}
	if err := r.trans.Broadcast(body); err != nil {
		r.logger.Info("broadcast propose failed", zap.Error(err))
	}
}

// handlePromise is the proposer-side reaction to Promise{B_in, S_in}
// (spec §4.5), grounded on cas_paxos.rs's handle_promise_msg.
func (r *Replica) handlePromise(env envelope.Envelope, msg envelope.Promise) {
	b := ballot.Ballot{Number: msg.BallotNumber, NodeID: msg.BallotNode}

	var (
		broadcastAccept bool
		acceptWire      map[string]int64
		acceptBallot    ballot.Ballot
		rejected        bool
	)

	r.role.Lock()
	proposer, ok := r.role.Current().(*role.Proposer)
	if !ok {
		r.role.Unlock()
		return
	}
	if r.ballots.IsStale(b) {
		rejected = true
		r.role.Unlock()
	} else {
		proposer.Promises = append(proposer.Promises, role.PromiseRecord{
			NodeID: env.Src,
			Ballot: b,
			Value:  msg.Value,
		})

		if len(proposer.Promises) >= r.quorum && proposer.LastAcceptBroadcast.Less(b) {
			proposer.LastAcceptBroadcast = b

			winner := pickBestPromise(proposer.Promises)
			candidate, err := statemachineFromWire(winner.Value)
			if err != nil {
				r.logger.Error("decoding winning promise value", zap.Error(err))
				r.role.Unlock()
				return
			}
			replyInner := apply(proposer.Op.Body.Inner, candidate)

			r.smMu.Lock()
			r.sm = candidate
			r.smMu.Unlock()

			proposer.PendingClientReply = &envelope.Body{
				MsgID:     r.newMsgID(),
				InReplyTo: proposer.Op.Body.MsgID,
				Inner:     replyInner,
			}

			broadcastAccept = true
			acceptBallot = b
			acceptWire = candidate.Snapshot()
		}
		r.role.Unlock()
	}

	if rejected {
		r.logger.Info("rejecting stale promise", zap.String("from", env.Src), zap.String("ballot", b.String()))
		r.rejectBallot(env)
		return
	}

	if broadcastAccept {
		r.logger.Debug("broadcasting accept", zap.String("ballot", acceptBallot.String()))
		body := envelope.Body{
			MsgID: r.newMsgID(),
			Inner: envelope.Accept{
				BallotNumber: acceptBallot.Number,
				BallotNode:   acceptBallot.NodeID,
				Value:        acceptWire,
			},
		}
		if err := r.trans.Broadcast(body); err != nil {
			r.logger.Info("broadcast accept failed", zap.Error(err))
		}
	}
}

// pickBestPromise selects the promise carrying the highest ballot,
// tiebreaking on the sending node id (spec §4.5.b) — descending by
// ballot, then descending by node id.
func pickBestPromise(promises []role.PromiseRecord) role.PromiseRecord {
	best := promises[0]
	for _, p := range promises[1:] {
		if best.Ballot.Less(p.Ballot) || (best.Ballot.Equal(p.Ballot) && best.NodeID < p.NodeID) {
			best = p
		}
	}
	return best
}

// handleAccepted records a quorum acceptance and, once a majority and a
// pending client reply coincide, delivers the reply and demotes the role
// to Acceptor (spec §4.6). The pending-reply slot guards exactly-once
// delivery.
func (r *Replica) handleAccepted(env envelope.Envelope, msg envelope.Accepted) {
	b := ballot.Ballot{Number: msg.BallotNumber, NodeID: msg.BallotNode}

	var deliver *envelope.Body
	var dest string

	r.role.Lock()
	proposer, ok := r.role.Current().(*role.Proposer)
	if ok && b.Equal(proposer.LastAcceptBroadcast) {
		proposer.Acceptances[env.Src] = struct{}{}
		if len(proposer.Acceptances) >= r.quorum && proposer.PendingClientReply != nil {
			deliver = proposer.PendingClientReply
			dest = proposer.Op.Src
			r.role.Set(role.Acceptor{})
		}
	}
	r.role.Unlock()

	if deliver == nil {
		return
	}
	r.logger.Debug("round complete, replying to client", zap.String("client", dest), zap.String("ballot", b.String()))
	if err := r.trans.Send(dest, *deliver); err != nil {
		r.logger.Info("send client reply failed", zap.String("dest", dest), zap.Error(err))
	}
}
