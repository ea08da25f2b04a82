// Package metrics exposes the replica's round-level Prometheus counters.
// Nothing here affects protocol behavior; it is pure observability wiring
// around the handlers in internal/caspaxos.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups the counters a single replica reports. Each replica
// owns its own Registry so multiple in-process nodes (as in cmd/demo)
// don't collide on Prometheus's default global registry.
type Registry struct {
	ProposalsTotal        prometheus.Counter
	PromisesTotal         prometheus.Counter
	AcceptsTotal          prometheus.Counter
	BallotRejectionsTotal prometheus.Counter
	HighestKnownBallot    prometheus.Gauge

	reg *prometheus.Registry
}

// New builds a fresh Registry labeled with the owning node's id.
func New(nodeID string) *Registry {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"node_id": nodeID}

	r := &Registry{
		ProposalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "caspaxos_proposals_total",
			Help:        "Client operations that entered a fresh proposal round.",
			ConstLabels: constLabels,
		}),
		PromisesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "caspaxos_promises_total",
			Help:        "Promise envelopes sent by this replica's acceptor side.",
			ConstLabels: constLabels,
		}),
		AcceptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "caspaxos_accepts_total",
			Help:        "Accepted envelopes sent by this replica's acceptor side.",
			ConstLabels: constLabels,
		}),
		BallotRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "caspaxos_ballot_rejections_total",
			Help:        "PreconditionFailed replies sent due to a stale ballot.",
			ConstLabels: constLabels,
		}),
		HighestKnownBallot: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "caspaxos_highest_known_ballot",
			Help:        "This replica's highest_known_ballot number.",
			ConstLabels: constLabels,
		}),
		reg: reg,
	}

	reg.MustRegister(
		r.ProposalsTotal,
		r.PromisesTotal,
		r.AcceptsTotal,
		r.BallotRejectionsTotal,
		r.HighestKnownBallot,
	)
	return r
}

// Gatherer exposes the underlying registry for an HTTP /metrics handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
