// Package config assembles a replica's startup configuration from CLI
// flags, using the same cobra/pflag stack as the teacher's intended
// cmd/ layout (the teacher left cmd/demo's flag wiring as a TODO).
package config

import "github.com/spf13/pflag"

// Config holds everything a replica needs to start: its own identity,
// the rest of the cluster, an optional quorum override, and the log
// level for internal/logging.
type Config struct {
	NodeID         string
	Peers          []string
	QuorumOverride int
	LogLevel       string
	MetricsAddr    string
}

// RegisterFlags binds Config's fields onto fs, ready for fs.Parse.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.NodeID, "node-id", "", "this replica's node identity")
	fs.StringSliceVar(&cfg.Peers, "peer", nil, "peer node identity (repeatable)")
	fs.IntVar(&cfg.QuorumOverride, "quorum", 0, "override the computed majority quorum (0 = auto)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", ":2112", "address to serve /metrics on")
}

// Quorum returns the effective quorum size: the override if set, or the
// strict majority of the full membership (peers plus self).
func (c Config) Quorum() int {
	if c.QuorumOverride > 0 {
		return c.QuorumOverride
	}
	return (len(c.Peers)+1)/2 + 1
}
