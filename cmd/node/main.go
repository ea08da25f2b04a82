// Command node runs a single CASPaxos replica speaking the Maelstrom
// stdio protocol: JSON envelopes in on stdin, JSON envelopes out on
// stdout. Grounded on original_source/src/main.rs's process lifecycle
// (tokio main spawning one handler per inbound message) and on the
// teacher's entry-point convention of a thin cmd/ wrapper around the
// internal packages.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arjakob/caspaxos/internal/caspaxos"
	"github.com/arjakob/caspaxos/internal/config"
	"github.com/arjakob/caspaxos/internal/dispatcher"
	"github.com/arjakob/caspaxos/internal/logging"
	"github.com/arjakob/caspaxos/internal/metrics"
	"github.com/arjakob/caspaxos/internal/transport"
)

func main() {
	var cfg config.Config

	root := &cobra.Command{
		Use:   "node",
		Short: "run a single CASPaxos replica over the Maelstrom stdio protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}
	config.RegisterFlags(root.Flags(), &cfg)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	trans, err := transport.NewStdio(os.Stdin, os.Stdout)
	if err != nil {
		return fmt.Errorf("starting stdio transport: %w", err)
	}
	defer trans.Close()

	nodeID := trans.NodeID()
	logger, err := logging.New(nodeID, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	reg := metrics.New(nodeID)
	quorumOverride := 0
	if cfg.QuorumOverride > 0 {
		quorumOverride = cfg.QuorumOverride
	}

	replica := caspaxos.New(trans, peersFromTransport(trans), logger, reg, quorumOverride)
	d := dispatcher.New(trans, replica, logger)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, reg, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("replica starting", zap.String("node_id", nodeID))
	d.Run(ctx)
	return nil
}

// peersFromTransport is a small seam so the replica's fixed membership
// comes from whatever the transport learned during its handshake,
// without the caspaxos package depending on transport.StdioTransport
// directly.
func peersFromTransport(t *transport.StdioTransport) []string {
	return t.Peers()
}

func serveMetrics(addr string, reg *metrics.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
