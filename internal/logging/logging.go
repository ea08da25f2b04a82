// Package logging provides the structured logger shared by every replica
// component. All handlers log through a *zap.Logger scoped to a node id.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap production (JSON) logger at the given level, tagged
// with node_id.
// level accepts zap's level names: "debug", "info", "warn", "error".
func New(nodeID string, level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.Set(level); err != nil {
			return nil, err
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("node_id", nodeID)), nil
}

// Noop returns a logger that discards everything, for use in tests that
// don't care about log output.
func Noop() *zap.Logger {
	return zap.NewNop()
}
