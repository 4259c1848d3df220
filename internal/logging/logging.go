// Package logging constructs the single zap.SugaredLogger each binary
// threads explicitly into its components, rather than reaching through
// package-level state (spec.md §9's "initialize once, pass as an
// immutable value" note applied to the logger itself).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewServer builds a production logger: JSON encoding, info level,
// suitable for a long-running daemon's stdout/stderr.
func NewServer() (*zap.SugaredLogger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// NewClient builds a development logger: console encoding, debug level,
// colorized, suitable for a foreground interactive process.
func NewClient() (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
