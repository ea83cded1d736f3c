// Package logging builds the zap loggers shared by the CLI and the
// assessment system.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects how much the system says and where it says it.
type Config struct {
	Level  string // debug, info, warn, error; empty means info
	Format string // console or json; empty means console
	File   string // optional path; empty logs to stderr
}

// New builds a zap logger from cfg. Console format uses zap's development
// encoder, json the production encoder.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("unknown log level %q", cfg.Level)
		}
		level = parsed
	}

	var zc zap.Config
	switch cfg.Format {
	case "", "console":
		zc = zap.NewDevelopmentConfig()
	case "json":
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.File != "" {
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
	}
	return zc.Build()
}
