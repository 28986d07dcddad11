package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options tunes the logger beyond the development/production preset.
type Options struct {
	Development bool
	Level       string // debug, info, warn, error; empty keeps the preset level
	Format      string // json or console; empty keeps the preset encoding
}

// New creates a new zap logger
func New(development bool) (*zap.Logger, error) {
	return NewWithOptions(Options{Development: development})
}

// NewWithOptions creates a zap logger from Options
func NewWithOptions(opts Options) (*zap.Logger, error) {
	var cfg zap.Config

	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	switch opts.Format {
	case "":
	case "json", "console":
		cfg.Encoding = opts.Format
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool) *zap.Logger {
	log, err := New(development)
	if err != nil {
		panic(err)
	}
	return log
}
