// Package logsink writes alerts to the structured log. It is the default
// sink when no messaging bot is configured.
package logsink

import (
	"context"

	"github.com/newthinker/signalbot/internal/notifier"
	"go.uber.org/zap"
)

type Sink struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{logger: logger}
}

func (s *Sink) Name() string { return "log" }

func (s *Sink) Init(cfg notifier.Config) error { return nil }

func (s *Sink) Send(ctx context.Context, message string) error {
	s.logger.Info("alert", zap.String("message", message))
	return nil
}
