package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/signalbot/internal/notifier"
	"go.uber.org/zap"
)

// Config holds router configuration
type Config struct {
	// SendTimeout bounds a single fan-out to all notifiers
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		SendTimeout: 15 * time.Second,
	}
}

// Recorder receives per-notifier delivery outcomes
type Recorder interface {
	RecordAlert(notifier, status string)
}

// Router fans trade alerts out to the notifier registry. It implements
// backtest.AlertSink.
type Router struct {
	cfg      Config
	registry *notifier.Registry
	recorder Recorder
	logger   *zap.Logger

	mu     sync.RWMutex
	sent   int
	failed int
}

// New creates a new alert router. A nil registry drops every alert.
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
	}
}

// SetRecorder sets the metrics recorder
func (r *Router) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// Alert sends message to every notifier. Each failing notifier is logged
// and counted; the combined failure is returned so the caller can record
// it as a warning.
func (r *Router) Alert(ctx context.Context, message string) error {
	if r.registry == nil || r.registry.Len() == 0 {
		r.logger.Debug("no notifiers registered, alert dropped", zap.String("message", message))
		return nil
	}

	if r.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.SendTimeout)
		defer cancel()
	}

	errs := r.registry.NotifyAll(ctx, message)

	for _, n := range r.registry.GetAll() {
		status := "success"
		if _, failed := errs[n.Name()]; failed {
			status = "error"
		}
		if r.recorder != nil {
			r.recorder.RecordAlert(n.Name(), status)
		}
	}

	r.mu.Lock()
	r.sent++
	if len(errs) > 0 {
		r.failed++
	}
	r.mu.Unlock()

	if len(errs) == 0 {
		r.logger.Info("alert routed",
			zap.String("message", message),
			zap.Int("notifiers", r.registry.Len()),
		)
		return nil
	}

	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)

	joined := make([]error, 0, len(errs))
	for _, name := range names {
		r.logger.Error("notifier failed",
			zap.String("notifier", name),
			zap.Error(errs[name]),
		)
		joined = append(joined, fmt.Errorf("%s: %w", name, errs[name]))
	}

	return errors.Join(joined...)
}

// GetStats returns router statistics
func (r *Router) GetStats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notifiers := 0
	if r.registry != nil {
		notifiers = r.registry.Len()
	}
	return map[string]any{
		"alerts_sent":     r.sent,
		"alerts_failed":   r.failed,
		"notifiers":       notifiers,
		"timeout_seconds": r.cfg.SendTimeout.Seconds(),
	}
}
