package alert

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink delivers a rule notification. router.Router implements it.
type Sink interface {
	Alert(ctx context.Context, message string) error
}

// Evaluator evaluates alert rules per symbol and sends notifications.
type Evaluator struct {
	sink     Sink
	rules    []Rule
	cooldown time.Duration
	logger   *zap.Logger

	// Track pending alerts (waiting for "for" duration)
	pending map[string]time.Time
	// Track last fired time for cooldown
	lastFired map[string]time.Time

	// For testing: allow time advancement
	now func() time.Time

	mu sync.Mutex
}

// NewEvaluator creates a new alert evaluator.
func NewEvaluator(sink Sink, rules []Rule, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		sink:      sink,
		rules:     rules,
		cooldown:  5 * time.Minute,
		logger:    logger,
		pending:   make(map[string]time.Time),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// SetCooldown sets the cooldown duration between alerts.
func (e *Evaluator) SetCooldown(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldown = d
}

// Rules returns the configured rules.
func (e *Evaluator) Rules() []Rule {
	return e.rules
}

// Evaluate evaluates a single rule for symbol and fires a notification
// if triggered. It reports whether the rule fired.
func (e *Evaluator) Evaluate(ctx context.Context, symbol string, rule Rule, metrics map[string]float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	key := rule.Name + "/" + symbol

	// Check if rule condition is met
	if !rule.Evaluate(metrics) {
		// Rule not triggered, clear pending state
		delete(e.pending, key)
		return false
	}

	// Rule is triggered
	if rule.For > 0 {
		// Check if we're already pending
		pendingSince, isPending := e.pending[key]
		if !isPending {
			// Start pending
			e.pending[key] = now
			return false
		}

		// Check if pending duration exceeded
		if now.Sub(pendingSince) < rule.For {
			return false // Still waiting
		}
	}

	// Check cooldown
	lastFired, hasFired := e.lastFired[key]
	if hasFired && now.Sub(lastFired) < e.cooldown {
		return false // In cooldown
	}

	// Fire alert
	msg := rule.FormatMessage(symbol, metrics)
	if e.sink != nil {
		if err := e.sink.Alert(ctx, msg); err != nil {
			e.logger.Warn("rule alert failed",
				zap.String("rule", rule.Name),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
	}

	e.lastFired[key] = now
	delete(e.pending, key)
	return true
}

// EvaluateAll evaluates all rules for symbol and returns the names of
// the rules that fired.
func (e *Evaluator) EvaluateAll(ctx context.Context, symbol string, metrics map[string]float64) []string {
	var fired []string
	for _, rule := range e.rules {
		if e.Evaluate(ctx, symbol, rule, metrics) {
			fired = append(fired, rule.Name)
		}
	}
	return fired
}

// advanceTime is for testing - advances the internal clock.
func (e *Evaluator) advanceTime(d time.Duration) {
	oldNow := e.now
	e.now = func() time.Time {
		return oldNow().Add(d)
	}
}
