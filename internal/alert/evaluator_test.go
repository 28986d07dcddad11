package alert

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/signalbot/internal/backtest"
	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/report"
	"github.com/shopspring/decimal"
)

type mockSink struct {
	sent []string
	err  error
}

func (m *mockSink) Alert(ctx context.Context, msg string) error {
	m.sent = append(m.sent, msg)
	return m.err
}

var ctx = context.Background()

func TestEvaluator_EvaluateRule(t *testing.T) {
	sink := &mockSink{}
	eval := NewEvaluator(sink, nil, nil)

	rule := Rule{
		Name:     "deep_drawdown",
		Expr:     "max_drawdown > 20",
		For:      time.Minute,
		Severity: "warning",
		Message:  "Drawdown is deep",
	}

	// Provide metrics that trigger the rule
	metrics := map[string]float64{
		"max_drawdown": 25,
	}

	eval.Evaluate(ctx, "BTC-USD", rule, metrics)

	// First evaluation starts the pending timer, doesn't fire
	if len(sink.sent) != 0 {
		t.Errorf("expected no notification on first eval, got %d", len(sink.sent))
	}

	// Simulate time passing and re-evaluate
	eval.advanceTime(2 * time.Minute)
	if !eval.Evaluate(ctx, "BTC-USD", rule, metrics) {
		t.Error("expected rule to fire")
	}

	if len(sink.sent) != 1 {
		t.Errorf("expected 1 notification after duration, got %d", len(sink.sent))
	}
}

func TestEvaluator_Cooldown(t *testing.T) {
	sink := &mockSink{}
	eval := NewEvaluator(sink, nil, nil)
	eval.SetCooldown(5 * time.Minute)

	rule := Rule{
		Name:     "losing",
		Expr:     "profit < 0",
		For:      0, // Immediate
		Severity: "critical",
		Message:  "Wallet is below its starting balance",
	}

	metrics := map[string]float64{"profit": -10}

	eval.Evaluate(ctx, "AAPL", rule, metrics)
	eval.Evaluate(ctx, "AAPL", rule, metrics)
	eval.Evaluate(ctx, "AAPL", rule, metrics)

	// Should only notify once due to cooldown
	if len(sink.sent) != 1 {
		t.Errorf("expected 1 notification due to cooldown, got %d", len(sink.sent))
	}

	// Cooldown is per symbol
	eval.Evaluate(ctx, "TSLA", rule, metrics)
	if len(sink.sent) != 2 {
		t.Errorf("expected a second notification for another symbol, got %d", len(sink.sent))
	}
}

func TestEvaluator_RuleNotTriggered(t *testing.T) {
	sink := &mockSink{}
	eval := NewEvaluator(sink, nil, nil)

	rule := Rule{
		Name:     "low_win_rate",
		Expr:     "win_rate < 40",
		Severity: "warning",
		Message:  "Win rate is low",
	}

	eval.Evaluate(ctx, "AAPL", rule, map[string]float64{"win_rate": 60})

	if len(sink.sent) != 0 {
		t.Errorf("expected no notification, got %d", len(sink.sent))
	}
}

func TestEvaluator_EvaluateAll(t *testing.T) {
	sink := &mockSink{}
	rules := []Rule{
		{Name: "rule1", Expr: "trades == 0", Severity: "info", Message: "No trades"},
		{Name: "rule2", Expr: "warnings > 0", Severity: "warning", Message: "Alerts failed"},
	}
	eval := NewEvaluator(sink, rules, nil)

	// Only rule1 triggers
	fired := eval.EvaluateAll(ctx, "AAPL", map[string]float64{"trades": 0, "warnings": 0})

	if len(sink.sent) != 1 {
		t.Errorf("expected 1 notification, got %d", len(sink.sent))
	}
	if len(fired) != 1 || fired[0] != "rule1" {
		t.Errorf("expected rule1 to fire, got %v", fired)
	}
}

func TestEvaluator_SinkFailureStillCountsAsFired(t *testing.T) {
	sink := &mockSink{err: errors.New("down")}
	eval := NewEvaluator(sink, nil, nil)

	rule := Rule{Name: "losing", Expr: "profit < 0", Message: "Losing"}
	if !eval.Evaluate(ctx, "AAPL", rule, map[string]float64{"profit": -1}) {
		t.Error("expected rule to fire")
	}
	// Cooldown applies even though delivery failed
	if eval.Evaluate(ctx, "AAPL", rule, map[string]float64{"profit": -1}) {
		t.Error("expected cooldown")
	}
}

func TestRule_Evaluate(t *testing.T) {
	tests := []struct {
		expr     string
		metrics  map[string]float64
		expected bool
	}{
		{"max_drawdown > 20", map[string]float64{"max_drawdown": 25}, true},
		{"max_drawdown > 20", map[string]float64{"max_drawdown": 5}, false},
		{"trades == 0", map[string]float64{"trades": 0}, true},
		{"trades == 0", map[string]float64{"trades": 1}, false},
		{"win_rate >= 50", map[string]float64{"win_rate": 50}, true},
		{"win_rate >= 50", map[string]float64{"win_rate": 49}, false},
		{"sharpe_ratio <= 1", map[string]float64{"sharpe_ratio": 0.5}, true},
		{"sharpe_ratio <= 1", map[string]float64{"sharpe_ratio": 1.5}, false},
		{"open_position != 0", map[string]float64{"open_position": 1}, true},
		{"open_position != 0", map[string]float64{"open_position": 0}, false},
		{"profit < -100", map[string]float64{"profit": -150}, true},
		{"missing > 0", map[string]float64{}, false}, // missing metric
		{"not an expression", map[string]float64{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			rule := Rule{Expr: tt.expr}
			result := rule.Evaluate(tt.metrics)
			if result != tt.expected {
				t.Errorf("expr %q with metrics %v: expected %v, got %v",
					tt.expr, tt.metrics, tt.expected, result)
			}
		})
	}
}

func TestRule_FormatMessage(t *testing.T) {
	rule := Rule{
		Name:     "deep_drawdown",
		Expr:     "max_drawdown > 20",
		Severity: "warning",
		Message:  "Drawdown above 20%",
	}

	msg := rule.FormatMessage("BTC-USD", map[string]float64{"max_drawdown": 25})

	if msg != "[WARNING] deep_drawdown BTC-USD: Drawdown above 20% (max_drawdown=25.00)" {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		code string
	}{
		{"valid", Rule{Name: "r", Expr: "win_rate < 40"}, ""},
		{"missing name", Rule{Expr: "win_rate < 40"}, "CONFIG_MISSING"},
		{"bad expression", Rule{Name: "r", Expr: "win_rate <"}, "CONFIG_INVALID"},
		{"unknown metric", Rule{Name: "r", Expr: "latency > 1"}, "CONFIG_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.code == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var coreErr *core.Error
			if !errors.As(err, &coreErr) || coreErr.Code != tt.code {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestValues(t *testing.T) {
	r := &report.Report{
		Observations:    300,
		StartingBalance: decimal.NewFromInt(10000),
		Wallet:          decimal.NewFromInt(10050),
		Trades:          []backtest.TradeRecord{{}, {}},
		OpenPosition:    &backtest.Position{},
		Stats:           backtest.Stats{WinRate: 50, MaxDrawdown: 1.5},
		Warnings:        []string{"alert failed"},
	}

	v := Values(r)
	want := map[string]float64{
		"wallet":        10050,
		"profit":        50,
		"trades":        2,
		"win_rate":      50,
		"max_drawdown":  1.5,
		"open_position": 1,
		"warnings":      1,
		"observations":  300,
	}
	for k, w := range want {
		if v[k] != w {
			t.Errorf("%s: expected %v, got %v", k, w, v[k])
		}
	}
	if !strings.Contains(strings.Join(MetricNames(), ","), "sharpe_ratio") {
		t.Error("expected sharpe_ratio in metric names")
	}
}

func TestEvaluator_PendingClearsWhenRuleNoLongerTriggers(t *testing.T) {
	sink := &mockSink{}
	eval := NewEvaluator(sink, nil, nil)

	rule := Rule{
		Name:     "deep_drawdown",
		Expr:     "max_drawdown > 20",
		For:      time.Minute,
		Severity: "warning",
		Message:  "Drawdown is deep",
	}

	// First: trigger rule to start pending
	eval.Evaluate(ctx, "AAPL", rule, map[string]float64{"max_drawdown": 25})

	// Second: rule no longer triggers - should clear pending
	eval.Evaluate(ctx, "AAPL", rule, map[string]float64{"max_drawdown": 5})

	// Third: advance time and re-trigger - should start new pending
	eval.advanceTime(2 * time.Minute)
	eval.Evaluate(ctx, "AAPL", rule, map[string]float64{"max_drawdown": 25})

	// Should not fire yet because pending was cleared
	if len(sink.sent) != 0 {
		t.Errorf("expected no notification (pending cleared), got %d", len(sink.sent))
	}
}
