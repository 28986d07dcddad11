// Package alert evaluates threshold rules against the performance of
// finished runs, e.g. "max_drawdown > 20", and notifies when they hold.
package alert

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/report"
)

// "metric op value"
var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

// Rule defines an alert rule.
type Rule struct {
	Name     string        `mapstructure:"name"`
	Expr     string        `mapstructure:"expr"`
	For      time.Duration `mapstructure:"for"`
	Severity string        `mapstructure:"severity"`
	Message  string        `mapstructure:"message"`
}

type condition struct {
	metric    string
	op        string
	threshold float64
}

func (r *Rule) parse() (condition, error) {
	matches := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(matches) != 4 {
		return condition{}, fmt.Errorf("rule %s: cannot parse expression %q", r.Name, r.Expr)
	}
	threshold, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return condition{}, fmt.Errorf("rule %s: %w", r.Name, err)
	}
	return condition{metric: matches[1], op: matches[2], threshold: threshold}, nil
}

// Validate checks the rule has a name and a parseable expression over a
// known metric.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("alert rule name is required"))
	}
	c, err := r.parse()
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if !knownMetric(c.metric) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rule %s: unknown metric %q (known: %s)", r.Name, c.metric, strings.Join(MetricNames(), ", ")))
	}
	return nil
}

// Evaluate evaluates the rule expression against metrics.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	c, err := r.parse()
	if err != nil {
		return false
	}

	value, exists := metrics[c.metric]
	if !exists {
		return false
	}

	switch c.op {
	case ">":
		return value > c.threshold
	case "<":
		return value < c.threshold
	case ">=":
		return value >= c.threshold
	case "<=":
		return value <= c.threshold
	case "==":
		return value == c.threshold
	case "!=":
		return value != c.threshold
	default:
		return false
	}
}

// FormatMessage formats the alert message with the metric value.
func (r *Rule) FormatMessage(symbol string, metrics map[string]float64) string {
	severity := r.Severity
	if severity == "" {
		severity = "warning"
	}
	msg := fmt.Sprintf("[%s] %s %s: %s", strings.ToUpper(severity), r.Name, symbol, r.Message)
	if c, err := r.parse(); err == nil {
		if v, ok := metrics[c.metric]; ok {
			msg += fmt.Sprintf(" (%s=%.2f)", c.metric, v)
		}
	}
	return msg
}

// Values extracts the rule metrics of a report.
func Values(r *report.Report) map[string]float64 {
	wallet, _ := r.Wallet.Float64()
	profit, _ := r.Wallet.Sub(r.StartingBalance).Float64()
	open := 0.0
	if r.OpenPosition != nil {
		open = 1
	}
	return map[string]float64{
		"wallet":        wallet,
		"profit":        profit,
		"trades":        float64(len(r.Trades)),
		"win_rate":      r.Stats.WinRate,
		"total_return":  r.Stats.TotalReturn,
		"max_drawdown":  r.Stats.MaxDrawdown,
		"sharpe_ratio":  r.Stats.SharpeRatio,
		"open_position": open,
		"warnings":      float64(len(r.Warnings)),
		"observations":  float64(r.Observations),
	}
}

// MetricNames lists the metrics rules can refer to.
func MetricNames() []string {
	names := make([]string, 0, 10)
	for name := range Values(&report.Report{}) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func knownMetric(name string) bool {
	_, ok := Values(&report.Report{})[name]
	return ok
}
