// Package trend implements the MA/RSI/MACD trend-momentum classifier.
package trend

import (
	"fmt"
	"math"

	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/indicator"
	"github.com/newthinker/signalbot/internal/strategy"
)

// DefaultOverbought is the RSI level at or above which a buy is withheld
const DefaultOverbought = 70.0

// Trend buys when the short MA is above the long MA, RSI is below the
// overbought level and the MACD histogram is positive; it sells whenever
// the histogram is negative.
type Trend struct {
	overbought float64
}

// New creates a trend classifier with the given RSI overbought level
func New(overbought float64) *Trend {
	if overbought <= 0 {
		overbought = DefaultOverbought
	}
	return &Trend{overbought: overbought}
}

func (t *Trend) Name() string {
	return "trend"
}

func (t *Trend) Description() string {
	return fmt.Sprintf("Trend momentum (MA short > MA long, RSI < %.0f, MACD > 0)", t.overbought)
}

func (t *Trend) Init(cfg strategy.Config) error {
	switch v := cfg.Params["rsi_overbought"].(type) {
	case float64:
		t.overbought = v
	case int:
		t.overbought = float64(v)
	}
	if t.overbought <= 0 || t.overbought > 100 {
		return fmt.Errorf("trend: rsi_overbought must be in (0,100], got %v", t.overbought)
	}
	return nil
}

// Classify evaluates the rules in priority order: buy, sell, hold.
// Comparisons are strict, so RSI at the overbought level or a zero
// histogram never buys, and a zero histogram never sells.
func (t *Trend) Classify(row indicator.Row) strategy.Classification {
	if reason := malformed(row); reason != "" {
		return strategy.Hold(reason)
	}

	switch {
	case row.ShortMA > row.LongMA && row.RSI < t.overbought && row.MACD > 0:
		return strategy.Classification{Action: core.ActionBuy, Valid: true}
	case row.MACD < 0:
		return strategy.Classification{Action: core.ActionSell, Valid: true}
	default:
		return strategy.Classification{Action: core.ActionHold, Valid: true}
	}
}

func malformed(row indicator.Row) string {
	fields := []struct {
		name  string
		value float64
	}{
		{"rsi", row.RSI},
		{"macd", row.MACD},
		{"ma_short", row.ShortMA},
		{"ma_long", row.LongMA},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Sprintf("%s is not a finite number", f.name)
		}
	}
	if row.RSI < 0 || row.RSI > 100 {
		return fmt.Sprintf("rsi %f out of range", row.RSI)
	}
	return ""
}
