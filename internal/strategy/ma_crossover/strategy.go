package ma_crossover

import (
	"fmt"
	"math"

	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/indicator"
	"github.com/newthinker/signalbot/internal/strategy"
)

// MACrossover classifies rows by which side of the long MA the short MA is on
type MACrossover struct {
	minSpread float64
}

// New creates a new MA Crossover strategy. minSpread is the relative
// distance between the averages below which the row is a hold.
func New(minSpread float64) *MACrossover {
	return &MACrossover{minSpread: minSpread}
}

func (m *MACrossover) Name() string {
	return "ma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("MA Crossover (min spread %.2f%%)", m.minSpread*100)
}

func (m *MACrossover) Init(cfg strategy.Config) error {
	if spread, ok := cfg.Params["min_spread"].(float64); ok {
		m.minSpread = spread
	}
	if m.minSpread < 0 {
		return fmt.Errorf("ma_crossover: min_spread cannot be negative")
	}
	return nil
}

func (m *MACrossover) Classify(row indicator.Row) strategy.Classification {
	if math.IsNaN(row.ShortMA) || math.IsNaN(row.LongMA) || row.LongMA == 0 {
		return strategy.Hold("moving averages unavailable")
	}

	spread := (row.ShortMA - row.LongMA) / row.LongMA
	switch {
	case spread > m.minSpread:
		return strategy.Classification{
			Action: core.ActionBuy,
			Valid:  true,
			Reason: fmt.Sprintf("Golden Cross: MA short (%.2f) above MA long (%.2f)", row.ShortMA, row.LongMA),
		}
	case spread < -m.minSpread:
		return strategy.Classification{
			Action: core.ActionSell,
			Valid:  true,
			Reason: fmt.Sprintf("Death Cross: MA short (%.2f) below MA long (%.2f)", row.ShortMA, row.LongMA),
		}
	default:
		return strategy.Classification{Action: core.ActionHold, Valid: true}
	}
}
