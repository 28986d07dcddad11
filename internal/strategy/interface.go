package strategy

import (
	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/indicator"
)

// Config holds strategy configuration
type Config struct {
	Enabled bool
	Params  map[string]any
}

// Classification is the outcome of classifying one indicator row.
// Valid is false when the row could not be evaluated; Action is then
// always hold and Reason says why.
type Classification struct {
	Action core.Action
	Valid  bool
	Reason string
}

// Hold returns the fallback classification for a row that cannot be evaluated
func Hold(reason string) Classification {
	return Classification{Action: core.ActionHold, Valid: false, Reason: reason}
}

// ClassifiedRow pairs an indicator row with its signal
type ClassifiedRow struct {
	indicator.Row
	Signal core.Action `json:"signal"`
	Valid  bool        `json:"valid"`
}

// Strategy classifies indicator rows into trading actions.
// Classify must be a pure function of the row and must not panic on
// malformed values.
type Strategy interface {
	Name() string
	Description() string
	Init(cfg Config) error
	Classify(row indicator.Row) Classification
}
