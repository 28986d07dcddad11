package backtest

import (
	"time"

	"github.com/newthinker/signalbot/internal/core"
	"github.com/shopspring/decimal"
)

// DefaultStartingBalance is the simulated wallet's opening cash
var DefaultStartingBalance = decimal.NewFromInt(10000)

// SignalRow is one classified observation fed to the simulator
type SignalRow struct {
	Time   time.Time
	Close  float64
	Signal core.Action
}

// Position is an open, unrealized simulated trade
type Position struct {
	EntryPrice decimal.Decimal `json:"entry_price"`
	EntryTime  time.Time       `json:"entry_time"`
}

// TradeRecord is a closed trade. It is never modified after creation.
type TradeRecord struct {
	EntryPrice decimal.Decimal `json:"entry_price"`
	EntryTime  time.Time       `json:"entry_time"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	ExitTime   time.Time       `json:"exit_time"`
	Units      decimal.Decimal `json:"units"`
	Profit     decimal.Decimal `json:"profit"`
}

// IsWin returns true if the trade was profitable
func (t TradeRecord) IsWin() bool {
	return t.Profit.IsPositive()
}

// Return is the fractional price change from entry to exit
func (t TradeRecord) Return() float64 {
	if t.EntryPrice.IsZero() {
		return 0
	}
	r, _ := t.ExitPrice.Sub(t.EntryPrice).Div(t.EntryPrice).Float64()
	return r
}

// Stats holds performance statistics
type Stats struct {
	TotalTrades   int             `json:"total_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	WinRate       float64         `json:"win_rate"`     // Percentage of profitable trades
	TotalProfit   decimal.Decimal `json:"total_profit"` // Sum of realized P/L
	TotalReturn   float64         `json:"total_return"` // Sum of per-trade returns, percent
	MaxDrawdown   float64         `json:"max_drawdown"` // Largest wallet peak-to-trough decline, percent
	SharpeRatio   float64         `json:"sharpe_ratio"` // Risk-adjusted return (annualized)
}

// Result is the outcome of a simulation run
type Result struct {
	Symbol          string          `json:"symbol"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	Wallet          decimal.Decimal `json:"wallet"`
	Position        *Position       `json:"position,omitempty"` // open at end of input, unrealized
	Trades          []TradeRecord   `json:"trades"`
	Log             []string        `json:"log"`
	Warnings        []string        `json:"warnings,omitempty"`
	Stats           Stats           `json:"stats"`
}

// Tail returns the last n trade log lines
func (r *Result) Tail(n int) []string {
	return tail(r.Log, n)
}

func tail(lines []string, n int) []string {
	if n <= 0 || n >= len(lines) {
		out := make([]string, len(lines))
		copy(out, lines)
		return out
	}
	out := make([]string, n)
	copy(out, lines[len(lines)-n:])
	return out
}
