package backtest

import (
	"time"

	"github.com/shopspring/decimal"
)

// Context is the complete state of one simulation. It is owned by a
// single run; callers pass it in and read it back, nothing else holds it.
type Context struct {
	Symbol          string
	StartingBalance decimal.Decimal
	Wallet          decimal.Decimal
	UnitSize        decimal.Decimal
	Position        *Position
	Trades          []TradeRecord
	Log             []string
	Warnings        []string

	// AlertAfter suppresses alerts for rows at or before it. Those rows
	// still trade and log. Zero alerts every event.
	AlertAfter time.Time
}

// NewContext creates a flat context with the wallet at startingBalance
// and a fixed size of one unit per trade.
func NewContext(symbol string, startingBalance decimal.Decimal) *Context {
	return &Context{
		Symbol:          symbol,
		StartingBalance: startingBalance,
		Wallet:          startingBalance,
		UnitSize:        decimal.NewFromInt(1),
		Trades:          []TradeRecord{},
		Log:             []string{},
	}
}

// IsOpen reports whether a position is currently open
func (c *Context) IsOpen() bool {
	return c.Position != nil
}

// Realized is the sum of profit over all closed trades
func (c *Context) Realized() decimal.Decimal {
	total := decimal.Zero
	for _, t := range c.Trades {
		total = total.Add(t.Profit)
	}
	return total
}

// Tail returns the last n trade log lines
func (c *Context) Tail(n int) []string {
	return tail(c.Log, n)
}

func (c *Context) result() *Result {
	var pos *Position
	if c.Position != nil {
		p := *c.Position
		pos = &p
	}

	trades := make([]TradeRecord, len(c.Trades))
	copy(trades, c.Trades)

	return &Result{
		Symbol:          c.Symbol,
		StartingBalance: c.StartingBalance,
		Wallet:          c.Wallet,
		Position:        pos,
		Trades:          trades,
		Log:             tail(c.Log, 0),
		Warnings:        tail(c.Warnings, 0),
		Stats:           CalculateStats(c.StartingBalance, trades),
	}
}
