package backtest

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func trade(entry, exit float64) TradeRecord {
	e := decimal.NewFromFloat(entry)
	x := decimal.NewFromFloat(exit)
	return TradeRecord{
		EntryPrice: e,
		ExitPrice:  x,
		Units:      decimal.NewFromInt(1),
		Profit:     x.Sub(e),
	}
}

func TestCalculateStats_Empty(t *testing.T) {
	stats := CalculateStats(DefaultStartingBalance, []TradeRecord{})
	if stats.TotalTrades != 0 {
		t.Error("expected 0 trades for empty input")
	}
	if !stats.TotalProfit.IsZero() {
		t.Errorf("expected zero profit, got %s", stats.TotalProfit)
	}
}

func TestCalculateStats_WinRate(t *testing.T) {
	trades := []TradeRecord{
		trade(100, 110), // win
		trade(100, 105), // win
		trade(100, 97),  // loss
		trade(100, 102), // win
	}

	stats := CalculateStats(DefaultStartingBalance, trades)

	if stats.TotalTrades != 4 {
		t.Errorf("TotalTrades = %d, want 4", stats.TotalTrades)
	}
	if stats.WinningTrades != 3 {
		t.Errorf("WinningTrades = %d, want 3", stats.WinningTrades)
	}
	if stats.WinRate != 75 {
		t.Errorf("WinRate = %f, want 75", stats.WinRate)
	}
	if !stats.TotalProfit.Equal(decimal.NewFromInt(14)) {
		t.Errorf("TotalProfit = %s, want 14", stats.TotalProfit)
	}
}

func TestCalculateStats_TotalReturn(t *testing.T) {
	trades := []TradeRecord{
		trade(100, 110),
		trade(100, 95),
	}

	stats := CalculateStats(DefaultStartingBalance, trades)

	expected := 5.0 // (0.10 + -0.05) * 100
	if math.Abs(stats.TotalReturn-expected) > 0.001 {
		t.Errorf("TotalReturn = %f, want %f", stats.TotalReturn, expected)
	}
}

func TestCalculateMaxDrawdown(t *testing.T) {
	// Peak at 120, trough at 90, DD = 25%
	equity := []float64{100, 120, 90, 110}
	dd := calculateMaxDrawdown(equity)

	if math.Abs(dd-0.25) > 1e-9 {
		t.Errorf("MaxDrawdown = %f, expected 0.25", dd)
	}
}

func TestCalculateStats_Drawdown(t *testing.T) {
	trades := []TradeRecord{
		trade(100, 200), // wallet 100 -> 200
		trade(200, 150), // wallet 200 -> 150
	}

	stats := CalculateStats(decimal.NewFromInt(100), trades)
	if math.Abs(stats.MaxDrawdown-25) > 1e-9 {
		t.Errorf("MaxDrawdown = %f, want 25", stats.MaxDrawdown)
	}
}
