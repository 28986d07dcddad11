package backtest

import (
	"math"

	"github.com/shopspring/decimal"
)

// CalculateStats computes performance statistics from closed trades
func CalculateStats(startingBalance decimal.Decimal, trades []TradeRecord) Stats {
	if len(trades) == 0 {
		return Stats{TotalProfit: decimal.Zero}
	}

	var winning, losing int
	var totalReturn float64
	returns := make([]float64, 0, len(trades))
	equity := make([]float64, 0, len(trades)+1)
	totalProfit := decimal.Zero

	start, _ := startingBalance.Float64()
	equity = append(equity, start)

	for _, t := range trades {
		r := t.Return()
		returns = append(returns, r)
		totalReturn += r
		totalProfit = totalProfit.Add(t.Profit)
		if t.IsWin() {
			winning++
		} else {
			losing++
		}
		balance, _ := startingBalance.Add(totalProfit).Float64()
		equity = append(equity, balance)
	}

	return Stats{
		TotalTrades:   len(trades),
		WinningTrades: winning,
		LosingTrades:  losing,
		WinRate:       float64(winning) / float64(len(trades)) * 100,
		TotalProfit:   totalProfit,
		TotalReturn:   totalReturn * 100, // Convert to percentage
		MaxDrawdown:   calculateMaxDrawdown(equity) * 100,
		SharpeRatio:   calculateSharpeRatio(returns),
	}
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of an equity curve
func calculateMaxDrawdown(equity []float64) float64 {
	var maxDD float64
	var peak float64

	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// calculateSharpeRatio computes risk-adjusted return
// Assumes risk-free rate of 0 for simplicity
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	// Calculate mean return
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	// Calculate standard deviation
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}

	// Annualize (assuming ~252 trading days)
	annualizedReturn := mean * 252
	annualizedStdDev := stdDev * math.Sqrt(252)

	return annualizedReturn / annualizedStdDev
}
