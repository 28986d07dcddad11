package core

import (
	"sort"
	"time"
)

// OHLCV represents a candlestick/bar
type OHLCV struct {
	Symbol   string
	Interval string // "1d", "1h"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// PricePoint is a single closing price observation
type PricePoint struct {
	Time  time.Time
	Close float64
}

// Action represents a trading signal action
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// String returns the upper-case label used in trade logs and tables
func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// NormalizeSeries sorts bars by time and drops bars that repeat an
// earlier timestamp, keeping the first occurrence.
func NormalizeSeries(bars []OHLCV) []OHLCV {
	if len(bars) == 0 {
		return []OHLCV{}
	}

	sorted := make([]OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	result := make([]OHLCV, 0, len(sorted))
	for i, bar := range sorted {
		if i > 0 && bar.Time.Equal(result[len(result)-1].Time) {
			continue
		}
		result = append(result, bar)
	}
	return result
}

// ClosePoints projects bars onto their closing prices
func ClosePoints(bars []OHLCV) []PricePoint {
	points := make([]PricePoint, len(bars))
	for i, bar := range bars {
		points[i] = PricePoint{Time: bar.Time, Close: bar.Close}
	}
	return points
}
