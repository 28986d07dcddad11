package indicator

import "math"

// MACDResult holds the three MACD series, each aligned to the input prices
type MACDResult struct {
	MACD      []float64 // fast EMA - slow EMA
	Signal    []float64 // EMA of MACD
	Histogram []float64 // MACD - Signal
}

// MACD calculates Moving Average Convergence Divergence.
// The MACD line is defined from index slow-1, the signal line and the
// histogram from index slow+signal-2; earlier entries are NaN.
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	n := len(prices)
	res := MACDResult{
		MACD:      nanSlice(n),
		Signal:    nanSlice(n),
		Histogram: nanSlice(n),
	}
	if fast <= 0 || slow <= 0 || signal <= 0 || n < slow {
		return res
	}

	fastEMA := EMASeries(prices, fast)
	slowEMA := EMASeries(prices, slow)

	start := slow - 1
	if fast > slow {
		start = fast - 1
	}
	line := make([]float64, 0, n-start)
	for i := start; i < n; i++ {
		res.MACD[i] = fastEMA[i] - slowEMA[i]
		line = append(line, res.MACD[i])
	}

	signalLine := EMA(line, signal)
	offset := n - len(signalLine)
	for i, v := range signalLine {
		res.Signal[offset+i] = v
		res.Histogram[offset+i] = res.MACD[offset+i] - v
	}

	return res
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
