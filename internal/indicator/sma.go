package indicator

import "math"

// SMA calculates Simple Moving Average
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	// Calculate first SMA
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// EMA calculates Exponential Moving Average
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)
	multiplier := 2.0 / float64(period+1)

	// Start with SMA as first EMA value
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)
	result = append(result, ema)

	// Calculate EMA for remaining prices
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		result = append(result, ema)
	}

	return result
}

// alignTo pads a compact series so index i holds the value computed
// from the first i+1 inputs, NaN where the window is not yet full.
func alignTo(n int, compact []float64) []float64 {
	out := make([]float64, n)
	offset := n - len(compact)
	for i := range out {
		if i < offset {
			out[i] = math.NaN()
			continue
		}
		out[i] = compact[i-offset]
	}
	return out
}

// SMASeries is SMA aligned to prices, NaN-padded at the front
func SMASeries(prices []float64, period int) []float64 {
	return alignTo(len(prices), SMA(prices, period))
}

// EMASeries is EMA aligned to prices, NaN-padded at the front
func EMASeries(prices []float64, period int) []float64 {
	return alignTo(len(prices), EMA(prices, period))
}
