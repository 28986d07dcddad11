package indicator

import "math"

// RSI calculates the Relative Strength Index using Wilder smoothing over
// close-to-close changes. The result is aligned to prices; the first
// period entries are NaN because period changes are needed to seed the
// average gain and loss.
func RSI(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(prices) <= period {
		return out
	}

	// Seed with the simple average of the first period changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	n := float64(period)
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(n-1) + gain) / n
		avgLoss = (avgLoss*(n-1) + loss) / n
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return out
}

// rsiValue maps average gain/loss to [0,100]. A window without losses is
// 100, a window without any movement is neutral.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
