// Package indicators implements the moving-average and momentum calculations
// the simulation rules are evaluated against. All functions return a value
// for every input index so the caller can join results back to dates without
// offset bookkeeping.
package indicators

// DefaultRSIPeriod is the standard Wilder RSI lookback.
const DefaultRSIPeriod = 14

// SMA computes a simple moving average over the trailing period values.
// For indexes before a full window exists, the average of all values seen so
// far is used instead of an undefined value, so early dates still carry a
// meaningful trailing average.
func SMA(prices []float64, period int) []float64 {
	if len(prices) == 0 || period <= 0 {
		return nil
	}

	out := make([]float64, len(prices))
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
			out[i] = sum / float64(period)
		} else {
			out[i] = sum / float64(i+1)
		}
	}
	return out
}

// EMA computes an exponential moving average seeded with the first price,
// using smoothing factor k = 2/(period+1).
func EMA(prices []float64, period int) []float64 {
	if len(prices) == 0 || period <= 0 {
		return nil
	}

	k := 2.0 / float64(period+1)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = prices[i]*k + out[i-1]*(1-k)
	}
	return out
}

// RSI computes Wilder's Relative Strength Index. The first period values,
// and any series too short to seed the averages, are reported as the neutral
// 50 rather than being dropped. When the average loss is exactly zero the
// relative strength saturates at 100, pushing RSI toward 100 without a
// division by zero.
func RSI(prices []float64, period int) []float64 {
	if len(prices) == 0 || period <= 0 {
		return nil
	}

	out := make([]float64, len(prices))
	if len(prices) < period+1 {
		for i := range out {
			out[i] = 50
		}
		return out
	}

	for i := 0; i < period; i++ {
		out[i] = 50
	}

	// Seed the averages with a simple mean over the first period deltas.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	rs := 100.0
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	return 100 - 100/(1+rs)
}
