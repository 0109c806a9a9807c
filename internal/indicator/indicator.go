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

// RSI calculates the Wilder relative strength index.
// Returns slice of length: len(prices) - period
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) <= period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period)

	// Seed averages from the first `period` deltas
	var gain, loss float64
	for i := 1; i <= period; i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	result = append(result, rsiValue(avgGain, avgLoss))

	// Wilder smoothing for the rest
	for i := period + 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		var g, l float64
		if delta > 0 {
			g = delta
		} else {
			l = -delta
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		result = append(result, rsiValue(avgGain, avgLoss))
	}

	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Bollinger calculates the middle band (SMA) and the upper/lower bands
// at width standard deviations. All three slices share the SMA length.
func Bollinger(prices []float64, period int, width float64) (middle, upper, lower []float64) {
	middle = SMA(prices, period)
	if len(middle) == 0 {
		return nil, nil, nil
	}

	upper = make([]float64, len(middle))
	lower = make([]float64, len(middle))
	for i := range middle {
		window := prices[i : i+period]
		var variance float64
		for _, p := range window {
			d := p - middle[i]
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + width*sd
		lower[i] = middle[i] - width*sd
	}
	return middle, upper, lower
}

// MACD calculates the MACD line (fastEMA - slowEMA), its signal EMA and
// the histogram. Slices are aligned to each other, most recent last.
func MACD(prices []float64, fast, slow, signal int) (macd, signalLine, histogram []float64) {
	if fast >= slow || len(prices) < slow {
		return nil, nil, nil
	}

	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	// Align: slowEMA is shorter, trim fastEMA's head
	offset := len(fastEMA) - len(slowEMA)
	macd = make([]float64, len(slowEMA))
	for i := range slowEMA {
		macd[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalLine = EMA(macd, signal)
	if len(signalLine) == 0 {
		return macd, nil, nil
	}

	offset = len(macd) - len(signalLine)
	histogram = make([]float64, len(signalLine))
	for i := range signalLine {
		histogram[i] = macd[i+offset] - signalLine[i]
	}
	return macd[offset:], signalLine, histogram
}
