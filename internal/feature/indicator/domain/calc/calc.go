// Package calc holds the pure indicator math used to build snapshots.
//
// Every function reads an oldest-first series and only looks at its tail.
// Callers guarantee the series is long enough; a short series yields 0.
// Sums always run oldest to newest so identical inputs give bit-identical output.
package calc

import (
	"math"

	"stock_alerts/internal/feature/candles/domain/entity"
)

// SMA is the mean of the last n values.
func SMA(xs []float64, n int) float64 {
	if n <= 0 || len(xs) < n {
		return 0
	}
	sum := 0.0
	for _, x := range xs[len(xs)-n:] {
		sum += x
	}
	return sum / float64(n)
}

// EMA seeds with the SMA of the first n values and smooths over the rest.
func EMA(xs []float64, n int) float64 {
	if n <= 0 || len(xs) < n {
		return 0
	}
	k := 2.0 / float64(n+1)
	ema := SMA(xs[:n], n)
	for _, x := range xs[n:] {
		ema = x*k + ema*(1-k)
	}
	return ema
}

// RSI uses Wilder's smoothing. Needs n+1 values.
// A flat series reports 50, a series with no losses reports 100.
func RSI(xs []float64, n int) float64 {
	if n <= 0 || len(xs) < n+1 {
		return 0
	}
	var gains, losses float64
	for i := 1; i <= n; i++ {
		d := xs[i] - xs[i-1]
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	avgGain := gains / float64(n)
	avgLoss := losses / float64(n)
	for i := n + 1; i < len(xs); i++ {
		d := xs[i] - xs[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(n-1) + g) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + l) / float64(n)
	}
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Volatility is the population standard deviation, in percent, of the simple
// returns between the last n values. A zero base contributes a zero return.
func Volatility(xs []float64, n int) float64 {
	if n < 2 || len(xs) < n {
		return 0
	}
	tail := xs[len(xs)-n:]
	rets := make([]float64, 0, n-1)
	for i := 1; i < len(tail); i++ {
		r := 0.0
		if tail[i-1] != 0 {
			r = tail[i]/tail[i-1] - 1
		}
		rets = append(rets, r)
	}
	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	v := 0.0
	for _, r := range rets {
		v += (r - mean) * (r - mean)
	}
	v /= float64(len(rets))
	return math.Sqrt(v) * 100
}

func trueRange(c, prev entity.Candle) float64 {
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev.Close), math.Abs(c.Low-prev.Close)))
}

// ATR is Wilder's average true range. Needs n+1 candles.
func ATR(cs []entity.Candle, n int) float64 {
	if n <= 0 || len(cs) < n+1 {
		return 0
	}
	atr := 0.0
	for i := 1; i <= n; i++ {
		atr += trueRange(cs[i], cs[i-1])
	}
	atr /= float64(n)
	for i := n + 1; i < len(cs); i++ {
		atr = (atr*float64(n-1) + trueRange(cs[i], cs[i-1])) / float64(n)
	}
	return atr
}

// SupportResistance returns the lowest low and highest high of the n candles
// before the newest one, so the newest close can break out of the range.
func SupportResistance(cs []entity.Candle, n int) (support, resistance float64) {
	if n <= 0 || len(cs) < n+1 {
		return 0, 0
	}
	lookback := cs[len(cs)-1-n : len(cs)-1]
	support, resistance = lookback[0].Low, lookback[0].High
	for _, c := range lookback[1:] {
		support = math.Min(support, c.Low)
		resistance = math.Max(resistance, c.High)
	}
	return support, resistance
}

// VolumeAverage is the mean volume of the n candles before the newest one.
func VolumeAverage(cs []entity.Candle, n int) float64 {
	if n <= 0 || len(cs) < n+1 {
		return 0
	}
	sum := 0.0
	for _, c := range cs[len(cs)-1-n : len(cs)-1] {
		sum += float64(c.Volume)
	}
	return sum / float64(n)
}

// Closes extracts close prices.
func Closes(cs []entity.Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}
