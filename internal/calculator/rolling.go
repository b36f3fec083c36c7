package calculator

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// RollingMean computes the simple moving average over window bars.
// Positions without a full window are NaN.
func RollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	sma := talib.Sma(values, window)
	copy(out[window-1:], sma[window-1:])
	return out
}

// RollingStdDev computes the sample standard deviation over window bars.
// Positions without a full window are NaN, as is every position when window is 1.
func RollingStdDev(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		out[i] = stat.StdDev(values[i-window+1:i+1], nil)
	}
	return out
}

// BackFill replaces NaN entries with the next valid value, in place.
// Trailing NaNs stay NaN.
func BackFill(values []float64) []float64 {
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if math.IsNaN(values[i]) {
			values[i] = next
			continue
		}
		next = values[i]
	}
	return values
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
