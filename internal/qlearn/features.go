package qlearn

import (
	"errors"
	"fmt"

	"SignalFoundry/internal/calculator"
)

// Feature defaults.
const (
	DefaultBins   = 10
	DefaultWindow = 5
)

var ErrLengthMismatch = errors.New("feature inputs must have equal length")

// BuildStates discretizes the four per-bar features derived from the trend
// estimate and the spectral reconstruction:
//
//	0: percentage change of the trend
//	1: relative deviation of the trend from its rolling mean
//	2: rolling standard deviation of the trend's percentage change
//	3: spectral minus trend cycle residual
//
// Rolling statistics are back-filled over the warm-up window.
func BuildStates(trend, spectral []float64, bins, window int) ([]State, error) {
	if len(trend) != len(spectral) {
		return nil, fmt.Errorf("trend %d vs spectral %d: %w", len(trend), len(spectral), ErrLengthMismatch)
	}
	if bins <= 0 || window <= 0 {
		return nil, fmt.Errorf("bins %d, window %d: must be positive", bins, window)
	}

	n := len(trend)
	pct := calculator.PctChange(trend)
	ma := calculator.BackFill(calculator.RollingMean(trend, window))
	vol := calculator.BackFill(calculator.RollingStdDev(pct, window))

	deviation := make([]float64, n)
	cycle := make([]float64, n)
	for i := 0; i < n; i++ {
		deviation[i] = (trend[i] - ma[i]) / trend[i]
		cycle[i] = spectral[i] - trend[i]
	}

	cols := [NumFeatures][]float64{
		Cut(pct, bins),
		Cut(deviation, bins),
		Cut(vol, bins),
		Cut(cycle, bins),
	}
	states := make([]State, n)
	for i := 0; i < n; i++ {
		var raw [NumFeatures]float64
		for f := range cols {
			raw[f] = cols[f][i]
		}
		states[i] = SanitizeState(raw)
	}
	return states, nil
}
