package strategy

import (
	"math"

	"SignalFoundry/internal/model"
)

// DefaultCycleThreshold is the price deviation from the spectral fair value
// needed before the cycle generator trades.
const DefaultCycleThreshold = 0.01

// FourierCycle trades the residual of the low-pass reconstruction against
// the close: buy when the close sits above it, sell when below.
type FourierCycle struct {
	threshold float64
}

func NewFourierCycle(threshold float64) *FourierCycle {
	return &FourierCycle{threshold: threshold}
}

func (g *FourierCycle) Name() string { return "fourier" }

func (g *FourierCycle) GenerateSignals(f *Frame) (model.SignalSeries, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	out := make(model.SignalSeries, f.Len())
	for i := range out {
		dev := f.Close[i] - f.Fourier[i]
		if math.IsNaN(dev) || math.IsInf(dev, 0) {
			continue
		}
		out[i] = model.SignOf(dev, g.threshold)
	}
	return out, nil
}
