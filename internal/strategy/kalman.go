package strategy

import (
	"SignalFoundry/internal/calculator"
	"SignalFoundry/internal/model"
)

// DefaultSlopeThreshold is the minimum per-bar trend change that counts as a move.
const DefaultSlopeThreshold = 0.001

// KalmanTrend follows the slope of the filtered trend.
type KalmanTrend struct {
	threshold float64
}

func NewKalmanTrend(threshold float64) *KalmanTrend {
	return &KalmanTrend{threshold: threshold}
}

func (g *KalmanTrend) Name() string { return "kalman" }

func (g *KalmanTrend) GenerateSignals(f *Frame) (model.SignalSeries, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	slope := calculator.Diff(f.Kalman)
	out := make(model.SignalSeries, len(slope))
	for i, s := range slope {
		out[i] = model.SignOf(s, g.threshold)
	}
	return out, nil
}
