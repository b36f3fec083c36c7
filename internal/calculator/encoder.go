package calculator

import (
	"errors"
	"fmt"
	"math"

	"SignalFoundry/internal/model"
)

// DefaultStateThreshold separates flat returns from directional ones.
const DefaultStateThreshold = 0.002

// EncodeStates maps each bar of the series to a StateSymbol.
// The first bar has no prior return and encodes as Flat.
func EncodeStates(series *model.PriceSeries, threshold float64) ([]model.StateSymbol, error) {
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("encode states: %w", err)
	}
	return EncodeCloses(series.Closes(), threshold)
}

// EncodeCloses classifies close-to-close percentage returns against ±threshold.
func EncodeCloses(closes []float64, threshold float64) ([]model.StateSymbol, error) {
	if threshold < 0 {
		return nil, errors.New("threshold must be non-negative")
	}
	for i, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			return nil, fmt.Errorf("close at %d is %v: %w", i, c, model.ErrInvalidPrice)
		}
	}
	returns := PctChange(closes)
	states := make([]model.StateSymbol, len(returns))
	for i, r := range returns {
		switch {
		case r > threshold:
			states[i] = model.Up
		case r < -threshold:
			states[i] = model.Down
		default:
			states[i] = model.Flat
		}
	}
	return states, nil
}
