package filter

import (
	"errors"
	"fmt"
)

var ErrInvalidParam = errors.New("invalid filter parameter")

// Default noise variances for daily close prices.
const (
	DefaultProcessNoise     = 1e-5
	DefaultObservationNoise = 0.01
)

// KalmanState is the (estimate, error variance) pair carried between steps.
type KalmanState struct {
	Estimate float64
	Variance float64
}

// Kalman is a scalar random-walk-plus-noise filter.
type Kalman struct {
	q float64
	r float64
}

// NewKalman creates a filter with process noise q and observation noise r.
func NewKalman(q, r float64) (*Kalman, error) {
	if q < 0 {
		return nil, fmt.Errorf("process noise %v: %w", q, ErrInvalidParam)
	}
	if r <= 0 {
		return nil, fmt.Errorf("observation noise %v: %w", r, ErrInvalidParam)
	}
	return &Kalman{q: q, r: r}, nil
}

// Init seeds the state from the first observation with unit variance.
func (k *Kalman) Init(observation float64) KalmanState {
	return KalmanState{Estimate: observation, Variance: 1}
}

// Step advances the filter by one observation.
func (k *Kalman) Step(prior KalmanState, observation float64) KalmanState {
	predVar := prior.Variance + k.q
	gain := predVar / (predVar + k.r)
	return KalmanState{
		Estimate: prior.Estimate + gain*(observation-prior.Estimate),
		Variance: (1 - gain) * predVar,
	}
}

// Apply runs the filter left to right and returns the updated-estimate series.
func (k *Kalman) Apply(observations []float64) []float64 {
	out := make([]float64, len(observations))
	if len(observations) == 0 {
		return out
	}
	st := k.Init(observations[0])
	out[0] = st.Estimate
	for i := 1; i < len(observations); i++ {
		st = k.Step(st, observations[i])
		out[i] = st.Estimate
	}
	return out
}
