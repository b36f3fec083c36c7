package strategy

import (
	"fmt"
	"math"

	"SignalFoundry/internal/model"
)

const signEps = 1e-12

// Component is one generator's contribution to an ensemble run.
type Component struct {
	Name    string
	Weight  float64
	Signals model.SignalSeries
}

// Breakdown is the full result of an ensemble run.
type Breakdown struct {
	Components []Component
	Final      model.SignalSeries
}

// Meta blends several generators into a single signal stream.
type Meta struct {
	generators []Generator
	weights    []float64
}

// NewMeta builds an ensemble. A nil weights slice means equal weights; any
// weights given are normalized to sum to 1.
func NewMeta(generators []Generator, weights []float64) (*Meta, error) {
	if len(generators) == 0 {
		return nil, ErrNoGenerators
	}
	if weights == nil {
		weights = make([]float64, len(generators))
		for i := range weights {
			weights[i] = 1
		}
	}
	norm, err := normalizeWeights(weights, len(generators))
	if err != nil {
		return nil, err
	}
	return &Meta{generators: generators, weights: norm}, nil
}

func (m *Meta) Name() string { return "meta" }

// Weights returns the normalized weights in generator order.
func (m *Meta) Weights() []float64 {
	return append([]float64(nil), m.weights...)
}

func (m *Meta) GenerateSignals(f *Frame) (model.SignalSeries, error) {
	b, err := m.Evaluate(f)
	if err != nil {
		return nil, err
	}
	return b.Final, nil
}

// Evaluate runs every generator on the same frame and combines them.
func (m *Meta) Evaluate(f *Frame) (*Breakdown, error) {
	b := &Breakdown{Components: make([]Component, len(m.generators))}
	series := make([]model.SignalSeries, len(m.generators))
	for i, g := range m.generators {
		s, err := g.GenerateSignals(f)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", g.Name(), err)
		}
		if err := checkAligned(g.Name(), s, f.Len()); err != nil {
			return nil, err
		}
		series[i] = s
		b.Components[i] = Component{Name: g.Name(), Weight: m.weights[i], Signals: s}
	}
	final, err := Combine(series, m.weights)
	if err != nil {
		return nil, err
	}
	b.Final = final
	return b, nil
}

// Combine returns the sign of the weighted sum of aligned signal series.
func Combine(series []model.SignalSeries, weights []float64) (model.SignalSeries, error) {
	if len(series) == 0 {
		return nil, ErrNoGenerators
	}
	if len(weights) != len(series) {
		return nil, fmt.Errorf("%d weights for %d series: %w", len(weights), len(series), ErrInvalidWeights)
	}
	n := len(series[0])
	for _, s := range series[1:] {
		if len(s) != n {
			return nil, fmt.Errorf("series lengths %d and %d: %w", n, len(s), ErrLengthMismatch)
		}
	}

	out := make(model.SignalSeries, n)
	for t := 0; t < n; t++ {
		sum := 0.0
		for i, s := range series {
			sum += weights[i] * float64(s[t])
		}
		out[t] = model.SignOf(sum, signEps)
	}
	return out, nil
}

func normalizeWeights(weights []float64, n int) ([]float64, error) {
	if len(weights) != n {
		return nil, fmt.Errorf("%d weights for %d generators: %w", len(weights), n, ErrInvalidWeights)
	}
	sum := 0.0
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("weight %v: %w", w, ErrInvalidWeights)
		}
		sum += w
	}
	if sum == 0 {
		return nil, ErrInvalidWeights
	}
	out := make([]float64, n)
	for i, w := range weights {
		out[i] = w / sum
	}
	return out, nil
}
