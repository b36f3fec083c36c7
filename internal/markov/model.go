package markov

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"SignalFoundry/internal/model"
)

var (
	ErrInvalidOrder     = errors.New("markov order must be positive")
	ErrInsufficientData = errors.New("not enough symbols to fit markov model")
	ErrInvalidSymbol    = errors.New("symbol outside alphabet")
)

// Model is an order-N Markov chain over StateSymbols.
//
// Fit builds the transition table from scratch; Predict is read-only apart from
// consuming the random source. A history never observed during Fit yields
// (Flat, 0).
type Model struct {
	order         int
	table         map[string][]float64
	rng           *rand.Rand
	deterministic bool
}

// Option configures a Model.
type Option func(*Model)

// WithRand sets the source used to sample the next symbol.
func WithRand(r *rand.Rand) Option {
	return func(m *Model) { m.rng = r }
}

// WithArgmax makes Predict return the most probable next symbol instead of sampling.
// Ties resolve to the lowest symbol.
func WithArgmax() Option {
	return func(m *Model) { m.deterministic = true }
}

// New creates an unfitted model. Without WithRand, sampling uses a source seeded with 1.
func New(order int, opts ...Option) (*Model, error) {
	if order <= 0 {
		return nil, fmt.Errorf("order %d: %w", order, ErrInvalidOrder)
	}
	m := &Model{order: order, table: make(map[string][]float64)}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(1))
	}
	return m, nil
}

// Order returns N.
func (m *Model) Order() int { return m.order }

// Deterministic reports whether Predict uses argmax.
func (m *Model) Deterministic() bool { return m.deterministic }

// Fit counts every (history → next) transition and normalizes per history.
// Any previously learned table is discarded.
func (m *Model) Fit(symbols []model.StateSymbol) error {
	if len(symbols) < m.order+1 {
		return fmt.Errorf("have %d symbols, order %d: %w", len(symbols), m.order, ErrInsufficientData)
	}
	for i, s := range symbols {
		if s < 0 || int(s) >= model.NumSymbols {
			return fmt.Errorf("symbol %d at %d: %w", s, i, ErrInvalidSymbol)
		}
	}

	counts := make(map[string][]int)
	for i := 0; i+m.order < len(symbols); i++ {
		key := historyKey(symbols[i : i+m.order])
		row, ok := counts[key]
		if !ok {
			row = make([]int, model.NumSymbols)
			counts[key] = row
		}
		row[symbols[i+m.order]]++
	}

	table := make(map[string][]float64, len(counts))
	for key, row := range counts {
		total := 0
		for _, c := range row {
			total += c
		}
		dist := make([]float64, model.NumSymbols)
		for j, c := range row {
			dist[j] = float64(c) / float64(total)
		}
		table[key] = dist
	}
	m.table = table
	return nil
}

// Predict returns the next symbol and the confidence (max probability) for the
// last N symbols of history. Short or unseen histories return (Flat, 0).
func (m *Model) Predict(history []model.StateSymbol) (model.StateSymbol, float64) {
	dist, ok := m.Distribution(history)
	if !ok {
		return model.Flat, 0
	}
	best := 0
	for j := 1; j < len(dist); j++ {
		if dist[j] > dist[best] {
			best = j
		}
	}
	confidence := dist[best]
	if m.deterministic {
		return model.StateSymbol(best), confidence
	}
	return model.StateSymbol(sample(m.rng, dist)), confidence
}

// Distribution returns a copy of the learned next-symbol distribution for the
// last N symbols of history.
func (m *Model) Distribution(history []model.StateSymbol) ([]float64, bool) {
	if len(history) < m.order {
		return nil, false
	}
	dist, ok := m.table[historyKey(history[len(history)-m.order:])]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(dist))
	copy(out, dist)
	return out, true
}

// Histories returns the number of distinct histories observed during Fit.
func (m *Model) Histories() int { return len(m.table) }

func historyKey(h []model.StateSymbol) string {
	var b strings.Builder
	b.Grow(len(h))
	for _, s := range h {
		b.WriteByte(byte('0' + s))
	}
	return b.String()
}

func sample(rng *rand.Rand, dist []float64) int {
	u := rng.Float64()
	cum := 0.0
	last := 0
	for j, p := range dist {
		if p <= 0 {
			continue
		}
		cum += p
		last = j
		if u < cum {
			return j
		}
	}
	return last
}
