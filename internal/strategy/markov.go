package strategy

import (
	"fmt"

	"SignalFoundry/internal/calculator"
	"SignalFoundry/internal/markov"
	"SignalFoundry/internal/model"
)

// Markov trades the predicted direction of the next return.
type Markov struct {
	model         *markov.Model
	threshold     float64
	minConfidence float64
}

// NewMarkov wraps a transition model. Predictions with confidence below
// minConfidence are treated as hold.
func NewMarkov(m *markov.Model, threshold, minConfidence float64) *Markov {
	return &Markov{model: m, threshold: threshold, minConfidence: minConfidence}
}

func (g *Markov) Name() string { return "markov" }

// GenerateSignals refits the model on the frame's symbols, then predicts
// from the last N symbols at every bar. The final bar has no next bar to
// trade and is always hold.
func (g *Markov) GenerateSignals(f *Frame) (model.SignalSeries, error) {
	symbols, err := calculator.EncodeCloses(f.Close, g.threshold)
	if err != nil {
		return nil, fmt.Errorf("encode states: %w", err)
	}
	if err := g.model.Fit(symbols); err != nil {
		return nil, fmt.Errorf("fit markov: %w", err)
	}

	n := len(symbols)
	order := g.model.Order()
	out := make(model.SignalSeries, n)
	for i := order - 1; i < n-1; i++ {
		next, conf := g.model.Predict(symbols[i-order+1 : i+1])
		if conf == 0 || conf < g.minConfidence {
			continue
		}
		switch next {
		case model.Up:
			out[i] = model.Buy
		case model.Down:
			out[i] = model.Sell
		}
	}
	return out, nil
}
