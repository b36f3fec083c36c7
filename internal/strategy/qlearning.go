package strategy

import (
	"fmt"
	"math"

	"SignalFoundry/internal/model"
	"SignalFoundry/internal/qlearn"
)

// QLearningConfig holds the feature and training settings of the Q-learning generator.
type QLearningConfig struct {
	Bins       int
	Window     int
	Episodes   int
	Multiplier float64
}

// DefaultQLearningConfig returns 10 bins, a 5-bar window, 10 episodes and a multiplier of 3.
func DefaultQLearningConfig() QLearningConfig {
	return QLearningConfig{Bins: qlearn.DefaultBins, Window: qlearn.DefaultWindow, Episodes: 10, Multiplier: 3}
}

// QLearning trains a fresh Q-table on each frame and then acts greedily.
type QLearning struct {
	table     *qlearn.QTable
	cfg       QLearningConfig
	strengths []float64
}

func NewQLearning(table *qlearn.QTable, cfg QLearningConfig) *QLearning {
	return &QLearning{table: table, cfg: cfg}
}

func (g *QLearning) Name() string { return "qlearning" }

func (g *QLearning) GenerateSignals(f *Frame) (model.SignalSeries, error) {
	signals, strengths, err := g.Evaluate(f)
	if err != nil {
		return nil, err
	}
	g.strengths = strengths
	return signals, nil
}

// Strengths returns the scaled strengths from the last GenerateSignals call.
func (g *QLearning) Strengths() []float64 { return g.strengths }

// Evaluate returns the directional signals and the confidence-scaled
// strengths they were reduced from. Only the signs feed the simulator.
func (g *QLearning) Evaluate(f *Frame) (model.SignalSeries, []float64, error) {
	if err := f.check(); err != nil {
		return nil, nil, err
	}
	states, err := qlearn.BuildStates(f.Kalman, f.Fourier, g.cfg.Bins, g.cfg.Window)
	if err != nil {
		return nil, nil, fmt.Errorf("build states: %w", err)
	}

	g.table.Reset()
	if err := g.table.Train(states, f.Close, g.cfg.Episodes); err != nil {
		return nil, nil, fmt.Errorf("train q-table: %w", err)
	}

	signals := make(model.SignalSeries, len(states))
	strengths := make([]float64, len(states))
	for i, s := range states {
		action := qlearn.Actions[g.table.Greedy(s)]
		conf := math.Max(0, g.table.Confidence(s))
		strength := float64(action) * conf * g.cfg.Multiplier
		strengths[i] = strength
		signals[i] = clampSignal(int(strength))
	}
	return signals, strengths, nil
}

func clampSignal(v int) model.Signal {
	switch {
	case v > 0:
		return model.Buy
	case v < 0:
		return model.Sell
	default:
		return model.Hold
	}
}
