package pipeline

import (
	"errors"
	"fmt"
	"math/rand"

	"SignalFoundry/internal/backtest"
	"SignalFoundry/internal/config"
	"SignalFoundry/internal/filter"
	"SignalFoundry/internal/markov"
	"SignalFoundry/internal/model"
	"SignalFoundry/internal/qlearn"
	"SignalFoundry/internal/strategy"
)

// Stages reported on failure.
const (
	StageFrame    = "frame"
	StageGenerate = "generate"
	StageSimulate = "simulate"
)

var ErrSeriesTooShort = errors.New("price series too short for markov order")

// StageError tags an error with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the failing stage of err, or "unknown".
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "unknown"
}

// GeneratorReport is one generator's signals and their standalone backtest.
type GeneratorReport struct {
	Name    string
	Weight  float64
	Signals model.SignalSeries
	Metrics model.PerformanceMetrics
}

// Result is everything one run produced. Consumers must not mutate it.
type Result struct {
	Symbol     string
	Frame      *strategy.Frame
	Generators []GeneratorReport
	Strengths  []float64
	Final      model.SignalSeries
	Portfolio  *model.Portfolio
	Metrics    model.PerformanceMetrics
}

// BuildFrame validates the series and computes the Kalman and Fourier columns.
func BuildFrame(series *model.PriceSeries, mc config.ModelConfig) (*strategy.Frame, error) {
	kf, err := filter.NewKalman(mc.Kalman.ProcessNoise, mc.Kalman.ObservationNoise)
	if err != nil {
		return nil, err
	}
	ff, err := filter.NewFourier(mc.Fourier.KeepRatio)
	if err != nil {
		return nil, err
	}
	return strategy.NewFrame(series, kf, ff)
}

// Runner executes the full signal and simulation chain. It holds no state
// between runs; models and random sources are rebuilt from the seed each time.
type Runner struct {
	model config.ModelConfig
	sim   *backtest.Simulator
	seed  int64
	stop  *strategy.TrailingStop
}

func NewRunner(cfg *config.Config) (*Runner, error) {
	sim, err := backtest.NewSimulator(backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		UnitSize:       cfg.Backtest.UnitSize,
		Policy:         backtest.Policy(cfg.Backtest.Policy),
		PeriodsPerYear: cfg.Backtest.PeriodsPerYear,
	})
	if err != nil {
		return nil, fmt.Errorf("create simulator: %w", err)
	}
	r := &Runner{model: cfg.Model, sim: sim, seed: cfg.Seed}
	if cfg.Model.Stop.Enabled {
		if r.stop, err = strategy.NewTrailingStop(cfg.Model.Stop.Pct); err != nil {
			return nil, fmt.Errorf("create trailing stop: %w", err)
		}
	}
	return r, nil
}

func (r *Runner) ensemble() (*strategy.Meta, *strategy.QLearning, error) {
	mc := r.model

	opts := []markov.Option{markov.WithRand(rand.New(rand.NewSource(r.seed)))}
	if mc.Markov.Deterministic {
		opts = append(opts, markov.WithArgmax())
	}
	mm, err := markov.New(mc.Markov.Order, opts...)
	if err != nil {
		return nil, nil, err
	}

	table, err := qlearn.NewQTable(qlearn.Params{
		LearningRate: mc.QLearning.LearningRate,
		Discount:     mc.QLearning.Discount,
		Epsilon:      mc.QLearning.Epsilon,
	}, rand.New(rand.NewSource(r.seed+1)))
	if err != nil {
		return nil, nil, err
	}
	ql := strategy.NewQLearning(table, strategy.QLearningConfig{
		Bins:       mc.QLearning.Bins,
		Window:     mc.QLearning.Window,
		Episodes:   mc.QLearning.Episodes,
		Multiplier: mc.QLearning.Multiplier,
	})

	gens := []strategy.Generator{
		strategy.NewMarkov(mm, mc.StateThreshold, mc.Markov.MinConfidence),
		strategy.NewKalmanTrend(mc.Kalman.SlopeThreshold),
		strategy.NewFourierCycle(mc.Fourier.Threshold),
		ql,
	}
	if r.stop != nil {
		for i, g := range gens {
			gens[i] = strategy.WithTrailingStop(g, r.stop)
		}
	}
	w := mc.Weights
	meta, err := strategy.NewMeta(gens, []float64{w.Markov, w.Kalman, w.Fourier, w.QLearning})
	if err != nil {
		return nil, nil, err
	}
	return meta, ql, nil
}

// Run processes one price series end to end.
func (r *Runner) Run(series *model.PriceSeries) (*Result, error) {
	if series.Len() < r.model.Markov.Order+2 {
		return nil, &StageError{StageFrame, fmt.Errorf("%d bars, order %d: %w",
			series.Len(), r.model.Markov.Order, ErrSeriesTooShort)}
	}
	frame, err := BuildFrame(series, r.model)
	if err != nil {
		return nil, &StageError{StageFrame, err}
	}

	meta, ql, err := r.ensemble()
	if err != nil {
		return nil, &StageError{StageGenerate, err}
	}
	breakdown, err := meta.Evaluate(frame)
	if err != nil {
		return nil, &StageError{StageGenerate, err}
	}

	res := &Result{
		Symbol:    series.Symbol,
		Frame:     frame,
		Strengths: ql.Strengths(),
		Final:     breakdown.Final,
	}
	for _, c := range breakdown.Components {
		_, m, err := r.sim.Evaluate(frame.Bars, c.Signals)
		if err != nil {
			return nil, &StageError{StageSimulate, fmt.Errorf("%s: %w", c.Name, err)}
		}
		res.Generators = append(res.Generators, GeneratorReport{
			Name: c.Name, Weight: c.Weight, Signals: c.Signals, Metrics: m,
		})
	}

	res.Portfolio, res.Metrics, err = r.sim.Evaluate(frame.Bars, breakdown.Final)
	if err != nil {
		return nil, &StageError{StageSimulate, err}
	}
	return res, nil
}
