package backtest

import (
	"errors"
	"fmt"

	"SignalFoundry/internal/model"
)

// Policy selects how signals move the position.
type Policy string

const (
	// PolicySigned accumulates every signal, so sells can open shorts. Cash
	// moves symmetrically with the position.
	PolicySigned Policy = "signed"
	// PolicyLongOnly ignores sells while flat. Position and cash both skip them.
	PolicyLongOnly Policy = "long_only"
)

var (
	ErrLengthMismatch = errors.New("signals and bars differ in length")
	ErrUnknownPolicy  = errors.New("unknown accounting policy")
)

// Config controls the simulation.
type Config struct {
	InitialCapital float64
	UnitSize       float64
	Policy         Policy
	PeriodsPerYear float64
}

// DefaultConfig returns 10000 capital, one unit per signal, signed accounting
// and daily annualization.
func DefaultConfig() Config {
	return Config{InitialCapital: 10000, UnitSize: 1, Policy: PolicySigned, PeriodsPerYear: 252}
}

// Simulator replays a signal series against closes. Trades fill at the
// bar's close with no costs or margin limits.
type Simulator struct {
	cfg Config
}

func NewSimulator(cfg Config) (*Simulator, error) {
	switch {
	case cfg.InitialCapital <= 0:
		return nil, fmt.Errorf("initial capital %v must be positive", cfg.InitialCapital)
	case cfg.UnitSize <= 0:
		return nil, fmt.Errorf("unit size %v must be positive", cfg.UnitSize)
	case cfg.PeriodsPerYear <= 0:
		return nil, fmt.Errorf("periods per year %v must be positive", cfg.PeriodsPerYear)
	}
	if cfg.Policy != PolicySigned && cfg.Policy != PolicyLongOnly {
		return nil, fmt.Errorf("policy %q: %w", cfg.Policy, ErrUnknownPolicy)
	}
	return &Simulator{cfg: cfg}, nil
}

// Config returns the simulator settings.
func (s *Simulator) Config() Config { return s.cfg }

// Run builds the portfolio for one signal series.
func (s *Simulator) Run(bars []model.OHLCV, signals model.SignalSeries) (*model.Portfolio, error) {
	if len(bars) != len(signals) {
		return nil, fmt.Errorf("%d signals for %d bars: %w", len(signals), len(bars), ErrLengthMismatch)
	}

	p := &model.Portfolio{
		InitialCapital: s.cfg.InitialCapital,
		Bars:           make([]model.PortfolioBar, len(bars)),
	}
	position := 0.0
	cash := s.cfg.InitialCapital
	prevTotal := 0.0
	for i, bar := range bars {
		trade := float64(signals[i])
		if s.cfg.Policy == PolicyLongOnly && signals[i] == model.Sell && position <= 0 {
			trade = 0
		}
		units := trade * s.cfg.UnitSize
		position += units
		cash -= units * bar.Close

		holdings := position * bar.Close
		total := cash + holdings
		ret := 0.0
		if i > 0 && prevTotal != 0 {
			ret = total/prevTotal - 1
		}
		p.Bars[i] = model.PortfolioBar{
			Time:     bar.Time,
			Position: position,
			Holdings: holdings,
			Cash:     cash,
			Total:    total,
			Return:   ret,
		}
		prevTotal = total
	}
	return p, nil
}

// Evaluate runs the simulation and reduces it to metrics.
func (s *Simulator) Evaluate(bars []model.OHLCV, signals model.SignalSeries) (*model.Portfolio, model.PerformanceMetrics, error) {
	p, err := s.Run(bars, signals)
	if err != nil {
		return nil, model.PerformanceMetrics{}, err
	}
	m := Compute(p, s.cfg.PeriodsPerYear)
	m.NumTrades = signals.Trades()
	return p, m, nil
}
