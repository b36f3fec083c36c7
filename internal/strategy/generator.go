package strategy

import (
	"errors"
	"fmt"

	"SignalFoundry/internal/filter"
	"SignalFoundry/internal/model"
)

var (
	ErrLengthMismatch = errors.New("signal series length does not match frame")
	ErrInvalidWeights = errors.New("ensemble weights must be non-negative with a positive sum")
	ErrNoGenerators   = errors.New("ensemble requires at least one generator")
)

// Generator turns a Frame into a SignalSeries aligned with its bars.
type Generator interface {
	Name() string
	GenerateSignals(f *Frame) (model.SignalSeries, error)
}

// Frame is the price/context table every generator reads from. All columns
// are aligned with Bars.
type Frame struct {
	Symbol  string
	Bars    []model.OHLCV
	Close   []float64
	Kalman  []float64
	Fourier []float64
}

// NewFrame validates the series and computes the filter columns.
func NewFrame(series *model.PriceSeries, kf *filter.Kalman, ff *filter.Fourier) (*Frame, error) {
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("validate series: %w", err)
	}
	closes := series.Closes()
	return &Frame{
		Symbol:  series.Symbol,
		Bars:    series.Bars,
		Close:   closes,
		Kalman:  kf.Apply(closes),
		Fourier: ff.Apply(closes),
	}, nil
}

// Len returns the number of bars.
func (f *Frame) Len() int { return len(f.Close) }

func (f *Frame) check() error {
	n := f.Len()
	if n == 0 {
		return model.ErrEmptySeries
	}
	if len(f.Kalman) != n || len(f.Fourier) != n {
		return fmt.Errorf("frame columns close=%d kalman=%d fourier=%d: %w",
			n, len(f.Kalman), len(f.Fourier), ErrLengthMismatch)
	}
	return nil
}

func checkAligned(name string, s model.SignalSeries, n int) error {
	if len(s) != n {
		return fmt.Errorf("%s produced %d signals for %d bars: %w", name, len(s), n, ErrLengthMismatch)
	}
	return nil
}
