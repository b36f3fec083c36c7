package strategy

import (
	"fmt"

	"SignalFoundry/internal/model"
)

// DefaultStopPct is the adverse move from entry that closes a position.
const DefaultStopPct = 0.03

// TrailingStop converts a raw signal series into one that respects an open
// position and a stop-loss measured from the entry price.
type TrailingStop struct {
	pct float64
}

func NewTrailingStop(pct float64) (*TrailingStop, error) {
	if !(pct > 0 && pct < 1) {
		return nil, fmt.Errorf("stop pct %v out of (0, 1)", pct)
	}
	return &TrailingStop{pct: pct}, nil
}

// Apply walks the series once in time order. A signal that opens or flips
// the position passes through and resets the entry price. A repeat of the
// current direction emits hold without checking the stop. On a hold bar
// with a position open, a close beyond the stop emits the opposing signal
// and returns to flat.
func (s *TrailingStop) Apply(raw model.SignalSeries, closes []float64) (model.SignalSeries, error) {
	if len(raw) != len(closes) {
		return nil, fmt.Errorf("stop input %d signals for %d closes: %w", len(raw), len(closes), ErrLengthMismatch)
	}

	out := make(model.SignalSeries, len(raw))
	position := model.Hold
	entry := 0.0
	for i, sig := range raw {
		price := closes[i]
		if sig != model.Hold && sig != position {
			position = sig
			entry = price
			out[i] = sig
			continue
		}
		if sig != model.Hold {
			continue
		}
		switch {
		case position == model.Buy && price < entry*(1-s.pct):
			out[i] = model.Sell
			position = model.Hold
		case position == model.Sell && price > entry*(1+s.pct):
			out[i] = model.Buy
			position = model.Hold
		}
	}
	return out, nil
}

// Stopped decorates a Generator with a TrailingStop.
type Stopped struct {
	inner Generator
	stop  *TrailingStop
}

func WithTrailingStop(g Generator, stop *TrailingStop) *Stopped {
	return &Stopped{inner: g, stop: stop}
}

func (g *Stopped) Name() string { return g.inner.Name() }

func (g *Stopped) GenerateSignals(f *Frame) (model.SignalSeries, error) {
	raw, err := g.inner.GenerateSignals(f)
	if err != nil {
		return nil, err
	}
	if err := checkAligned(g.inner.Name(), raw, f.Len()); err != nil {
		return nil, err
	}
	return g.stop.Apply(raw, f.Close)
}
