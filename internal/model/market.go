package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrEmptySeries     = errors.New("price series is empty")
	ErrUnorderedSeries = errors.New("price series timestamps must be strictly ascending")
	ErrInvalidPrice    = errors.New("price must be finite and positive")
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries is the ordered price table handed over by a data loader.
// The core only reads it.
type PriceSeries struct {
	Symbol    string
	Bars      []OHLCV
	FetchedAt time.Time
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int { return len(s.Bars) }

// Closes extracts the close column.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Validate enforces the input contract: at least one bar, strictly ascending
// timestamps and finite, positive closes.
func (s *PriceSeries) Validate() error {
	if len(s.Bars) == 0 {
		return ErrEmptySeries
	}
	for i, b := range s.Bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			return fmt.Errorf("bar %d close %v: %w", i, b.Close, ErrInvalidPrice)
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return fmt.Errorf("bar %d at %s: %w", i, b.Time.Format(time.RFC3339), ErrUnorderedSeries)
		}
	}
	return nil
}
