package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"SignalFoundry/internal/model"
)

// Compute reduces a portfolio to summary statistics. NumTrades is left to
// the caller, which owns the signal series.
func Compute(p *model.Portfolio, periodsPerYear float64) model.PerformanceMetrics {
	equity := p.Equity()
	m := model.PerformanceMetrics{
		SharpeRatio: SharpeRatio(p.Returns(), periodsPerYear),
		MaxDrawdown: MaxDrawdown(equity),
		FinalEquity: p.InitialCapital,
	}
	if len(equity) > 0 {
		m.FinalEquity = equity[len(equity)-1]
	}
	m.TotalReturn = TotalReturn(p.InitialCapital, m.FinalEquity)
	return m
}

// TotalReturn is final/initial - 1, or 0 when initial is not positive.
func TotalReturn(initial, final float64) float64 {
	if initial <= 0 {
		return 0
	}
	return final/initial - 1
}

// SharpeRatio annualizes mean/stdev of every period return, the zero
// opening period included. NaN is returned for fewer than two returns or
// zero variance.
func SharpeRatio(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return math.NaN()
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

// MaxDrawdown returns the most negative equity/running-peak - 1. It is 0 for
// a series that never falls below its peak.
func MaxDrawdown(equity []float64) float64 {
	worst := 0.0
	peak := math.Inf(-1)
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak <= 0 {
			continue
		}
		if dd := e/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}
