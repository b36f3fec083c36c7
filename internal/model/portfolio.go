package model

import "time"

// PortfolioBar is the simulated account state at one timestamp.
type PortfolioBar struct {
	Time     time.Time
	Position float64
	Holdings float64
	Cash     float64
	Total    float64
	Return   float64
}

// Portfolio is built once per simulation and not mutated afterwards.
type Portfolio struct {
	InitialCapital float64
	Bars           []PortfolioBar
}

// Equity returns the total-equity column.
func (p *Portfolio) Equity() []float64 {
	out := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		out[i] = b.Total
	}
	return out
}

// Returns returns the period-return column.
func (p *Portfolio) Returns() []float64 {
	out := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		out[i] = b.Return
	}
	return out
}

// PerformanceMetrics is a pure reduction of a Portfolio.
type PerformanceMetrics struct {
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"` // NaN when returns have zero variance
	MaxDrawdown float64 `json:"max_drawdown"`
	FinalEquity float64 `json:"final_equity"`
	NumTrades   int     `json:"num_trades"`
}
