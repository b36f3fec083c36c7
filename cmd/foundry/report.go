package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"SignalFoundry/internal/model"
	"SignalFoundry/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("245"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	buyStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	sellStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	holdStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

func renderSignal(s model.Signal) string {
	switch s {
	case model.Buy:
		return buyStyle.Render(s.String())
	case model.Sell:
		return sellStyle.Render(s.String())
	default:
		return holdStyle.Render(s.String())
	}
}

func renderMetrics(m model.PerformanceMetrics) string {
	sharpe := "n/a"
	if !math.IsNaN(m.SharpeRatio) && !math.IsInf(m.SharpeRatio, 0) {
		sharpe = fmt.Sprintf("%.2f", m.SharpeRatio)
	}
	rows := []string{
		labelStyle.Render("total return") + fmt.Sprintf("%+.2f%%", m.TotalReturn*100),
		labelStyle.Render("sharpe") + sharpe,
		labelStyle.Render("max drawdown") + fmt.Sprintf("%.2f%%", m.MaxDrawdown*100),
		labelStyle.Render("final equity") + fmt.Sprintf("%.2f", m.FinalEquity),
		labelStyle.Render("trades") + fmt.Sprintf("%d", m.NumTrades),
	}
	return strings.Join(rows, "\n")
}

func renderReport(symbol string, res *pipeline.Result) string {
	var b strings.Builder
	last := model.Hold
	if n := len(res.Final); n > 0 {
		last = res.Final[n-1]
	}
	b.WriteString(titleStyle.Render("SignalFoundry · "+symbol) + "\n")
	b.WriteString(labelStyle.Render("bars") + fmt.Sprintf("%d", len(res.Final)) + "\n")
	b.WriteString(labelStyle.Render("signal") + renderSignal(last) + "\n\n")
	b.WriteString(boxStyle.Render(renderMetrics(res.Metrics)) + "\n")

	var gens []string
	for _, g := range res.Generators {
		var gl model.Signal
		if n := len(g.Signals); n > 0 {
			gl = g.Signals[n-1]
		}
		gens = append(gens, fmt.Sprintf("%s  w=%.2f  %s  ret %+.2f%%",
			labelStyle.Render(g.Name), g.Weight, renderSignal(gl), g.Metrics.TotalReturn*100))
	}
	if len(gens) > 0 {
		b.WriteString(boxStyle.Render(strings.Join(gens, "\n")))
	}
	return b.String()
}
