package api

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"SignalFoundry/internal/model"
	"SignalFoundry/internal/recorder"
)

// APIResponse is the envelope for every JSON reply.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type metricsView struct {
	TotalReturn float64  `json:"total_return"`
	SharpeRatio *float64 `json:"sharpe_ratio"`
	MaxDrawdown float64  `json:"max_drawdown"`
	FinalEquity float64  `json:"final_equity"`
	NumTrades   int      `json:"num_trades"`
}

type generatorView struct {
	Name       string      `json:"name"`
	Weight     float64     `json:"weight"`
	LastSignal string      `json:"last_signal"`
	Metrics    metricsView `json:"metrics"`
}

type runView struct {
	Symbol     string          `json:"symbol"`
	Source     string          `json:"source"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMs int64           `json:"duration_ms"`
	Bars       int             `json:"bars"`
	LastSignal string          `json:"last_signal"`
	LastClose  float64         `json:"last_close"`
	Metrics    metricsView     `json:"metrics"`
	Generators []generatorView `json:"generators"`
	Signals    []int           `json:"signals,omitempty"`
}

type handler struct {
	runs RunSource
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, APIResponse{Status: http.StatusOK, Message: "ok"})
}

// latest serves the last run. ?signals=true includes the full final series.
func (h *handler) latest(c echo.Context) error {
	snap := h.runs.Latest()
	if snap == nil || snap.Result == nil {
		return c.JSON(http.StatusNotFound, APIResponse{
			Status:  http.StatusNotFound,
			Message: "no run recorded yet",
		})
	}
	return c.JSON(http.StatusOK, APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    toRunView(snap, c.QueryParam("signals") == "true"),
	})
}

func toRunView(snap *recorder.RunSnapshot, withSignals bool) runView {
	res := snap.Result
	v := runView{
		Symbol:     snap.Symbol,
		Source:     snap.Source,
		StartedAt:  snap.StartedAt,
		DurationMs: snap.Duration.Milliseconds(),
		Bars:       len(res.Final),
		LastSignal: lastSignal(res.Final),
		Metrics:    toMetricsView(res.Metrics),
	}
	if res.Frame != nil && len(res.Frame.Close) > 0 {
		v.LastClose = res.Frame.Close[len(res.Frame.Close)-1]
	}
	for _, g := range res.Generators {
		v.Generators = append(v.Generators, generatorView{
			Name:       g.Name,
			Weight:     g.Weight,
			LastSignal: lastSignal(g.Signals),
			Metrics:    toMetricsView(g.Metrics),
		})
	}
	if withSignals {
		v.Signals = make([]int, len(res.Final))
		for i, s := range res.Final {
			v.Signals[i] = int(s)
		}
	}
	return v
}

// encoding/json rejects NaN, so an undefined Sharpe ratio becomes null.
func toMetricsView(m model.PerformanceMetrics) metricsView {
	v := metricsView{
		TotalReturn: m.TotalReturn,
		MaxDrawdown: m.MaxDrawdown,
		FinalEquity: m.FinalEquity,
		NumTrades:   m.NumTrades,
	}
	if !math.IsNaN(m.SharpeRatio) && !math.IsInf(m.SharpeRatio, 0) {
		s := m.SharpeRatio
		v.SharpeRatio = &s
	}
	return v
}

func lastSignal(s model.SignalSeries) string {
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1].String()
}
