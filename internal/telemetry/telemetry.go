package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"SignalFoundry/internal/pipeline"
)

const namespace = "signal_foundry"

// Recorder exports run outcomes as Prometheus metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	failuresTotal   *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	totalReturn     *prometheus.GaugeVec
	sharpeRatio     *prometheus.GaugeVec
	maxDrawdown     *prometheus.GaugeVec
	finalEquity     *prometheus.GaugeVec
	trades          *prometheus.GaugeVec
	lastSignal      *prometheus.GaugeVec
	generatorReturn *prometheus.GaugeVec
}

// New creates a recorder with Go and process collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "runs_total",
			Help: "Completed pipeline runs",
		}, []string{"symbol"}),
		failuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "failures_total",
			Help: "Failed pipeline runs by stage",
		}, []string{"symbol", "stage"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: prometheus.DefBuckets,
		}, []string{"symbol"}),
		totalReturn: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "backtest", Name: "total_return",
			Help: "Total return of the ensemble in the last run",
		}, []string{"symbol"}),
		sharpeRatio: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "backtest", Name: "sharpe_ratio",
			Help: "Annualized Sharpe ratio of the last run (NaN when undefined)",
		}, []string{"symbol"}),
		maxDrawdown: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "backtest", Name: "max_drawdown",
			Help: "Maximum drawdown of the last run",
		}, []string{"symbol"}),
		finalEquity: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "backtest", Name: "final_equity",
			Help: "Final equity of the last run",
		}, []string{"symbol"}),
		trades: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "backtest", Name: "trades",
			Help: "Non-hold ensemble signals in the last run",
		}, []string{"symbol"}),
		lastSignal: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "signal", Name: "last",
			Help: "Ensemble signal on the most recent bar (-1, 0, 1)",
		}, []string{"symbol"}),
		generatorReturn: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "backtest", Name: "generator_total_return",
			Help: "Standalone total return of each generator in the last run",
		}, []string{"symbol", "generator"}),
	}
}

// Registry returns the registry backing this recorder.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRun records a successful run.
func (r *Recorder) ObserveRun(symbol string, res *pipeline.Result, d time.Duration) {
	r.runsTotal.WithLabelValues(symbol).Inc()
	r.runDuration.WithLabelValues(symbol).Observe(d.Seconds())

	m := res.Metrics
	r.totalReturn.WithLabelValues(symbol).Set(m.TotalReturn)
	r.sharpeRatio.WithLabelValues(symbol).Set(m.SharpeRatio)
	r.maxDrawdown.WithLabelValues(symbol).Set(m.MaxDrawdown)
	r.finalEquity.WithLabelValues(symbol).Set(m.FinalEquity)
	r.trades.WithLabelValues(symbol).Set(float64(m.NumTrades))
	if n := len(res.Final); n > 0 {
		r.lastSignal.WithLabelValues(symbol).Set(float64(res.Final[n-1]))
	}
	for _, g := range res.Generators {
		r.generatorReturn.WithLabelValues(symbol, g.Name).Set(g.Metrics.TotalReturn)
	}
}

// ObserveFailure counts a failed run at the given stage.
func (r *Recorder) ObserveFailure(symbol, stage string) {
	r.failuresTotal.WithLabelValues(symbol, stage).Inc()
}
