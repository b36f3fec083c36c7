package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"SignalFoundry/internal/collector"
	"SignalFoundry/internal/notifier"
	"SignalFoundry/internal/pipeline"
	"SignalFoundry/internal/recorder"
	"SignalFoundry/internal/telemetry"
)

const stageCollect = "collect"

// Sender delivers reports. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler re-runs the pipeline on a cron schedule and fans the result out
// to the recorder, metrics and notifier.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Runner    *pipeline.Runner
	Notifier  Sender
	Recorder  recorder.Recorder
	Metrics   *telemetry.Recorder
	Log       zerolog.Logger
	Ctx       context.Context

	runMu  sync.Mutex
	mu     sync.RWMutex
	latest *recorder.RunSnapshot
}

// NewScheduler creates a new Scheduler. Notifier may be nil.
func NewScheduler(ctx context.Context, col *collector.Collector, runner *pipeline.Runner, sender Sender,
	rec recorder.Recorder, metrics *telemetry.Recorder, log zerolog.Logger) *Scheduler {
	cl := cronLogger{log}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		Collector: col,
		Runner:    runner,
		Notifier:  sender,
		Recorder:  rec,
		Metrics:   metrics,
		Log:       log,
		Ctx:       ctx,
	}
}

// Register schedules a pipeline run.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.runTask); err != nil {
		return fmt.Errorf("register run task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info().Msg("scheduler stopped")
}

// Latest returns the most recent successful run, or nil.
func (s *Scheduler) Latest() *recorder.RunSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Scheduler) runTask() {
	if _, err := s.RunNow(); err != nil {
		s.Log.Error().Err(err).Msg("scheduled run failed")
	}
}

// RunNow collects data and runs the pipeline once. Concurrent calls are serialized.
func (s *Scheduler) RunNow() (*recorder.RunSnapshot, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	symbol := s.Collector.Symbol
	log := s.Log.With().Str("symbol", symbol).Logger()
	log.Info().Msg("running pipeline")
	started := time.Now()

	series, err := s.Collector.Collect(s.Ctx)
	if err != nil {
		s.fail(symbol, stageCollect, err)
		return nil, fmt.Errorf("collect: %w", err)
	}

	res, err := s.Runner.Run(series)
	if err != nil {
		s.fail(symbol, pipeline.StageOf(err), err)
		return nil, fmt.Errorf("run pipeline: %w", err)
	}
	elapsed := time.Since(started)

	snap := &recorder.RunSnapshot{
		Symbol:    symbol,
		Source:    s.Collector.Fetcher.Name(),
		StartedAt: started,
		Duration:  elapsed,
		Result:    res,
	}
	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	if s.Metrics != nil {
		s.Metrics.ObserveRun(symbol, res, elapsed)
	}
	if err := s.Recorder.RecordRun(snap); err != nil {
		log.Error().Err(err).Msg("record run")
	}
	s.trySend(notifier.FormatRunReport(symbol, res))

	log.Info().
		Int("bars", series.Len()).
		Float64("total_return", res.Metrics.TotalReturn).
		Float64("max_drawdown", res.Metrics.MaxDrawdown).
		Int("trades", res.Metrics.NumTrades).
		Dur("elapsed", elapsed).
		Msg("pipeline finished")
	return snap, nil
}

func (s *Scheduler) fail(symbol, stage string, err error) {
	s.Log.Error().Err(err).Str("symbol", symbol).Str("stage", stage).Msg("pipeline failed")
	if s.Metrics != nil {
		s.Metrics.ObserveFailure(symbol, stage)
	}
	s.trySend(notifier.FormatFailure(symbol, stage, err))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	switch command {
	case "/run":
		// The report or failure is pushed by RunNow itself.
		if _, err := s.RunNow(); err != nil {
			s.Log.Warn().Err(err).Msg("manual run failed")
		}
		return ""
	case "/latest":
		snap := s.Latest()
		if snap == nil {
			return "暂无运行记录"
		}
		return notifier.FormatRunReport(snap.Symbol, snap.Result)
	default:
		return "可用命令:\n• /run 立即运行\n• /latest 最近结果"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Log.Error().Err(err).Msg("send notification")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
