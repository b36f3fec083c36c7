package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"SignalFoundry/internal/api"
	"SignalFoundry/internal/collector"
	"SignalFoundry/internal/config"
	"SignalFoundry/internal/logger"
	"SignalFoundry/internal/notifier"
	"SignalFoundry/internal/pipeline"
	"SignalFoundry/internal/recorder"
	"SignalFoundry/internal/scheduler"
	"SignalFoundry/internal/telemetry"
)

func main() {
	once := flag.Bool("once", false, "run the pipeline once, print a report and exit")
	cfgPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	flag.Parse()

	// .env is optional.
	_ = godotenv.Load()
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		*cfgPath = v
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	log.Info().Str("symbol", cfg.Symbol).Msg("SignalFoundry starting")

	fetcher := newFetcher(cfg)
	log.Info().Str("source", fetcher.Name()).Msg("data source selected")
	col := collector.NewCollector(fetcher, cfg.Symbol, cfg.DataSource.Days)

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init pipeline")
	}

	if *once {
		if err := runOnce(col, runner); err != nil {
			log.Fatal().Err(err).Msg("run failed")
		}
		return
	}

	rec := newRecorder(cfg, log)
	defer rec.Close()

	metrics := telemetry.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.NotificationsEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		sender = tn
	} else {
		log.Warn().Msg("telegram not configured, notifications disabled")
	}

	sched := scheduler.NewScheduler(ctx, col, runner, sender, rec, metrics, log)
	if err := sched.Register(cfg.Schedule.RunCron); err != nil {
		log.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	srv := api.NewServer(cfg.Server.Addr, sched, metrics.Handler(), log)
	srv.Start()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running pipeline now")
		go func() {
			if _, err := sched.RunNow(); err != nil {
				log.Error().Err(err).Msg("startup run failed")
			}
		}()
	}

	log.Info().Msg("SignalFoundry is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("stop http server")
	}
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Kind {
	case "csv":
		return &collector.CSVFetcher{Path: cfg.DataSource.CSVPath}
	case "mock":
		return &collector.MockFetcher{Price: cfg.DataSource.Price, Seed: cfg.Seed}
	default:
		return collector.NewYahooFetcher(cfg.Proxy)
	}
}

func newRecorder(cfg *config.Config, log zerolog.Logger) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func runOnce(col *collector.Collector, runner *pipeline.Runner) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	series, err := col.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	res, err := runner.Run(series)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}
	fmt.Println(renderReport(col.Symbol, res))
	return nil
}
