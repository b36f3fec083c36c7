package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Symbol string `yaml:"symbol" default:"SPY" validate:"required"`
	Seed   int64  `yaml:"seed" default:"1"`

	DataSource struct {
		Kind    string  `yaml:"kind" default:"yahoo" validate:"oneof=yahoo csv mock"`
		CSVPath string  `yaml:"csv_path"`
		Days    int     `yaml:"days" default:"365" validate:"gte=10"`
		Price   float64 `yaml:"mock_price" default:"100" validate:"gt=0"`
	} `yaml:"data_source"`

	Model ModelConfig `yaml:"model"`

	Backtest struct {
		InitialCapital float64 `yaml:"initial_capital" default:"10000" validate:"gt=0"`
		UnitSize       float64 `yaml:"unit_size" default:"1" validate:"gt=0"`
		Policy         string  `yaml:"policy" default:"signed" validate:"oneof=signed long_only"`
		PeriodsPerYear float64 `yaml:"periods_per_year" default:"252" validate:"gt=0"`
	} `yaml:"backtest"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RunCron string `yaml:"run_cron" default:"0 30 22 * * 1-5"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/signal_foundry.db"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr" default:":8080"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// ModelConfig holds every tunable of the signal engine.
type ModelConfig struct {
	StateThreshold float64 `yaml:"state_threshold" default:"0.002" validate:"gte=0"`

	Markov struct {
		Order         int     `yaml:"order" default:"1" validate:"gte=1,lte=10"`
		Deterministic bool    `yaml:"deterministic"`
		MinConfidence float64 `yaml:"min_confidence" validate:"gte=0,lte=1"`
	} `yaml:"markov"`

	Kalman struct {
		ProcessNoise     float64 `yaml:"process_noise" default:"0.00001" validate:"gte=0"`
		ObservationNoise float64 `yaml:"observation_noise" default:"0.01" validate:"gt=0"`
		SlopeThreshold   float64 `yaml:"slope_threshold" default:"0.001" validate:"gte=0"`
	} `yaml:"kalman"`

	Fourier struct {
		KeepRatio float64 `yaml:"keep_ratio" default:"0.05" validate:"gt=0,lte=1"`
		Threshold float64 `yaml:"threshold" default:"0.01" validate:"gte=0"`
	} `yaml:"fourier"`

	QLearning struct {
		Bins         int     `yaml:"bins" default:"10" validate:"gte=2"`
		Window       int     `yaml:"window" default:"5" validate:"gte=2"`
		LearningRate float64 `yaml:"learning_rate" default:"0.1" validate:"gt=0,lte=1"`
		Discount     float64 `yaml:"discount" default:"0.9" validate:"gte=0,lte=1"`
		Epsilon      float64 `yaml:"epsilon" default:"0.1" validate:"gte=0,lte=1"`
		Episodes     int     `yaml:"episodes" default:"10" validate:"gte=0"`
		Multiplier   float64 `yaml:"multiplier" default:"3" validate:"gt=0"`
	} `yaml:"qlearning"`

	Stop struct {
		Enabled bool    `yaml:"enabled" default:"true"`
		Pct     float64 `yaml:"pct" default:"0.03" validate:"gt=0,lt=1"`
	} `yaml:"stop"`

	Weights struct {
		Markov    float64 `yaml:"markov" default:"1" validate:"gte=0"`
		Kalman    float64 `yaml:"kalman" default:"1" validate:"gte=0"`
		Fourier   float64 `yaml:"fourier" default:"1" validate:"gte=0"`
		QLearning float64 `yaml:"qlearning" default:"1" validate:"gte=0"`
	} `yaml:"weights"`
}

var validate = validator.New()

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Defaults go first so explicit zero values in the file survive.
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("FOUNDRY_SYMBOL"); v != "" {
		c.Symbol = v
	}
	if v := os.Getenv("FOUNDRY_DATA_SOURCE"); v != "" {
		c.DataSource.Kind = v
	}
	if v := os.Getenv("FOUNDRY_CSV_PATH"); v != "" {
		c.DataSource.CSVPath = v
	}
	if v := os.Getenv("FOUNDRY_RUN_CRON"); v != "" {
		c.Schedule.RunCron = v
	}
	if v := os.Getenv("FOUNDRY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FOUNDRY_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FOUNDRY_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FOUNDRY_SEED: %w", err)
		}
		c.Seed = seed
	}
	return nil
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.DataSource.Kind == "csv" && c.DataSource.CSVPath == "" {
		return errors.New("data_source.csv_path is required for csv source")
	}
	w := c.Model.Weights
	if w.Markov+w.Kalman+w.Fourier+w.QLearning <= 0 {
		return errors.New("model.weights must have a positive sum")
	}
	if c.DataSource.Days < c.Model.Markov.Order+2 {
		return fmt.Errorf("data_source.days %d too short for markov order %d", c.DataSource.Days, c.Model.Markov.Order)
	}
	return nil
}

// NotificationsEnabled reports whether Telegram credentials are present.
func (c *Config) NotificationsEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
