package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"SignalFoundry/internal/model"
	"SignalFoundry/internal/pipeline"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so readers can query while runs are written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			source       TEXT,
			bars         INTEGER,
			duration_ms  INTEGER,
			total_return REAL,
			sharpe       REAL,
			max_drawdown REAL,
			final_equity REAL,
			num_trades   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS generator_results (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       INTEGER NOT NULL REFERENCES runs(id),
			name         TEXT NOT NULL,
			weight       REAL,
			total_return REAL,
			sharpe       REAL,
			max_drawdown REAL,
			num_trades   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_generator_run ON generator_results(run_id)`,

		`CREATE TABLE IF NOT EXISTS portfolio_bars (
			run_id    INTEGER NOT NULL REFERENCES runs(id),
			timestamp INTEGER NOT NULL,
			close     REAL,
			signal    INTEGER,
			position  REAL,
			holdings  REAL,
			cash      REAL,
			total     REAL,
			ret       REAL,
			PRIMARY KEY (run_id, timestamp)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable stores NaN statistics as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// RecordRun writes the run summary, per-generator metrics and the portfolio
// path in one transaction.
func (r *SQLiteRecorder) RecordRun(snap *RunSnapshot) (err error) {
	if snap == nil || snap.Result == nil || snap.Result.Portfolio == nil {
		return errors.New("record run: empty snapshot")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := snap.Result
	m := res.Metrics
	out, err := tx.Exec(`INSERT INTO runs
		(timestamp, symbol, source, bars, duration_ms, total_return, sharpe, max_drawdown, final_equity, num_trades)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		snap.StartedAt.Unix(), snap.Symbol, snap.Source, len(res.Final), snap.Duration.Milliseconds(),
		m.TotalReturn, nullable(m.SharpeRatio), m.MaxDrawdown, m.FinalEquity, m.NumTrades,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := out.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	for _, g := range res.Generators {
		if _, err = tx.Exec(`INSERT INTO generator_results
			(run_id, name, weight, total_return, sharpe, max_drawdown, num_trades)
			VALUES (?,?,?,?,?,?,?)`,
			runID, g.Name, g.Weight, g.Metrics.TotalReturn, nullable(g.Metrics.SharpeRatio),
			g.Metrics.MaxDrawdown, g.Metrics.NumTrades,
		); err != nil {
			return fmt.Errorf("insert generator %s: %w", g.Name, err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO portfolio_bars
		(run_id, timestamp, close, signal, position, holdings, cash, total, ret)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare bars: %w", err)
	}
	defer stmt.Close()
	for i, b := range res.Portfolio.Bars {
		if _, err = stmt.Exec(runID, b.Time.Unix(), closeAt(res, i), int(res.Final[i]),
			b.Position, b.Holdings, b.Cash, b.Total, b.Return); err != nil {
			return fmt.Errorf("insert bar %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Debug().Int64("run_id", runID).Str("symbol", snap.Symbol).Msg("run recorded")
	return nil
}

func closeAt(res *pipeline.Result, i int) float64 {
	if res.Frame == nil || i >= len(res.Frame.Close) {
		return 0
	}
	return res.Frame.Close[i]
}

// LatestMetrics returns the most recent run's summary for symbol.
func (r *SQLiteRecorder) LatestMetrics(symbol string) (model.PerformanceMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m model.PerformanceMetrics
	var sharpe sql.NullFloat64
	err := r.db.QueryRow(`SELECT total_return, sharpe, max_drawdown, final_equity, num_trades
		FROM runs WHERE symbol = ? ORDER BY id DESC LIMIT 1`, symbol).
		Scan(&m.TotalReturn, &sharpe, &m.MaxDrawdown, &m.FinalEquity, &m.NumTrades)
	if err != nil {
		return m, fmt.Errorf("latest run for %s: %w", symbol, err)
	}
	m.SharpeRatio = math.NaN()
	if sharpe.Valid {
		m.SharpeRatio = sharpe.Float64
	}
	return m, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
