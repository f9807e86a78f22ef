package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"pricecast/internal/logger"
	"pricecast/internal/model"
)

// SQLiteRecorder persists forecast runs and their points to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.WithComponent("recorder").Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			trigger_type TEXT NOT NULL,
			symbol       TEXT,
			last_known   TEXT,
			end_date     TEXT NOT NULL,
			horizon_end  TEXT,
			window_size  INTEGER,
			points       INTEGER NOT NULL DEFAULT 0,
			final_value  REAL,
			duration_ms  INTEGER,
			error        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON forecast_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS forecast_points (
			run_id TEXT NOT NULL REFERENCES forecast_runs(id),
			step   INTEGER NOT NULL,
			date   TEXT NOT NULL,
			value  REAL NOT NULL,
			PRIMARY KEY (run_id, step)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run and, for successful runs, every forecast point in
// a single transaction. A missing run ID is filled in.
func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.RecordedAt.IsZero() {
		run.RecordedAt = time.Now()
	}

	var (
		lastKnown, horizonEnd sql.NullString
		windowSize            sql.NullInt64
		finalValue            sql.NullFloat64
		errText               sql.NullString
		points                []model.ForecastPoint
	)
	if f := run.Forecast; f != nil {
		lastKnown = sql.NullString{String: f.LastKnown.Date.Format(model.DateLayout), Valid: true}
		horizonEnd = sql.NullString{String: f.HorizonEnd.Format(model.DateLayout), Valid: true}
		windowSize = sql.NullInt64{Int64: int64(f.WindowSize), Valid: true}
		if p, ok := f.Final(); ok {
			finalValue = sql.NullFloat64{Float64: p.Value, Valid: true}
		}
		points = f.Points
	}
	if run.Err != nil {
		errText = sql.NullString{String: run.Err.Error(), Valid: true}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO forecast_runs
		(id, timestamp, trigger_type, symbol, last_known, end_date, horizon_end,
		 window_size, points, final_value, duration_ms, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.RecordedAt.Unix(), string(run.Trigger), run.Symbol,
		lastKnown, run.EndDate.Format(model.DateLayout), horizonEnd,
		windowSize, len(points), finalValue, run.Duration.Milliseconds(), errText,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, p := range points {
		if _, err := tx.Exec(`INSERT INTO forecast_points (run_id, step, date, value) VALUES (?,?,?,?)`,
			run.ID, i+1, p.Date.Format(model.DateLayout), p.Value,
		); err != nil {
			return fmt.Errorf("insert point %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT id, timestamp, trigger_type, symbol, last_known, end_date,
		window_size, points, final_value, duration_ms, error
		FROM forecast_runs ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s          RunSummary
			ts         int64
			trigger    string
			symbol     sql.NullString
			lastKnown  sql.NullString
			endDate    string
			windowSize sql.NullInt64
			finalValue sql.NullFloat64
			durationMs sql.NullInt64
			errText    sql.NullString
		)
		if err := rows.Scan(&s.ID, &ts, &trigger, &symbol, &lastKnown, &endDate,
			&windowSize, &s.Points, &finalValue, &durationMs, &errText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.CreatedAt = time.Unix(ts, 0)
		s.Trigger = Trigger(trigger)
		s.Symbol = symbol.String
		if lastKnown.Valid {
			s.LastKnown, _ = model.ParseDate(lastKnown.String)
		}
		s.EndDate, _ = model.ParseDate(endDate)
		s.WindowSize = int(windowSize.Int64)
		s.FinalValue = finalValue.Float64
		s.DurationMs = durationMs.Int64
		s.Error = errText.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// Points returns the stored points of a run in step order.
func (r *SQLiteRecorder) Points(runID string) ([]model.ForecastPoint, error) {
	rows, err := r.db.Query(`SELECT date, value FROM forecast_points WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var out []model.ForecastPoint
	for rows.Next() {
		var d string
		var p model.ForecastPoint
		if err := rows.Scan(&d, &p.Value); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		if p.Date, err = model.ParseDate(d); err != nil {
			return nil, fmt.Errorf("parse point date: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.WithComponent("recorder").Info("closing sqlite recorder")
	return r.db.Close()
}
