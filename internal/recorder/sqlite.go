package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"StockAnalytics/internal/model"
)

// SQLiteRecorder persists enriched series to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so API reads do not block the runner's writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stocks (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker           TEXT    NOT NULL,
			ts               INTEGER NOT NULL,
			date             TEXT    NOT NULL,
			open             REAL,
			high             REAL,
			low              REAL,
			close            REAL,
			volume           REAL,
			price_change_pct REAL,
			sma_short        REAL,
			sma_long         REAL,
			updated_at       INTEGER NOT NULL,
			UNIQUE(ticker, ts)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stocks_ticker_date ON stocks(ticker, date)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			run_id      TEXT,
			ticker      TEXT NOT NULL,
			status      TEXT NOT NULL,
			stage       TEXT,
			rows        INTEGER,
			artifact    TEXT,
			error       TEXT,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordSeries upserts every record of series in one transaction, so a
// re-run over the same data leaves the table unchanged.
func (r *SQLiteRecorder) RecordSeries(ctx context.Context, ticker string, series []model.EnrichedRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO stocks
		(ticker, ts, date, open, high, low, close, volume, price_change_pct, sma_short, sma_long, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker, ts) DO UPDATE SET
			date = excluded.date,
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			price_change_pct = excluded.price_change_pct,
			sma_short = excluded.sma_short,
			sma_long = excluded.sma_long,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, rec := range series {
		d := rec.Date.UTC()
		if _, err := stmt.ExecContext(ctx,
			ticker, d.Unix(), d.Format(time.DateOnly),
			rec.Open, rec.High, rec.Low, rec.Close, rec.Volume,
			rec.PriceChangePct, rec.SMAShort, rec.SMALong, now,
		); err != nil {
			return 0, fmt.Errorf("insert %s %s: %w", ticker, d.Format(time.DateOnly), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(series), nil
}

func (r *SQLiteRecorder) RecordRun(ctx context.Context, evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO runs
		(timestamp, run_id, ticker, status, stage, rows, artifact, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), evt.RunID, evt.Ticker, evt.Status, evt.Stage,
		evt.Rows, evt.Artifact, evt.Error, evt.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

const selectStocks = `SELECT id, ticker, ts, open, high, low, close, volume,
	price_change_pct, sma_short, sma_long FROM stocks`

func (r *SQLiteRecorder) SeriesByTicker(ctx context.Context, ticker string, on *time.Time) ([]StockRow, error) {
	if on != nil {
		return r.query(ctx, selectStocks+` WHERE ticker = ? AND date = ? ORDER BY ts`,
			ticker, on.UTC().Format(time.DateOnly))
	}
	return r.query(ctx, selectStocks+` WHERE ticker = ? ORDER BY ts`, ticker)
}

func (r *SQLiteRecorder) ListSeries(ctx context.Context, offset, limit int) ([]StockRow, error) {
	return r.query(ctx, selectStocks+` ORDER BY ticker, ts LIMIT ? OFFSET ?`, limit, offset)
}

func (r *SQLiteRecorder) query(ctx context.Context, q string, args ...interface{}) ([]StockRow, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	var out []StockRow
	for rows.Next() {
		var (
			row StockRow
			ts  int64
		)
		if err := rows.Scan(&row.ID, &row.Ticker, &ts,
			&row.Open, &row.High, &row.Low, &row.Close, &row.Volume,
			&row.PriceChangePct, &row.SMAShort, &row.SMALong); err != nil {
			return nil, fmt.Errorf("scan stocks: %w", err)
		}
		row.Date = time.Unix(ts, 0).UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
