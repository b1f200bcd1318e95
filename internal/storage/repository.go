package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql

	"github.com/guttosm/avpulse/internal/domain/models"
)

// Canonical numeric columns cached per bar, in storage order.
var barColumns = []string{
	"open",
	"high",
	"low",
	"close",
	"adjusted_close",
	"volume",
	"dividend_amount",
	"split_coefficient",
}

// BarsRepository defines the contract for the local bar cache.
type BarsRepository interface {
	SaveBars(symbol string, interval models.Interval, s models.Series) error
	GetBars(symbol string, interval models.Interval, start, end *time.Time) (models.Series, error)
	Ping() error
	Close() error
}

type barsRepository struct {
	db *sql.DB
}

// NewBarsRepository opens (or creates) the SQLite cache at path and runs
// migrations. The returned repository is safe for concurrent use through the
// database/sql pool.
func NewBarsRepository(path string) (BarsRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so readers are not blocked while a fetch writes through.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &barsRepository{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *barsRepository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			symbol            TEXT    NOT NULL,
			interval          TEXT    NOT NULL,
			ts                INTEGER NOT NULL,
			open              REAL,
			high              REAL,
			low               REAL,
			close             REAL,
			adjusted_close    REAL,
			volume            REAL,
			dividend_amount   REAL,
			split_coefficient REAL,
			PRIMARY KEY (symbol, interval, ts)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_ts ON bars(ts)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// SaveBars upserts a series for (symbol, interval) in one transaction.
// Re-fetching an overlapping range is idempotent: the primary key makes the
// newest write win per timestamp.
func (r *barsRepository) SaveBars(symbol string, interval models.Interval, s models.Series) error {
	if len(s) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO bars
		(symbol, interval, ts, open, high, low, close, adjusted_close, volume, dividend_amount, split_coefficient)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	// helper to map an absent/non-numeric field to NULL
	toNull := func(b models.Bar, name string) interface{} {
		if f, ok := b.Number(name); ok {
			return f
		}
		return nil
	}

	for _, b := range s {
		args := []interface{}{symbol, string(interval), b.Timestamp.UTC().Unix()}
		for _, col := range barColumns {
			args = append(args, toNull(b, col))
		}
		if _, err := stmt.Exec(args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert bar %s: %w", b.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bars: %w", err)
	}
	return nil
}

// GetBars reads cached bars for (symbol, interval), oldest first, optionally
// bounded by start/end (inclusive).
func (r *barsRepository) GetBars(symbol string, interval models.Interval, start, end *time.Time) (models.Series, error) {
	q := `SELECT ts, open, high, low, close, adjusted_close, volume, dividend_amount, split_coefficient
		FROM bars WHERE symbol = ? AND interval = ?`
	args := []interface{}{symbol, string(interval)}
	if start != nil {
		q += " AND ts >= ?"
		args = append(args, start.UTC().Unix())
	}
	if end != nil {
		q += " AND ts <= ?"
		args = append(args, end.UTC().Unix())
	}
	q += " ORDER BY ts ASC"

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := models.Series{}
	for rows.Next() {
		var ts int64
		vals := make([]sql.NullFloat64, len(barColumns))
		dest := []interface{}{&ts}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}

		fields := models.NewRecord()
		for i, col := range barColumns {
			if vals[i].Valid {
				fields.Set(col, models.NumberValue(vals[i].Float64))
			}
		}
		out = append(out, models.Bar{Timestamp: time.Unix(ts, 0).UTC(), Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}
	return out, nil
}

func (r *barsRepository) Ping() error { return r.db.Ping() }

func (r *barsRepository) Close() error { return r.db.Close() }
