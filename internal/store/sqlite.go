package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/abelk/solarscope/internal/dataset"
	"github.com/abelk/solarscope/internal/stats"
)

// Store writes one-shot snapshots of a loaded observation table into
// SQLite for offline inspection. The analysis path never reads it back.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SnapshotTable writes every reading of the table in long format, one row
// per (country, timestamp, metric) with non-missing value, and records the
// load fingerprint. The whole snapshot is one transaction.
func (s *Store) SnapshotTable(t *dataset.Table, fingerprint string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO readings (country, observed_at, metric, value)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, name := range t.Columns() {
		col, _ := t.Column(name)
		for i, v := range col {
			if v != v { // skip NaN
				continue
			}
			if _, err := stmt.Exec(t.CountryAt(i), t.TimestampAt(i), name, v); err != nil {
				tx.Rollback()
				return fmt.Errorf("insert reading: %w", err)
			}
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO snapshots (fingerprint, row_count, created_at)
		VALUES (?, ?, ?)
	`, fingerprint, t.Len(), time.Now().UTC()); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert snapshot meta: %w", err)
	}

	return tx.Commit()
}

// SnapshotSummaries writes per-country comparison records.
func (s *Store) SnapshotSummaries(rows []stats.ComparisonRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin summaries: %w", err)
	}

	for _, r := range rows {
		if _, err := tx.Exec(`
			INSERT INTO country_summaries (metric, country, mean, median, std)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(metric, country) DO UPDATE SET
				mean = excluded.mean,
				median = excluded.median,
				std = excluded.std
		`, r.Metric, r.Country, nullable(r.Mean), nullable(r.Median), nullable(r.Std)); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert summary %s/%s: %w", r.Metric, r.Country, err)
		}
	}
	return tx.Commit()
}

// nullable maps NaN statistics to SQL NULL.
func nullable(v float64) sql.NullFloat64 {
	if v != v {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// CountReadings reports the number of stored readings.
func (s *Store) CountReadings() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&n)
	return n, err
}

// LatestSnapshot returns the most recent snapshot fingerprint, or "" when
// none exists.
func (s *Store) LatestSnapshot() (string, error) {
	var fp string
	err := s.db.QueryRow(`
		SELECT fingerprint FROM snapshots ORDER BY created_at DESC, id DESC LIMIT 1
	`).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return fp, nil
}
