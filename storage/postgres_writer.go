package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"listen-history/models"
)

// listenColumns is the number of bound parameters per inserted row.
const listenColumns = 7

// PostgresWriter mirrors the canonical dataset into PostgreSQL so it can be
// queried with SQL tools.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := NewPostgresWriterFromDB(db)
	if err := pw.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

// NewPostgresWriterFromDB wraps an already open database handle.
func NewPostgresWriterFromDB(db *sql.DB) *PostgresWriter {
	return &PostgresWriter{db: db}
}

// Migrate creates the listens table and its indexes.
func (pw *PostgresWriter) Migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listens (
			id          SERIAL PRIMARY KEY,
			listened_at TIMESTAMP    NOT NULL,
			title       TEXT         NOT NULL DEFAULT '',
			artist      TEXT         NOT NULL DEFAULT '',
			song_id     TEXT         NOT NULL DEFAULT '',
			link        TEXT         NOT NULL DEFAULT '',
			day_of_week SMALLINT     NOT NULL,
			time_of_day VARCHAR(16)  NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_listens_listened_at ON listens(listened_at);
		CREATE INDEX IF NOT EXISTS idx_listens_artist      ON listens(artist);
		CREATE INDEX IF NOT EXISTS idx_listens_song_id     ON listens(song_id);
	`)
	return err
}

// Write replaces every stored listen with ds inside one transaction.
// Listens are never merged: the sheet export is the full history.
func (pw *PostgresWriter) Write(ctx context.Context, ds models.Dataset) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM listens"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 500
	for i := 0; i < len(ds); i += batchSize {
		end := min(i+batchSize, len(ds))
		if err := insertBatch(ctx, tx, ds[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertBatch(ctx context.Context, tx *sql.Tx, batch models.Dataset) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*listenColumns)

	for idx, l := range batch {
		base := idx * listenColumns
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		valueArgs = append(valueArgs,
			l.Date, l.Title, l.Artist, l.SongID, l.Link, l.DayOfWeek, string(l.TimeOfDay))
	}

	query := fmt.Sprintf(`
		INSERT INTO listens (listened_at, title, artist, song_id, link, day_of_week, time_of_day)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored listens in insertion order.
func (pw *PostgresWriter) FetchAll(ctx context.Context) (models.Dataset, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT listened_at, title, artist, song_id, link, day_of_week, time_of_day
		FROM listens
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var ds models.Dataset
	for rows.Next() {
		l := &models.Listen{}
		var tod string
		if err := rows.Scan(
			&l.Date, &l.Title, &l.Artist, &l.SongID, &l.Link, &l.DayOfWeek, &tod,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		l.TimeOfDay = models.TimeOfDay(tod)
		ds = append(ds, l)
	}
	return ds, rows.Err()
}
