// Package sqlite provides a SQLite telemetry store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flowgraph/actorflow/internal/core/telemetry"
)

// Store implements telemetry.Store for SQLite
type Store struct {
	db        *sql.DB
	tableName string
}

var _ telemetry.Store = (*Store)(nil)

// Open opens a SQLite database at dsn (":memory:" for a private database)
// and creates the samples table.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	s := NewStore(db)
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing database handle
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, tableName: "samples"}
}

// WithTableName allows overriding the default table name with validation.
// Only alphanumeric and underscore are permitted to prevent SQL injection via identifiers.
func (s *Store) WithTableName(name string) *Store {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// CreateTables creates the necessary database tables
func (s *Store) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			actor TEXT NOT NULL,
			signal TEXT NOT NULL,
			port_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			encoding TEXT NOT NULL DEFAULT '',
			payload BLOB,
			timestamp INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_run_id ON %[1]s (run_id);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_timestamp ON %[1]s (timestamp);
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Append inserts samples in one transaction
func (s *Store) Append(ctx context.Context, samples ...*telemetry.Sample) (err error) {
	for _, sample := range samples {
		if err := sample.Validate(); err != nil {
			return err
		}
	}
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (run_id, actor, signal, port_id, seq, encoding, payload, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tableName))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, sample := range samples {
		if _, err = stmt.ExecContext(ctx,
			sample.RunID, sample.Actor, sample.Signal, sample.PortID, int64(sample.Seq),
			sample.Encoding, sample.Payload, sample.Timestamp.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to append sample: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit samples: %w", err)
	}
	return nil
}

// List retrieves samples based on filter criteria, oldest first
func (s *Store) List(ctx context.Context, filter telemetry.Filter) ([]*telemetry.Sample, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query, args := s.buildListQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	var samples []*telemetry.Sample
	for rows.Next() {
		var sample telemetry.Sample
		var seq, timestamp int64
		if err := rows.Scan(
			&sample.RunID, &sample.Actor, &sample.Signal, &sample.PortID, &seq,
			&sample.Encoding, &sample.Payload, &timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sample row: %w", err)
		}
		sample.Seq = uint64(seq)
		sample.Timestamp = time.Unix(0, timestamp)
		samples = append(samples, &sample)
	}
	return samples, rows.Err()
}

// Delete removes every sample of runID
func (s *Store) Delete(ctx context.Context, runID string) (int, error) {
	if runID == "" {
		return 0, telemetry.ErrInvalidRunID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, runID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, telemetry.ErrRunNotFound
	}
	return int(rowsAffected), nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}

// buildListQuery constructs the SQL query for listing samples
func (s *Store) buildListQuery(filter telemetry.Filter) (string, []interface{}) {
	query := fmt.Sprintf(
		"SELECT run_id, actor, signal, port_id, seq, encoding, payload, timestamp FROM %s WHERE 1=1",
		s.tableName)
	args := make([]interface{}, 0)

	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.Actor != "" {
		query += " AND actor = ?"
		args = append(args, filter.Actor)
	}
	if filter.Signal != "" {
		query += " AND signal = ?"
		args = append(args, filter.Signal)
	}
	if filter.Since != nil {
		query += " AND timestamp > ?"
		args = append(args, filter.Since.UnixNano())
	}
	if filter.Before != nil {
		query += " AND timestamp < ?"
		args = append(args, filter.Before.UnixNano())
	}

	query += " ORDER BY id ASC"

	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filter.Offset)
	}
	return query, args
}
