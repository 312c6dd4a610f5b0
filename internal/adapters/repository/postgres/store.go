// Package postgres provides a PostgreSQL telemetry store.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowgraph/actorflow/internal/core/telemetry"
)

var columns = []string{"run_id", "actor", "signal", "port_id", "seq", "encoding", "payload", "timestamp"}

// Store implements telemetry.Store for PostgreSQL
type Store struct {
	pool      *pgxpool.Pool
	tableName string
}

var _ telemetry.Store = (*Store)(nil)

// Open connects to dsn and creates the samples table.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s := NewStore(pool)
	if err := s.CreateTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, tableName: "samples"}
}

// CreateTables creates the necessary database tables
func (s *Store) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id BIGSERIAL PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			actor VARCHAR(255) NOT NULL,
			signal VARCHAR(255) NOT NULL,
			port_id BIGINT NOT NULL,
			seq BIGINT NOT NULL,
			encoding VARCHAR(64) NOT NULL DEFAULT '',
			payload BYTEA,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_run_id ON %[1]s (run_id);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_timestamp ON %[1]s (timestamp);
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Append bulk-loads samples with COPY
func (s *Store) Append(ctx context.Context, samples ...*telemetry.Sample) error {
	rows := make([][]interface{}, 0, len(samples))
	for _, sample := range samples {
		if err := sample.Validate(); err != nil {
			return err
		}
		rows = append(rows, []interface{}{
			sample.RunID, sample.Actor, sample.Signal, int64(sample.PortID), int64(sample.Seq),
			sample.Encoding, sample.Payload, sample.Timestamp,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	if _, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.tableName}, columns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to append samples: %w", err)
	}
	return nil
}

// List retrieves samples based on filter criteria, oldest first
func (s *Store) List(ctx context.Context, filter telemetry.Filter) ([]*telemetry.Sample, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	var samples []*telemetry.Sample
	for rows.Next() {
		var sample telemetry.Sample
		var portID, seq int64
		if err := rows.Scan(
			&sample.RunID, &sample.Actor, &sample.Signal, &portID, &seq,
			&sample.Encoding, &sample.Payload, &sample.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sample row: %w", err)
		}
		sample.PortID = uint32(portID)
		sample.Seq = uint64(seq)
		samples = append(samples, &sample)
	}
	return samples, rows.Err()
}

// Delete removes every sample of runID
func (s *Store) Delete(ctx context.Context, runID string) (int, error) {
	if runID == "" {
		return 0, telemetry.ErrInvalidRunID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = $1", s.tableName)
	result, err := s.pool.Exec(ctx, query, runID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return 0, telemetry.ErrRunNotFound
	}
	return int(result.RowsAffected()), nil
}

// Close closes the database connection pool
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// buildListQuery constructs the SQL query for listing samples
func (s *Store) buildListQuery(filter telemetry.Filter) (string, []interface{}) {
	query := fmt.Sprintf(
		"SELECT run_id, actor, signal, port_id, seq, encoding, payload, timestamp FROM %s WHERE 1=1",
		s.tableName)
	args := make([]interface{}, 0)

	add := func(clause string, v interface{}) {
		args = append(args, v)
		query += fmt.Sprintf(clause, len(args))
	}

	if filter.RunID != "" {
		add(" AND run_id = $%d", filter.RunID)
	}
	if filter.Actor != "" {
		add(" AND actor = $%d", filter.Actor)
	}
	if filter.Signal != "" {
		add(" AND signal = $%d", filter.Signal)
	}
	if filter.Since != nil {
		add(" AND timestamp > $%d", *filter.Since)
	}
	if filter.Before != nil {
		add(" AND timestamp < $%d", *filter.Before)
	}

	query += " ORDER BY id ASC"

	if filter.Limit > 0 {
		add(" LIMIT $%d", filter.Limit)
	}
	if filter.Offset > 0 {
		add(" OFFSET $%d", filter.Offset)
	}
	return query, args
}
