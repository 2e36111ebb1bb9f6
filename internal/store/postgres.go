package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cleaning_runs (
	id               UUID PRIMARY KEY,
	dataset          TEXT NOT NULL,
	source           TEXT NOT NULL,
	file_name        TEXT NOT NULL,
	status           TEXT NOT NULL,
	started_at       TIMESTAMPTZ NOT NULL,
	finished_at      TIMESTAMPTZ NOT NULL,
	initial_rows     INTEGER NOT NULL,
	final_rows       INTEGER NOT NULL,
	quarantined_rows INTEGER NOT NULL,
	summary          JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS cleaning_runs_dataset_started_idx
	ON cleaning_runs (dataset, started_at DESC);
CREATE TABLE IF NOT EXISTS cleaning_changes (
	run_id         UUID NOT NULL REFERENCES cleaning_runs(id) ON DELETE CASCADE,
	row_index      INTEGER NOT NULL,
	column_name    TEXT NOT NULL,
	original_value TEXT NOT NULL,
	new_value      TEXT NOT NULL,
	operation      TEXT NOT NULL,
	reason         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS cleaning_changes_run_idx ON cleaning_changes (run_id);
`

// PostgresStore keeps run summaries in cleaning_runs and repair provenance
// in cleaning_changes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. Call Migrate before first use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate run store: %w", err)
	}
	return nil
}

// SaveRun upserts the run and replaces its change rows in one transaction.
// Changes are bulk-loaded with COPY.
func (s *PostgresStore) SaveRun(ctx context.Context, rec RunRecord) error {
	id, err := toPgUUID(rec.ID)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(withoutChanges(rec))
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", rec.ID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	_, err = tx.Exec(ctx, `
		INSERT INTO cleaning_runs (id, dataset, source, file_name, status, started_at, finished_at,
			initial_rows, final_rows, quarantined_rows, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			initial_rows = EXCLUDED.initial_rows,
			final_rows = EXCLUDED.final_rows,
			quarantined_rows = EXCLUDED.quarantined_rows,
			summary = EXCLUDED.summary`,
		id, rec.Dataset, rec.Source, rec.FileName, rec.Status, rec.StartedAt, rec.FinishedAt,
		rec.InitialRows, rec.FinalRows, rec.QuarantinedRows, summary,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cleaning_changes WHERE run_id = $1`, id); err != nil {
		return fmt.Errorf("clear changes for run %s: %w", rec.ID, err)
	}

	if len(rec.Changes) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"cleaning_changes"},
			[]string{"run_id", "row_index", "column_name", "original_value", "new_value", "operation", "reason"},
			pgx.CopyFromSlice(len(rec.Changes), func(i int) ([]any, error) {
				c := rec.Changes[i]
				return []any{id, int32(c.Row), c.Column, c.Original, c.New, c.Operation, c.Reason}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy changes for run %s: %w", rec.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// GetRun returns the run with id, including its changes, or ErrNotFound.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (RunRecord, error) {
	pgID, err := toPgUUID(id)
	if err != nil {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var summary []byte
	err = s.pool.QueryRow(ctx, `SELECT summary FROM cleaning_runs WHERE id = $1`, pgID).Scan(&summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return RunRecord{}, err
	}

	var rec RunRecord
	if err := json.Unmarshal(summary, &rec); err != nil {
		return RunRecord{}, fmt.Errorf("decode run %s: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT row_index, column_name, original_value, new_value, operation, reason
		FROM cleaning_changes WHERE run_id = $1 ORDER BY row_index, column_name`, pgID)
	if err != nil {
		return RunRecord{}, err
	}
	rec.Changes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ChangeRecord, error) {
		var c ChangeRecord
		var idx int32
		err := row.Scan(&idx, &c.Column, &c.Original, &c.New, &c.Operation, &c.Reason)
		c.Row = int(idx)
		return c, err
	})
	if err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRuns returns matching runs, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, opts ListOptions) ([]RunRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT summary FROM cleaning_runs
		WHERE $1 = '' OR dataset = $1
		ORDER BY started_at DESC
		LIMIT $2`, opts.Dataset, opts.limit())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		var summary []byte
		if err := rows.Scan(&summary); err != nil {
			return nil, err
		}
		var rec RunRecord
		if err := json.Unmarshal(summary, &rec); err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// toPgUUID converts a string run ID to pgtype.UUID.
func toPgUUID(id string) (pgtype.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}
