package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"fieldbridge/pkg/models"
)

// PostgresStore is a PostgreSQL implementation of the Sink interface.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id BIGSERIAL PRIMARY KEY,
			execution_id TEXT NOT NULL,
			workflow_id TEXT NOT NULL,
			connector TEXT NOT NULL DEFAULT '',
			trigger_source TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error_code TEXT NOT NULL DEFAULT '',
			elapsed_ms BIGINT NOT NULL DEFAULT 0,
			attempts INT NOT NULL DEFAULT 0,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

// Record inserts one audit entry.
func (s *PostgresStore) Record(ctx context.Context, entry models.AuditEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_entries (execution_id, workflow_id, connector, trigger_source, user_id, status, error_code, elapsed_ms, attempts, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ExecutionID, entry.WorkflowID, entry.Connector, entry.Trigger, entry.UserID,
		entry.Status, entry.ErrorCode, entry.ElapsedMs, entry.Attempts, entry.OccurredAt)
	return err
}

// Recent returns the newest entries, most recent first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT execution_id, workflow_id, connector, trigger_source, user_id, status, error_code, elapsed_ms, attempts, occurred_at
		 FROM audit_entries ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ExecutionID, &e.WorkflowID, &e.Connector, &e.Trigger, &e.UserID,
			&e.Status, &e.ErrorCode, &e.ElapsedMs, &e.Attempts, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
