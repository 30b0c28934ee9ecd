package dtn

import (
	"context"
	"fmt"

	"github.com/asgard/cgrsat/internal/platform/db"
	"github.com/google/uuid"
)

// PostgresAuditStorage implements AuditStorage against PostgreSQL,
// adapted from the teacher's bundle-storage table into an append-only
// lifecycle event log: one row per submit/queue/send/drop/limbo/deliver
// transition, entirely off the forwarding hot path.
type PostgresAuditStorage struct {
	db *db.PostgresDB
}

// NewPostgresAuditStorage creates the audit table if absent and
// returns a storage bound to pgDB.
func NewPostgresAuditStorage(pgDB *db.PostgresDB) (*PostgresAuditStorage, error) {
	storage := &PostgresAuditStorage{db: pgDB}
	if err := storage.createTable(); err != nil {
		return nil, fmt.Errorf("creating audit event table: %w", err)
	}
	return storage, nil
}

func (s *PostgresAuditStorage) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS dtn_audit_events (
			id BIGSERIAL PRIMARY KEY,
			bundle_id UUID NOT NULL,
			source TEXT NOT NULL,
			destination TEXT NOT NULL,
			priority INTEGER NOT NULL,
			kind TEXT NOT NULL,
			reason TEXT,
			occurred_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_audit_destination ON dtn_audit_events(destination);
		CREATE INDEX IF NOT EXISTS idx_audit_kind ON dtn_audit_events(kind);
		CREATE INDEX IF NOT EXISTS idx_audit_occurred_at ON dtn_audit_events(occurred_at);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *PostgresAuditStorage) Record(ctx context.Context, event AuditEvent) error {
	if event.BundleID == uuid.Nil {
		event.BundleID = uuid.New()
	}
	query := `
		INSERT INTO dtn_audit_events (bundle_id, source, destination, priority, kind, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.BundleID, event.Source, event.Destination, event.Priority, string(event.Kind), event.Reason, event.At)
	return err
}

func (s *PostgresAuditStorage) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT bundle_id, source, destination, priority, kind, reason, occurred_at
		FROM dtn_audit_events
		WHERE ($1 = '' OR destination = $1)
		  AND ($2 = '' OR kind = $2)
		ORDER BY occurred_at DESC
	`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, filter.Destination, string(filter.Kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var kind string
		if err := rows.Scan(&e.BundleID, &e.Source, &e.Destination, &e.Priority, &kind, &e.Reason, &e.At); err != nil {
			return nil, err
		}
		e.Kind = AuditEventKind(kind)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PostgresAuditStorage) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dtn_audit_events").Scan(&count)
	return count, err
}

func (s *PostgresAuditStorage) Close() error {
	return s.db.Close()
}
