// Package repository provides PostgreSQL and MySQL persistence for outbox events.
package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/identity/internal/database"
	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/outbox/domain"
)

const outboxColumns = `id, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at`

// PostgreSQLOutboxEventRepository handles outbox event persistence for PostgreSQL
type PostgreSQLOutboxEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxEventRepository creates a new PostgreSQLOutboxEventRepository
func NewPostgreSQLOutboxEventRepository(db *sql.DB) *PostgreSQLOutboxEventRepository {
	return &PostgreSQLOutboxEventRepository{
		db: db,
	}
}

// Create inserts a new outbox event, joining the transaction in ctx when there is one.
func (r *PostgreSQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (` + outboxColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(ctx, query, event.ID, event.EventType, string(event.Payload), event.Status,
		event.Retries, event.LastError, event.ProcessedAt, event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create outbox event")
	}
	return nil
}

// GetPendingEvents locks up to limit pending events, oldest first. Rows locked by another
// worker are skipped, so several workers can drain the table concurrently.
func (r *PostgreSQLOutboxEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_events
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxEventStatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending outbox events")
	}
	defer rows.Close() //nolint:errcheck

	var events []*domain.OutboxEvent
	for rows.Next() {
		var event domain.OutboxEvent
		if err := rows.Scan(&event.ID, &event.EventType, &event.Payload, &event.Status,
			&event.Retries, &event.LastError, &event.ProcessedAt, &event.CreatedAt, &event.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan outbox event")
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate outbox events")
	}
	return events, nil
}

// Update persists the delivery state of an event.
func (r *PostgreSQLOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = $1, retries = $2, last_error = $3, processed_at = $4, updated_at = $5
			  WHERE id = $6`

	_, err := querier.ExecContext(ctx, query, event.Status, event.Retries, event.LastError,
		event.ProcessedAt, event.UpdatedAt, event.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update outbox event")
	}
	return nil
}
