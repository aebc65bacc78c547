package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/identity/internal/database"
	"github.com/allisson/identity/internal/outbox/domain"
)

var eventColumns = []string{
	"id", "event_type", "payload", "status", "retries", "last_error", "processed_at", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newTestEvent() *domain.OutboxEvent {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.NewOutboxEvent("user.registered", []byte(`{"email":"john@example.com"}`), now)
}

func TestPostgreSQLOutboxEventRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts inside the ambient transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLOutboxEventRepository(db)
		event := newTestEvent()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO outbox_events`).
			WithArgs(event.ID, event.EventType, string(event.Payload), "pending", 0,
				sqlmock.AnyArg(), sqlmock.AnyArg(), event.CreatedAt, event.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := database.NewTxManager(db).WithTx(ctx, func(ctx context.Context) error {
			return repo.Create(ctx, event)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps driver errors", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLOutboxEventRepository(db)

		mock.ExpectExec(`INSERT INTO outbox_events`).WillReturnError(errors.New("relation does not exist"))

		err := repo.Create(ctx, newTestEvent())
		assert.ErrorContains(t, err, "failed to create outbox event")
	})
}

func TestPostgreSQLOutboxEventRepository_GetPendingEvents(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewPostgreSQLOutboxEventRepository(db)
	first, second := newTestEvent(), newTestEvent()

	rows := sqlmock.NewRows(eventColumns).
		AddRow(first.ID, first.EventType, first.Payload, "pending", 0, nil, nil, first.CreatedAt, first.UpdatedAt).
		AddRow(second.ID, second.EventType, second.Payload, "pending", 2, "timeout", nil, second.CreatedAt, second.UpdatedAt)
	mock.ExpectQuery(`SELECT (.+) FROM outbox_events WHERE status = \$1 ORDER BY created_at ASC LIMIT \$2 FOR UPDATE SKIP LOCKED`).
		WithArgs("pending", 10).
		WillReturnRows(rows)

	events, err := repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, domain.OutboxEventStatusPending, events[0].Status)
	assert.Nil(t, events[0].LastError)
	assert.Equal(t, 2, events[1].Retries)
	require.NotNil(t, events[1].LastError)
	assert.Equal(t, "timeout", *events[1].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxEventRepository_Update(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewPostgreSQLOutboxEventRepository(db)
	event := newTestEvent()
	event.MarkProcessed(event.CreatedAt.Add(time.Second))

	mock.ExpectExec(`UPDATE outbox_events SET status = \$1`).
		WithArgs("processed", 0, sqlmock.AnyArg(), sqlmock.AnyArg(), event.UpdatedAt, event.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(ctx, event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOutboxEventRepository_Create(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMySQLOutboxEventRepository(db)
	event := newTestEvent()
	idBytes, err := event.ID.MarshalBinary()
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO outbox_events`).
		WithArgs(idBytes, event.EventType, string(event.Payload), "pending", 0,
			sqlmock.AnyArg(), sqlmock.AnyArg(), event.CreatedAt, event.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(ctx, event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOutboxEventRepository_GetPendingEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes binary ids", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLOutboxEventRepository(db)
		event := newTestEvent()
		idBytes, err := event.ID.MarshalBinary()
		require.NoError(t, err)

		rows := sqlmock.NewRows(eventColumns).
			AddRow(idBytes, event.EventType, event.Payload, "pending", 1, "boom", nil, event.CreatedAt, event.UpdatedAt)
		mock.ExpectQuery(`SELECT (.+) FROM outbox_events WHERE status = \? ORDER BY created_at ASC LIMIT \? FOR UPDATE SKIP LOCKED`).
			WithArgs("pending", 5).
			WillReturnRows(rows)

		events, err := repo.GetPendingEvents(ctx, 5)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event.ID, events[0].ID)
		assert.Equal(t, 1, events[0].Retries)
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLOutboxEventRepository(db)
		event := newTestEvent()

		rows := sqlmock.NewRows(eventColumns).
			AddRow([]byte{0x01, 0x02}, event.EventType, event.Payload, "pending", 0, nil, nil, event.CreatedAt, event.UpdatedAt)
		mock.ExpectQuery(`SELECT (.+) FROM outbox_events`).WillReturnRows(rows)

		_, err := repo.GetPendingEvents(ctx, 5)
		assert.ErrorContains(t, err, "failed to unmarshal UUID")
	})
}

func TestMySQLOutboxEventRepository_Update(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMySQLOutboxEventRepository(db)
	event := newTestEvent()
	event.MarkFailed(errors.New("redis down"), 1, event.CreatedAt)
	idBytes, err := event.ID.MarshalBinary()
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE outbox_events SET status = \?`).
		WithArgs("failed", 1, "redis down", sqlmock.AnyArg(), event.UpdatedAt, idBytes).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(ctx, event))
	assert.NoError(t, mock.ExpectationsWereMet())
}
