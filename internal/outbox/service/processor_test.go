package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/outbox/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newEvent(payload string) *domain.OutboxEvent {
	return domain.NewOutboxEvent("user.registered", []byte(payload), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestRedisStreamPublisher_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("appends the event to the stream", func(t *testing.T) {
		_, client := newTestRedis(t)
		publisher := NewRedisStreamPublisher(client, "identity:events", 0)
		event := newEvent(`{"email":"john@example.com"}`)

		require.NoError(t, publisher.Process(ctx, event))

		entries, err := client.XRange(ctx, "identity:events", "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, event.ID.String(), entries[0].Values["event_id"])
		assert.Equal(t, "user.registered", entries[0].Values["event_type"])
		assert.Equal(t, `{"email":"john@example.com"}`, entries[0].Values["payload"])
		assert.Equal(t, "2026-03-01T12:00:00Z", entries[0].Values["created_at"])
	})

	t.Run("preserves order across events", func(t *testing.T) {
		_, client := newTestRedis(t)
		publisher := NewRedisStreamPublisher(client, "identity:events", 100)
		first, second := newEvent(`{}`), newEvent(`{}`)

		require.NoError(t, publisher.Process(ctx, first))
		require.NoError(t, publisher.Process(ctx, second))

		entries, err := client.XRange(ctx, "identity:events", "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, first.ID.String(), entries[0].Values["event_id"])
		assert.Equal(t, second.ID.String(), entries[1].Values["event_id"])
	})

	t.Run("reports unreachable server", func(t *testing.T) {
		mr, client := newTestRedis(t)
		publisher := NewRedisStreamPublisher(client, "identity:events", 0)
		mr.Close()

		err := publisher.Process(ctx, newEvent(`{}`))
		assert.ErrorContains(t, err, "failed to publish event")
	})
}

func TestLoggingEventProcessor_Process(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	processor := NewLoggingEventProcessor(slog.New(slog.NewJSONHandler(&logs, nil)))

	event := newEvent(`{"email":"john@example.com"}`)
	require.NoError(t, processor.Process(ctx, event))
	assert.Contains(t, logs.String(), event.ID.String())
	assert.Contains(t, logs.String(), "user.registered")

	err := processor.Process(ctx, newEvent(`{not json`))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestConnectRedis(t *testing.T) {
	ctx := context.Background()

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := ConnectRedis(ctx, "redis://"+mr.Addr()+"/0", time.Second)
		require.NoError(t, err)
		defer func() { _ = client.Close() }()
		assert.NoError(t, client.Ping(ctx).Err())
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := ConnectRedis(ctx, "http://localhost", time.Second)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := ConnectRedis(ctx, "redis://"+addr, 200*time.Millisecond)
		assert.True(t, apperrors.Is(err, apperrors.ErrUnavailable))
	})
}
