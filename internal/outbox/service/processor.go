// Package service provides the EventProcessor implementations used by the outbox worker.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/outbox/domain"
)

// LoggingEventProcessor writes events to the log. It is used when no broker is configured.
type LoggingEventProcessor struct {
	logger *slog.Logger
}

// NewLoggingEventProcessor creates a new LoggingEventProcessor
func NewLoggingEventProcessor(logger *slog.Logger) *LoggingEventProcessor {
	return &LoggingEventProcessor{logger: logger}
}

// Process logs the event. Payloads that are not valid JSON are rejected.
func (p *LoggingEventProcessor) Process(ctx context.Context, event *domain.OutboxEvent) error {
	if !json.Valid([]byte(event.Payload)) {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "event %s has a malformed payload", event.ID)
	}

	p.logger.InfoContext(ctx, "outbox event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.String("payload", event.Payload),
	)
	return nil
}

// RedisStreamPublisher appends events to a Redis stream with XADD.
//
// Each entry carries the fields event_id, event_type, payload and created_at. Consumers
// should deduplicate on event_id because a crash between XADD and the outbox update
// redelivers the event.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamPublisher creates a publisher for stream. When maxLen is positive the stream
// is trimmed approximately to that length on every append.
func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Process appends the event to the stream.
func (p *RedisStreamPublisher) Process(ctx context.Context, event *domain.OutboxEvent) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_id":   event.ID.String(),
			"event_type": event.EventType,
			"payload":    event.Payload,
			"created_at": event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish event %s to stream %s: %w", event.ID, p.stream, err)
	}
	return nil
}

// ConnectRedis parses a redis:// URL and checks the server with one PING bounded by timeout.
func ConnectRedis(ctx context.Context, url string, timeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid redis url: %v", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping failed: %v", apperrors.ErrUnavailable, err)
	}
	return client, nil
}
