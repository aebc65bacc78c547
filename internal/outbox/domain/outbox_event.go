// Package domain defines the transactional outbox event and its lifecycle.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEventStatus is the delivery state of an outbox event.
type OutboxEventStatus string

const (
	OutboxEventStatusPending   OutboxEventStatus = "pending"
	OutboxEventStatusProcessed OutboxEventStatus = "processed"
	OutboxEventStatusFailed    OutboxEventStatus = "failed"
)

// OutboxEvent is a domain event written in the same transaction as the state change it
// describes and delivered later by the outbox worker.
type OutboxEvent struct {
	ID          uuid.UUID
	EventType   string
	Payload     string
	Status      OutboxEventStatus
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOutboxEvent creates a pending event with a time-ordered id.
func NewOutboxEvent(eventType string, payload []byte, now time.Time) *OutboxEvent {
	return &OutboxEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: eventType,
		Payload:   string(payload),
		Status:    OutboxEventStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessed records a successful delivery.
func (e *OutboxEvent) MarkProcessed(now time.Time) {
	e.Status = OutboxEventStatusProcessed
	e.ProcessedAt = &now
	e.LastError = nil
	e.UpdatedAt = now
}

// MarkFailed records a delivery failure. The event stays pending until it has failed
// maxRetries times, then it is parked as failed.
func (e *OutboxEvent) MarkFailed(cause error, maxRetries int, now time.Time) {
	e.Retries++
	msg := cause.Error()
	e.LastError = &msg
	e.UpdatedAt = now
	if e.Retries >= maxRetries {
		e.Status = OutboxEventStatusFailed
	}
}
