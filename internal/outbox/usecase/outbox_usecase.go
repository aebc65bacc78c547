// Package usecase implements the outbox worker that delivers pending events.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/identity/internal/database"
	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/metrics"
	"github.com/allisson/identity/internal/outbox/domain"
)

const metricsDomain = "outbox"

// Config holds outbox worker configuration
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// OutboxEventRepository defines outbox event repository operations
type OutboxEventRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	Update(ctx context.Context, event *domain.OutboxEvent) error
}

// EventProcessor delivers a single event. A returned error counts as one failed attempt.
type EventProcessor interface {
	Process(ctx context.Context, event *domain.OutboxEvent) error
}

// UseCase defines the interface for outbox use cases
type UseCase interface {
	Start(ctx context.Context) error
	ProcessEvents(ctx context.Context) error
}

// OutboxUseCase polls the outbox table and hands pending events to an EventProcessor.
type OutboxUseCase struct {
	config         Config
	txManager      database.TxManager
	outboxRepo     OutboxEventRepository
	eventProcessor EventProcessor
	metrics        metrics.BusinessMetrics
	logger         *slog.Logger
	now            func() time.Time
}

// NewOutboxUseCase creates a new OutboxUseCase
func NewOutboxUseCase(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxEventRepository,
	eventProcessor EventProcessor,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) (*OutboxUseCase, error) {
	if config.Interval <= 0 || config.BatchSize < 1 || config.MaxRetries < 1 {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput,
			"invalid outbox config: interval=%s batch_size=%d max_retries=%d",
			config.Interval, config.BatchSize, config.MaxRetries)
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OutboxUseCase{
		config:         config,
		txManager:      txManager,
		outboxRepo:     outboxRepo,
		eventProcessor: eventProcessor,
		metrics:        businessMetrics,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start runs ProcessEvents every Interval until ctx is done. Batch failures are logged
// and retried on the next tick. It returns nil on cancellation.
func (uc *OutboxUseCase) Start(ctx context.Context) error {
	uc.logger.Info("starting outbox event processor",
		slog.Duration("interval", uc.config.Interval),
		slog.Int("batch_size", uc.config.BatchSize),
		slog.Int("max_retries", uc.config.MaxRetries),
	)

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("stopping outbox event processor")
			return nil
		case <-ticker.C:
			if err := uc.ProcessEvents(ctx); err != nil && ctx.Err() == nil {
				uc.logger.Error("failed to process events", slog.Any("error", err))
			}
		}
	}
}

// ProcessEvents delivers one batch of pending events inside a single transaction, so the
// row locks taken by GetPendingEvents are held until every outcome is recorded.
func (uc *OutboxUseCase) ProcessEvents(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := uc.outboxRepo.GetPendingEvents(ctx, uc.config.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		uc.logger.Debug("processing events", slog.Int("count", len(events)))

		for _, event := range events {
			start := time.Now()
			err := uc.eventProcessor.Process(ctx, event)
			metrics.Observe(ctx, uc.metrics, metricsDomain, "publish", start, err)

			if err != nil {
				event.MarkFailed(err, uc.config.MaxRetries, uc.now())
				uc.logger.Error("failed to process event",
					slog.String("event_id", event.ID.String()),
					slog.String("event_type", event.EventType),
					slog.Int("retries", event.Retries),
					slog.String("status", string(event.Status)),
					slog.Any("error", err),
				)
			} else {
				event.MarkProcessed(uc.now())
			}

			if err := uc.outboxRepo.Update(ctx, event); err != nil {
				return err
			}
		}

		return nil
	})
}
