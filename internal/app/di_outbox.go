package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/identity/internal/database"
	outboxRepository "github.com/allisson/identity/internal/outbox/repository"
	outboxService "github.com/allisson/identity/internal/outbox/service"
	outboxUsecase "github.com/allisson/identity/internal/outbox/usecase"
)

const redisConnectTimeout = 5 * time.Second

// OutboxRepository returns the outbox event repository for the configured driver.
func (c *Container) OutboxRepository() (outboxUsecase.OutboxEventRepository, error) {
	var err error
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// RedisClient returns the Redis client, or nil when REDIS_URL is not set.
func (c *Container) RedisClient(ctx context.Context) (*redis.Client, error) {
	var err error
	c.redisInit.Do(func() {
		if c.config.RedisURL == "" {
			return
		}
		c.redisClient, err = outboxService.ConnectRedis(ctx, c.config.RedisURL, redisConnectTimeout)
		if err != nil {
			c.initErrors["redis"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["redis"]; exists {
		return nil, storedErr
	}
	return c.redisClient, nil
}

// OutboxUseCase returns the outbox worker.
func (c *Container) OutboxUseCase(ctx context.Context) (outboxUsecase.UseCase, error) {
	var err error
	c.outboxUseCaseInit.Do(func() {
		c.outboxUseCase, err = c.initOutboxUseCase(ctx)
		if err != nil {
			c.initErrors["outboxUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxUseCase"]; exists {
		return nil, storedErr
	}
	return c.outboxUseCase, nil
}

func (c *Container) initOutboxRepository() (outboxUsecase.OutboxEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return outboxRepository.NewMySQLOutboxEventRepository(db), nil
	case database.DriverPostgres:
		return outboxRepository.NewPostgreSQLOutboxEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initEventProcessor publishes to Redis when configured and otherwise only logs events.
func (c *Container) initEventProcessor(ctx context.Context) (outboxUsecase.EventProcessor, error) {
	client, err := c.RedisClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for outbox: %w", err)
	}
	if client == nil {
		return outboxService.NewLoggingEventProcessor(c.Logger()), nil
	}
	return outboxService.NewRedisStreamPublisher(
		client,
		c.config.OutboxStream,
		int64(c.config.OutboxStreamMaxLen),
	), nil
}

func (c *Container) initOutboxUseCase(ctx context.Context) (outboxUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox use case: %w", err)
	}

	processor, err := c.initEventProcessor(ctx)
	if err != nil {
		return nil, err
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for outbox use case: %w", err)
	}

	useCase, err := outboxUsecase.NewOutboxUseCase(
		outboxUsecase.Config{
			Interval:   c.config.OutboxInterval,
			BatchSize:  c.config.OutboxBatchSize,
			MaxRetries: c.config.OutboxMaxRetries,
		},
		txManager,
		outboxRepo,
		processor,
		businessMetrics,
		c.Logger(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox use case: %w", err)
	}
	return useCase, nil
}
