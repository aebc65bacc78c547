package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/identity/internal/metrics"
	"github.com/allisson/identity/internal/user/domain"
)

const metricsDomain = "user"

// userUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type userUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUserUseCaseWithMetrics wraps a UseCase with metrics recording.
func NewUserUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &userUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Register records metrics for registrations.
func (u *userUseCaseWithMetrics) Register(
	ctx context.Context,
	input domain.RegisterInput,
) (*domain.AuthOutput, error) {
	start := time.Now()
	output, err := u.next.Register(ctx, input)
	metrics.Observe(ctx, u.metrics, metricsDomain, "register", start, err)
	return output, err
}

// Login records metrics for login attempts.
func (u *userUseCaseWithMetrics) Login(ctx context.Context, input domain.LoginInput) (*domain.AuthOutput, error) {
	start := time.Now()
	output, err := u.next.Login(ctx, input)
	metrics.Observe(ctx, u.metrics, metricsDomain, "login", start, err)
	return output, err
}

// GetByID records metrics for user lookups.
func (u *userUseCaseWithMetrics) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.GetByID(ctx, id)
	metrics.Observe(ctx, u.metrics, metricsDomain, "get", start, err)
	return user, err
}
