// Package usecase implements account registration, login and token issuance.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	outboxDomain "github.com/allisson/identity/internal/outbox/domain"
	"github.com/allisson/identity/internal/user/domain"
)

// UseCase defines the interface for user business logic operations
type UseCase interface {
	Register(ctx context.Context, input domain.RegisterInput) (*domain.AuthOutput, error)
	Login(ctx context.Context, input domain.LoginInput) (*domain.AuthOutput, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// UserRepository interface defines user repository operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// OutboxEventRepository is the write side of the outbox used during registration.
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(subject, email string, roles []string) (string, error)
	TTL() time.Duration
}
