// Package mocks provides mock implementations of the user use case for handler tests.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/identity/internal/user/domain"
)

// MockUseCase is a mock implementation of usecase.UseCase for testing.
type MockUseCase struct {
	mock.Mock
}

// Register mocks the Register method of UseCase.
func (m *MockUseCase) Register(ctx context.Context, input domain.RegisterInput) (*domain.AuthOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthOutput), args.Error(1)
}

// Login mocks the Login method of UseCase.
func (m *MockUseCase) Login(ctx context.Context, input domain.LoginInput) (*domain.AuthOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthOutput), args.Error(1)
}

// GetByID mocks the GetByID method of UseCase.
func (m *MockUseCase) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
