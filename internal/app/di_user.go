package app

import (
	"context"
	"fmt"

	"github.com/allisson/identity/internal/database"
	userHTTP "github.com/allisson/identity/internal/user/http"
	userRepository "github.com/allisson/identity/internal/user/repository"
	userUsecase "github.com/allisson/identity/internal/user/usecase"
)

// UserRepository returns the user repository for the configured driver.
func (c *Container) UserRepository() (userUsecase.UserRepository, error) {
	var err error
	c.userRepoInit.Do(func() {
		c.userRepo, err = c.initUserRepository()
		if err != nil {
			c.initErrors["userRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userRepo"]; exists {
		return nil, storedErr
	}
	return c.userRepo, nil
}

// UserUseCase returns the registration and login use case wrapped with business metrics.
func (c *Container) UserUseCase(ctx context.Context) (userUsecase.UseCase, error) {
	var err error
	c.userUseCaseInit.Do(func() {
		c.userUseCase, err = c.initUserUseCase(ctx)
		if err != nil {
			c.initErrors["userUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userUseCase"]; exists {
		return nil, storedErr
	}
	return c.userUseCase, nil
}

// AuthHandler returns the HTTP handler for the /v1/auth routes.
func (c *Container) AuthHandler(ctx context.Context) (*userHTTP.AuthHandler, error) {
	var err error
	c.authHandlerInit.Do(func() {
		var useCase userUsecase.UseCase
		useCase, err = c.UserUseCase(ctx)
		if err != nil {
			err = fmt.Errorf("failed to get user use case for auth handler: %w", err)
			c.initErrors["authHandler"] = err
			return
		}
		c.authHandler = userHTTP.NewAuthHandler(useCase, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authHandler"]; exists {
		return nil, storedErr
	}
	return c.authHandler, nil
}

func (c *Container) initUserRepository() (userUsecase.UserRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return userRepository.NewMySQLUserRepository(db), nil
	case database.DriverPostgres:
		return userRepository.NewPostgreSQLUserRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initUserUseCase(ctx context.Context) (userUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for user use case: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for user use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for user use case: %w", err)
	}

	tokenIssuer, err := c.TokenIssuer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get token issuer for user use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for user use case: %w", err)
	}

	useCase, err := userUsecase.NewUserUseCase(txManager, userRepo, outboxRepo, tokenIssuer, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create user use case: %w", err)
	}

	return userUsecase.NewUserUseCaseWithMetrics(useCase, businessMetrics), nil
}
