// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/identity/internal/config"
	"github.com/allisson/identity/internal/database"
	"github.com/allisson/identity/internal/http"
	keysDomain "github.com/allisson/identity/internal/keys/domain"
	keysHTTP "github.com/allisson/identity/internal/keys/http"
	keysService "github.com/allisson/identity/internal/keys/service"
	"github.com/allisson/identity/internal/metrics"
	outboxUsecase "github.com/allisson/identity/internal/outbox/usecase"
	userHTTP "github.com/allisson/identity/internal/user/http"
	userUsecase "github.com/allisson/identity/internal/user/usecase"
)

const dbConnectTimeout = 10 * time.Second

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	redisClient     *redis.Client
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Managers
	txManager database.TxManager

	// Signing keys
	keyStore      *keysService.FileKeyStore
	keypair       *keysDomain.Keypair
	tokenIssuer   *keysService.TokenIssuer
	jwksPublisher *keysService.DiscoveryPublisher

	// Repositories
	userRepo   userUsecase.UserRepository
	outboxRepo outboxUsecase.OutboxEventRepository

	// Use Cases
	userUseCase   userUsecase.UseCase
	outboxUseCase outboxUsecase.UseCase

	// Handlers
	authHandler *userHTTP.AuthHandler
	jwksHandler *keysHTTP.JWKSHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	redisInit           sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	txManagerInit       sync.Once
	keyStoreInit        sync.Once
	keypairInit         sync.Once
	tokenIssuerInit     sync.Once
	jwksPublisherInit   sync.Once
	userRepoInit        sync.Once
	outboxRepoInit      sync.Once
	userUseCaseInit     sync.Once
	outboxUseCaseInit   sync.Once
	authHandlerInit     sync.Once
	jwksHandlerInit     sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the JSON logger. Every record carries the service name.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection pool.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the Prometheus-backed meter provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the operation recorder, a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the public HTTP server with its router configured.
// ctx bounds background work owned by the router.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer(ctx)
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown releases every initialized resource.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	logger := slog.New(handler)
	if c.config.ServiceName != "" {
		logger = logger.With(slog.String("service", c.config.ServiceName))
	}
	return logger
}

func (c *Container) initDB() (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbConnectTimeout)
	defer cancel()

	db, err := database.Connect(ctx, database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

func (c *Container) initHTTPServer(ctx context.Context) (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	authHandler, err := c.AuthHandler(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth handler for http server: %w", err)
	}

	jwksHandler, err := c.JWKSHandler(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get jwks handler for http server: %w", err)
	}

	tokenIssuer, err := c.TokenIssuer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get token issuer for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(ctx, c.config, authHandler, jwksHandler, tokenIssuer, metricsProvider)

	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
