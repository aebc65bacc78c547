package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/identity/internal/app"
	"github.com/allisson/identity/internal/config"
)

const shutdownTimeout = 30 * time.Second

// RunServer provisions the signing keys, then serves the API, the metrics endpoint and
// the outbox worker until SIGINT/SIGTERM or until one of them fails.
//
// Key provisioning runs before any listener opens, so a replica never answers with
// a discovery document it cannot sign for.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	defer closeContainer(container, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	keys, err := container.Keypair(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	if _, err := container.JWKSPublisher(ctx); err != nil {
		return fmt.Errorf("failed to initialize jwks publisher: %w", err)
	}
	logger.Info("signing keys loaded", slog.String("kid", keys.KeyID))

	server, err := container.HTTPServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	outboxUseCase, err := container.OutboxUseCase(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize outbox worker: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := server.Start(groupCtx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		group.Go(func() error {
			if err := metricsServer.Start(groupCtx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		if err := outboxUseCase.Start(groupCtx); err != nil {
			return fmt.Errorf("outbox worker error: %w", err)
		}
		return nil
	})

	// Either a signal or a failing member cancels groupCtx; both lead to a graceful stop.
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		var shutdownErrors []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return group.Wait()
}
