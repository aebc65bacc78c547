package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	outboxUsecase "github.com/allisson/identity/internal/outbox/usecase"
)

// RunOutboxWorker delivers outbox events until SIGINT/SIGTERM or ctx cancellation.
func RunOutboxWorker(ctx context.Context, useCase outboxUsecase.UseCase, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting outbox worker")
	if err := useCase.Start(ctx); err != nil {
		return err
	}
	logger.Info("outbox worker stopped")
	return nil
}
