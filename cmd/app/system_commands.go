package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/identity/cmd/app/commands"
	"github.com/allisson/identity/internal/app"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Provision signing keys, then serve the API, the metrics endpoint and the outbox worker",
			Action: func(ctx context.Context, _ *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Apply the users and outbox_events migrations for DB_DRIVER",
			Action: containerAction(false, func(_ context.Context, _ *cli.Command, c *app.Container) error {
				cfg := c.Config()
				return commands.RunMigrations(c.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			}),
		},
		{
			Name:  "outbox-worker",
			Usage: "Deliver pending outbox events until interrupted, without serving HTTP",
			Action: containerAction(true, func(ctx context.Context, _ *cli.Command, c *app.Container) error {
				useCase, err := c.OutboxUseCase(ctx)
				if err != nil {
					return err
				}
				return commands.RunOutboxWorker(ctx, useCase, c.Logger())
			}),
		},
	}
}
