package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/identity/internal/app"
	"github.com/allisson/identity/internal/config"
)

func getCommands(version string) []*cli.Command {
	return append(getSystemCommands(version), getKeyCommands()...)
}

// containerAction loads the configuration, builds a container for the duration of one
// command and releases it afterwards. With validate set, an invalid configuration stops
// the command before anything is wired.
func containerAction(
	validate bool,
	fn func(ctx context.Context, cmd *cli.Command, container *app.Container) error,
) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg := config.Load()
		if validate {
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		container := app.NewContainer(cfg)
		defer func() { _ = container.Shutdown(context.WithoutCancel(ctx)) }()

		return fn(ctx, cmd, container)
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}
