package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/identity/cmd/app/commands"
	"github.com/allisson/identity/internal/app"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "ensure-keys",
			Usage: "Load or generate the RS256 signing keypair in JWT_KEYS_DIR",
			Flags: []cli.Flag{formatFlag()},
			Action: containerAction(false, func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				store, err := container.KeyStore()
				if err != nil {
					return err
				}

				return commands.RunEnsureKeys(
					ctx,
					store,
					container.Logger(),
					commands.Stdout,
					cmd.String("format"),
				)
			}),
		},
		{
			Name:  "show-jwks",
			Usage: "Print the JWKS discovery document of the existing signing key",
			Action: containerAction(false, func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				store, err := container.KeyStore()
				if err != nil {
					return err
				}
				publisher, err := commands.LoadPublisher(ctx, store)
				if err != nil {
					return err
				}

				return commands.RunShowJWKS(publisher, commands.Stdout)
			}),
		},
		{
			Name:  "issue-token",
			Usage: "Sign an access token with the local keypair",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "subject",
					Aliases:  []string{"s"},
					Required: true,
					Usage:    "Token subject (user or service id)",
				},
				&cli.StringFlag{
					Name:    "email",
					Aliases: []string{"e"},
					Usage:   "Email claim",
				},
				&cli.StringFlag{
					Name:    "roles",
					Aliases: []string{"r"},
					Usage:   "Comma-separated roles claim",
				},
				formatFlag(),
			},
			Action: containerAction(false, func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				issuer, err := container.TokenIssuer(ctx)
				if err != nil {
					return err
				}

				return commands.RunIssueToken(
					issuer,
					container.Logger(),
					commands.Stdout,
					cmd.String("subject"),
					cmd.String("email"),
					cmd.String("roles"),
					cmd.String("format"),
				)
			}),
		},
		{
			Name:  "verify-token",
			Usage: "Verify an access token against a JWKS the way a downstream service does",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "token",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Access token to verify",
				},
				&cli.StringFlag{
					Name:  "jwks-url",
					Usage: "Fetch the JWKS from this URL",
				},
				&cli.StringFlag{
					Name:  "jwks-file",
					Usage: "Read the JWKS from this file",
				},
				formatFlag(),
			},
			Action: containerAction(false, func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				tokenVerifier, err := commands.NewTokenVerifier(
					ctx,
					cmd.String("jwks-url"),
					cmd.String("jwks-file"),
					func(ctx context.Context) ([]byte, error) {
						store, err := container.KeyStore()
						if err != nil {
							return nil, err
						}
						publisher, err := commands.LoadPublisher(ctx, store)
						if err != nil {
							return nil, err
						}
						return publisher.JSON(), nil
					},
				)
				if err != nil {
					return err
				}

				if err := commands.RunVerifyToken(
					ctx,
					tokenVerifier,
					commands.Stdout,
					cmd.String("token"),
					cmd.String("format"),
				); err != nil {
					_, _ = os.Stderr.WriteString("token is invalid\n")
					return err
				}
				return nil
			}),
		},
	}
}
