// Package main is the identity service binary.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := &cli.Command{
		Name:    "identity",
		Usage:   "user accounts, RS256 access tokens and JWKS discovery",
		Version: version,
		Description: "Configuration is read from the environment and from an optional .env file. " +
			"Run 'identity migrate' once per database before 'identity server'.",
		EnableShellCompletion: true,
		Commands:              getCommands(version),
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "identity: %v\n", err)
		os.Exit(1)
	}
}
