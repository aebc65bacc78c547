// Package commands implements the identity CLI subcommands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"

	"github.com/allisson/identity/internal/app"
)

// Output formats accepted by the --format flag.
const (
	formatText = "text"
	formatJSON = "json"
)

// Stdout is where command output goes. Tests pass their own writer to the RunX functions.
var Stdout io.Writer = os.Stdout

// closeContainer releases the container, logging instead of failing since the command
// result is already decided.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("container shutdown failed", slog.Any("error", err))
	}
}

func closeMigrate(m *migrate.Migrate, logger *slog.Logger) {
	if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
		logger.Error("migrate close failed",
			slog.Any("source_error", sourceErr),
			slog.Any("database_error", dbErr),
		)
	}
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format %q: expected %s or %s", format, formatText, formatJSON)
	}
}

// writeJSON prints value as indented JSON followed by a newline.
func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// splitRoles turns "admin, reader,," into [admin reader].
func splitRoles(raw string) []string {
	roles := []string{}
	for _, role := range strings.Split(raw, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
