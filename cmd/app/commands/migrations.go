package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/identity/internal/database"
)

// MigrationsSource returns the migrate source URL for driver.
func MigrationsSource(driver string) (string, error) {
	switch driver {
	case database.DriverPostgres:
		return "file://migrations/postgresql", nil
	case database.DriverMySQL:
		return "file://migrations/mysql", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// migrateURL adds the mysql:// scheme golang-migrate expects to a go-sql-driver DSN.
func migrateURL(driver, connectionString string) string {
	if driver == database.DriverMySQL && !strings.HasPrefix(connectionString, "mysql://") {
		return "mysql://" + connectionString
	}
	return connectionString
}

// RunMigrations applies every pending migration for driver. An up-to-date schema is not an error.
func RunMigrations(logger *slog.Logger, driver, connectionString string) error {
	logger.Info("running database migrations", slog.String("driver", driver))

	source, err := MigrationsSource(driver)
	if err != nil {
		return err
	}

	m, err := migrate.New(source, migrateURL(driver, connectionString))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
