package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const fileScheme = "file://"

// ErrDirtySchema is returned when a previous migration stopped half way and
// the schema needs a manual fix before the ledger can start.
var ErrDirtySchema = errors.New("ledger schema is dirty")

// migrationSource turns a directory (relative, absolute or already a file://
// URL) into the source URL golang-migrate expects.
func migrationSource(path string) (string, error) {
	path = strings.TrimSpace(strings.TrimPrefix(path, fileScheme))
	if path == "" {
		return "", errors.New("migrations path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve migrations path %q: %w", path, err)
	}
	return fileScheme + filepath.ToSlash(abs), nil
}

// RunMigrations brings the ledger schema up to the newest version found under migrationsPath
func RunMigrations(logger *slog.Logger, databaseURL, migrationsPath string) error {
	if strings.TrimSpace(databaseURL) == "" {
		return errors.New("database URL cannot be empty")
	}
	sourceURL, err := migrationSource(migrationsPath)
	if err != nil {
		return err
	}

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrator", "source_error", sourceErr, "database_error", dbErr)
		}
	}()

	before, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("%w at version %d", ErrDirtySchema, before)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Ledger schema up to date", "version", before)
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	after, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Applied ledger migrations", "from_version", before, "to_version", after, "source", sourceURL)
	return nil
}
