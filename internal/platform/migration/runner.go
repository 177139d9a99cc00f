// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

// Package migration wraps golang-migrate to apply the identity schema at
// application startup. Migrations are plain SQL files under data/migrations.
package migration

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Run applies all pending up migrations from sourcePath against databaseURL.
// A database that is already up to date is not an error.
func Run(databaseURL, sourcePath string, logger *slog.Logger) error {
	migrator, err := migrate.New("file://"+sourcePath, databaseURL)
	if err != nil {
		return fmt.Errorf("migration: failed to initialize: %w", err)
	}
	defer func() {
		sourceErr, dbErr := migrator.Close()
		if sourceErr != nil {
			logger.Warn("migration source close failed", slog.String("error", sourceErr.Error()))
		}
		if dbErr != nil {
			logger.Warn("migration db close failed", slog.String("error", dbErr.Error()))
		}
	}()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migrations up to date")
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("migration: version check failed: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration: database is dirty at version %d", version)
	}

	logger.Info("migrations applied", slog.Uint64("version", uint64(version)))
	return nil
}
