// Package main is the thin schema-migration CLI: it brings up a database
// connection and an internal/migrate.Migrator, runs pending goose
// migrations, and exits. The flag surface is deliberately minimal; CLI
// entry points stay thin here.
package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"github.com/emergent-company/deathrecord/internal/config"
	"github.com/emergent-company/deathrecord/internal/database"
	"github.com/emergent-company/deathrecord/internal/migrate"
	"github.com/emergent-company/deathrecord/pkg/logger"
)

func main() {
	app := fx.New(
		fx.NopLogger,
		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		fx.Invoke(runMigrations),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := app.Stop(context.Background()); err != nil {
		log.Fatalf("migrate: shutdown: %v", err)
	}
}

func runMigrations(m *migrate.Migrator) error {
	return m.Up(context.Background())
}
