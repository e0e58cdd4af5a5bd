// Package main is the process entry point for the enrichment core: it
// wires configuration, database/cache/storage infrastructure, the source
// catalog, orchestrator, synthesizer, and writer, and the batch-run queue
// that drives them, then runs until signaled. Flags, HTTP surfaces, and
// queue topology are external collaborators; this binary is the thinnest
// fx.App that exercises the whole pipeline end to end.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/emergent-company/deathrecord/domain/cache"
	"github.com/emergent-company/deathrecord/domain/content"
	"github.com/emergent-company/deathrecord/domain/orchestrator"
	"github.com/emergent-company/deathrecord/domain/source"
	"github.com/emergent-company/deathrecord/domain/synthesis"
	"github.com/emergent-company/deathrecord/domain/tracing"
	"github.com/emergent-company/deathrecord/domain/writer"
	"github.com/emergent-company/deathrecord/internal/config"
	"github.com/emergent-company/deathrecord/internal/database"
	"github.com/emergent-company/deathrecord/internal/jobs"
	"github.com/emergent-company/deathrecord/internal/runner"
	"github.com/emergent-company/deathrecord/internal/scheduler"
	"github.com/emergent-company/deathrecord/internal/storage"
	"github.com/emergent-company/deathrecord/internal/store"
	"github.com/emergent-company/deathrecord/pkg/adk"
	"github.com/emergent-company/deathrecord/pkg/logger"
	"github.com/emergent-company/deathrecord/pkg/metrics"
)

func main() {
	// Load .env files if present (for local development). Order matters:
	// .env.local overrides .env. Load() won't overwrite existing vars,
	// Overload() will.
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Ambient stack.
		logger.Module,
		config.Module,
		tracing.Module,
		metrics.Module,
		database.Module,
		storage.Module,
		cache.Module,

		// LLM client construction, shared by the synthesizer and the
		// grounded-search AI sources.
		adk.Module,

		// Core enrichment pipeline.
		content.Module,
		source.Module,
		synthesis.Module,
		orchestrator.Module,
		writer.Module,

		// Persistence and the batch-run queue that drives the pipeline.
		store.Module,
		jobs.Module,
		scheduler.Module,
		runner.Module,
	).Run()
}
