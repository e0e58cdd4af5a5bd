// Package runner drives the enrichment pipeline from the batch_runs
// queue: a scheduler sweeps actors missing death circumstances into
// batch_runs, and a jobs.Worker dequeues rows and runs each through the
// orchestrator and writer.
package runner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/emergent-company/deathrecord/domain/actor"
	"github.com/emergent-company/deathrecord/domain/orchestrator"
	"github.com/emergent-company/deathrecord/domain/writer"
	"github.com/emergent-company/deathrecord/internal/config"
	"github.com/emergent-company/deathrecord/internal/jobs"
	"github.com/emergent-company/deathrecord/internal/storage"
	"github.com/emergent-company/deathrecord/pkg/logger"
	"github.com/emergent-company/deathrecord/pkg/metrics"
)

const batchRunsTable = "batch_runs"

// batchRunRow is the bun model for the batch_runs table, the queue
// jobs.Queue operates on.
type batchRunRow struct {
	bun.BaseModel `bun:"table:batch_runs"`

	ID           string       `bun:"id,pk"`
	ActorID      string       `bun:"actor_id"`
	Status       string       `bun:"status"`
	Priority     int          `bun:"priority"`
	AttemptCount int          `bun:"attempt_count"`
	LastError    sql.NullString `bun:"last_error"`
	ScheduledAt  sql.NullTime `bun:"scheduled_at"`
	StartedAt    sql.NullTime `bun:"started_at"`
	CompletedAt  sql.NullTime `bun:"completed_at"`
	CreatedAt    time.Time    `bun:"created_at"`
	UpdatedAt    time.Time    `bun:"updated_at"`
}

// Runner owns the batch_runs queue and its worker, and enqueues new rows
// on the scheduler's interval.
type Runner struct {
	db      bun.IDB
	queue   *jobs.Queue
	worker  *jobs.Worker
	store   actor.Store
	orch    *orchestrator.Orchestrator
	write   *writer.Writer
	archive *storage.Service
	cfg     *config.RunnerConfig
	log     *slog.Logger
}

// New builds a Runner. The jobs.Queue is configured against batch_runs,
// reusing the generic dequeue/retry SQL internal/jobs provides.
func New(db bun.IDB, store actor.Store, orch *orchestrator.Orchestrator, write *writer.Writer, archive *storage.Service, cfg *config.RunnerConfig, log *slog.Logger) *Runner {
	log = log.With(logger.Scope("runner"))

	qcfg := jobs.DefaultQueueConfig(batchRunsTable, "actor_id")
	qcfg.MaxAttempts = cfg.MaxAttempts
	qcfg.BatchSize = cfg.BatchSize
	queue := jobs.NewQueue(db, qcfg, log)

	r := &Runner{db: db, queue: queue, store: store, orch: orch, write: write, archive: archive, cfg: cfg, log: log}

	wcfg := jobs.DefaultWorkerConfig("enrichment")
	wcfg.PollInterval = cfg.PollInterval
	wcfg.BatchSize = cfg.BatchSize
	wcfg.StaleThresholdMinutes = cfg.StaleThresholdMinutes
	wcfg.RecoverStaleOnStart = true
	r.worker = jobs.NewWorker(wcfg, log, r.processBatch)

	return r
}

// Start begins the worker's polling loop, recovering any batch_runs rows
// stuck in "processing" from a prior crash first.
func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info("runner disabled (RUNNER_ENABLED=false)")
		return nil
	}
	if _, err := r.queue.RecoverStaleJobs(ctx, r.cfg.StaleThresholdMinutes); err != nil {
		r.log.Warn("failed to recover stale batch runs", logger.Error(err))
	}
	return r.worker.Start(ctx)
}

// Stop gracefully stops the worker.
func (r *Runner) Stop(ctx context.Context) error {
	return r.worker.Stop(ctx)
}

// EnqueueMissingCircumstances sweeps for actors missing death
// circumstances and inserts a pending batch_runs row for each, skipping
// actors that already have an outstanding row. Registered on the
// scheduler's interval.
func (r *Runner) EnqueueMissingCircumstances(ctx context.Context) error {
	if !r.cfg.Enabled {
		return nil
	}

	actors, err := r.store.LoadActorsForEnrichment(ctx, actor.LoadCriteria{MissingCircumstances: true}, r.cfg.EnqueueLimit)
	if err != nil {
		return fmt.Errorf("runner: load actors for enrichment: %w", err)
	}
	if len(actors) == 0 {
		return nil
	}

	enqueued := 0
	for _, a := range actors {
		exists, err := r.db.NewSelect().Model((*batchRunRow)(nil)).
			Where("actor_id = ?", a.ID).
			Where("status IN ('pending', 'processing')").
			Exists(ctx)
		if err != nil {
			r.log.Warn("failed to check existing batch run", slog.String("actor_id", a.ID), logger.Error(err))
			continue
		}
		if exists {
			continue
		}

		row := &batchRunRow{ID: uuid.NewString(), ActorID: a.ID, Status: "pending"}
		if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
			r.log.Warn("failed to enqueue batch run", slog.String("actor_id", a.ID), logger.Error(err))
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		r.log.Info("enqueued batch runs", slog.Int("count", enqueued))
	}
	return nil
}

// processBatch is the jobs.Worker process function: dequeue a batch of
// batch_runs rows and run each through the orchestrator and writer.
func (r *Runner) processBatch(ctx context.Context) error {
	ids, err := r.queue.Dequeue(ctx, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	for _, id := range ids {
		r.processOne(ctx, id)
	}
	return nil
}

func (r *Runner) processOne(ctx context.Context, batchRunID string) {
	var row batchRunRow
	if err := r.db.NewSelect().Model(&row).Where("id = ?", batchRunID).Scan(ctx); err != nil {
		r.log.Error("failed to load batch run", slog.String("id", batchRunID), logger.Error(err))
		return
	}

	a, err := r.store.GetActor(ctx, row.ActorID)
	if err != nil {
		r.markFailed(ctx, row, err)
		r.worker.IncrementFailure()
		return
	}

	runID := uuid.NewString()
	outcome := r.orch.Enrich(ctx, a.ToSourceActor(), runID)

	metrics.SourcesAttempted.Add(float64(outcome.Stats.SourcesAttempted))
	metrics.SourcesSucceeded.Add(float64(outcome.Stats.SourcesSucceeded))
	metrics.RunCostUSD.Add(outcome.Stats.TotalCostUSD)

	r.archiveRawSources(ctx, row.ActorID, runID, outcome)

	if writeErr := r.write.Write(ctx, outcome.Data, outcome.Rejected, &outcome.Stats); writeErr != nil {
		r.markFailed(ctx, row, writeErr)
		r.worker.IncrementFailure()
		return
	}
	r.worker.IncrementSuccess()

	if !outcome.Success() {
		r.log.Info("batch run completed without enrichment",
			slog.String("actor_id", row.ActorID),
			slog.String("reason", outcome.Error))
	}

	if err := r.queue.MarkCompleted(ctx, row.ID); err != nil {
		r.log.Error("failed to mark batch run completed", slog.String("id", row.ID), logger.Error(err))
	}
}

// archiveRawSources uploads the run's raw-source snippets as one opaque
// JSON blob. Archival is best-effort telemetry: failures are logged, never
// surfaced to the batch run.
func (r *Runner) archiveRawSources(ctx context.Context, actorID, runID string, outcome orchestrator.Outcome) {
	if len(outcome.RawSources) == 0 || !r.archive.Enabled() {
		return
	}
	payload, err := json.Marshal(outcome.RawSources)
	if err != nil {
		r.log.Warn("failed to marshal raw sources for archival", slog.String("actor_id", actorID), logger.Error(err))
		return
	}
	if _, err := r.archive.ArchiveRawSources(ctx, actorID, runID, payload); err != nil {
		r.log.Warn("failed to archive raw sources", slog.String("actor_id", actorID), logger.Error(err))
	}
}

func (r *Runner) markFailed(ctx context.Context, row batchRunRow, cause error) {
	r.log.Warn("batch run failed", slog.String("actor_id", row.ActorID), logger.Error(cause))
	if err := r.queue.MarkFailed(ctx, row.ID, row.AttemptCount, cause.Error()); err != nil {
		r.log.Error("failed to mark batch run failed", slog.String("id", row.ID), logger.Error(err))
	}
}
