// Package jobs provides the PostgreSQL-backed queue primitives the
// enrichment runner is built on: idempotent enqueue semantics live with
// the caller, dequeue is atomic via FOR UPDATE SKIP LOCKED, retries back
// off quadratically, and rows stuck in 'processing' after a crash are
// recoverable.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/uptrace/bun"
)

// JobStatus represents the state of a queued row.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// QueueConfig contains configuration for a job queue.
type QueueConfig struct {
	// TableName is the fully qualified queue table (e.g., "batch_runs").
	TableName string
	// EntityIDColumn names the column holding the enqueued entity's id
	// (e.g., "actor_id"), used by callers for duplicate checks.
	EntityIDColumn string
	// MaxAttempts is the maximum number of retry attempts (0 = unlimited).
	MaxAttempts int
	// BaseRetryDelaySec is the base delay in seconds for retries (default: 60).
	BaseRetryDelaySec int
	// MaxRetryDelaySec is the maximum retry delay in seconds (default: 3600).
	MaxRetryDelaySec int
	// BatchSize is the default number of rows to dequeue at once (default: 10).
	BatchSize int
}

// DefaultQueueConfig returns a QueueConfig with sensible defaults.
func DefaultQueueConfig(tableName, entityIDColumn string) QueueConfig {
	return QueueConfig{
		TableName:         tableName,
		EntityIDColumn:    entityIDColumn,
		MaxAttempts:       0, // unlimited
		BaseRetryDelaySec: 60,
		MaxRetryDelaySec:  3600,
		BatchSize:         10,
	}
}

// Queue provides queue operations over one PostgreSQL table. FOR UPDATE
// SKIP LOCKED makes Dequeue safe under concurrent workers.
type Queue struct {
	db     bun.IDB
	config QueueConfig
	log    *slog.Logger
}

// NewQueue creates a job queue with the given configuration.
func NewQueue(db bun.IDB, config QueueConfig, log *slog.Logger) *Queue {
	if config.BaseRetryDelaySec == 0 {
		config.BaseRetryDelaySec = 60
	}
	if config.MaxRetryDelaySec == 0 {
		config.MaxRetryDelaySec = 3600
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}

	return &Queue{
		db:     db,
		config: config,
		log:    log,
	}
}

// Dequeue atomically claims up to batchSize pending rows for processing
// and returns their ids. Rows locked by another worker are skipped, not
// waited on, so any number of workers can poll the same table.
func (q *Queue) Dequeue(ctx context.Context, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		batchSize = q.config.BatchSize
	}

	// Claim-and-flip in one statement; this cannot be expressed with
	// Bun's query builder.
	query := fmt.Sprintf(`
		WITH cte AS (
			SELECT id FROM %s
			WHERE status='pending' AND (scheduled_at IS NULL OR scheduled_at <= now())
			ORDER BY priority DESC, scheduled_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		)
		UPDATE %s j
		SET status='processing', started_at=now(), updated_at=now()
		FROM cte WHERE j.id = cte.id
		RETURNING j.id`,
		q.config.TableName, q.config.TableName)

	var ids []string
	_, err := q.db.NewRaw(query, batchSize).Exec(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("dequeue failed: %w", err)
	}

	return ids, nil
}

// MarkCompleted marks a row as completed.
func (q *Queue) MarkCompleted(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'completed',
			completed_at = now(),
			updated_at = now()
		WHERE id = $1`,
		q.config.TableName)

	_, err := q.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark completed failed: %w", err)
	}

	return nil
}

// MarkFailed marks a row as failed and reschedules it with quadratic
// backoff. Once MaxAttempts (if configured) is reached the row stays
// failed permanently.
func (q *Queue) MarkFailed(ctx context.Context, id string, attemptCount int, errMsg string) error {
	attempt := attemptCount + 1

	if q.config.MaxAttempts > 0 && attempt >= q.config.MaxAttempts {
		query := fmt.Sprintf(`
			UPDATE %s
			SET status = 'failed',
				attempt_count = $2,
				last_error = $3,
				updated_at = now()
			WHERE id = $1`,
			q.config.TableName)

		_, err := q.db.ExecContext(ctx, query, id, attempt, truncateError(errMsg))
		if err != nil {
			return fmt.Errorf("mark failed (permanent) failed: %w", err)
		}

		q.log.Warn("job permanently failed after max attempts",
			slog.String("job_id", id),
			slog.Int("attempts", attempt),
			slog.String("error", errMsg))

		return nil
	}

	// baseDelay * attempt^2, capped at MaxRetryDelaySec.
	delay := math.Min(
		float64(q.config.MaxRetryDelaySec),
		float64(q.config.BaseRetryDelaySec)*float64(attempt)*float64(attempt),
	)

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'pending',
			attempt_count = $2,
			last_error = $3,
			scheduled_at = now() + ($4 || ' seconds')::interval,
			updated_at = now()
		WHERE id = $1`,
		q.config.TableName)

	_, err := q.db.ExecContext(ctx, query, id, attempt, truncateError(errMsg), fmt.Sprintf("%d", int(delay)))
	if err != nil {
		return fmt.Errorf("mark failed (retry) failed: %w", err)
	}

	q.log.Debug("job scheduled for retry",
		slog.String("job_id", id),
		slog.Int("attempt", attempt),
		slog.Duration("delay", time.Duration(delay)*time.Second))

	return nil
}

// RecoverStaleJobs flips rows stuck in 'processing' back to 'pending'.
// This happens when the process restarts mid-batch. Returns the number of
// rows recovered.
func (q *Queue) RecoverStaleJobs(ctx context.Context, staleThresholdMinutes int) (int, error) {
	if staleThresholdMinutes <= 0 {
		staleThresholdMinutes = 10
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'pending',
			started_at = NULL,
			scheduled_at = now(),
			updated_at = now()
		WHERE status = 'processing'
			AND started_at < now() - ($1 || ' minutes')::interval`,
		q.config.TableName)

	result, err := q.db.ExecContext(ctx, query, fmt.Sprintf("%d", staleThresholdMinutes))
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs failed: %w", err)
	}

	count, _ := result.RowsAffected()

	if count > 0 {
		q.log.Warn("recovered stale jobs",
			slog.Int64("count", count),
			slog.Int("threshold_minutes", staleThresholdMinutes))
	}

	return int(count), nil
}

// Stats represents queue statistics.
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// GetStats returns queue statistics.
func (q *Queue) GetStats(ctx context.Context) (*Stats, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') as pending,
			COUNT(*) FILTER (WHERE status = 'processing') as processing,
			COUNT(*) FILTER (WHERE status = 'completed') as completed,
			COUNT(*) FILTER (WHERE status = 'failed') as failed
		FROM %s`,
		q.config.TableName)

	stats := &Stats{}
	err := q.db.QueryRowContext(ctx, query).Scan(&stats.Pending, &stats.Processing, &stats.Completed, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("get stats failed: %w", err)
	}

	return stats, nil
}

// GetJobByID retrieves a row by its id into dest. Returns nil without
// scanning when the row does not exist.
func (q *Queue) GetJobByID(ctx context.Context, id string, dest interface{}) error {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, q.config.TableName)
	err := q.db.NewRaw(query, id).Scan(ctx, dest)
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}

// truncateError bounds last_error at 500 characters.
func truncateError(msg string) string {
	if len(msg) > 500 {
		return msg[:500]
	}
	return msg
}
