// Package store is the concrete Postgres-backed implementation of
// domain/actor.Store, built on the same bun/pgx stack internal/database
// provides. Raw actor ingestion, seeding, and schema migrations are
// external collaborators; this package only implements the narrow
// persistence contract the orchestrator and writer depend on.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/emergent-company/deathrecord/domain/actor"
	"github.com/emergent-company/deathrecord/domain/cache"
	"github.com/emergent-company/deathrecord/internal/database"
	"github.com/emergent-company/deathrecord/pkg/logger"
)

// Module provides the Store and binds it to the actor.Store interface
// the orchestrator/writer/synthesis packages depend on.
var Module = fx.Module("store",
	fx.Provide(
		New,
		func(s *Store) actor.Store { return s },
	),
)

// cacheKey templates the writer invalidates after a production write, per
// the documented key templates. List views are keyed by query rather than
// actor, so they are swept by pattern.
func profileKey(actorID string) string { return "actor:id:" + actorID }
func deathKey(actorID string) string   { return "actor:id:" + actorID + ":type:death" }

const listPattern = "actors:list:*"

// Store is the bun-backed actor.Store implementation.
type Store struct {
	db    bun.IDB
	cache cache.Cache
	log   *slog.Logger
}

// New builds a Store around the shared bun connection and lookup cache.
func New(db bun.IDB, c cache.Cache, log *slog.Logger) *Store {
	return &Store{db: db, cache: c, log: log.With(logger.Scope("store"))}
}

// actorRow is the bun model for the actors table.
type actorRow struct {
	bun.BaseModel `bun:"table:actors"`

	ID                  string    `bun:"id,pk"`
	ExternalID          string    `bun:"external_id"`
	Name                string    `bun:"name"`
	Birthday            sql.NullTime `bun:"birthday"`
	Deathday            sql.NullTime `bun:"deathday"`
	PlaceOfBirth        string    `bun:"place_of_birth"`
	PriorCause          string    `bun:"prior_cause"`
	Popularity          float64   `bun:"popularity"`
	RawBiography        string    `bun:"raw_biography"`
	KnownFor            []string  `bun:"known_for,array"`
	RelatedCelebrityIDs []string  `bun:"related_celebrity_ids,array"`
	CreatedAt           time.Time `bun:"created_at"`
	UpdatedAt           time.Time `bun:"updated_at"`
}

func (r *actorRow) toActor() *actor.Actor {
	a := &actor.Actor{
		ID:                  r.ID,
		ExternalID:          r.ExternalID,
		Name:                r.Name,
		PlaceOfBirth:        r.PlaceOfBirth,
		PriorCause:          r.PriorCause,
		Popularity:          r.Popularity,
		RawBiography:        r.RawBiography,
		KnownFor:            r.KnownFor,
		RelatedCelebrityIDs: r.RelatedCelebrityIDs,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if r.Birthday.Valid {
		a.Birthday = &r.Birthday.Time
	}
	if r.Deathday.Valid {
		a.Deathday = &r.Deathday.Time
	}
	return a
}

// GetActor loads one actor by internal id.
func (s *Store) GetActor(ctx context.Context, actorID string) (*actor.Actor, error) {
	var row actorRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", actorID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: actor %s not found", actorID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get actor: %w", err)
	}
	return row.toActor(), nil
}

// LoadActorsForEnrichment selects up to limit actors matching criteria, in
// a stable id order.
func (s *Store) LoadActorsForEnrichment(ctx context.Context, criteria actor.LoadCriteria, limit int) ([]*actor.Actor, error) {
	q := s.db.NewSelect().Model((*actorRow)(nil))

	switch {
	case criteria.MissingCircumstances:
		q = q.Where("deathday IS NOT NULL").
			Where("id NOT IN (SELECT actor_id FROM death_circumstances)")
	case len(criteria.ActorIDs) > 0:
		q = q.Where("id IN (?)", bun.In(criteria.ActorIDs))
	case len(criteria.ExternalIDs) > 0:
		q = q.Where("external_id IN (?)", bun.In(criteria.ExternalIDs))
	case criteria.TopBilledInYear > 0:
		q = q.Where("deathday IS NOT NULL").
			Where("EXTRACT(YEAR FROM deathday) = ?", criteria.TopBilledInYear).
			Order("popularity DESC")
	}

	q = q.OrderExpr("id ASC").Limit(limit)

	var rows []actorRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("store: load actors for enrichment: %w", err)
	}

	out := make([]*actor.Actor, len(rows))
	for i := range rows {
		out[i] = rows[i].toActor()
	}
	return out, nil
}

// deathCircumstancesRow is the bun model shared (field-for-field) by the
// production and staging tables.
type deathCircumstancesRow struct {
	ActorID               string          `bun:"actor_id"`
	NarrativeSummary      string          `bun:"narrative_summary"`
	CauseOfDeath          string          `bun:"cause_of_death"`
	NotableFactors        []string        `bun:"notable_factors,array"`
	Confidence            float64         `bun:"confidence"`
	SourceNames           []string        `bun:"source_names,array"`
	SynthesizedAt         time.Time       `bun:"synthesized_at"`
	RunID                 string          `bun:"run_id"`
	Circumstances         string          `bun:"circumstances"`
	RumoredCircumstances  string          `bun:"rumored_circumstances"`
	LocationOfDeath       string          `bun:"location_of_death"`
	LastProject           string          `bun:"last_project"`
	PosthumousReleases    []string        `bun:"posthumous_releases,array"`
	CareerStatusAtDeath   string          `bun:"career_status_at_death"`
	RelatedCelebrities    json.RawMessage `bun:"related_celebrities"`
	RelatedDeaths         string          `bun:"related_deaths"`
	Narrative             string          `bun:"narrative"`
	HasSubstantiveContent bool            `bun:"has_substantive_content"`
	CauseConfidence       sql.NullString  `bun:"cause_confidence"`
	DetailsConfidence     sql.NullString  `bun:"details_confidence"`
	BirthdayConfidence    sql.NullString  `bun:"birthday_confidence"`
	DeathdayConfidence    sql.NullString  `bun:"deathday_confidence"`
}

type productionRow struct {
	bun.BaseModel `bun:"table:death_circumstances"`
	deathCircumstancesRow
}

type stagingRow struct {
	bun.BaseModel `bun:"table:death_circumstances_staging"`
	deathCircumstancesRow
	ID       int64 `bun:"id,pk,autoincrement"`
	Reviewed bool  `bun:"reviewed"`
}

func toRow(result *actor.EnrichmentResult) (deathCircumstancesRow, error) {
	related, err := json.Marshal(result.RelatedCelebrities)
	if err != nil {
		return deathCircumstancesRow{}, fmt.Errorf("store: marshal related celebrities: %w", err)
	}
	return deathCircumstancesRow{
		ActorID:               result.ActorID,
		NarrativeSummary:      result.Narrative,
		CauseOfDeath:          result.CauseOfDeath,
		NotableFactors:        result.NotableFactors,
		Confidence:            result.Confidence,
		SourceNames:           result.SourceNames,
		SynthesizedAt:         result.SynthesizedAt,
		RunID:                 result.RunID,
		Circumstances:         result.Circumstances,
		RumoredCircumstances:  result.RumoredCircumstances,
		LocationOfDeath:       result.LocationOfDeath,
		LastProject:           result.LastProject,
		PosthumousReleases:    result.PosthumousReleases,
		CareerStatusAtDeath:   result.CareerStatusAtDeath,
		RelatedCelebrities:    related,
		RelatedDeaths:         result.RelatedDeaths,
		Narrative:             result.Narrative,
		HasSubstantiveContent: result.HasSubstantiveContent,
		CauseConfidence:       nullableConfidence(result.CauseConfidence),
		DetailsConfidence:     nullableConfidence(result.DetailsConfidence),
		BirthdayConfidence:    nullableConfidence(result.BirthdayConfidence),
		DeathdayConfidence:    nullableConfidence(result.DeathdayConfidence),
	}, nil
}

func nullableConfidence(level actor.ConfidenceLevel) sql.NullString {
	if level == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(level), Valid: true}
}

// WriteProduction atomically upserts the actor's death-circumstances row
// and invalidates the two documented cache keys, all within one
// transaction. Cache invalidation failure rolls the transaction back:
// the core treats a cache outage on the write path as fatal, never as a
// degrade-to-stale condition.
func (s *Store) WriteProduction(ctx context.Context, result *actor.EnrichmentResult) error {
	row, err := toRow(result)
	if err != nil {
		return err
	}

	tx, err := database.BeginSafeTx(ctx, s.db)
	if err != nil {
		return fmt.Errorf("store: begin production write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	pr := productionRow{deathCircumstancesRow: row}
	_, err = tx.NewInsert().Model(&pr).
		On("CONFLICT (actor_id) DO UPDATE").
		Set("narrative_summary = EXCLUDED.narrative_summary").
		Set("cause_of_death = EXCLUDED.cause_of_death").
		Set("notable_factors = EXCLUDED.notable_factors").
		Set("confidence = EXCLUDED.confidence").
		Set("source_names = EXCLUDED.source_names").
		Set("synthesized_at = EXCLUDED.synthesized_at").
		Set("run_id = EXCLUDED.run_id").
		Set("circumstances = EXCLUDED.circumstances").
		Set("rumored_circumstances = EXCLUDED.rumored_circumstances").
		Set("location_of_death = EXCLUDED.location_of_death").
		Set("last_project = EXCLUDED.last_project").
		Set("posthumous_releases = EXCLUDED.posthumous_releases").
		Set("career_status_at_death = EXCLUDED.career_status_at_death").
		Set("related_celebrities = EXCLUDED.related_celebrities").
		Set("related_deaths = EXCLUDED.related_deaths").
		Set("narrative = EXCLUDED.narrative").
		Set("has_substantive_content = EXCLUDED.has_substantive_content").
		Set("cause_confidence = EXCLUDED.cause_confidence").
		Set("details_confidence = EXCLUDED.details_confidence").
		Set("birthday_confidence = EXCLUDED.birthday_confidence").
		Set("deathday_confidence = EXCLUDED.deathday_confidence").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: upsert death circumstances: %w", err)
	}

	if result.CauseOfDeath != "" {
		if _, err := tx.NewUpdate().Model((*actorRow)(nil)).
			Set("prior_cause = ?", result.CauseOfDeath).
			Set("updated_at = now()").
			Where("id = ?", result.ActorID).
			Exec(ctx); err != nil {
			return fmt.Errorf("store: update actor columns: %w", err)
		}
	}

	if err := s.invalidate(ctx, result.ActorID); err != nil {
		return fmt.Errorf("store: %w: cache_unavailable: %v", cache.ErrUnavailable, err)
	}

	return tx.Commit()
}

// invalidate removes both documented cache keys for an actor plus any
// cached list views containing it. Failure on any is surfaced to the
// caller, which rolls back the write.
func (s *Store) invalidate(ctx context.Context, actorID string) error {
	if err := s.cache.Invalidate(ctx, profileKey(actorID)); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, deathKey(actorID)); err != nil {
		return err
	}
	return s.cache.InvalidatePattern(ctx, listPattern)
}

// WriteStaging inserts a pending-review row without touching the
// canonical actor/death-circumstances tables or cache.
func (s *Store) WriteStaging(ctx context.Context, result *actor.EnrichmentResult) error {
	row, err := toRow(result)
	if err != nil {
		return err
	}
	sr := stagingRow{deathCircumstancesRow: row}
	_, err = s.db.NewInsert().Model(&sr).Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: insert staging row: %w", err)
	}
	return nil
}

// ResolveActorsByName looks up existing actors by name for the writer's
// related-celebrity resolution pass. Unmatched names are simply absent
// from the result map.
func (s *Store) ResolveActorsByName(ctx context.Context, names []string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}

	var rows []actorRow
	err := s.db.NewSelect().Model(&rows).
		Column("id", "name").
		Where("name IN (?)", bun.In(names)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: resolve actors by name: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Name] = r.ID
	}
	return out, nil
}

// rejectedFactorRow is the bun model for the rejected_factors table.
type rejectedFactorRow struct {
	bun.BaseModel `bun:"table:rejected_factors"`

	ID      int64  `bun:"id,pk,autoincrement"`
	ActorID string `bun:"actor_id"`
	RunID   string `bun:"run_id"`
	Factor  string `bun:"factor"`
	Reason  string `bun:"reason"`
}

// RecordRejectedFactor persists one notableFactors value that failed
// closed-vocabulary validation.
func (s *Store) RecordRejectedFactor(ctx context.Context, actorID, runID, factor, reason string) error {
	row := rejectedFactorRow{ActorID: actorID, RunID: runID, Factor: factor, Reason: reason}
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: record rejected factor: %w", err)
	}
	return nil
}

// runStatsRow is the bun model for the run_stats table.
type runStatsRow struct {
	bun.BaseModel `bun:"table:run_stats"`

	RunID            string `bun:"run_id,pk"`
	ActorID          string `bun:"actor_id"`
	SourcesAttempted int    `bun:"sources_attempted"`
	SourcesSucceeded int    `bun:"sources_succeeded"`
	SourcesFailed    int    `bun:"sources_failed"`
	EarlyStopped     bool   `bun:"early_stopped"`
	TotalCostUSD     float64 `bun:"total_cost_usd"`
	DurationMS       int64  `bun:"duration_ms"`
	Synthesized      bool   `bun:"synthesized"`
	ExitReason       string `bun:"exit_reason"`
}

// RecordRunStats persists the per-actor telemetry one orchestrator run
// produced.
func (s *Store) RecordRunStats(ctx context.Context, stats *actor.RunStats) error {
	row := runStatsRow{
		RunID:            stats.RunID,
		ActorID:          stats.ActorID,
		SourcesAttempted: stats.SourcesAttempted,
		SourcesSucceeded: stats.SourcesSucceeded,
		SourcesFailed:    stats.SourcesFailed,
		EarlyStopped:     stats.EarlyStopped,
		TotalCostUSD:     stats.TotalCostUSD,
		DurationMS:       stats.Duration.Milliseconds(),
		Synthesized:      stats.Synthesized,
		ExitReason:       stats.ExitReason,
	}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (run_id) DO UPDATE").
		Set("sources_attempted = EXCLUDED.sources_attempted").
		Set("sources_succeeded = EXCLUDED.sources_succeeded").
		Set("sources_failed = EXCLUDED.sources_failed").
		Set("early_stopped = EXCLUDED.early_stopped").
		Set("total_cost_usd = EXCLUDED.total_cost_usd").
		Set("duration_ms = EXCLUDED.duration_ms").
		Set("synthesized = EXCLUDED.synthesized").
		Set("exit_reason = EXCLUDED.exit_reason").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: record run stats: %w", err)
	}
	return nil
}
