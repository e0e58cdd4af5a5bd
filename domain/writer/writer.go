// Package writer maps a synthesized EnrichmentResult into the store:
// resolving related-celebrity names to internal ids, selecting between a
// production write (cache-invalidating) and a staging write (reviewed
// later by a human), and recording rejected-factor telemetry regardless
// of which mode ran.
package writer

import (
	"context"
	"log/slog"

	"github.com/emergent-company/deathrecord/domain/actor"
	"github.com/emergent-company/deathrecord/domain/synthesis"
	"github.com/emergent-company/deathrecord/pkg/logger"
)

// Mode selects which write path Write takes.
type Mode string

const (
	// ModeProduction updates the actor's live columns in one transaction
	// and invalidates cache; see actor.Store.WriteProduction.
	ModeProduction Mode = "production"

	// ModeStaging inserts a pending-review row without touching
	// production columns or cache.
	ModeStaging Mode = "staging"
)

// Writer commits a synthesized enrichment record to the store.
type Writer struct {
	store actor.Store
	mode  Mode
	log   *slog.Logger
}

// New builds a Writer in the given mode.
func New(store actor.Store, mode Mode, log *slog.Logger) *Writer {
	if mode == "" {
		mode = ModeStaging
	}
	return &Writer{store: store, mode: mode, log: log.With(logger.Scope("writer"))}
}

// Write resolves related celebrities, persists the enrichment record via
// the configured mode, and records any rejected-factor telemetry and the
// run's stats. result may be nil when the run produced no enrichment (no
// data, cost limit, or synthesis failure); in that case nothing is
// persisted through the mode, and the rejected factors (keyed by stats'
// actor and run ids) and RunStats are still recorded.
func (w *Writer) Write(ctx context.Context, result *actor.EnrichmentResult, rejected []synthesis.RejectedFactor, stats *actor.RunStats) error {
	if result != nil {
		if err := w.resolveRelatedCelebrities(ctx, result); err != nil {
			return err
		}

		switch w.mode {
		case ModeProduction:
			if err := w.store.WriteProduction(ctx, result); err != nil {
				return err
			}
		case ModeStaging:
			if err := w.store.WriteStaging(ctx, result); err != nil {
				return err
			}
		}
	}

	var actorID, runID string
	switch {
	case result != nil:
		actorID, runID = result.ActorID, result.RunID
	case stats != nil:
		actorID, runID = stats.ActorID, stats.RunID
	}
	if result != nil || stats != nil {
		for _, rf := range rejected {
			if err := w.store.RecordRejectedFactor(ctx, actorID, runID, rf.Factor, rf.Reason); err != nil {
				w.log.Warn("failed to record rejected factor", slog.String("factor", rf.Factor), logger.Error(err))
			}
		}
	}

	if stats != nil {
		if err := w.store.RecordRunStats(ctx, stats); err != nil {
			w.log.Warn("failed to record run stats", slog.String("actor_id", stats.ActorID), logger.Error(err))
		}
	}

	return nil
}

// resolveRelatedCelebrities looks up each RelatedCelebrity by free-form
// name and fills in ActorID for any the store can match; unmatched names
// are left as-is, per the documented resolution policy.
func (w *Writer) resolveRelatedCelebrities(ctx context.Context, result *actor.EnrichmentResult) error {
	if len(result.RelatedCelebrities) == 0 {
		return nil
	}

	names := make([]string, len(result.RelatedCelebrities))
	for i, rc := range result.RelatedCelebrities {
		names[i] = rc.Name
	}

	resolved, err := w.store.ResolveActorsByName(ctx, names)
	if err != nil {
		return err
	}

	for i, rc := range result.RelatedCelebrities {
		if id, ok := resolved[rc.Name]; ok {
			result.RelatedCelebrities[i].ActorID = id
		}
	}
	return nil
}
