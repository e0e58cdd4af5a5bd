// Package actor defines the Actor record and the storage contract the rest
// of the enrichment pipeline depends on. The concrete Postgres-backed
// implementation lives in internal/store; actor raw ingestion, seeding, and
// reconciliation are external collaborators and out of scope here.
package actor

import (
	"context"
	"time"

	"github.com/emergent-company/deathrecord/domain/source"
)

// Actor is a deceased film/TV actor eligible for death-circumstance
// enrichment.
type Actor struct {
	ID                  string
	ExternalID          string
	Name                string
	Birthday            *time.Time
	Deathday            *time.Time
	PlaceOfBirth        string
	PriorCause          string
	Popularity          float64
	RawBiography        string
	KnownFor            []string
	RelatedCelebrityIDs []string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsDeceased reports whether the actor has a recorded death date. Sources
// should not be queried for a living actor.
func (a *Actor) IsDeceased() bool {
	return a.Deathday != nil
}

// ToSourceActor narrows an Actor to the minimal view a source.Source needs,
// the only shape that crosses the orchestrator/source boundary.
func (a *Actor) ToSourceActor() source.Actor {
	return source.Actor{
		ID:           a.ID,
		ExternalID:   a.ExternalID,
		Name:         a.Name,
		Birthday:     a.Birthday,
		Deathday:     a.Deathday,
		PlaceOfBirth: a.PlaceOfBirth,
		PriorCause:   a.PriorCause,
		Popularity:   a.Popularity,
		RawBiography: a.RawBiography,
	}
}

// ConfidenceLevel is the three-valued confidence band the synthesizer
// assigns each uncertain field, in lieu of a raw numeric score the writer
// would have to re-interpret.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ConfidenceFromScore maps a numeric [0,1] confidence onto the three bands
// used for fields where sources disagree or evidence is thin: >=0.7 is
// high, >=0.4 is medium, anything else is low.
func ConfidenceFromScore(score float64) ConfidenceLevel {
	switch {
	case score >= 0.7:
		return ConfidenceHigh
	case score >= 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// RelatedCelebrity is one name the synthesizer extracted as connected to
// the actor's death narrative (a co-star, spouse, or similar), with an
// optional resolved internal ID when the writer could match it to an
// existing actor record by name.
type RelatedCelebrity struct {
	Name    string
	ActorID string
}

// EnrichmentResult is the synthesized, write-back-ready result of one
// enrichment run: the full set of fields the synthesizer produces from
// the source snippets it gathered, before the writer persists it.
type EnrichmentResult struct {
	ActorID string
	RunID   string

	Circumstances        string
	RumoredCircumstances string
	LocationOfDeath      string
	CauseOfDeath         string
	NotableFactors       []string

	CauseConfidence    ConfidenceLevel
	DetailsConfidence  ConfidenceLevel
	BirthdayConfidence ConfidenceLevel
	DeathdayConfidence ConfidenceLevel

	LastProject         string
	PosthumousReleases  []string
	CareerStatusAtDeath string

	RelatedCelebrities []RelatedCelebrity
	RelatedDeaths      string

	Narrative             string
	HasSubstantiveContent bool

	Confidence    float64
	SourceNames   []string
	SynthesizedAt time.Time
}

// LoadCriteria selects which actors an enrichment batch should target.
// Exactly one selector field is meaningful per call; the others are left
// at their zero value.
type LoadCriteria struct {
	MissingCircumstances bool
	ActorIDs             []string
	ExternalIDs          []string
	TopBilledInYear       int
}

// Store is the persistence contract the orchestrator and writer depend on.
// The concrete implementation is Postgres-backed (internal/store); schema
// migrations and raw actor ingestion are handled outside this module.
type Store interface {
	GetActor(ctx context.Context, actorID string) (*Actor, error)

	// LoadActorsForEnrichment selects up to limit actors matching criteria,
	// in the deterministic order the concrete store defines.
	LoadActorsForEnrichment(ctx context.Context, criteria LoadCriteria, limit int) ([]*Actor, error)

	// WriteProduction atomically writes the canonical enrichment row and
	// invalidates any cached lookups for the actor (see
	// cache.Cache.Invalidate); invalidation failure is fatal to the write.
	WriteProduction(ctx context.Context, result *EnrichmentResult) error

	// WriteStaging writes a pending-review row without touching the
	// canonical table or cache.
	WriteStaging(ctx context.Context, result *EnrichmentResult) error

	// ResolveActorsByName looks up existing actors by name, for the
	// writer's related-celebrity resolution pass. Unmatched names are
	// simply absent from the result.
	ResolveActorsByName(ctx context.Context, names []string) (map[string]string, error)

	// RecordRejectedFactor persists a notableFactors entry that failed
	// closed-vocabulary validation, for telemetry.
	RecordRejectedFactor(ctx context.Context, actorID, runID, factor, reason string) error

	// RecordRunStats persists the per-run telemetry described by RunStats.
	RecordRunStats(ctx context.Context, stats *RunStats) error
}

// RunStats captures the per-actor telemetry produced by one orchestrator
// run: how many sources were tried, how the run terminated, and its cost.
type RunStats struct {
	RunID            string
	ActorID          string
	SourcesAttempted int
	SourcesSucceeded int
	SourcesFailed    int
	EarlyStopped     bool
	ExitReason       string
	TotalCostUSD     float64
	Duration         time.Duration
	Synthesized      bool
}
