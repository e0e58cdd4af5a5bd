// Package orchestrator runs the prioritized source pipeline for one actor
// or a batch of actors: selecting available sources in tier order,
// enforcing cost ceilings and family-diversity early stop, and handing
// the accumulated snippets to the synthesizer.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/emergent-company/deathrecord/domain/actor"
	"github.com/emergent-company/deathrecord/domain/source"
	"github.com/emergent-company/deathrecord/domain/synthesis"
	"github.com/emergent-company/deathrecord/pkg/logger"
	"github.com/emergent-company/deathrecord/pkg/tracing"
)

// Outcome is the per-actor result of one Enrich call: exactly one of Data
// or Error is meaningful, mirroring EnrichmentResult's documented shape
// so downstream callers see the same structure whatever the failure mode.
type Outcome struct {
	ActorID    string
	Data       *actor.EnrichmentResult
	Error      string
	RawSources []synthesis.RawSource
	Rejected   []synthesis.RejectedFactor
	Stats      actor.RunStats
}

// Success reports whether this actor produced a usable enrichment.
func (o Outcome) Success() bool { return o.Data != nil }

// BatchResult is the outcome of EnrichBatch: per-actor outcomes plus the
// batch-level exit reason and accumulated cost.
type BatchResult struct {
	Outcomes   map[string]Outcome
	ExitReason string
	TotalCost  float64
}

const (
	ExitCompleted   = "completed"
	ExitCostLimit   = "cost_limit"
	ExitInterrupted = "interrupted"
)

// Orchestrator runs the source pipeline. One instance is built per
// process and reused across every actor; sources carry only their own
// configuration and rate-limit state.
type Orchestrator struct {
	sources []source.Source
	synth   *synthesis.Synthesizer
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

// New builds an Orchestrator. available is the full concrete source
// catalog; it is filtered and ordered once here into the fixed tier
// order described in the orchestrator's algorithm.
func New(available []source.Source, synth *synthesis.Synthesizer, cfg Config, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sources: buildPipeline(available, cfg),
		synth:   synth,
		cfg:     cfg,
		log:     log.With(logger.Scope("orchestrator")),
		now:     time.Now,
	}
}

// buildPipeline selects isAvailable()==true sources from non-disabled
// categories, ordered by the fixed tier order and then alphabetically by
// name within a tier, per the documented construction algorithm.
func buildPipeline(available []source.Source, cfg Config) []source.Source {
	tierIndex := make(map[source.Category]int, len(source.TierOrder))
	for i, c := range source.TierOrder {
		tierIndex[c] = i
	}

	selected := make([]source.Source, 0, len(available))
	for _, s := range available {
		if cfg.DisabledCategories[s.Descriptor().Category] {
			continue
		}
		if !s.IsAvailable() {
			continue
		}
		selected = append(selected, s)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		ci, cj := selected[i].Descriptor().Category, selected[j].Descriptor().Category
		if ci != cj {
			return tierIndex[ci] < tierIndex[cj]
		}
		return selected[i].Name() < selected[j].Name()
	})

	return selected
}

// SourceCount returns the number of sources this orchestrator will call,
// after category and availability filtering.
func (o *Orchestrator) SourceCount() int { return len(o.sources) }

// SourceNames returns the deterministic tier-ordered source name list.
func (o *Orchestrator) SourceNames() []string {
	names := make([]string, len(o.sources))
	for i, s := range o.sources {
		names[i] = s.Name()
	}
	return names
}

// Enrich runs the source pipeline for a single actor and synthesizes the
// accumulated snippets into an enrichment record.
func (o *Orchestrator) Enrich(ctx context.Context, a source.Actor, runID string) Outcome {
	ctx, span := tracing.Start(ctx, "orchestrator.enrich",
		attribute.String("enrichcore.actor.id", a.ID),
		attribute.String("enrichcore.run.id", runID),
	)
	defer span.End()

	start := o.now()
	outcome := Outcome{ActorID: a.ID, Stats: actor.RunStats{RunID: runID, ActorID: a.ID}}

	var (
		rawSources        []synthesis.RawSource
		qualifyingFamilies = make(map[source.Family]bool)
		attemptedBookTypes = make(map[source.Type]bool)
		totalBookTypes     = countBookSources(o.sources)
		actorCost          float64
		earlyStopTriggered bool
	)

	for _, src := range o.sources {
		if err := ctx.Err(); err != nil {
			outcome.Stats.ExitReason = ExitInterrupted
			break
		}

		if actorCost >= o.cfg.MaxCostPerActorUSD && o.cfg.MaxCostPerActorUSD > 0 {
			break
		}

		if earlyStopTriggered {
			allBooksTried := o.cfg.DisableBookExemption || totalBookTypes == 0 || len(attemptedBookTypes) >= totalBookTypes
			if allBooksTried {
				break
			}
			if !source.BookSourceTypes[src.Type()] {
				continue
			}
		}

		result := safeLookup(src, ctx, a)
		outcome.Stats.SourcesAttempted++

		if source.BookSourceTypes[src.Type()] {
			attemptedBookTypes[src.Type()] = true
		}

		if !result.Success() {
			outcome.Stats.SourcesFailed++
			o.log.Debug("source lookup failed",
				slog.String("source", src.Name()),
				slog.String("error_kind", string(result.ErrKind)),
			)
			continue
		}

		outcome.Stats.SourcesSucceeded++
		actorCost += result.Entry.CostUSD
		rawSources = append(rawSources, synthesis.RawSource{
			Entry:     result.Entry,
			Biography: result.Biography,
			Death:     result.Death,
		})

		// Book sources are exempt from the reliability floor: their content
		// is disproportionately useful for biographical narratives, so a
		// confident book hit counts toward early stop regardless of tier.
		bookExempt := source.BookSourceTypes[src.Type()] && !o.cfg.DisableBookExemption
		if result.Entry.Confidence >= o.cfg.EarlyStopMinConfidence &&
			(result.Entry.ReliabilityScore >= o.cfg.EarlyStopMinReliability || bookExempt) {
			qualifyingFamilies[src.Descriptor().Family] = true
		}
		if len(qualifyingFamilies) >= o.cfg.EarlyStopSourceCount {
			earlyStopTriggered = true
			outcome.Stats.EarlyStopped = true
		}
	}

	outcome.Stats.TotalCostUSD = actorCost
	outcome.RawSources = rawSources

	if len(rawSources) == 0 {
		outcome.Error = "no data"
		outcome.Stats.Duration = o.now().Sub(start)
		if outcome.Stats.ExitReason == "" {
			outcome.Stats.ExitReason = ExitCompleted
		}
		return outcome
	}

	if ctx.Err() != nil {
		outcome.Error = "sources collected but synthesis failed"
		outcome.Stats.ExitReason = ExitInterrupted
		outcome.Stats.Duration = o.now().Sub(start)
		return outcome
	}

	result, cost, err := o.synth.Synthesize(ctx, a, rawSources, runID)
	outcome.Stats.TotalCostUSD += cost
	if err != nil {
		if result != nil {
			outcome.Rejected = result.RejectedFactors
		}
		if errors.Is(err, synthesis.ErrSynthesisFailed) {
			outcome.Error = "sources collected but synthesis failed"
		} else {
			outcome.Error = err.Error()
		}
		outcome.Stats.Duration = o.now().Sub(start)
		if outcome.Stats.ExitReason == "" {
			outcome.Stats.ExitReason = ExitCompleted
		}
		return outcome
	}

	outcome.Data = result.Enrichment
	outcome.Rejected = result.RejectedFactors
	outcome.Stats.Synthesized = true
	outcome.Stats.Duration = o.now().Sub(start)
	if outcome.Stats.ExitReason == "" {
		outcome.Stats.ExitReason = ExitCompleted
	}
	return outcome
}

// EnrichBatch runs Enrich over actors, honoring the batch cost ceiling and
// cancellation. With BatchConcurrency <= 1 (the default) it processes
// actors sequentially, which keeps cost accounting trivially correct. With
// BatchConcurrency > 1 it fans out across actors via batchState: the
// ceiling and cancellation are checked before each actor starts, and each
// actor's cost is added only after its Enrich call returns. No budget is
// reserved before an actor's synthesis runs, so actors already in flight
// when the ceiling is reached still complete and can push TotalCost past
// MaxCostPerBatchUSD.
func (o *Orchestrator) EnrichBatch(ctx context.Context, actors []source.Actor, runIDFor func(source.Actor) string) BatchResult {
	if o.cfg.BatchConcurrency <= 1 {
		return o.enrichBatchSequential(ctx, actors, runIDFor)
	}
	return o.enrichBatchConcurrent(ctx, actors, runIDFor)
}

func (o *Orchestrator) enrichBatchSequential(ctx context.Context, actors []source.Actor, runIDFor func(source.Actor) string) BatchResult {
	result := BatchResult{Outcomes: make(map[string]Outcome, len(actors)), ExitReason: ExitCompleted}

	for _, a := range actors {
		if err := ctx.Err(); err != nil {
			result.ExitReason = ExitInterrupted
			return result
		}

		outcome := o.Enrich(ctx, a, runIDFor(a))
		if ctx.Err() != nil && !outcome.Success() {
			// Cancellation landed mid-actor: the map keeps only actors that
			// completed, per the documented best-effort partial result.
			result.ExitReason = ExitInterrupted
			return result
		}
		result.Outcomes[a.ID] = outcome
		result.TotalCost += outcome.Stats.TotalCostUSD

		if o.cfg.MaxCostPerBatchUSD > 0 && result.TotalCost >= o.cfg.MaxCostPerBatchUSD {
			result.ExitReason = ExitCostLimit
			return result
		}
	}

	return result
}

// batchState is the shared, mutex-guarded accumulator the concurrent batch
// path uses in place of the sequential loop's plain locals: total cost,
// the exit reason once one is latched, and whether the ceiling has already
// been claimed by another in-flight actor.
type batchState struct {
	mu         sync.Mutex
	totalCost  float64
	exitReason string
	stopped    bool
}

// claimStart reports whether the caller may proceed with this actor.
// It reserves no budget: the ceiling is still evaluated against
// totalCost as each actor's real cost lands via record, matching the
// sequential path's "check after completion" semantics but guarded for
// concurrent writers.
func (s *batchState) claimStart(ctx context.Context) (ok bool, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false, s.exitReason
	}
	if err := ctx.Err(); err != nil {
		s.stopped = true
		s.exitReason = ExitInterrupted
		return false, s.exitReason
	}
	return true, ""
}

func (s *batchState) record(cost float64, maxTotal float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCost += cost
	if maxTotal > 0 && s.totalCost >= maxTotal && !s.stopped {
		s.stopped = true
		s.exitReason = ExitCostLimit
	}
}

func (o *Orchestrator) enrichBatchConcurrent(ctx context.Context, actors []source.Actor, runIDFor func(source.Actor) string) BatchResult {
	state := &batchState{}
	var mu sync.Mutex
	outcomes := make(map[string]Outcome, len(actors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.BatchConcurrency)

	for _, a := range actors {
		a := a
		ok, _ := state.claimStart(gctx)
		if !ok {
			break
		}

		g.Go(func() error {
			ok, _ := state.claimStart(gctx)
			if !ok {
				return nil
			}

			outcome := o.Enrich(gctx, a, runIDFor(a))

			mu.Lock()
			outcomes[a.ID] = outcome
			mu.Unlock()

			state.record(outcome.Stats.TotalCostUSD, o.cfg.MaxCostPerBatchUSD)
			return nil
		})
	}

	_ = g.Wait()

	state.mu.Lock()
	reason := state.exitReason
	totalCost := state.totalCost
	state.mu.Unlock()
	if reason == "" {
		reason = ExitCompleted
	}

	return BatchResult{Outcomes: outcomes, ExitReason: reason, TotalCost: totalCost}
}

func countBookSources(sources []source.Source) int {
	seen := make(map[source.Type]bool)
	for _, s := range sources {
		if source.BookSourceTypes[s.Type()] {
			seen[s.Type()] = true
		}
	}
	return len(seen)
}

// safeLookup recovers a panicking source lookup and converts it into an
// upstream_error failure so one misbehaving source cannot abort the run.
func safeLookup(src source.Source, ctx context.Context, a source.Actor) (result source.LookupResult) {
	defer func() {
		if r := recover(); r != nil {
			result = source.LookupResult{ErrKind: source.ErrorUpstreamError, ErrMsg: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return src.Lookup(ctx, a)
}
