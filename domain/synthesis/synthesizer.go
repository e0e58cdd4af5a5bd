// Package synthesis turns the raw source snippets an orchestrator run
// accumulates into a single structured enrichment record via an LLM call,
// validating the result against the closed notableFactors vocabulary and
// the narrative-quality thresholds before handing it to the writer.
package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/emergent-company/deathrecord/domain/actor"
	"github.com/emergent-company/deathrecord/domain/source"
	"github.com/emergent-company/deathrecord/pkg/logger"
	"github.com/emergent-company/deathrecord/pkg/tracing"
)

// ErrSynthesisFailed is returned when the LLM response could not be
// parsed into a usable record after exhausting retries. Callers preserve
// rawSources and may retry synthesis later.
var ErrSynthesisFailed = errors.New("synthesis: sources collected but synthesis failed")

// substantiveContentThresholds are the field-length gates that decide
// whether a synthesized record carries enough content to be worth
// surfacing downstream.
const (
	circumstancesThreshold = 200
	rumoredThreshold       = 100
	relatedDeathsThreshold = 50
)

// maxRejectedFactors bounds how many out-of-vocabulary notableFactors a
// response may carry before the whole response is rejected as having
// ignored the vocabulary instruction. The rejected values are still
// recorded as telemetry either way.
const maxRejectedFactors = 3

// RejectedFactor is one notableFactors value the model emitted outside
// the closed vocabulary, recorded as telemetry rather than silently
// dropped.
type RejectedFactor struct {
	Factor string
	Reason string
}

// Result is everything the Synthesizer produces for one actor: the
// enrichment record (nil on failure) and any vocabulary violations to
// record regardless of overall success.
type Result struct {
	Enrichment      *actor.EnrichmentResult
	RejectedFactors []RejectedFactor
}

// Synthesizer builds the prompt, calls the configured Generator with
// bounded retries, and validates/normalizes its response.
type Synthesizer struct {
	generator  Generator
	maxRetries int
	log        *slog.Logger
}

// NewSynthesizer builds a Synthesizer around generator. maxRetries bounds
// retries of transient failures only; authentication/quota errors are
// surfaced immediately per the synthesis algorithm.
func NewSynthesizer(generator Generator, maxRetries int, log *slog.Logger) *Synthesizer {
	return &Synthesizer{generator: generator, maxRetries: maxRetries, log: log.With(logger.Scope("synthesis"))}
}

// resultDTO is the wire shape the LLM is instructed to emit; fields are
// pointers where a field may legitimately be null rather than absent.
type resultDTO struct {
	Circumstances        string   `json:"circumstances"`
	RumoredCircumstances string   `json:"rumoredCircumstances"`
	LocationOfDeath      string   `json:"locationOfDeath"`
	CauseOfDeath         string   `json:"causeOfDeath"`
	NotableFactors       []string `json:"notableFactors"`
	CauseConfidence      *string  `json:"causeConfidence"`
	DetailsConfidence    *string  `json:"detailsConfidence"`
	BirthdayConfidence   *string  `json:"birthdayConfidence"`
	DeathdayConfidence   *string  `json:"deathdayConfidence"`
	LastProject          string   `json:"lastProject"`
	PosthumousReleases   []string `json:"posthumousReleases"`
	CareerStatusAtDeath  string   `json:"careerStatusAtDeath"`
	RelatedCelebrities   []string `json:"relatedCelebrities"`
	RelatedDeaths        string   `json:"relatedDeaths"`
	Narrative            string   `json:"narrative"`
}

// Synthesize assembles the prompt from raw, calls the generator with
// bounded retries, and returns the validated record plus the cost
// incurred. On parse failure it returns ErrSynthesisFailed; the caller
// is expected to retain raw for a later retry.
func (s *Synthesizer) Synthesize(ctx context.Context, a source.Actor, raw []RawSource, runID string) (*Result, float64, error) {
	ctx, span := tracing.Start(ctx, "synthesis.synthesize",
		attribute.String("enrichcore.actor.id", a.ID),
		attribute.String("enrichcore.run.id", runID),
		attribute.Int("enrichcore.raw_source_count", len(raw)),
	)
	defer span.End()

	if len(raw) == 0 {
		return nil, 0, fmt.Errorf("synthesis: no raw sources")
	}

	prompt := buildPrompt(a, raw)

	var (
		rawJSON  string
		cost     float64
		lastErr  error
	)
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		rawJSON, cost, lastErr = s.generator.Generate(ctx, prompt)
		if lastErr == nil {
			break
		}
		if isAuthOrQuotaError(lastErr) {
			return nil, 0, fmt.Errorf("synthesis: %w", lastErr)
		}
		if attempt < s.maxRetries {
			s.log.Warn("synthesis call failed, retrying", logger.Error(lastErr), slog.Int("attempt", attempt+1))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}
	}
	if lastErr != nil {
		return nil, cost, fmt.Errorf("%w: %v", ErrSynthesisFailed, lastErr)
	}

	var dto resultDTO
	if err := json.Unmarshal([]byte(rawJSON), &dto); err != nil {
		return nil, cost, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	validFactors, rejected := validFactors(dto.NotableFactors)
	rejectedFactors := make([]RejectedFactor, 0, len(rejected))
	for _, f := range rejected {
		rejectedFactors = append(rejectedFactors, RejectedFactor{Factor: f, Reason: "not in closed vocabulary"})
	}
	if len(rejected) > maxRejectedFactors {
		return &Result{RejectedFactors: rejectedFactors}, cost,
			fmt.Errorf("%w: %d notableFactors outside the closed vocabulary", ErrSynthesisFailed, len(rejected))
	}

	strongest := strongestConfidence(raw)

	enrichment := &actor.EnrichmentResult{
		ActorID:              a.ID,
		RunID:                runID,
		Circumstances:        dto.Circumstances,
		RumoredCircumstances: dto.RumoredCircumstances,
		LocationOfDeath:      dto.LocationOfDeath,
		CauseOfDeath:         dto.CauseOfDeath,
		NotableFactors:       validFactors,
		CauseConfidence:      resolveConfidence(dto.CauseConfidence, strongest),
		DetailsConfidence:    resolveConfidence(dto.DetailsConfidence, strongest),
		BirthdayConfidence:   resolveConfidence(dto.BirthdayConfidence, strongest),
		DeathdayConfidence:   resolveConfidence(dto.DeathdayConfidence, strongest),
		LastProject:          dto.LastProject,
		PosthumousReleases:   dto.PosthumousReleases,
		CareerStatusAtDeath:  dto.CareerStatusAtDeath,
		RelatedCelebrities:   toRelatedCelebrities(dto.RelatedCelebrities),
		RelatedDeaths:        dto.RelatedDeaths,
		Narrative:            dto.Narrative,
		SourceNames:          sourceNames(raw),
		Confidence:           strongest,
		SynthesizedAt:        time.Now(),
	}
	enrichment.HasSubstantiveContent = len(enrichment.Circumstances) > circumstancesThreshold ||
		len(enrichment.RumoredCircumstances) > rumoredThreshold ||
		len(enrichment.RelatedDeaths) > relatedDeathsThreshold

	return &Result{Enrichment: enrichment, RejectedFactors: rejectedFactors}, cost, nil
}

// resolveConfidence prefers the model's own confidence when present,
// falling back to the strongest-contributing-snippet mapping otherwise.
func resolveConfidence(explicit *string, strongest float64) actor.ConfidenceLevel {
	if explicit != nil {
		switch strings.ToLower(*explicit) {
		case "high":
			return actor.ConfidenceHigh
		case "medium":
			return actor.ConfidenceMedium
		case "low":
			return actor.ConfidenceLow
		}
	}
	return actor.ConfidenceFromScore(strongest)
}

func strongestConfidence(raw []RawSource) float64 {
	var max float64
	for _, rs := range raw {
		if rs.Entry.Confidence > max {
			max = rs.Entry.Confidence
		}
	}
	return max
}

func sourceNames(raw []RawSource) []string {
	names := make([]string, 0, len(raw))
	for _, rs := range raw {
		names = append(names, string(rs.Entry.Type))
	}
	return names
}

func toRelatedCelebrities(names []string) []actor.RelatedCelebrity {
	out := make([]actor.RelatedCelebrity, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		out = append(out, actor.RelatedCelebrity{Name: n})
	}
	return out
}

// isAuthOrQuotaError reports whether err looks like an authentication or
// quota failure, which the synthesis algorithm requires to surface
// immediately rather than retry.
func isAuthOrQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"401", "403", "unauthorized", "invalid api key", "quota", "permission denied"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func backoff(attempt int) time.Duration {
	d := 500 * time.Millisecond * time.Duration(1<<uint(attempt))
	if d > 8*time.Second {
		return 8 * time.Second
	}
	return d
}
