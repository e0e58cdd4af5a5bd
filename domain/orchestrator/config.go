package orchestrator

import (
	"math"

	"github.com/emergent-company/deathrecord/domain/source"
	"github.com/emergent-company/deathrecord/internal/config"
)

// defaultEarlyStopSourceCount is the floor every non-finite, non-positive,
// or non-integer configured value collapses to.
const defaultEarlyStopSourceCount = 5

// Config is the orchestrator's validated runtime configuration, derived
// from the raw environment-sourced config.OrchestratorConfig plus the
// cost ceilings.
type Config struct {
	DisabledCategories      map[source.Category]bool
	EarlyStopSourceCount    int
	EarlyStopMinConfidence  float64
	EarlyStopMinReliability float64
	DisableBookExemption    bool
	MaxCostPerActorUSD      float64
	MaxCostPerBatchUSD      float64
	BatchConcurrency        int
}

// NewConfig builds a validated Config. EarlyStopSourceCount independently
// re-validates the configured value rather than trusting env parsing to
// have applied the default: NaN, Infinity, zero, and negative values all
// fall back to defaultEarlyStopSourceCount; positive non-integers floor.
func NewConfig(oc *config.OrchestratorConfig, cc *config.CostLimitsConfig) Config {
	disabled := make(map[source.Category]bool, len(oc.DisabledCategories))
	for _, name := range oc.DisabledCategories {
		disabled[source.Category(name)] = true
	}

	return Config{
		DisabledCategories:      disabled,
		EarlyStopSourceCount:    validateEarlyStopSourceCount(float64(oc.EarlyStopSourceCount)),
		EarlyStopMinConfidence:  oc.EarlyStopMinConfidence,
		EarlyStopMinReliability: oc.EarlyStopMinReliability,
		DisableBookExemption:    oc.DisableBookExemption,
		MaxCostPerActorUSD:      cc.MaxCostPerActorUSD,
		MaxCostPerBatchUSD:      cc.MaxCostPerBatchUSD,
		BatchConcurrency:        max(1, oc.BatchConcurrency),
	}
}

// validateEarlyStopSourceCount implements the documented validation rule
// independently of config.go's envDefault, since a malformed *numeric*
// environment value (e.g. "0", "-3") parses successfully but still needs
// rejecting here.
func validateEarlyStopSourceCount(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return defaultEarlyStopSourceCount
	}
	return int(math.Floor(v))
}

