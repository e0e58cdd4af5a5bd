package orchestrator

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/deathrecord/domain/source"
	"github.com/emergent-company/deathrecord/domain/synthesis"
	"github.com/emergent-company/deathrecord/internal/config"
)

// Module wires the Orchestrator from the full source catalog domain/source
// provides and the synthesis package.
var Module = fx.Module("orchestrator",
	fx.Provide(provideOrchestrator),
)

func provideOrchestrator(available []source.Source, cfg *config.Config, synth *synthesis.Synthesizer, log *slog.Logger) *Orchestrator {
	return New(available, synth, NewConfig(&cfg.Orchestrator, &cfg.CostLimits), log)
}
