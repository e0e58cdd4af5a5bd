package synthesis

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/deathrecord/internal/config"
	"github.com/emergent-company/deathrecord/pkg/adk"
)

// Module wires the synthesis Generator and Synthesizer. The Claude path
// takes priority when an Anthropic API key is configured (an explicit
// operator opt-in); otherwise synthesis falls back to the Vertex AI
// Gemini path.
var Module = fx.Module("synthesis",
	fx.Provide(provideGenerator, provideSynthesizer),
)

func provideGenerator(cfg *config.Config, factory *adk.ModelFactory, log *slog.Logger) Generator {
	if claude := NewAnthropicGenerator(&cfg.LLM, log); claude != nil {
		return claude
	}
	return NewGeminiGenerator(factory, log)
}

func provideSynthesizer(cfg *config.Config, gen Generator, log *slog.Logger) *Synthesizer {
	return NewSynthesizer(gen, cfg.LLM.MaxRetries, log)
}
