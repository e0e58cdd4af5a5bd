package synthesis

import "context"

// Generator is the model-agnostic contract the Synthesizer calls: turn an
// assembled prompt into a JSON response matching enrichmentSchema, plus
// its cost in USD. Concrete implementations wrap either the Gemini ADK
// path or the Anthropic path so provideGenerator (module.go) can pick the
// backing model without the Synthesizer knowing which provider backs it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (json string, costUSD float64, err error)
	IsConfigured() bool
}
