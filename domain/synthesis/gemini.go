package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/emergent-company/deathrecord/pkg/adk"
	"github.com/emergent-company/deathrecord/pkg/logger"
)

// geminiCostPerCall is a flat per-call cost estimate for the synthesis
// model, in lieu of token-level accounting the ADK runner does not
// surface to callers. It is deliberately conservative.
const geminiCostPerCall = 0.02

// GeminiGenerator drives the synthesis call through an ADK llmagent
// constrained to enrichmentSchema, the same agent/session/runner shape
// the extraction pipeline uses for structured output.
type GeminiGenerator struct {
	factory *adk.ModelFactory
	log     *slog.Logger
}

// NewGeminiGenerator builds a Generator backed by Vertex AI Gemini.
func NewGeminiGenerator(factory *adk.ModelFactory, log *slog.Logger) *GeminiGenerator {
	return &GeminiGenerator{factory: factory, log: log.With(logger.Scope("synthesis.gemini"))}
}

func (g *GeminiGenerator) IsConfigured() bool { return g.factory.IsEnabled() }

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, float64, error) {
	llm, err := g.factory.CreateModel(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("create synthesis model: %w", err)
	}

	schema := enrichmentSchema()
	agentCfg := llmagent.Config{
		Name:                  "DeathRecordSynthesizer",
		Description:           "Synthesizes raw source snippets into a structured enrichment record",
		Model:                 llm,
		GenerateContentConfig: g.factory.SynthesisGenerateConfig(schema),
		OutputSchema:          schema,
		OutputKey:             "enrichment_result",
		InstructionProvider: func(agent.ReadonlyContext) (string, error) {
			return prompt, nil
		},
	}

	synthAgent, err := llmagent.New(agentCfg)
	if err != nil {
		return "", 0, fmt.Errorf("build synthesis agent: %w", err)
	}

	sessionService := session.InMemoryService()
	createResp, err := sessionService.Create(ctx, &session.CreateRequest{
		AppName: "synthesis",
		UserID:  "system",
	})
	if err != nil {
		return "", 0, fmt.Errorf("create synthesis session: %w", err)
	}
	sess := createResp.Session

	r, err := runner.New(runner.Config{
		Agent:          synthAgent,
		SessionService: sessionService,
		AppName:        "synthesis",
	})
	if err != nil {
		return "", 0, fmt.Errorf("create synthesis runner: %w", err)
	}

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{genai.NewPartFromText("Synthesize the enrichment record.")},
	}

	for _, err := range r.Run(ctx, "system", sess.ID(), userMessage, agent.RunConfig{}) {
		if err != nil {
			return "", 0, fmt.Errorf("synthesis run: %w", err)
		}
	}

	getResp, err := sessionService.Get(ctx, &session.GetRequest{
		AppName:   "synthesis",
		UserID:    "system",
		SessionID: sess.ID(),
	})
	if err != nil {
		return "", 0, fmt.Errorf("fetch synthesis session: %w", err)
	}

	raw, err := getResp.Session.State().Get("enrichment_result")
	if err != nil {
		return "", 0, fmt.Errorf("synthesis produced no output: %w", err)
	}

	return toJSONString(raw), geminiCostPerCall, nil
}

// toJSONString normalizes the ADK output-key value to a JSON string: the
// runner may hand back the raw model text or an already-decoded value
// depending on schema strictness.
func toJSONString(v any) string {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		return strings.TrimSpace(s)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
