package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/emergent-company/deathrecord/pkg/adk"
	"github.com/emergent-company/deathrecord/pkg/logger"
)

// groundedPrompt is the shared instruction both ai-tier sources use: ask
// for verified death circumstances with citations, the same
// null-rather-than-fabricate posture the synthesis prompt enforces.
func groundedPrompt(actor Actor) string {
	var b strings.Builder
	b.WriteString("Search for and summarize the verified death circumstances, cause of death, ")
	b.WriteString("and any widely-reported biographical context for the actor ")
	b.WriteString(actor.Name)
	b.WriteString(". Cite sources inline where possible. If you cannot find reliable information, say so plainly rather than guessing.")
	return b.String()
}

// --- Gemini grounded-search source (gemini_grounded) ---

// GeminiGroundedSource is an ai-tier source that asks Gemini to answer
// with the built-in Google Search grounding tool instead of querying a
// fixed external endpoint directly; its "fetch" is an LLM call.
type GeminiGroundedSource struct {
	Base
	factory *adk.ModelFactory
	model   string
	log     *slog.Logger
}

// NewGeminiGroundedSource builds the gemini_grounded source.
func NewGeminiGroundedSource(base Base, factory *adk.ModelFactory, model string, log *slog.Logger) *GeminiGroundedSource {
	return &GeminiGroundedSource{Base: base, factory: factory, model: model, log: log.With(logger.Scope("source.gemini_grounded"))}
}

func (s *GeminiGroundedSource) IsAvailable() bool { return s.factory.IsEnabled() }

func (s *GeminiGroundedSource) Lookup(ctx context.Context, actor Actor) LookupResult {
	return s.Run(ctx, actor, s.performLookup)
}

// geminiGroundedCostPerCall is a flat estimate in lieu of token-level
// accounting for the grounded search tool, mirroring the synthesis
// Gemini path's own cost placeholder.
const geminiGroundedCostPerCall = 0.01

func (s *GeminiGroundedSource) performLookup(ctx context.Context, actor Actor) LookupResult {
	llm, err := s.factory.CreateModelWithName(ctx, s.model)
	if err != nil {
		return LookupResult{ErrKind: ErrorNotConfigured, ErrMsg: err.Error()}
	}

	agentCfg := llmagent.Config{
		Name:                  "DeathRecordGroundedSearch",
		Description:           "Answers a grounded-search query about an actor's death circumstances",
		Model:                 llm,
		GenerateContentConfig: s.factory.GroundedSearchGenerateConfig(),
		OutputKey:             "grounded_answer",
		InstructionProvider: func(agent.ReadonlyContext) (string, error) {
			return groundedPrompt(actor), nil
		},
	}

	groundedAgent, err := llmagent.New(agentCfg)
	if err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: err.Error()}
	}

	sessionService := session.InMemoryService()
	createResp, err := sessionService.Create(ctx, &session.CreateRequest{AppName: "grounded_search", UserID: "system"})
	if err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: err.Error()}
	}
	sess := createResp.Session

	r, err := runner.New(runner.Config{Agent: groundedAgent, SessionService: sessionService, AppName: "grounded_search"})
	if err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: err.Error()}
	}

	userMessage := &genai.Content{Role: "user", Parts: []*genai.Part{genai.NewPartFromText("Answer the grounded query.")}}
	for _, err := range r.Run(ctx, "system", sess.ID(), userMessage, agent.RunConfig{}) {
		if err != nil {
			return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: err.Error()}
		}
	}

	getResp, err := sessionService.Get(ctx, &session.GetRequest{AppName: "grounded_search", UserID: "system", SessionID: sess.ID()})
	if err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: err.Error()}
	}
	raw, err := getResp.Session.State().Get("grounded_answer")
	if err != nil {
		return LookupResult{ErrKind: ErrorNotFound, ErrMsg: "grounded search produced no answer"}
	}
	text, _ := raw.(string)

	result := textSnippet(actor.Name, text)
	if result.Success() {
		s.fillEntry(&result, geminiGroundedCostPerCall)
	}
	return result
}

// fillEntry stamps the descriptor-derived fields textSnippet can't know
// about, the same fields JSONSource.performLookup fills in for API-backed
// sources.
func (s *GeminiGroundedSource) fillEntry(result *LookupResult, cost float64) {
	result.Entry.Type = s.Type()
	result.Entry.ReliabilityTier = s.Descriptor().Tier
	result.Entry.ReliabilityScore = s.Descriptor().ReliabilityScore()
	result.Entry.CostUSD = cost
	if result.Biography != nil {
		result.Biography.Entry = result.Entry
	}
}

// --- Claude grounded-search source (claude_grounded) ---

// ClaudeGroundedSource is the Claude-backed alternative ai-tier source,
// used when an Anthropic API key is configured in place of or alongside
// Vertex AI credentials.
type ClaudeGroundedSource struct {
	Base
	client *anthropic.Client
	model  string
	maxTok int64
	log    *slog.Logger
}

// NewClaudeGroundedSource builds the claude_grounded source. Returns nil
// when no Anthropic API key is configured.
func NewClaudeGroundedSource(base Base, apiKey, model string, maxTokens int, log *slog.Logger) *ClaudeGroundedSource {
	if apiKey == "" {
		return nil
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeGroundedSource{Base: base, client: &client, model: model, maxTok: int64(maxTokens), log: log.With(logger.Scope("source.claude_grounded"))}
}

func (s *ClaudeGroundedSource) IsAvailable() bool { return s != nil && s.client != nil }

func (s *ClaudeGroundedSource) Lookup(ctx context.Context, actor Actor) LookupResult {
	return s.Run(ctx, actor, s.performLookup)
}

const claudeCostPerMillionInput = 3.0
const claudeCostPerMillionOutput = 15.0

func (s *ClaudeGroundedSource) performLookup(ctx context.Context, actor Actor) LookupResult {
	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTok,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(groundedPrompt(actor))),
		},
	})
	if err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: fmt.Sprintf("claude grounded call: %v", err)}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	cost := float64(msg.Usage.InputTokens)/1_000_000*claudeCostPerMillionInput +
		float64(msg.Usage.OutputTokens)/1_000_000*claudeCostPerMillionOutput

	result := textSnippet(actor.Name, text.String())
	if result.Success() {
		result.Entry.Type = s.Type()
		result.Entry.ReliabilityTier = s.Descriptor().Tier
		result.Entry.ReliabilityScore = s.Descriptor().ReliabilityScore()
		result.Entry.CostUSD = cost
		if result.Biography != nil {
			result.Biography.Entry = result.Entry
		}
	}
	return result
}
