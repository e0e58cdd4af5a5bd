package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/emergent-company/deathrecord/internal/config"
	"github.com/emergent-company/deathrecord/pkg/logger"
)

// anthropicCostPerMillionInput/Output are approximate list prices for the
// configured Claude model, used only to populate RunStats.TotalCostUSD;
// Anthropic's Messages API reports exact token counts but not USD cost.
const (
	anthropicCostPerMillionInput  = 3.0
	anthropicCostPerMillionOutput = 15.0
)

// AnthropicGenerator drives the synthesis call through Claude as an
// alternative to Gemini. The Messages API has no schema-constrained
// output mode comparable to genai.ResponseSchema, so the prompt itself
// carries the JSON-only instruction and the response is parsed as
// best-effort JSON.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
	maxTok int64
	log    *slog.Logger
}

// NewAnthropicGenerator builds a Generator backed by the Claude Messages
// API. Returns nil when no API key is configured.
func NewAnthropicGenerator(cfg *config.LLMConfig, log *slog.Logger) *AnthropicGenerator {
	if !cfg.AnthropicEnabled() {
		return nil
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	return &AnthropicGenerator{
		client: &client,
		model:  cfg.AnthropicModel,
		maxTok: int64(cfg.MaxOutputTokens),
		log:    log.With(logger.Scope("synthesis.anthropic")),
	}
}

func (g *AnthropicGenerator) IsConfigured() bool { return g != nil && g.client != nil }

func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, float64, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTok,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt + "\n\nRespond with a single JSON object only, no prose, no markdown fences.")),
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("claude synthesis call: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	cost := float64(msg.Usage.InputTokens)/1_000_000*anthropicCostPerMillionInput +
		float64(msg.Usage.OutputTokens)/1_000_000*anthropicCostPerMillionOutput

	return cleanJSONFence(text.String()), cost, nil
}

func cleanJSONFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
