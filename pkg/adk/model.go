// Package adk wraps Google's genai/ADK client construction so the rest of
// the codebase configures Gemini models through one place.
package adk

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/emergent-company/deathrecord/internal/config"
)

// Module provides the ADK ModelFactory as an fx module
var Module = fx.Module("adk",
	fx.Provide(provideModelFactory),
)

// provideModelFactory creates a ModelFactory from the main config
func provideModelFactory(cfg *config.Config, log *slog.Logger) *ModelFactory {
	return NewModelFactory(&cfg.LLM, log)
}

// ModelFactory creates ADK-compatible LLM models from configuration.
type ModelFactory struct {
	cfg *config.LLMConfig
	log *slog.Logger
}

// NewModelFactory creates a new ModelFactory with the given configuration.
func NewModelFactory(cfg *config.LLMConfig, log *slog.Logger) *ModelFactory {
	return &ModelFactory{
		cfg: cfg,
		log: log,
	}
}

// CreateModel creates an ADK-compatible Gemini model for Vertex AI using the
// configured default model name.
func (f *ModelFactory) CreateModel(ctx context.Context) (model.LLM, error) {
	return f.CreateModelWithName(ctx, f.cfg.Model)
}

// CreateModelWithName creates an ADK-compatible Gemini model with a specific
// model name, allowing callers to pick a cheaper or stronger model per call
// site (e.g. synthesis vs. a grounded-search source).
func (f *ModelFactory) CreateModelWithName(ctx context.Context, modelName string) (model.LLM, error) {
	if f.cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is required for Vertex AI")
	}
	if f.cfg.VertexAILocation == "" {
		return nil, fmt.Errorf("Vertex AI location is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	clientCfg := &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  f.cfg.GCPProjectID,
		Location: f.cfg.VertexAILocation,
	}

	f.log.Debug("creating ADK Gemini model",
		slog.String("model", modelName),
		slog.String("project", f.cfg.GCPProjectID),
		slog.String("location", f.cfg.VertexAILocation),
	)

	llm, err := gemini.NewModel(ctx, modelName, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini model: %w", err)
	}

	return llm, nil
}

// SynthesisGenerateConfig returns the GenerateContentConfig used for the
// biography/death-circumstance synthesis call: deterministic output
// constrained to the response schema so the synthesizer never has to
// recover from free-form prose.
func (f *ModelFactory) SynthesisGenerateConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      ptrFloat32(0.0),
		MaxOutputTokens:  int32(f.cfg.MaxOutputTokens),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}

// GroundedSearchGenerateConfig returns the GenerateContentConfig for the
// ai-tier sources, which use Gemini with the built-in Google Search
// grounding tool instead of a structured response schema.
func (f *ModelFactory) GroundedSearchGenerateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     ptrFloat32(f.cfg.GroundedSearchTemperature),
		MaxOutputTokens: int32(f.cfg.MaxOutputTokens),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}
}

// IsEnabled returns true if the LLM configuration is valid for creating models.
func (f *ModelFactory) IsEnabled() bool {
	return f.cfg.IsEnabled()
}

// ModelName returns the configured default model name.
func (f *ModelFactory) ModelName() string {
	return f.cfg.Model
}

func ptrFloat32(v float32) *float32 {
	return &v
}
