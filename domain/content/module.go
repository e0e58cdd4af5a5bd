package content

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/deathrecord/internal/config"
	"github.com/emergent-company/deathrecord/pkg/llm"
	"github.com/emergent-company/deathrecord/pkg/llm/vertex"
	"github.com/emergent-company/deathrecord/pkg/logger"
)

// Module provides the ContentCleaner and the llm.Provider it uses for its
// optional AI-narrowing pass.
var Module = fx.Module("content",
	fx.Provide(
		provideLLMProvider,
		NewContentCleaner,
	),
)

// provideLLMProvider builds a Vertex AI-backed llm.Provider when LLM
// credentials are configured. A nil Provider disables NarrowWithAI
// without affecting mechanical cleaning, which every source depends on.
func provideLLMProvider(cfg *config.Config, log *slog.Logger) llm.Provider {
	log = log.With(logger.Scope("content.llm"))

	if !cfg.LLM.IsEnabled() {
		log.Debug("vertex llm provider disabled, AI narrowing off")
		return nil
	}

	client, err := vertex.NewClient(context.Background(), vertex.Config{
		ProjectID:       cfg.LLM.GCPProjectID,
		Location:        cfg.LLM.VertexAILocation,
		Model:           cfg.LLM.GroundedSearchModel,
		Timeout:         cfg.LLM.Timeout,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	}, vertex.WithLogger(log), vertex.WithMaxRetries(cfg.LLM.MaxRetries))
	if err != nil {
		log.Warn("vertex llm provider unavailable, AI narrowing off", logger.Error(err))
		return nil
	}

	return client
}
