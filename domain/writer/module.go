package writer

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/deathrecord/domain/actor"
	"github.com/emergent-company/deathrecord/internal/config"
)

// Module wires the Writer from the configured mode and the actor.Store
// implementation (internal/store provides the concrete binding).
var Module = fx.Module("writer",
	fx.Provide(provideWriter),
)

func provideWriter(store actor.Store, cfg *config.Config, log *slog.Logger) *Writer {
	return New(store, Mode(cfg.Writer.Mode), log)
}
