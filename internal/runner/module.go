package runner

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/deathrecord/internal/config"
	"github.com/emergent-company/deathrecord/internal/scheduler"
)

// Module provides the Runner, starts/stops its worker with the fx
// lifecycle, and registers the missing-circumstances sweep on the
// scheduler.
var Module = fx.Module("runner",
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, r *Runner, sched *scheduler.Scheduler, cfg *config.RunnerConfig, log *slog.Logger) error {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return r.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return r.Stop(ctx) },
	})

	if !cfg.Enabled {
		return nil
	}

	return sched.AddIntervalTask("enrichment-sweep", cfg.EnqueueInterval, r.EnqueueMissingCircumstances)
}
