package scheduler

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
)

// Module provides the Scheduler and starts/stops its cron loop with the
// fx app lifecycle.
var Module = fx.Module("scheduler",
	fx.Provide(provideScheduler),
)

func provideScheduler(lc fx.Lifecycle, log *slog.Logger) *Scheduler {
	s := NewScheduler(log)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return s.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return s.Stop(ctx) },
	})
	return s
}
