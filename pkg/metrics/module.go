package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/emergent-company/deathrecord/internal/config"
	"github.com/emergent-company/deathrecord/pkg/logger"
)

// Module exposes the Prometheus registry on METRICS_ADDR. The listener
// serves only /metrics; it is scrape plumbing, not an application
// surface.
var Module = fx.Module("metrics",
	fx.Invoke(registerServer),
)

func registerServer(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) {
	log = log.With(logger.Scope("metrics"))

	if cfg.Metrics.Addr == "" {
		log.Debug("metrics listener disabled (METRICS_ADDR not set)")
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("metrics listener failed", logger.Error(err))
				}
			}()
			log.Info("metrics listener started", slog.String("addr", cfg.Metrics.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
