// Package metrics holds the process's Prometheus instrumentation: batch
// worker throughput, source-lookup volume, and cumulative external spend.
// The registry is exposed over a plain HTTP listener when METRICS_ADDR is
// set (module.go); with it unset the counters still accumulate in-process
// at negligible cost.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch worker metrics
	BatchRunsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_batch_runs_total",
		Help: "Batch runs processed, by worker and outcome",
	}, []string{"worker", "outcome"})

	WorkerRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "enrichment_worker_running",
		Help: "Whether a worker's polling loop is active (0 or 1)",
	}, []string{"worker"})

	// Per-run pipeline metrics, recorded from RunStats
	SourcesAttempted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enrichment_sources_attempted_total",
		Help: "Source lookups attempted across all runs",
	})

	SourcesSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enrichment_sources_succeeded_total",
		Help: "Source lookups that produced a usable snippet",
	})

	RunCostUSD = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enrichment_run_cost_usd_total",
		Help: "Cumulative external spend across runs, in USD",
	})
)
