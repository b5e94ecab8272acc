// Package metrics registers the Prometheus collectors for the pool and
// handler framework: selection counts, endpoint health, and per-handler
// processing statistics (spec §3's "Per handler, a monotonically
// accumulating counter set" surfaced for scraping).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry wraps a dedicated prometheus.Registry rather than using the
// global default, so telemetryd can expose exactly these collectors on its
// /metrics endpoint without picking up whatever the process-level Go
// runtime collectors add by default.
type Registry struct {
	reg *prometheus.Registry

	PoolEndpointSelections *prometheus.CounterVec
	PoolEndpointErrors     *prometheus.CounterVec
	PoolHealthyEndpoints   prometheus.Gauge

	HandlerBlocksProcessed *prometheus.CounterVec
	HandlerFailures        *prometheus.CounterVec
	HandlerInstructions    *prometheus.CounterVec

	OrchestratorRequests *prometheus.CounterVec
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		PoolEndpointSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solana_telemetry",
			Subsystem: "pool",
			Name:      "endpoint_selections_total",
			Help:      "Number of times an endpoint was selected to serve a call.",
		}, []string{"url"}),
		PoolEndpointErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solana_telemetry",
			Subsystem: "pool",
			Name:      "endpoint_errors_total",
			Help:      "Number of call errors attributed to an endpoint.",
		}, []string{"url"}),
		PoolHealthyEndpoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solana_telemetry",
			Subsystem: "pool",
			Name:      "healthy_endpoints",
			Help:      "Number of endpoints currently eligible for selection.",
		}),
		HandlerBlocksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solana_telemetry",
			Subsystem: "handlers",
			Name:      "blocks_processed_total",
			Help:      "Number of blocks processed, by handler.",
		}, []string{"handler"}),
		HandlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solana_telemetry",
			Subsystem: "handlers",
			Name:      "failures_total",
			Help:      "Number of handler-level processing failures, by handler.",
		}, []string{"handler"}),
		HandlerInstructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solana_telemetry",
			Subsystem: "handlers",
			Name:      "instructions_total",
			Help:      "Number of instructions classified, by handler and kind.",
		}, []string{"handler", "kind"}),
		OrchestratorRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solana_telemetry",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Orchestrator requests, by resulting path (sync/background/cached/coalesced).",
		}, []string{"path"}),
	}

	reg.MustRegister(
		r.PoolEndpointSelections,
		r.PoolEndpointErrors,
		r.PoolHealthyEndpoints,
		r.HandlerBlocksProcessed,
		r.HandlerFailures,
		r.HandlerInstructions,
		r.OrchestratorRequests,
	)
	return r
}

// Gatherer exposes the underlying registry for an HTTP handler to serve.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
