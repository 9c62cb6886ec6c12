/*
Package metrics exposes Prometheus metrics and component health for the
control plane.

	┌──────────────────── OBSERVABILITY ───────────────────────┐
	│                                                            │
	│  ┌──────────────┐  15s  ┌──────────────┐                 │
	│  │  Collector   │──────▶│ fleet gauges │  workspaces by   │
	│  │ (reads store)│       │              │  state/family,   │
	│  └──────────────┘       └──────────────┘  participants    │
	│                                                            │
	│  Orchestrator ──▶ spawn counters                           │
	│  Reconciler   ──▶ cycle counter + duration histogram       │
	│  API          ──▶ request counters + latency               │
	│                                                            │
	│  GET /metrics  prometheus text format                      │
	│  GET /healthz  component health registry (store, cloud,    │
	│                reconciler), 503 when any is unhealthy      │
	└────────────────────────────────────────────────────────────┘

Components register themselves with RegisterComponent and flip their state
with UpdateComponent; GetHealth aggregates to a single status.
*/
package metrics
