package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet metrics
	WorkspacesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vibelab_workspaces_total",
			Help: "Total number of workspaces by state",
		},
		[]string{"state"},
	)

	WorkspacesByFamily = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vibelab_workspaces_by_family",
			Help: "Total number of workspaces by image family",
		},
		[]string{"family"},
	)

	ParticipantsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibelab_participants_total",
			Help: "Total number of participants",
		},
	)

	ParticipantsAssigned = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibelab_participants_assigned",
			Help: "Number of participants with an assigned workspace",
		},
	)

	// Orchestrator metrics
	SpawnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibelab_spawns_total",
			Help: "Total number of workspace spawn attempts by result",
		},
		[]string{"result"},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vibelab_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles",
		},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vibelab_reconciliation_duration_seconds",
			Help:    "Reconciliation cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkspacesReconciled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vibelab_workspaces_reconciled_total",
			Help: "Total number of workspace records changed by reconciliation",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibelab_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vibelab_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(WorkspacesTotal)
	prometheus.MustRegister(WorkspacesByFamily)
	prometheus.MustRegister(ParticipantsTotal)
	prometheus.MustRegister(ParticipantsAssigned)
	prometheus.MustRegister(SpawnsTotal)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(WorkspacesReconciled)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
