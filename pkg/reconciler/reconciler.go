package reconciler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/metrics"
	"github.com/cuemby/vibelab/pkg/orchestrator"
)

// Interval is the reconciliation cadence. Ten seconds keeps endpoint
// publication within one tick of a task reaching RUNNING without
// hammering the cloud APIs.
const Interval = 10 * time.Second

// cycleTimeout bounds one full pass over the fleet.
const cycleTimeout = 2 * time.Minute

// Reconciler drives the fleet toward the cloud's actual state on a fixed
// cadence
type Reconciler struct {
	orch   *orchestrator.Orchestrator
	stopCh chan struct{}
	logger zerolog.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(orch *orchestrator.Orchestrator) *Reconciler {
	return &Reconciler{
		orch:   orch,
		stopCh: make(chan struct{}),
		logger: log.WithComponent("reconciler"),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	metrics.RegisterComponent("reconciler", true, "")
	go r.run()
}

// Stop stops the reconciler
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

// run is the main reconciliation loop
func (r *Reconciler) run() {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reconcile()
		case <-r.stopCh:
			return
		}
	}
}

// reconcile performs one reconciliation cycle
func (r *Reconciler) reconcile() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	changed := r.orch.ReconcileAll(ctx)
	if changed > 0 {
		metrics.WorkspacesReconciled.Add(float64(changed))
		r.logger.Debug().Int("changed", changed).Msg("Reconciliation cycle complete")
	}
	metrics.UpdateComponent("reconciler", true, "")
}
