package orchestrator

import (
	"context"

	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/edge"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/types"
)

// ReconcileAll runs one reconciliation step for every live workspace.
// One workspace's failure never starves the others; failures are logged
// and counted. Returns the number of workspaces whose record changed.
func (o *Orchestrator) ReconcileAll(ctx context.Context) int {
	changed := 0
	for _, w := range o.store.ListWorkspaces() {
		if w.TaskARN == "" || !w.Live() {
			continue
		}
		didChange, err := o.reconcileOne(ctx, w)
		if err != nil {
			wsLog := log.WithWorkspaceID(w.ID)
			wsLog.Warn().Err(err).Msg("Reconciliation failed")
			continue
		}
		if didChange {
			changed++
		}
	}
	return changed
}

// reconcileOne reads the cloud's view of one workspace and makes the
// record and the edge reflect it. The record is patched only when one of
// {state, public IP, URLs} actually changed.
func (o *Orchestrator) reconcileOne(ctx context.Context, w *types.Workspace) (bool, error) {
	status, err := o.cloud.DescribeTask(ctx, w.TaskARN)
	if err != nil {
		// The cloud reaped the task; the workspace is effectively stopped.
		if cloud.IsNotFound(err) {
			_, uerr := o.store.UpdateWorkspace(w.ID, func(w *types.Workspace) {
				w.State = types.WorkspaceStateStopped
				w.PublicIP = ""
				w.PrivateIP = ""
				w.VSCodeURL = ""
				w.AppURL = ""
			})
			return uerr == nil, uerr
		}
		return false, err
	}

	newState := types.NormalizeState(status.Status)
	publicIP := status.PublicIP
	privateIP := status.PrivateIP

	targetGroupARN := w.TargetGroupARN
	ruleARN := w.RuleARN
	pathPrefix := w.PathPrefix
	if newState == types.WorkspaceStateRunning && publicIP != "" {
		needsAttach := targetGroupARN == "" || publicIP != w.PublicIP
		if needsAttach {
			att, err := o.edge.Attach(ctx, w.ID, publicIP)
			if err != nil {
				// Publish IP fallbacks now; attach again next tick.
				wsLog := log.WithWorkspaceID(w.ID)
				wsLog.Warn().Err(err).Msg("Edge attach failed")
			} else {
				targetGroupARN = att.TargetGroupARN
				ruleARN = att.RuleARN
				pathPrefix = att.PathPrefix
			}
		}
	}

	cfg := o.store.Config()
	probe := *w
	probe.PublicIP = publicIP
	probe.PathPrefix = pathPrefix
	vscodeURL, appURL := edge.URLs(cfg, &probe)

	if newState == w.State && publicIP == w.PublicIP &&
		vscodeURL == w.VSCodeURL && appURL == w.AppURL {
		return false, nil
	}

	_, err = o.store.UpdateWorkspace(w.ID, func(w *types.Workspace) {
		w.State = newState
		w.PublicIP = publicIP
		w.PrivateIP = privateIP
		w.TargetGroupARN = targetGroupARN
		w.RuleARN = ruleARN
		w.PathPrefix = pathPrefix
		w.VSCodeURL = vscodeURL
		w.AppURL = appURL
		if w.CDNDomain == "" {
			w.CDNDomain = cfg.CDNDomain
		}
	})
	return err == nil, err
}
