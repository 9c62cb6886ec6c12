package orchestrator

import (
	"context"
	"fmt"

	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/types"
)

// ScanOrphans lists running tasks of the workspace family that have no
// record in the store.
func (o *Orchestrator) ScanOrphans(ctx context.Context) ([]cloud.RunningTask, error) {
	tasks, err := o.cloud.ListRunningTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list running tasks: %w", err)
	}

	known := make(map[string]bool)
	for _, w := range o.store.ListWorkspaces() {
		if w.TaskARN != "" {
			known[w.TaskARN] = true
		}
	}

	orphans := make([]cloud.RunningTask, 0)
	for _, t := range tasks {
		if !known[t.TaskARN] {
			orphans = append(orphans, t)
		}
	}
	return orphans, nil
}

// ImportOrphan adopts a cloud task into the store under the id
// imported-<task id>. The next reconciliation tick fills in state and
// addresses.
func (o *Orchestrator) ImportOrphan(ctx context.Context, taskARN, taskID string) (*types.Workspace, error) {
	if taskARN == "" || taskID == "" {
		return nil, fmt.Errorf("task_arn and task_id are required: %w", ErrInvalid)
	}

	id := "imported-" + taskID
	w := &types.Workspace{
		ID:      id,
		TaskARN: taskARN,
		State:   types.WorkspaceStatePending,
	}
	if status, err := o.cloud.DescribeTask(ctx, taskARN); err == nil {
		w.State = types.NormalizeState(status.Status)
		w.PublicIP = status.PublicIP
		w.PrivateIP = status.PrivateIP
	}

	if err := o.store.CreateWorkspace(w); err != nil {
		return nil, err
	}
	wsLog := log.WithWorkspaceID(id)
	wsLog.Info().Str("task_arn", taskARN).Msg("Imported orphan task")
	return o.store.GetWorkspace(id)
}

// TerminateOrphan stops a cloud task directly without touching the store.
func (o *Orchestrator) TerminateOrphan(ctx context.Context, taskARN string) error {
	if taskARN == "" {
		return fmt.Errorf("task_arn is required: %w", ErrInvalid)
	}
	return o.cloud.StopTask(ctx, taskARN)
}

// TerminateAllOrphans stops every orphaned task, collecting per-task
// failure reasons.
func (o *Orchestrator) TerminateAllOrphans(ctx context.Context) (int, map[string]string, error) {
	orphans, err := o.ScanOrphans(ctx)
	if err != nil {
		return 0, nil, err
	}

	terminated := 0
	reasons := make(map[string]string)
	for _, t := range orphans {
		if err := o.cloud.StopTask(ctx, t.TaskARN); err != nil {
			reasons[t.TaskARN] = err.Error()
			continue
		}
		terminated++
	}
	return terminated, reasons, nil
}
