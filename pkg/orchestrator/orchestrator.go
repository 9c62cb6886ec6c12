package orchestrator

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/edge"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/storage"
	"github.com/cuemby/vibelab/pkg/types"
)

const (
	// MaxSpinUpCount bounds a single spin-up request.
	MaxSpinUpCount = 100

	// spawnConcurrency bounds the parallel fan-out of bulk operations.
	spawnConcurrency = 10

	idSuffixLength = 5
)

// Workspace id suffixes are lowercase so ids read naturally in URLs.
// Same ambiguity exclusions as participant credentials.
const idAlphabet = "abcdefghjklmnpqrstuvwxyz23456789"

// ErrInvalid marks validation failures; the HTTP surface maps it to 400.
var ErrInvalid = errors.New("invalid request")

// Orchestrator drives workspace lifecycles: spawn, stop, start, delete,
// orphan handling, and the per-workspace reconciliation step.
type Orchestrator struct {
	store  *storage.Store
	cloud  cloud.Capability
	edge   *edge.Edge
	logger zerolog.Logger
}

// New creates an orchestrator over the given store, capability, and edge
// publisher.
func New(store *storage.Store, capability cloud.Capability, e *edge.Edge) *Orchestrator {
	return &Orchestrator{
		store:  store,
		cloud:  capability,
		edge:   e,
		logger: log.WithComponent("orchestrator"),
	}
}

// GenerateWorkspaceID builds a fresh id with the family prefix and a
// random suffix.
func GenerateWorkspaceID(family types.ImageFamily) (string, error) {
	buf := make([]byte, idSuffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	suffix := make([]byte, idSuffixLength)
	for i, b := range buf {
		suffix[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return family.IDPrefix() + string(suffix), nil
}

// SpinUpResult reports a bulk spawn: the created workspaces, how many
// participants were auto-assigned, and per-ordinal failure reasons.
type SpinUpResult struct {
	Instances            []*types.Workspace `json:"instances"`
	ParticipantsAssigned int                `json:"participants_assigned"`
	Errors               map[int]string     `json:"errors,omitempty"`
}

// SpinUp spawns count workspaces of the given family in parallel. Partial
// failure is not fatal: the result carries every created workspace plus a
// reason per failed ordinal. With autoAssign, unassigned participants are
// bound to the new workspaces in participant insertion order.
func (o *Orchestrator) SpinUp(ctx context.Context, count int, family types.ImageFamily, autoAssign bool) (*SpinUpResult, error) {
	if count < 1 || count > MaxSpinUpCount {
		return nil, fmt.Errorf("count must be between 1 and %d: %w", MaxSpinUpCount, ErrInvalid)
	}
	if !family.Valid() {
		return nil, fmt.Errorf("unknown extension %q: %w", family, ErrInvalid)
	}

	var (
		mu      sync.Mutex
		created = make([]*types.Workspace, 0, count)
		reasons = make(map[int]string)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(spawnConcurrency)
	for i := 0; i < count; i++ {
		ordinal := i
		g.Go(func() error {
			w, err := o.spawnOne(gctx, family)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				reasons[ordinal] = err.Error()
				return nil
			}
			created = append(created, w)
			return nil
		})
	}
	// Workers never return errors; they report per-ordinal.
	_ = g.Wait()

	if len(created) == 0 {
		first := "no workspaces created"
		for _, r := range reasons {
			first = r
			break
		}
		return nil, fmt.Errorf("spin-up failed: %s", first)
	}

	assigned := 0
	if autoAssign {
		assigned = o.assignQueue(created)
	}

	result := &SpinUpResult{Instances: created, ParticipantsAssigned: assigned}
	if len(reasons) > 0 {
		result.Errors = reasons
	}
	o.logger.Info().
		Int("requested", count).
		Int("created", len(created)).
		Int("assigned", assigned).
		Str("family", string(family)).
		Msg("Spin-up complete")
	return result, nil
}

// spawnOne creates the record and starts the task. A task-start failure is
// recorded on the workspace (state failed) and returned.
func (o *Orchestrator) spawnOne(ctx context.Context, family types.ImageFamily) (*types.Workspace, error) {
	id, err := GenerateWorkspaceID(family)
	if err != nil {
		return nil, err
	}

	w := &types.Workspace{ID: id, State: types.WorkspaceStateProvisioning, Family: family}
	if err := o.store.CreateWorkspace(w); err != nil {
		return nil, err
	}

	taskARN, err := o.cloud.RunTask(ctx, family, id)
	if err != nil {
		if _, uerr := o.store.UpdateWorkspace(id, func(w *types.Workspace) {
			w.State = types.WorkspaceStateFailed
			w.Error = err.Error()
		}); uerr != nil {
			wsLog := log.WithWorkspaceID(id)
			wsLog.Error().Err(uerr).Msg("Failed to record spawn failure")
		}
		return nil, fmt.Errorf("workspace %s: %w", id, err)
	}

	return o.store.UpdateWorkspace(id, func(w *types.Workspace) {
		w.TaskARN = taskARN
		w.State = types.WorkspaceStateProvisioning
	})
}

// assignQueue binds unassigned participants to the created workspaces.
// Both sides are consumed in insertion order; surplus on either side is
// left alone. Assigned entries in created are replaced with fresh store
// copies so callers see the denormalized participant fields.
func (o *Orchestrator) assignQueue(created []*types.Workspace) int {
	var queue []*types.Participant
	for _, p := range o.store.ListParticipants() {
		if p.WorkspaceID == "" {
			queue = append(queue, p)
		}
	}

	assigned := 0
	for i, w := range created {
		if i >= len(queue) {
			break
		}
		wsLog := log.WithWorkspaceID(w.ID)
		if err := o.store.Assign(queue[i].ID, w.ID); err != nil {
			wsLog.Error().Err(err).Msg("Failed to auto-assign participant")
			continue
		}
		fresh, err := o.store.GetWorkspace(w.ID)
		if err != nil {
			wsLog.Error().Err(err).Msg("Failed to re-read assigned workspace")
			continue
		}
		created[i] = fresh
		assigned++
	}
	return assigned
}

// Stop requests a task stop and marks the workspace stopping. The
// reconciler observes the terminal STOPPED status later. A workspace with
// no task handle goes straight to stopped.
func (o *Orchestrator) Stop(ctx context.Context, id string) (*types.Workspace, error) {
	w, err := o.store.GetWorkspace(id)
	if err != nil {
		return nil, err
	}

	if w.TaskARN == "" {
		return o.store.UpdateWorkspace(id, func(w *types.Workspace) {
			w.State = types.WorkspaceStateStopped
		})
	}

	if err := o.cloud.StopTask(ctx, w.TaskARN); err != nil {
		return nil, fmt.Errorf("workspace %s: %w", id, err)
	}
	return o.store.UpdateWorkspace(id, func(w *types.Workspace) {
		w.State = types.WorkspaceStateStopping
	})
}

// Start runs a fresh task for a stopped workspace. The id, family, and
// edge path are stable; the task handle and public IP are new, so
// published URLs go stale until the next reconciliation re-targets the
// edge.
func (o *Orchestrator) Start(ctx context.Context, id string) (*types.Workspace, error) {
	w, err := o.store.GetWorkspace(id)
	if err != nil {
		return nil, err
	}
	if w.Live() {
		return nil, fmt.Errorf("workspace %s is %s: %w", id, w.State, ErrInvalid)
	}

	taskARN, err := o.cloud.RunTask(ctx, w.Family, id)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", id, err)
	}
	return o.store.UpdateWorkspace(id, func(w *types.Workspace) {
		w.TaskARN = taskARN
		w.State = types.WorkspaceStateProvisioning
		w.PublicIP = ""
		w.PrivateIP = ""
		w.VSCodeURL = ""
		w.AppURL = ""
		w.Error = ""
	})
}

// Delete stops the task if live, detaches the edge, and removes the
// record. Cloud failures are best-effort; the record is removed
// regardless so the fleet view stays usable.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	w, err := o.store.GetWorkspace(id)
	if err != nil {
		return err
	}

	wsLog := log.WithWorkspaceID(id)
	if w.TaskARN != "" && w.Live() {
		if err := o.cloud.StopTask(ctx, w.TaskARN); err != nil {
			wsLog.Warn().Err(err).Msg("Failed to stop task during delete")
		}
	}
	if err := o.edge.Detach(ctx, id); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to detach edge during delete")
	}
	return o.store.DeleteWorkspace(id)
}

// StopAll stops every live workspace in parallel. Returns per-workspace
// failure reasons.
func (o *Orchestrator) StopAll(ctx context.Context) map[string]string {
	return o.forEachLive(ctx, func(ctx context.Context, id string) error {
		_, err := o.Stop(ctx, id)
		return err
	})
}

// DeleteAll deletes every workspace in parallel. Returns per-workspace
// failure reasons.
func (o *Orchestrator) DeleteAll(ctx context.Context) map[string]string {
	var (
		mu      sync.Mutex
		reasons = make(map[string]string)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(spawnConcurrency)
	for _, w := range o.store.ListWorkspaces() {
		id := w.ID
		g.Go(func() error {
			if err := o.Delete(gctx, id); err != nil {
				mu.Lock()
				reasons[id] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return reasons
}

func (o *Orchestrator) forEachLive(ctx context.Context, fn func(context.Context, string) error) map[string]string {
	var (
		mu      sync.Mutex
		reasons = make(map[string]string)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(spawnConcurrency)
	for _, w := range o.store.ListWorkspaces() {
		if !w.Live() {
			continue
		}
		id := w.ID
		g.Go(func() error {
			if err := fn(gctx, id); err != nil {
				mu.Lock()
				reasons[id] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return reasons
}

// AutoAssignParticipants pairs every unassigned participant with an
// unbound workspace, both in insertion order. Returns how many pairs were
// made.
func (o *Orchestrator) AutoAssignParticipants() int {
	var free []*types.Workspace
	for _, w := range o.store.ListWorkspaces() {
		if w.ParticipantEmail == "" && w.State != types.WorkspaceStateFailed {
			free = append(free, w)
		}
	}

	assigned := 0
	for _, p := range o.store.ListParticipants() {
		if p.WorkspaceID != "" {
			continue
		}
		if assigned >= len(free) {
			break
		}
		if err := o.store.Assign(p.ID, free[assigned].ID); err != nil {
			pLog := log.WithParticipantID(p.ID)
			pLog.Error().Err(err).Msg("Failed to auto-assign")
			continue
		}
		assigned++
	}
	return assigned
}
