package storage

import (
	"fmt"
	"time"

	"github.com/cuemby/vibelab/pkg/types"
)

// CreateWorkspace inserts a new workspace record.
func (s *Store) CreateWorkspace(w *types.Workspace) error {
	return s.mutate(func(snap *snapshot) error {
		if findWorkspace(snap, w.ID) != nil {
			return fmt.Errorf("workspace %s: %w", w.ID, ErrExists)
		}
		cp := cloneWorkspace(w)
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now()
		}
		cp.UpdatedAt = cp.CreatedAt
		snap.Workspaces = append(snap.Workspaces, cp)
		return nil
	})
}

// GetWorkspace returns a copy of the workspace with the given id.
func (s *Store) GetWorkspace(id string) (*types.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w := findWorkspace(s.data, id)
	if w == nil {
		return nil, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}
	return cloneWorkspace(w), nil
}

// ListWorkspaces returns copies of all workspace records.
func (s *Store) ListWorkspaces() []*types.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Workspace, len(s.data.Workspaces))
	for i, w := range s.data.Workspaces {
		out[i] = cloneWorkspace(w)
	}
	return out
}

// UpdateWorkspace applies fn to the workspace under the writer lock and
// persists the result. The updated timestamp is refreshed automatically.
// Returns a copy of the updated record.
func (s *Store) UpdateWorkspace(id string, fn func(*types.Workspace)) (*types.Workspace, error) {
	var updated *types.Workspace
	err := s.mutate(func(snap *snapshot) error {
		w := findWorkspace(snap, id)
		if w == nil {
			return fmt.Errorf("workspace %s: %w", id, ErrNotFound)
		}
		fn(w)
		w.UpdatedAt = time.Now()
		updated = cloneWorkspace(w)
		return nil
	})
	return updated, err
}

// DeleteWorkspace removes the workspace and clears the assignment on any
// participant bound to it, in the same mutation.
func (s *Store) DeleteWorkspace(id string) error {
	return s.mutate(func(snap *snapshot) error {
		idx := -1
		for i, w := range snap.Workspaces {
			if w.ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return fmt.Errorf("workspace %s: %w", id, ErrNotFound)
		}
		for _, p := range snap.Participants {
			if p.WorkspaceID == id {
				p.WorkspaceID = ""
				p.UpdatedAt = time.Now()
			}
		}
		snap.Workspaces = append(snap.Workspaces[:idx], snap.Workspaces[idx+1:]...)
		return nil
	})
}

// DeleteAllWorkspaces removes every workspace record and clears all
// participant assignments.
func (s *Store) DeleteAllWorkspaces() error {
	return s.mutate(func(snap *snapshot) error {
		snap.Workspaces = []*types.Workspace{}
		for _, p := range snap.Participants {
			if p.WorkspaceID != "" {
				p.WorkspaceID = ""
				p.UpdatedAt = time.Now()
			}
		}
		return nil
	})
}
