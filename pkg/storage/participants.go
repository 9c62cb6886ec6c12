package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/vibelab/pkg/types"
)

// CreateParticipant inserts a new participant. Email and access token must
// be unique across the collection; the email is normalized before storage.
func (s *Store) CreateParticipant(p *types.Participant) error {
	return s.mutate(func(snap *snapshot) error {
		if findParticipant(snap, p.ID) != nil {
			return fmt.Errorf("participant %s: %w", p.ID, ErrExists)
		}
		email := types.NormalizeEmail(p.Email)
		for _, other := range snap.Participants {
			if other.Email == email {
				return fmt.Errorf("participant email %s: %w", email, ErrExists)
			}
			if other.AccessToken == p.AccessToken {
				return fmt.Errorf("access token: %w", ErrExists)
			}
		}
		cp := cloneParticipant(p)
		cp.Email = email
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now()
		}
		cp.UpdatedAt = cp.CreatedAt
		snap.Participants = append(snap.Participants, cp)
		return nil
	})
}

// GetParticipant returns a copy of the participant with the given id.
func (s *Store) GetParticipant(id string) (*types.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := findParticipant(s.data, id)
	if p == nil {
		return nil, fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	return cloneParticipant(p), nil
}

// GetParticipantByEmail looks up a participant by normalized email.
func (s *Store) GetParticipantByEmail(email string) (*types.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = types.NormalizeEmail(email)
	for _, p := range s.data.Participants {
		if p.Email == email {
			return cloneParticipant(p), nil
		}
	}
	return nil, fmt.Errorf("participant %s: %w", email, ErrNotFound)
}

// GetParticipantByAccessToken looks up a participant by access token,
// case-insensitively.
func (s *Store) GetParticipantByAccessToken(token string) (*types.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token = strings.ToUpper(strings.TrimSpace(token))
	for _, p := range s.data.Participants {
		if p.AccessToken == token {
			return cloneParticipant(p), nil
		}
	}
	return nil, fmt.Errorf("access token: %w", ErrNotFound)
}

// ListParticipants returns copies of all participants in insertion order.
func (s *Store) ListParticipants() []*types.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Participant, len(s.data.Participants))
	for i, p := range s.data.Participants {
		out[i] = cloneParticipant(p)
	}
	return out
}

// UpdateParticipant applies fn to the participant under the writer lock
// and persists the result.
func (s *Store) UpdateParticipant(id string, fn func(*types.Participant)) (*types.Participant, error) {
	var updated *types.Participant
	err := s.mutate(func(snap *snapshot) error {
		p := findParticipant(snap, id)
		if p == nil {
			return fmt.Errorf("participant %s: %w", id, ErrNotFound)
		}
		fn(p)
		p.Email = types.NormalizeEmail(p.Email)
		p.UpdatedAt = time.Now()
		updated = cloneParticipant(p)
		return nil
	})
	return updated, err
}

// DeleteParticipant removes the participant. If a workspace is assigned,
// its denormalized participant fields are cleared in the same mutation.
func (s *Store) DeleteParticipant(id string) error {
	return s.mutate(func(snap *snapshot) error {
		idx := -1
		for i, p := range snap.Participants {
			if p.ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return fmt.Errorf("participant %s: %w", id, ErrNotFound)
		}
		if wid := snap.Participants[idx].WorkspaceID; wid != "" {
			if w := findWorkspace(snap, wid); w != nil {
				w.ParticipantName = ""
				w.ParticipantEmail = ""
				w.Notes = ""
				w.UpdatedAt = time.Now()
			}
		}
		snap.Participants = append(snap.Participants[:idx], snap.Participants[idx+1:]...)
		return nil
	})
}

// DeleteAllParticipants removes every participant and clears the
// denormalized fields on all workspaces.
func (s *Store) DeleteAllParticipants() error {
	return s.mutate(func(snap *snapshot) error {
		snap.Participants = []*types.Participant{}
		for _, w := range snap.Workspaces {
			if w.ParticipantEmail != "" || w.ParticipantName != "" {
				w.ParticipantName = ""
				w.ParticipantEmail = ""
				w.Notes = ""
				w.UpdatedAt = time.Now()
			}
		}
		return nil
	})
}

// Assign binds a participant to a workspace, writing both directions of the
// denormalized link in one mutation. A participant already assigned
// elsewhere is moved; the previous workspace's fields are cleared.
func (s *Store) Assign(participantID, workspaceID string) error {
	return s.mutate(func(snap *snapshot) error {
		p := findParticipant(snap, participantID)
		if p == nil {
			return fmt.Errorf("participant %s: %w", participantID, ErrNotFound)
		}
		w := findWorkspace(snap, workspaceID)
		if w == nil {
			return fmt.Errorf("workspace %s: %w", workspaceID, ErrNotFound)
		}

		now := time.Now()
		if p.WorkspaceID != "" && p.WorkspaceID != workspaceID {
			if prev := findWorkspace(snap, p.WorkspaceID); prev != nil {
				prev.ParticipantName = ""
				prev.ParticipantEmail = ""
				prev.Notes = ""
				prev.UpdatedAt = now
			}
		}

		p.WorkspaceID = workspaceID
		p.UpdatedAt = now
		w.ParticipantName = p.Name
		w.ParticipantEmail = p.Email
		w.Notes = p.Notes
		w.UpdatedAt = now
		return nil
	})
}

// Unassign clears both directions of the participant<->workspace link.
func (s *Store) Unassign(participantID string) error {
	return s.mutate(func(snap *snapshot) error {
		p := findParticipant(snap, participantID)
		if p == nil {
			return fmt.Errorf("participant %s: %w", participantID, ErrNotFound)
		}
		now := time.Now()
		if p.WorkspaceID != "" {
			if w := findWorkspace(snap, p.WorkspaceID); w != nil {
				w.ParticipantName = ""
				w.ParticipantEmail = ""
				w.Notes = ""
				w.UpdatedAt = now
			}
		}
		p.WorkspaceID = ""
		p.UpdatedAt = now
		return nil
	})
}
