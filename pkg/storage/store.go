package storage

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuemby/vibelab/pkg/types"
	"golang.org/x/crypto/bcrypt"
)

const snapshotFile = "vibelab.json"

// DefaultAdminPassword is the admin password seeded on first start.
// Operators are expected to change it via the API immediately.
const DefaultAdminPassword = "admin"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when a create collides with an existing record.
	ErrExists = errors.New("already exists")
)

// snapshot is the on-disk shape of the store: all four collections in one
// JSON document, replaced atomically on every mutation.
type snapshot struct {
	Workspaces   []*types.Workspace   `json:"workspaces"`
	Participants []*types.Participant `json:"participants"`
	Auth         *types.AuthConfig    `json:"auth"`
	Config       *types.ClusterConfig `json:"config"`
}

// Store is a single-writer record store for the fleet state. All writes are
// serialized under one lock and followed by an atomic snapshot replacement
// (write-temp-then-rename); failed writes leave the in-memory state at the
// pre-mutation snapshot. Reads return defensive copies.
type Store struct {
	mu   sync.RWMutex
	path string
	data *snapshot
}

// Open loads the snapshot from dataDir, creating it with defaults if it
// does not exist. Missing collections in an older snapshot are created
// empty and persisted (forward migration). A corrupt snapshot is fatal.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{path: filepath.Join(dataDir, snapshotFile)}

	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		snap, err := defaultSnapshot()
		if err != nil {
			return nil, err
		}
		s.data = snap
		if err := s.save(snap); err != nil {
			return nil, fmt.Errorf("failed to write initial snapshot: %w", err)
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	// Forward migration: older snapshots may predate a collection.
	migrated := false
	if snap.Workspaces == nil {
		snap.Workspaces = []*types.Workspace{}
		migrated = true
	}
	if snap.Participants == nil {
		snap.Participants = []*types.Participant{}
		migrated = true
	}
	if snap.Auth == nil {
		auth, err := defaultAuth()
		if err != nil {
			return nil, err
		}
		snap.Auth = auth
		migrated = true
	}
	if snap.Config == nil {
		snap.Config = defaultClusterConfig()
		migrated = true
	}

	s.data = &snap
	if migrated {
		if err := s.save(&snap); err != nil {
			return nil, fmt.Errorf("failed to persist migrated snapshot: %w", err)
		}
	}
	return s, nil
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

func defaultSnapshot() (*snapshot, error) {
	auth, err := defaultAuth()
	if err != nil {
		return nil, err
	}
	return &snapshot{
		Workspaces:   []*types.Workspace{},
		Participants: []*types.Participant{},
		Auth:         auth,
		Config:       defaultClusterConfig(),
	}, nil
}

func defaultAuth() (*types.AuthConfig, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash default admin password: %w", err)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate signing secret: %w", err)
	}
	now := time.Now()
	return &types.AuthConfig{
		AdminPasswordHash: string(hash),
		SigningSecret:     secret,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func defaultClusterConfig() *types.ClusterConfig {
	return &types.ClusterConfig{
		Region:     "us-east-1",
		Cluster:    "vibelab",
		TaskFamily: "vibelab-workspace",
		UpdatedAt:  time.Now(),
	}
}

// save atomically replaces the on-disk snapshot.
func (s *Store) save(snap *snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// mutate clones the current snapshot, applies fn to the clone, persists it,
// and swaps it in. If either fn or the save fails, the committed state is
// untouched.
func (s *Store) mutate(fn func(*snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneSnapshot(s.data)
	if err := fn(next); err != nil {
		return err
	}
	if err := s.save(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func cloneSnapshot(snap *snapshot) *snapshot {
	next := &snapshot{
		Workspaces:   make([]*types.Workspace, len(snap.Workspaces)),
		Participants: make([]*types.Participant, len(snap.Participants)),
	}
	for i, w := range snap.Workspaces {
		next.Workspaces[i] = cloneWorkspace(w)
	}
	for i, p := range snap.Participants {
		next.Participants[i] = cloneParticipant(p)
	}
	if snap.Auth != nil {
		next.Auth = cloneAuth(snap.Auth)
	}
	if snap.Config != nil {
		next.Config = cloneConfig(snap.Config)
	}
	return next
}

func cloneWorkspace(w *types.Workspace) *types.Workspace {
	cp := *w
	return &cp
}

func cloneParticipant(p *types.Participant) *types.Participant {
	cp := *p
	return &cp
}

func cloneAuth(a *types.AuthConfig) *types.AuthConfig {
	cp := *a
	cp.SigningSecret = append([]byte(nil), a.SigningSecret...)
	return &cp
}

func cloneConfig(c *types.ClusterConfig) *types.ClusterConfig {
	cp := *c
	cp.Subnets = append([]string(nil), c.Subnets...)
	return &cp
}

func findWorkspace(snap *snapshot, id string) *types.Workspace {
	for _, w := range snap.Workspaces {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func findParticipant(snap *snapshot, id string) *types.Participant {
	for _, p := range snap.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}
