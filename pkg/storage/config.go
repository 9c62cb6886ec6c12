package storage

import (
	"time"

	"github.com/cuemby/vibelab/pkg/types"
)

// Auth returns a copy of the auth configuration.
func (s *Store) Auth() *types.AuthConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAuth(s.data.Auth)
}

// UpdateAuth applies fn to the auth record and persists the result.
func (s *Store) UpdateAuth(fn func(*types.AuthConfig)) error {
	return s.mutate(func(snap *snapshot) error {
		fn(snap.Auth)
		snap.Auth.UpdatedAt = time.Now()
		return nil
	})
}

// Config returns a copy of the cluster configuration.
func (s *Store) Config() *types.ClusterConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConfig(s.data.Config)
}

// UpdateConfig applies fn to the cluster config and persists the result.
func (s *Store) UpdateConfig(fn func(*types.ClusterConfig)) error {
	return s.mutate(func(snap *snapshot) error {
		fn(snap.Config)
		snap.Config.UpdatedAt = time.Now()
		return nil
	})
}
