package edge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/storage"
	"github.com/cuemby/vibelab/pkg/types"
)

// TestEnsurePersistsHandles verifies edge bring-up writes the config
func TestEnsurePersistsHandles(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	fake := cloud.NewFake()
	e := New(fake, store)

	cfg, err := e.Ensure(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.LoadBalancerARN)
	assert.NotEmpty(t, cfg.LoadBalancerDNS)
	assert.NotEmpty(t, cfg.ListenerARN)
	assert.NotEmpty(t, cfg.CDNDistributionID)
	assert.NotEmpty(t, cfg.CDNDomain)

	// Second call reuses the same handles.
	again, err := e.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.CDNDomain, again.CDNDomain)
	assert.Equal(t, cfg.LoadBalancerARN, again.LoadBalancerARN)
}

// TestURLs covers CDN-preferred and IP-fallback publication
func TestURLs(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *types.ClusterConfig
		w         *types.Workspace
		vscodeURL string
		appURL    string
	}{
		{
			name:      "cdn attached",
			cfg:       &types.ClusterConfig{CDNDomain: "d1.cloudfront.example.com"},
			w:         &types.Workspace{ID: "vibe-ct-AAAAA", PathPrefix: "/vibe-ct-AAAAA", PublicIP: "203.0.113.7"},
			vscodeURL: "https://d1.cloudfront.example.com/vibe-ct-AAAAA/",
			appURL:    "http://203.0.113.7:3000",
		},
		{
			name:      "pre-edge fallback",
			cfg:       &types.ClusterConfig{},
			w:         &types.Workspace{ID: "vibe-ct-AAAAA", PublicIP: "203.0.113.7"},
			vscodeURL: "http://203.0.113.7:8080",
			appURL:    "http://203.0.113.7:3000",
		},
		{
			name:      "cdn known but not attached yet",
			cfg:       &types.ClusterConfig{CDNDomain: "d1.cloudfront.example.com"},
			w:         &types.Workspace{ID: "vibe-ct-AAAAA", PublicIP: "203.0.113.7"},
			vscodeURL: "http://203.0.113.7:8080",
			appURL:    "http://203.0.113.7:3000",
		},
		{
			name: "no ip yet",
			cfg:  &types.ClusterConfig{},
			w:    &types.Workspace{ID: "vibe-ct-AAAAA"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vscodeURL, appURL := URLs(tt.cfg, tt.w)
			assert.Equal(t, tt.vscodeURL, vscodeURL)
			assert.Equal(t, tt.appURL, appURL)
		})
	}
}
