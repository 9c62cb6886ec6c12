// Package edge owns the shared L7 router and the CDN distribution in
// front of it. Workspaces multiplex onto the router by path prefix; the
// published IDE URL is stable across task restarts as long as the
// workspace id is stable.
package edge

import (
	"context"
	"fmt"

	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/storage"
	"github.com/cuemby/vibelab/pkg/types"
)

// Edge publishes workspace endpoints through the shared router and CDN.
type Edge struct {
	cloud cloud.Capability
	store *storage.Store
}

// New returns an edge publisher over the given capability and store.
func New(capability cloud.Capability, store *storage.Store) *Edge {
	return &Edge{cloud: capability, store: store}
}

// Ensure brings up the shared router and the CDN distribution and persists
// their handles into the cluster config. Idempotent; safe to call on every
// setup request.
func (e *Edge) Ensure(ctx context.Context) (*types.ClusterConfig, error) {
	lb, err := e.cloud.EnsureLoadBalancer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure load balancer: %w", err)
	}

	dist, err := e.cloud.EnsureCDN(ctx, lb.DNSName)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure cdn: %w", err)
	}

	if err := e.store.UpdateConfig(func(c *types.ClusterConfig) {
		c.LoadBalancerARN = lb.ARN
		c.LoadBalancerDNS = lb.DNSName
		c.ListenerARN = lb.ListenerARN
		c.CDNDistributionID = dist.ID
		c.CDNDomain = dist.Domain
	}); err != nil {
		return nil, err
	}

	logger := log.WithComponent("edge")
	logger.Info().
		Str("lb_dns", lb.DNSName).
		Str("cdn_domain", dist.Domain).
		Msg("Edge ready")
	return e.store.Config(), nil
}

// Attach publishes a workspace IP on the shared router under the
// workspace's path prefix.
func (e *Edge) Attach(ctx context.Context, workspaceID, targetIP string) (*cloud.Attachment, error) {
	return e.cloud.AttachWorkspace(ctx, workspaceID, targetIP, types.IDEPort)
}

// Detach removes the workspace's routing. A never-attached workspace is a
// no-op.
func (e *Edge) Detach(ctx context.Context, workspaceID string) error {
	return e.cloud.DetachWorkspace(ctx, workspaceID)
}

// URLs computes the published endpoints for a workspace. The CDN URL is
// preferred for the IDE once the workspace is edge-attached; before that,
// direct IP fallbacks are published. The preview dev-server is always
// reached by IP, it is not routed through the edge.
func URLs(cfg *types.ClusterConfig, w *types.Workspace) (vscodeURL, appURL string) {
	if cfg != nil && cfg.CDNDomain != "" && w.PathPrefix != "" {
		vscodeURL = fmt.Sprintf("https://%s%s/", cfg.CDNDomain, w.PathPrefix)
	} else if w.PublicIP != "" {
		vscodeURL = fmt.Sprintf("http://%s:%d", w.PublicIP, types.IDEPort)
	}
	if w.PublicIP != "" {
		appURL = fmt.Sprintf("http://%s:%d", w.PublicIP, types.PreviewPort)
	}
	return vscodeURL, appURL
}
