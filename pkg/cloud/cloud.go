package cloud

import (
	"context"
	"time"

	"github.com/cuemby/vibelab/pkg/types"
)

// TaskStatus is the cloud-reported view of a single task.
type TaskStatus struct {
	Status         string     `json:"status"`
	PublicIP       string     `json:"public_ip,omitempty"`
	PrivateIP      string     `json:"private_ip,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	TaskDefinition string     `json:"task_definition,omitempty"`
}

// RunningTask is one entry from a running-task listing, used by the
// orphan scanner.
type RunningTask struct {
	TaskARN        string     `json:"task_arn"`
	TaskID         string     `json:"task_id"`
	Status         string     `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	TaskDefinition string     `json:"task_definition,omitempty"`
}

// LoadBalancer holds the handles of the shared L7 router.
type LoadBalancer struct {
	ARN         string `json:"arn"`
	DNSName     string `json:"dns_name"`
	ListenerARN string `json:"listener_arn"`
}

// Attachment holds the per-workspace routing handles on the shared router.
type Attachment struct {
	TargetGroupARN string `json:"target_group_arn"`
	RuleARN        string `json:"rule_arn"`
	PathPrefix     string `json:"path_prefix"`
}

// Distribution holds the CDN handles.
type Distribution struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

// Caller identifies the cloud account and region in use.
type Caller struct {
	AccountID string `json:"account_id"`
	Region    string `json:"region"`
}

// Capability is the narrow interface over the external cloud consumed by
// the orchestrator and the edge publisher. Every method is fallible with a
// typed error kind; callers branch on IsNotFound / IsTransient, never on
// provider-specific vocabulary.
type Capability interface {
	// RunTask registers a versioned task definition for the image family
	// and starts a task with a public IP. Returns the task handle.
	RunTask(ctx context.Context, family types.ImageFamily, workspaceID string) (string, error)

	// StopTask requests a stop. Idempotent; stopping an already stopped
	// or reaped task is not an error.
	StopTask(ctx context.Context, taskARN string) error

	// DescribeTask reports the cloud's view of a task. Returns a
	// not-found error if the cloud has reaped it.
	DescribeTask(ctx context.Context, taskARN string) (*TaskStatus, error)

	// ListRunningTasks lists running tasks of the configured workspace
	// task family.
	ListRunningTasks(ctx context.Context) ([]RunningTask, error)

	// EnsureLoadBalancer creates or discovers the shared router with a
	// default 404 action and an HTTP listener on port 80. Idempotent.
	EnsureLoadBalancer(ctx context.Context) (*LoadBalancer, error)

	// AttachWorkspace creates a target group for the workspace, registers
	// the IP target, and inserts a path-prefix forwarding rule at a
	// priority derived from the workspace id. Idempotent: an attached
	// workspace gets its existing handles back.
	AttachWorkspace(ctx context.Context, workspaceID, targetIP string, targetPort int32) (*Attachment, error)

	// DetachWorkspace removes the listener rule and target group.
	// Idempotent; detaching a never-attached workspace is a no-op.
	DetachWorkspace(ctx context.Context, workspaceID string) error

	// EnsureCDN creates or discovers the HTTPS distribution in front of
	// the router, with caching disabled and WebSocket methods allowed.
	EnsureCDN(ctx context.Context, originDNS string) (*Distribution, error)

	// EnsureRepository creates or discovers the image registry
	// repository and returns its URI.
	EnsureRepository(ctx context.Context, name string) (string, error)

	// Identity returns the account and region of the active credentials.
	Identity(ctx context.Context) (*Caller, error)
}

// ConfigProvider returns the current cluster configuration. Implementations
// read it on every call so config changes take effect without a restart.
type ConfigProvider func() *types.ClusterConfig
