package types

import (
	"strings"
	"time"
)

// Workspace represents a single containerized coding workspace dedicated
// to one participant, hosting an IDE server and a preview dev-server.
type Workspace struct {
	ID               string         `json:"id"`
	TaskARN          string         `json:"task_arn,omitempty"`
	State            WorkspaceState `json:"state"`
	Family           ImageFamily    `json:"extension"`
	PublicIP         string         `json:"public_ip,omitempty"`
	PrivateIP        string         `json:"private_ip,omitempty"`
	TargetGroupARN   string         `json:"target_group_arn,omitempty"`
	RuleARN          string         `json:"rule_arn,omitempty"`
	PathPrefix       string         `json:"path_prefix,omitempty"`
	CDNDomain        string         `json:"cdn_domain,omitempty"`
	VSCodeURL        string         `json:"vscode_url,omitempty"`
	AppURL           string         `json:"app_url,omitempty"`
	ParticipantName  string         `json:"participant_name,omitempty"`
	ParticipantEmail string         `json:"participant_email,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Live reports whether the workspace may still have a cloud task behind it.
func (w *Workspace) Live() bool {
	switch w.State {
	case WorkspaceStateProvisioning, WorkspaceStatePending, WorkspaceStateRunning, WorkspaceStateStopping:
		return true
	}
	return false
}

// WorkspaceState represents the lifecycle state of a workspace
type WorkspaceState string

const (
	WorkspaceStateProvisioning WorkspaceState = "provisioning"
	WorkspaceStatePending      WorkspaceState = "pending"
	WorkspaceStateRunning      WorkspaceState = "running"
	WorkspaceStateStopping     WorkspaceState = "stopping"
	WorkspaceStateStopped      WorkspaceState = "stopped"
	WorkspaceStateFailed       WorkspaceState = "failed"
)

// NormalizeState maps a cloud-reported task status (e.g. "RUNNING") to a
// workspace state. Unknown statuses map to pending.
func NormalizeState(cloudStatus string) WorkspaceState {
	switch strings.ToLower(cloudStatus) {
	case "provisioning":
		return WorkspaceStateProvisioning
	case "pending", "activating":
		return WorkspaceStatePending
	case "running":
		return WorkspaceStateRunning
	case "deactivating", "stopping", "deprovisioning":
		return WorkspaceStateStopping
	case "stopped", "deleted":
		return WorkspaceStateStopped
	default:
		return WorkspaceStatePending
	}
}

// ImageFamily identifies which in-container agent/IDE configuration a
// workspace runs. The set is closed; the family is immutable after creation.
type ImageFamily string

const (
	FamilyContinue ImageFamily = "continue"
	FamilyCline    ImageFamily = "cline"
	FamilyVibe     ImageFamily = "vibe"
	FamilyVibePro  ImageFamily = "vibe-pro"
)

var familyPrefixes = map[ImageFamily]string{
	FamilyContinue: "vibe-ct-",
	FamilyCline:    "vibe-cl-",
	FamilyVibe:     "vibe-vb-",
	FamilyVibePro:  "vibe-vp-",
}

// Valid reports whether f is one of the supported image families.
func (f ImageFamily) Valid() bool {
	_, ok := familyPrefixes[f]
	return ok
}

// IDPrefix returns the workspace id prefix for the family.
func (f ImageFamily) IDPrefix() string {
	return familyPrefixes[f]
}

// Families returns the closed set of supported image families.
func Families() []ImageFamily {
	return []ImageFamily{FamilyContinue, FamilyCline, FamilyVibe, FamilyVibePro}
}

// Participant represents a human participant with issued credentials.
// The workspace link is denormalized in both directions: the participant
// carries WorkspaceID, the workspace carries name/email/notes.
type Participant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Notes        string    `json:"notes,omitempty"`
	WorkspaceID  string    `json:"assigned_workspace,omitempty"`
	PasswordHash string    `json:"password_hash"`
	AccessToken  string    `json:"access_token"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthConfig holds the process-wide authentication material.
type AuthConfig struct {
	AdminPasswordHash string    `json:"admin_password_hash"`
	SigningSecret     []byte    `json:"signing_secret"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ClusterConfig names the cloud resources the orchestrator depends on.
// It is persisted in the store and hot-reloaded by readers.
type ClusterConfig struct {
	Region            string    `json:"region"`
	Cluster           string    `json:"cluster"`
	TaskFamily        string    `json:"task_family"`
	VPCID             string    `json:"vpc_id"`
	Subnets           []string  `json:"subnets"`
	SecurityGroup     string    `json:"security_group"`
	RegistryURI       string    `json:"registry_uri,omitempty"`
	LoadBalancerARN   string    `json:"load_balancer_arn,omitempty"`
	LoadBalancerDNS   string    `json:"load_balancer_dns,omitempty"`
	ListenerARN       string    `json:"listener_arn,omitempty"`
	CDNDistributionID string    `json:"cdn_distribution_id,omitempty"`
	CDNDomain         string    `json:"cdn_domain,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Well-known container ports inside every workspace image.
const (
	IDEPort     = 8080
	PreviewPort = 3000
)
