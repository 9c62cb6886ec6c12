/*
Package types defines the core data structures shared across all vibelab
components.

The fleet data model has four entity kinds, all owned exclusively by the
store (pkg/storage):

  - Workspace: one cloud container task running an IDE server and a preview
    dev-server, addressed by a slug id with a family-specific prefix
    (e.g. vibe-ct-a8k2p).
  - Participant: a human with issued credentials and an optional workspace
    assignment. The participant<->workspace link is denormalized on both
    sides and only mutated through the store's assignment operations.
  - AuthConfig: the admin password hash and the bearer-token signing secret.
  - ClusterConfig: names of the cloud resources (cluster, task family, VPC,
    subnets, edge handles) the orchestrator operates against.

# Lifecycle

Workspace states form a simple chain:

	provisioning -> pending -> running -> stopping -> stopped

with failed as a sink from any state (recorded in the Error field, no
automatic recovery). Cloud-reported statuses are normalized to this set via
NormalizeState; transitions observed by the reconciler may skip intermediate
states.

# Conventions

  - String-typed state and family enums with exported constants.
  - JSON tags in snake_case; the same encoding serves the store snapshot
    and the HTTP API.
  - Email addresses are normalized (lowercased, trimmed) before storage or
    comparison.
*/
package types
