/*
Package orchestrator drives the workspace fleet: bulk spawn, stop, start,
delete, orphan handling, and the reconciliation step that keeps the store
and the edge in line with the cloud's actual state.

	┌───────────────────── ORCHESTRATOR ──────────────────────┐
	│                                                           │
	│   HTTP surface / CLI                                      │
	│        │                                                  │
	│        ▼                                                  │
	│   ┌──────────────┐   bounded fan-out   ┌──────────────┐  │
	│   │   SpinUp     │────────────────────▶│  Cloud.RunTask│  │
	│   │   StopAll    │   (10 workers)      │  Cloud.StopTask│ │
	│   │   DeleteAll  │                     └──────────────┘  │
	│   └──────┬───────┘                                        │
	│          │ per-workspace records                          │
	│          ▼                                                │
	│   ┌──────────────┐        ┌──────────────┐               │
	│   │    Store     │◀──────▶│ ReconcileAll │◀── ticker     │
	│   └──────────────┘        └──────┬───────┘               │
	│                                  │ RUNNING + public IP    │
	│                                  ▼                        │
	│                           ┌──────────────┐               │
	│                           │ Edge.Attach  │  path rules    │
	│                           └──────────────┘               │
	└───────────────────────────────────────────────────────────┘

# Lifecycle

States run provisioning → pending → running → stopping → stopped, with
failed as a sink recorded on the workspace's error field. Transitions are
driven by the cloud's reported status, normalized in pkg/types; the
reconciler may observe skipped intermediates (provisioning straight to
running).

# Spawn semantics

Spawns are at-least-once: a task may start even when the recording patch
fails, and the orphan scanner exists to mop up exactly that case. Partial
bulk failure is reported per ordinal; the request succeeds if at least one
workspace was created.

# Reconciliation

One step per live workspace: describe the task, attach the edge when
running with a public IP (re-attaching when the IP changed, which
re-targets the existing target group), compute published URLs, and patch
the record only when something observable changed. Failures are logged and
skipped so one bad workspace cannot starve the fleet.
*/
package orchestrator
