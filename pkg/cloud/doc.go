/*
Package cloud is the narrow capability boundary between the control plane
and the external cloud. The orchestrator and edge publisher consume the
Capability interface only; no component outside this package references
provider vocabulary.

	┌──────────────────── CLOUD CAPABILITY ────────────────────┐
	│                                                            │
	│   Orchestrator / Edge                                      │
	│        │                                                   │
	│        ▼                                                   │
	│   Capability (tasks, router, CDN, registry, identity)      │
	│        │                                                   │
	│        ├── AWS   ECS + EC2 + ELBv2 + CloudFront + ECR      │
	│        │         + STS via aws-sdk-go-v2                   │
	│        │                                                   │
	│        └── Fake  in-memory double: deterministic handles,  │
	│                  call counters, injectable errors          │
	└────────────────────────────────────────────────────────────┘

Errors carry one of three kinds. Transient failures (throttle, timeout,
5xx) are retried by the reconciler on its next tick; not-found means the
cloud reaped the resource; everything else is permanent and recorded on
the workspace. Classification happens once, here, from the provider's
error codes.

All edge mutations (target groups, listener rules, the distribution) are
idempotent, keyed on names and priorities derived deterministically from
the workspace id, so concurrent attaches of distinct workspaces never
collide and repeating an attach returns the same handles.
*/
package cloud
