/*
Package api is the fleet HTTP surface: JSON REST endpoints for admins and
participants, gated by bearer tokens and role.

	┌───────────────────────── HTTP API ────────────────────────┐
	│                                                             │
	│  public     POST /auth/admin/login                          │
	│             POST /auth/participant/login                    │
	│             POST /auth/access-token/login                   │
	│             GET  /healthz   GET /metrics                    │
	│                                                             │
	│  admin      /workspaces (list, spin-up, stop/start/delete,  │
	│             stop-all, delete-all, orphaned/*)               │
	│             /participants (CRUD, import, regenerate,        │
	│             assign/unassign, auto-assign)                   │
	│             /setup (status, edge, registry)                 │
	│                                                             │
	│  participant /portal/my-instance                            │
	│              /portal/change-password                        │
	└─────────────────────────────────────────────────────────────┘

Errors are {"error": message} with 400 validation, 401 unauthenticated,
403 wrong role, 404 missing, 500 internal. Authentication failures never
reveal which credential was wrong.

The surface is a thin adapter: validation and status mapping live here,
behavior lives in the orchestrator and the store.
*/
package api
