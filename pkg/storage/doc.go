/*
Package storage provides the durable record store for the vibelab fleet.

The store holds four typed collections (workspaces, participants, auth,
cluster config) in a single JSON snapshot file under the data directory.
Every mutation is serialized under one writer lock and followed by an
atomic replacement of the snapshot (write to a temp file, then rename), so
a crash at any point leaves either the old or the new snapshot on disk,
never a torn one.

	┌──────────────────── SNAPSHOT STORE ─────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Store                            │          │
	│  │  - File: <dataDir>/vibelab.json             │          │
	│  │  - Writers: serialized (sync.RWMutex)       │          │
	│  │  - Readers: defensive copies                │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Mutation protocol                   │          │
	│  │  1. clone in-memory snapshot                │          │
	│  │  2. apply typed mutation to the clone       │          │
	│  │  3. marshal + write temp + rename           │          │
	│  │  4. swap clone in on success                │          │
	│  │  (failure at any step leaves committed      │          │
	│  │   state untouched)                          │          │
	│  └────────────────────────────────────────────┘          │
	└──────────────────────────────────────────────────────────┘

# Startup

Open seeds a fresh snapshot on first start: empty collections, default
cluster config, an auth record with a bcrypt hash of the default admin
password and a freshly generated 32-byte signing secret. An existing
snapshot that predates a collection gets it created empty and persisted
(forward migration). A snapshot that cannot be parsed is fatal.

# Bidirectional assignment

The participant<->workspace link is denormalized on both records. The only
legal mutations of the link are Assign, Unassign, and the cascading clears
in DeleteParticipant / DeleteWorkspace, each of which updates both sides
inside a single mutation.

# Performance

Fleet size is bounded (low thousands of records), so lookups are linear
scans behind a read lock and every write rewrites the whole snapshot. That
trade keeps recovery trivial: the snapshot file is the entire state.
*/
package storage
