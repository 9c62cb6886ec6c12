/*
Package agent is the model-driving loop: one conversation per session,
one user turn at a time, bounded iterations.

	user message
	     │
	     ▼
	┌─ iteration ──────────────────────────────────┐
	│ compact if over the token high-water mark    │
	│ stream model call (system prompt + tools)    │
	│   text deltas ──▶ thinking events            │
	│ stop reason tool_use?                        │
	│   yes: run tools, append results, loop       │
	│   no:  emit text blocks, emit done, return   │
	└──────────────────────────────────────────────┘

The conversation must always satisfy the model protocol: starts with a
user message, every tool_use answered by the next user message. sanitize
restores that after any truncation or compaction.

Model-call failures are classified, not inspected: overflow truncates
and retries, throttling truncates and sleeps, other transient errors
back off within a per-session retry budget. Anything else ends the turn
with an error.

Cancellation aborts the in-flight stream but keeps the partial assistant
content, so the next turn reads coherently.
*/
package agent
