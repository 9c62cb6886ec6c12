/*
Package tools is the sandboxed tool set the model drives: file
read/write/edit, listing and search, shell commands, and preview
dev-server control, all rooted to one project directory.

	model tool_use ──▶ Registry.Execute(name, input)
	                        │
	                        ├─ resolve(path)   rejects escapes from the root
	                        ├─ run handler     string payload or error
	                        └─ FileChange      for write_file / edit_file

Failures never surface as Go errors to the caller: Execute wraps them as
{"error": message} payloads so the model can read the failure and try
something else.

The bash tool enforces a denylist before launch and a hard timeout
(SIGKILL) during execution. The preview dev server is owned by the
registry; StopPreview must be called when the session ends.
*/
package tools
