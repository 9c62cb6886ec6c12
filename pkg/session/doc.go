/*
Package session is the WebSocket surface of the in-workspace agent: one
socket per workspace user, one agent conversation per socket.

	client ──▶ chat / element_click / preview_error /
	           reset_conversation / cancel_response
	server ──▶ chat_history / prefill / agent:thinking / agent:text /
	           agent:tool_call / agent:tool_result / agent:file_changed /
	           agent:done / error / conversation_reset

One turn runs at a time: the isProcessing flag rejects an overlapping
chat with an error frame instead of queuing it. Cancel and reset frames
are read mid-turn because turns run off the read loop.

preview_error frames auto-drive the loop with a synthetic fix request,
limited to one invocation per 5 seconds and 3 per conversation.

The displayed transcript (user prompts and final assistant text) is
persisted to chat-history.json and replayed on reconnect.
*/
package session
