/*
Package llm is the model client: anthropic-messages payloads over
Bedrock, streamed or one-shot.

	conversation ──▶ Request ──▶ InvokeModelWithResponseStream
	                                   │
	                                   ▼ chunk JSON
	                 StreamEvent: block_start / text_delta /
	                 input_json_delta / block_stop / message_stop

Complete is the non-streaming variant, used for compaction summaries.

Error classification matters more than error detail here: IsOverflow
means the conversation must shrink, IsThrottle means shrink and sleep,
IsTransient means back off and retry. Everything else is terminal for
the turn.
*/
package llm
