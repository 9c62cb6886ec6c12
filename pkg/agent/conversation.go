package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuemby/vibelab/pkg/llm"
)

const (
	// tokenHighWater is the estimated-token threshold that triggers
	// compaction.
	tokenHighWater = 150000

	// compactKeepFraction is the share of newest messages preserved
	// verbatim through compaction; the rest is summarized.
	compactKeepFraction = 0.40

	// truncateKeepFraction is the share of newest messages kept on a
	// forced truncation (context overflow, throttle).
	truncateKeepFraction = 0.30

	summaryMaxTokens = 1024
)

const summarySystem = "You summarize coding-agent conversations. Produce 2-3 paragraphs " +
	"that preserve: decisions made, files created or modified, the current task, " +
	"and unfinished work. No preamble."

// estimateTokens approximates the conversation size as total characters
// of text, tool input JSON, and tool results, divided by four.
func estimateTokens(messages []llm.Message) int {
	chars := 0
	for _, m := range messages {
		for _, b := range m.Content {
			chars += len(b.Text) + len(b.Input) + len(b.Content)
		}
	}
	return chars / 4
}

// sanitize repairs a conversation after truncation or compaction so it
// satisfies the model protocol: it must start with a user message, every
// tool_use must be answered by the following user message, and the last
// message must not carry unanswered tool_use blocks.
func sanitize(messages []llm.Message) []llm.Message {
	if len(messages) == 0 {
		return messages
	}

	// Head user message of only tool results answers a truncated
	// assistant turn.
	if first := messages[0]; first.Role == llm.RoleUser && onlyToolResults(first) {
		messages = messages[1:]
	}

	// Tail assistant message with tool_use blocks would leave them
	// unanswered.
	if len(messages) > 0 {
		if last := messages[len(messages)-1]; last.Role == llm.RoleAssistant && hasToolUse(last) {
			messages = messages[:len(messages)-1]
		}
	}

	if len(messages) > 0 && messages[0].Role == llm.RoleAssistant {
		messages = append([]llm.Message{llm.UserText("[Conversation resumed]")}, messages...)
	}
	return messages
}

func onlyToolResults(m llm.Message) bool {
	if len(m.Content) == 0 {
		return false
	}
	for _, b := range m.Content {
		if b.Type != llm.BlockToolResult {
			return false
		}
	}
	return true
}

func hasToolUse(m llm.Message) bool {
	for _, b := range m.Content {
		if b.Type == llm.BlockToolUse {
			return true
		}
	}
	return false
}

// truncateTail keeps the newest fraction of messages and sanitizes.
func truncateTail(messages []llm.Message, keep float64) []llm.Message {
	n := int(float64(len(messages)) * keep)
	if n < 1 {
		n = 1
	}
	if n >= len(messages) {
		return sanitize(messages)
	}
	return sanitize(messages[len(messages)-n:])
}

// compact summarizes the oldest messages into a two-message preamble
// when the conversation exceeds the high-water mark. Falls back to raw
// truncation when the summary call fails.
func compact(ctx context.Context, caller llm.Caller, messages []llm.Message) []llm.Message {
	if estimateTokens(messages) <= tokenHighWater {
		return messages
	}

	keep := int(float64(len(messages)) * compactKeepFraction)
	if keep < 1 {
		keep = 1
	}
	cut := len(messages) - keep
	if cut < 1 {
		return sanitize(messages)
	}
	oldest, tail := messages[:cut], messages[cut:]

	// The cut can split a tool_use from its result; the summary call must
	// still satisfy the model protocol.
	summary, err := caller.Complete(ctx, llm.Request{
		System:    summarySystem,
		Messages:  append(sanitize(append([]llm.Message{}, oldest...)), llm.UserText("Summarize the conversation above.")),
		MaxTokens: summaryMaxTokens,
	})
	if err != nil || strings.TrimSpace(summary) == "" {
		return truncateTail(messages, truncateKeepFraction)
	}

	// The tail is sanitized on its own first: its head may be a
	// tool-result message whose assistant partner was summarized away.
	compacted := []llm.Message{
		llm.UserText(fmt.Sprintf("Previous conversation summary:\n\n%s", summary)),
		llm.AssistantText("Understood. Continuing from the summary."),
	}
	compacted = append(compacted, sanitize(tail)...)
	return compacted
}
