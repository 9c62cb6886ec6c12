package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/vibelab/pkg/llm"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/tools"
)

const (
	// maxIterations bounds model round-trips per user turn.
	maxIterations = 25

	// maxRetries bounds transient-error retries across the session.
	maxRetries = 3
)

// EventType tags the events the loop emits toward the client.
type EventType string

const (
	EventThinking    EventType = "thinking"
	EventText        EventType = "text"
	EventToolCall    EventType = "tool_call"
	EventToolResult  EventType = "tool_result"
	EventFileChanged EventType = "file_changed"
	EventDone        EventType = "done"
)

// Event is one loop emission. Events reach the emitter in loop order,
// which is the ordering guarantee the wire protocol promises.
type Event struct {
	Type    EventType
	Text    string          // thinking chunk or final text
	Tool    string          // tool_call, tool_result
	ToolID  string          // tool_call, tool_result
	Input   json.RawMessage // tool_call
	Result  string          // tool_result
	Path    string          // file_changed
	Content string          // file_changed
}

// ErrBusy is returned when Run is called while a turn is in flight.
var ErrBusy = errors.New("a response is already being generated")

// Agent drives one conversation against the model. It is owned by a
// single session; Run is never called concurrently (the session's
// isProcessing flag guards it), but Cancel and Reset may arrive from
// the socket reader mid-turn, so conversation state is mutex-guarded.
type Agent struct {
	caller llm.Caller
	tools  *tools.Registry

	mu         sync.Mutex
	messages   []llm.Message
	retries    int
	cancelTurn context.CancelFunc

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds an agent over the given model caller and tool registry.
func New(caller llm.Caller, registry *tools.Registry) *Agent {
	return &Agent{
		caller: caller,
		tools:  registry,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns a copy of the conversation so far.
func (a *Agent) Messages() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]llm.Message(nil), a.messages...)
}

// snapshot returns the conversation for a model request.
func (a *Agent) snapshot() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.messages
}

func (a *Agent) setMessages(messages []llm.Message) {
	a.mu.Lock()
	a.messages = messages
	a.mu.Unlock()
}

func (a *Agent) appendMessage(m llm.Message) {
	a.mu.Lock()
	a.messages = append(a.messages, m)
	a.mu.Unlock()
}

// Reset clears the conversation and the retry budget.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = nil
	a.retries = 0
}

// Cancel aborts the in-flight streaming call, if any. Partial assistant
// content assembled so far is kept in the conversation.
func (a *Agent) Cancel() {
	a.mu.Lock()
	cancel := a.cancelTurn
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// systemPrompt builds the per-iteration system prompt with a small
// repo-map snapshot.
func (a *Agent) systemPrompt(ctx context.Context) string {
	repoMap, _ := a.tools.Execute(ctx, "list_files", nil)
	if len(repoMap) > 2000 {
		repoMap = repoMap[:2000] + "\n..."
	}
	return fmt.Sprintf(`You are a coding agent working inside a web development workspace.
The project lives at the workspace root; all tool paths are relative to it.
Use the tools to inspect and modify the project. Prefer small, targeted edits.
The preview dev server renders the project on port 3000; restart it after
changing configuration files.

Project layout:
%s`, repoMap)
}

// assembled accumulates streamed content blocks for one model message.
type assembled struct {
	blocks     []llm.ContentBlock
	inputJSON  map[int]string
	stopReason string
}

func newAssembled() *assembled {
	return &assembled{inputJSON: make(map[int]string)}
}

func (s *assembled) apply(e llm.StreamEvent) {
	switch e.Type {
	case llm.EventBlockStart:
		for len(s.blocks) <= e.Index {
			s.blocks = append(s.blocks, llm.ContentBlock{Type: llm.BlockText})
		}
		s.blocks[e.Index] = e.Block
	case llm.EventTextDelta:
		for len(s.blocks) <= e.Index {
			s.blocks = append(s.blocks, llm.ContentBlock{Type: llm.BlockText})
		}
		s.blocks[e.Index].Text += e.Text
	case llm.EventInputJSONDelta:
		s.inputJSON[e.Index] += e.Text
	case llm.EventMessageStop:
		s.stopReason = e.StopReason
	}
}

// message finalizes the accumulated blocks into an assistant message.
// Tool inputs streamed as partial JSON are parsed here; unparseable
// input becomes an empty object so the tool reports the problem itself.
func (s *assembled) message() llm.Message {
	blocks := make([]llm.ContentBlock, 0, len(s.blocks))
	for i, b := range s.blocks {
		if b.Type == llm.BlockToolUse {
			raw := s.inputJSON[i]
			if raw == "" {
				raw = "{}"
			}
			if !json.Valid([]byte(raw)) {
				raw = "{}"
			}
			b.Input = json.RawMessage(raw)
		}
		if b.Type == llm.BlockText && b.Text == "" {
			continue
		}
		blocks = append(blocks, b)
	}
	return llm.Message{Role: llm.RoleAssistant, Content: blocks}
}

// Run drives one user turn to completion, emitting events in order.
// Cancellation ends the turn without error and without a done event.
func (a *Agent) Run(ctx context.Context, userMessage string, emit func(Event)) error {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.cancelTurn = cancel
	a.messages = append(a.messages, llm.UserText(userMessage))
	a.mu.Unlock()

	for iteration := 1; iteration <= maxIterations; iteration++ {
		a.setMessages(compact(turnCtx, a.caller, a.snapshot()))

		acc, err := a.streamOnce(turnCtx, iteration, emit)
		if canceled(turnCtx, err) {
			// Keep whatever partial content arrived so the next turn
			// is coherent.
			if acc != nil {
				if m := acc.message(); len(m.Content) > 0 {
					a.appendMessage(m)
				}
			}
			return nil
		}
		if err != nil {
			return err
		}

		assistant := acc.message()
		if len(assistant.Content) > 0 {
			a.appendMessage(assistant)
		}

		if acc.stopReason == llm.StopToolUse && hasToolUse(assistant) {
			a.runTools(turnCtx, assistant, emit)
			continue
		}

		for _, b := range assistant.Content {
			if b.Type == llm.BlockText {
				emit(Event{Type: EventText, Text: b.Text})
			}
		}
		emit(Event{Type: EventDone})
		return nil
	}

	return fmt.Errorf("agent exceeded %d iterations without completing", maxIterations)
}

// streamOnce makes one streaming call, applying the transient-error
// policy: overflow truncates and retries immediately, throttling
// truncates and sleeps, other transient errors back off exponentially
// within the session retry budget.
func (a *Agent) streamOnce(ctx context.Context, iteration int, emit func(Event)) (*assembled, error) {
	logger := log.WithComponent("agent")
	for {
		acc := newAssembled()
		err := a.caller.Stream(ctx, llm.Request{
			System:   a.systemPrompt(ctx),
			Messages: a.snapshot(),
			Tools:    a.tools.Specs(),
		}, func(e llm.StreamEvent) error {
			acc.apply(e)
			if e.Type == llm.EventTextDelta {
				emit(Event{Type: EventThinking, Text: e.Text})
			}
			return nil
		})
		if err == nil {
			return acc, nil
		}
		if canceled(ctx, err) {
			return acc, err
		}

		switch {
		case llm.IsOverflow(err):
			logger.Warn().Err(err).Msg("Context overflow, forcing truncation")
			a.setMessages(truncateTail(a.snapshot(), truncateKeepFraction))
		case llm.IsThrottle(err):
			logger.Warn().Err(err).Int("iteration", iteration).Msg("Throttled, truncating and sleeping")
			a.setMessages(truncateTail(a.snapshot(), truncateKeepFraction))
			if serr := a.sleep(ctx, time.Duration(5*iteration)*time.Second); serr != nil {
				return acc, serr
			}
		case llm.IsTransient(err):
			a.mu.Lock()
			if a.retries >= maxRetries {
				retries := a.retries
				a.mu.Unlock()
				return acc, fmt.Errorf("model call failed after %d retries: %w", retries, err)
			}
			a.retries++
			backoff := time.Duration(1<<a.retries) * time.Second
			a.mu.Unlock()
			logger.Warn().Err(err).Dur("backoff", backoff).Msg("Transient model error, retrying")
			if serr := a.sleep(ctx, backoff); serr != nil {
				return acc, serr
			}
		default:
			return acc, err
		}
	}
}

// runTools executes every tool_use block in order and appends one
// synthetic user message with the results.
func (a *Agent) runTools(ctx context.Context, assistant llm.Message, emit func(Event)) {
	var results []llm.ContentBlock
	for _, b := range assistant.Content {
		if b.Type != llm.BlockToolUse {
			continue
		}
		emit(Event{Type: EventToolCall, Tool: b.Name, ToolID: b.ID, Input: b.Input})

		result, change := a.tools.Execute(ctx, b.Name, b.Input)
		emit(Event{Type: EventToolResult, Tool: b.Name, ToolID: b.ID, Result: result})
		if change != nil {
			emit(Event{Type: EventFileChanged, Path: change.Path, Content: change.Content})
		}
		results = append(results, llm.ToolResultBlock(b.ID, result))
	}
	a.appendMessage(llm.Message{Role: llm.RoleUser, Content: results})
}

func canceled(ctx context.Context, err error) bool {
	return ctx.Err() == context.Canceled || errors.Is(err, context.Canceled)
}
