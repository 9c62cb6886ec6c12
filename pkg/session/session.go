package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cuemby/vibelab/pkg/agent"
	"github.com/cuemby/vibelab/pkg/llm"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/tools"
)

const (
	// autoFixMinInterval is the floor between preview_error invocations.
	autoFixMinInterval = 5 * time.Second

	// autoFixMaxPerConversation caps auto-fix attempts until a reset.
	autoFixMaxPerConversation = 3
)

// Server accepts WebSocket connections and runs one agent session per
// connection.
type Server struct {
	caller      llm.Caller
	registry    *tools.Registry
	historyPath string
	upgrader    websocket.Upgrader
}

// NewServer builds the session server. historyPath is where the
// displayed chat history is persisted across reconnects.
func NewServer(caller llm.Caller, registry *tools.Registry, historyPath string) *Server {
	return &Server{
		caller:      caller,
		registry:    registry,
		historyPath: historyPath,
		upgrader: websocket.Upgrader{
			// The socket is reached through the shared CDN; origin
			// enforcement happens at the edge.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and runs the session until the
// socket closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger := log.WithComponent("session")
		logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	id := uuid.NewString()
	sess := &session{
		id:       id,
		conn:     conn,
		agent:    agent.New(s.caller, s.registry),
		history:  newHistory(s.historyPath),
		registry: s.registry,
		logger:   log.WithSessionID(id),
	}
	sess.run()
}

// session is one connected client. The read loop is the only goroutine
// reading frames; turns run on their own goroutine so cancel and reset
// frames are handled mid-stream.
type session struct {
	id       string
	conn     *websocket.Conn
	agent    *agent.Agent
	history  *history
	registry *tools.Registry
	logger   zerolog.Logger

	writeMu      sync.Mutex
	isProcessing atomic.Bool

	autoFixMu    sync.Mutex
	lastAutoFix  time.Time
	autoFixCount int
}

// clientFrame is any frame the client may send.
type clientFrame struct {
	Type        string `json:"type"`
	Message     string `json:"message,omitempty"`
	TagName     string `json:"tagName,omitempty"`
	TextContent string `json:"textContent,omitempty"`
	Error       string `json:"error,omitempty"`
}

// serverFrame is any frame the server may send.
type serverFrame struct {
	Type     string           `json:"type"`
	Message  string           `json:"message,omitempty"`
	Messages []historyMessage `json:"messages,omitempty"`
	Text     string           `json:"text,omitempty"`
	Content  string           `json:"content,omitempty"`
	Tool     string           `json:"tool,omitempty"`
	Input    json.RawMessage  `json:"input,omitempty"`
	Result   string           `json:"result,omitempty"`
	Path     string           `json:"path,omitempty"`
}

// send writes one frame. A closed socket drops the frame silently.
func (s *session) send(f serverFrame) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.WriteJSON(f)
}

func (s *session) sendError(msg string) {
	s.send(serverFrame{Type: "error", Message: msg})
}

func (s *session) run() {
	s.logger.Info().Msg("Session connected")
	defer func() {
		s.agent.Cancel()
		s.registry.StopPreview()
		_ = s.conn.Close()
		s.logger.Info().Msg("Session closed")
	}()

	if messages := s.history.Messages(); len(messages) > 0 {
		s.send(serverFrame{Type: "chat_history", Messages: messages})
	}

	for {
		var frame clientFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case "chat":
			s.startTurn(frame.Message, frame.Message)
		case "element_click":
			s.send(serverFrame{
				Type:    "prefill",
				Message: fmt.Sprintf("Change the <%s> element that says '%s'...", frame.TagName, frame.TextContent),
			})
		case "preview_error":
			s.handlePreviewError(frame.Error)
		case "reset_conversation":
			s.agent.Cancel()
			s.agent.Reset()
			s.resetAutoFix()
			s.history.Clear()
			s.send(serverFrame{Type: "conversation_reset"})
		case "cancel_response":
			s.agent.Cancel()
		default:
			s.sendError(fmt.Sprintf("unknown frame type: %s", frame.Type))
		}
	}
}

// startTurn launches one agent turn. displayed is what lands in the
// persisted history; for auto-fix turns it differs from the prompt.
func (s *session) startTurn(prompt, displayed string) {
	if prompt == "" {
		s.sendError("message is required")
		return
	}
	if !s.isProcessing.CompareAndSwap(false, true) {
		s.sendError("a response is already being generated")
		return
	}

	s.history.Append(historyMessage{Role: "user", Content: displayed})

	go func() {
		defer s.isProcessing.Store(false)

		err := s.agent.Run(context.Background(), prompt, func(e agent.Event) {
			switch e.Type {
			case agent.EventThinking:
				s.send(serverFrame{Type: "agent:thinking", Text: e.Text})
			case agent.EventText:
				s.history.Append(historyMessage{Role: "assistant", Content: e.Text})
				s.send(serverFrame{Type: "agent:text", Content: e.Text})
			case agent.EventToolCall:
				s.send(serverFrame{Type: "agent:tool_call", Tool: e.Tool, Input: e.Input})
			case agent.EventToolResult:
				s.send(serverFrame{Type: "agent:tool_result", Tool: e.Tool, Result: e.Result})
			case agent.EventFileChanged:
				s.send(serverFrame{Type: "agent:file_changed", Path: e.Path, Content: e.Content})
			case agent.EventDone:
				s.send(serverFrame{Type: "agent:done"})
			}
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("Turn failed")
			s.sendError(err.Error())
		}
		if err := s.history.Save(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to persist chat history")
		}
	}()
}

// handlePreviewError drives the loop with a synthetic fix request,
// rate-limited so a crash-looping preview cannot spin the agent.
func (s *session) handlePreviewError(previewErr string) {
	if previewErr == "" {
		return
	}

	s.autoFixMu.Lock()
	allowed := time.Since(s.lastAutoFix) >= autoFixMinInterval &&
		s.autoFixCount < autoFixMaxPerConversation
	if allowed {
		s.lastAutoFix = time.Now()
		s.autoFixCount++
	}
	s.autoFixMu.Unlock()
	if !allowed {
		return
	}

	prompt := fmt.Sprintf("The preview is showing an error:\n\n%s\n\nPlease fix it.", previewErr)
	s.startTurn(prompt, fmt.Sprintf("[auto-fix] %s", previewErr))
}

func (s *session) resetAutoFix() {
	s.autoFixMu.Lock()
	s.autoFixCount = 0
	s.lastAutoFix = time.Time{}
	s.autoFixMu.Unlock()
}
