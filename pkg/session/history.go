package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// historyMessage is one displayed chat message. Only user prompts and
// final assistant text are persisted; thinking chunks and tool traffic
// are not.
type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// history is the persisted chat transcript for one workspace, replayed
// on reconnect.
type history struct {
	mu       sync.Mutex
	path     string
	messages []historyMessage
}

func newHistory(path string) *history {
	h := &history{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return h
	}
	// A corrupt history file starts the transcript over.
	_ = json.Unmarshal(data, &h.messages)
	return h
}

func (h *history) Messages() []historyMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]historyMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *history) Append(m historyMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, m)
}

func (h *history) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
	_ = os.Remove(h.path)
}

// Save writes the transcript with the temp-file and rename protocol.
func (h *history) Save() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(h.messages, "", "  ")
	if err != nil {
		return err
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, h.path)
}
