package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/vibelab/pkg/llm"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/types"
)

// FileChange reports a file the tool created or rewrote, so the caller
// can push the new content to the client.
type FileChange struct {
	Path    string
	Content string
}

// tool is one named operation: a JSON-schema input and a handler that
// returns a string payload.
type tool struct {
	name        string
	description string
	schema      json.RawMessage
	run         func(ctx context.Context, input json.RawMessage) (string, *FileChange, error)
}

// Registry holds the tool set for one project root. Every path input is
// resolved under the root; anything escaping it is rejected.
type Registry struct {
	root        string
	previewPort int
	logger      zerolog.Logger

	mu      sync.Mutex
	preview *previewProcess

	tools []tool
}

// New builds the registry rooted at the given project directory.
func New(root string) (*Registry, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	r := &Registry{
		root:        abs,
		previewPort: types.PreviewPort,
		logger:      log.WithComponent("tools"),
	}
	r.tools = []tool{
		r.readFileTool(),
		r.writeFileTool(),
		r.editFileTool(),
		r.listFilesTool(),
		r.searchFilesTool(),
		r.globTool(),
		r.grepTool(),
		r.bashTool(),
		r.restartPreviewTool(),
		r.gitStatusTool(),
	}
	return r, nil
}

// Root returns the project directory the registry is bound to.
func (r *Registry) Root() string {
	return r.root
}

// Specs returns the tool schema offered to the model.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, len(r.tools))
	for i, t := range r.tools {
		specs[i] = llm.ToolSpec{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.schema,
		}
	}
	return specs
}

// errJSON wraps a tool failure as the {"error": message} payload the
// model sees. Tool failures never abort the loop.
func errJSON(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}

// Execute runs the named tool. Errors come back as {"error": message}
// payloads, never as Go errors.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (string, *FileChange) {
	for _, t := range r.tools {
		if t.name != name {
			continue
		}
		result, change, err := t.run(ctx, input)
		if err != nil {
			r.logger.Debug().
				Str("tool", name).
				Err(err).
				Msg("Tool failed")
			return errJSON(err.Error()), nil
		}
		return result, change
	}
	return errJSON(fmt.Sprintf("unknown tool: %s", name)), nil
}

// resolve maps a tool-supplied path under the project root. Absolute
// paths and ../ escapes are rejected.
func (r *Registry) resolve(path string) (string, error) {
	if path == "" || path == "." {
		return r.root, nil
	}
	joined := filepath.Join(r.root, filepath.FromSlash(path))
	cleaned := filepath.Clean(joined)
	if cleaned != r.root && !strings.HasPrefix(cleaned, r.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes project root: %s", path)
	}
	return cleaned, nil
}

// relative maps an absolute path back to root-relative slash form.
func (r *Registry) relative(abs string) string {
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

func decodeInput(input json.RawMessage, out any) error {
	if len(input) == 0 {
		return nil
	}
	if err := json.Unmarshal(input, out); err != nil {
		return fmt.Errorf("invalid tool input: %v", err)
	}
	return nil
}
