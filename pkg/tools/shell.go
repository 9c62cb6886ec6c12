package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultCommandTimeout = 30 * time.Second
	maxCommandOutput      = 50000
)

// Command fragments that are never allowed, checked before launch.
var deniedPatterns = []string{
	"rm -rf /",
	"mkfs",
	"dd if=",
	">/dev/sd",
	"> /dev/sd",
}

func deniedCommand(command string) bool {
	for _, pattern := range deniedPatterns {
		if strings.Contains(command, pattern) {
			return true
		}
	}
	return false
}

func (r *Registry) bashTool() tool {
	return tool{
		name:        "bash_command",
		description: "Run a shell command in the project root. Output is truncated to 50000 characters.",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"command": {"type": "string", "description": "Shell command to run"},
				"timeout_ms": {"type": "integer", "description": "Timeout in milliseconds, default 30000"}
			},
			"required": ["command"]
		}`),
		run: func(ctx context.Context, input json.RawMessage) (string, *FileChange, error) {
			var req struct {
				Command   string `json:"command"`
				TimeoutMS int    `json:"timeout_ms"`
			}
			if err := decodeInput(input, &req); err != nil {
				return "", nil, err
			}
			if req.Command == "" {
				return "", nil, fmt.Errorf("command is required")
			}
			if deniedCommand(req.Command) {
				return "", nil, fmt.Errorf("command blocked by safety policy")
			}

			timeout := defaultCommandTimeout
			if req.TimeoutMS > 0 {
				timeout = time.Duration(req.TimeoutMS) * time.Millisecond
			}
			cmdCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			// CommandContext delivers SIGKILL when the deadline fires.
			cmd := exec.CommandContext(cmdCtx, "sh", "-c", req.Command)
			cmd.Dir = r.root

			var buf bytes.Buffer
			cmd.Stdout = &buf
			cmd.Stderr = &buf
			err := cmd.Run()

			output := buf.String()
			if len(output) > maxCommandOutput {
				output = output[:maxCommandOutput] + "\n[output truncated]"
			}

			exitCode := 0
			if err != nil {
				exitCode = -1
				if ee, ok := err.(*exec.ExitError); ok {
					exitCode = ee.ExitCode()
				}
			}
			if cmdCtx.Err() == context.DeadlineExceeded {
				exitCode = -1
				output = fmt.Sprintf("[timeout after %dms] %s", timeout.Milliseconds(), output)
			}

			result, _ := json.Marshal(map[string]any{
				"exit_code": exitCode,
				"output":    output,
			})
			return string(result), nil, nil
		},
	}
}

func (r *Registry) gitStatusTool() tool {
	return tool{
		name:        "git_status",
		description: "Show the working tree status in short format.",
		schema:      json.RawMessage(`{"type": "object", "properties": {}}`),
		run: func(ctx context.Context, input json.RawMessage) (string, *FileChange, error) {
			cmd := exec.CommandContext(ctx, "git", "status", "--short")
			cmd.Dir = r.root
			out, err := cmd.Output()
			if err != nil {
				return "", nil, fmt.Errorf("git status failed: %v", err)
			}
			if len(bytes.TrimSpace(out)) == 0 {
				return "(clean)", nil, nil
			}
			return string(out), nil, nil
		},
	}
}
