package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const previewKillGrace = 3 * time.Second

// previewProcess is the dev-server child owned by this registry. It is
// terminated when the owning session ends.
type previewProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (r *Registry) restartPreviewTool() tool {
	return tool{
		name:        "restart_preview",
		description: "Restart the preview dev server. Use after changing config files that the dev server only reads at startup.",
		schema:      json.RawMessage(`{"type": "object", "properties": {}}`),
		run: func(ctx context.Context, input json.RawMessage) (string, *FileChange, error) {
			pid, err := r.RestartPreview()
			if err != nil {
				return "", nil, err
			}
			result, _ := json.Marshal(map[string]any{
				"status":  "ok",
				"message": fmt.Sprintf("dev server restarted on port %d", r.previewPort),
				"pid":     pid,
			})
			return string(result), nil, nil
		},
	}
}

// RestartPreview kills any previous dev-server child and launches a
// fresh one on the preview port. Returns the new pid.
func (r *Registry) RestartPreview() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopPreviewLocked()

	cmd := exec.Command("npm", "run", "dev")
	cmd.Dir = r.root
	cmd.Env = append(os.Environ(), fmt.Sprintf("PORT=%d", r.previewPort))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start dev server: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	r.preview = &previewProcess{cmd: cmd, done: done}

	r.logger.Info().
		Int("pid", cmd.Process.Pid).
		Int("port", r.previewPort).
		Msg("Preview dev server restarted")
	return cmd.Process.Pid, nil
}

// StopPreview terminates the dev-server child if one is running.
func (r *Registry) StopPreview() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopPreviewLocked()
}

// stopPreviewLocked sends SIGTERM, waits up to the grace period, then
// SIGKILLs. Caller holds r.mu.
func (r *Registry) stopPreviewLocked() {
	p := r.preview
	if p == nil || p.cmd.Process == nil {
		return
	}
	r.preview = nil

	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(previewKillGrace):
		_ = p.cmd.Process.Kill()
		<-p.done
	}
}
