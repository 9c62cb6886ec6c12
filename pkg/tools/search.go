package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

func (r *Registry) searchFilesTool() tool {
	return tool{
		name:        "search_files",
		description: "Search file contents for a substring. Results are file:line: match, one per line.",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {"type": "string", "description": "Substring to search for"},
				"path": {"type": "string", "description": "Project-relative directory, defaults to the root"}
			},
			"required": ["pattern"]
		}`),
		run: func(ctx context.Context, input json.RawMessage) (string, *FileChange, error) {
			var req struct {
				Pattern string `json:"pattern"`
				Path    string `json:"path"`
			}
			if err := decodeInput(input, &req); err != nil {
				return "", nil, err
			}
			if req.Pattern == "" {
				return "", nil, fmt.Errorf("pattern is required")
			}
			base, err := r.resolve(req.Path)
			if err != nil {
				return "", nil, err
			}

			matches, err := r.scanFiles(base, req.Pattern)
			if err != nil {
				return "", nil, err
			}
			if len(matches) == 0 {
				return "no matches", nil, nil
			}
			return strings.Join(matches, "\n"), nil, nil
		},
	}
}

// scanFiles walks base line by line looking for a literal substring.
func (r *Registry) scanFiles(base, pattern string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			if strings.Contains(scanner.Text(), pattern) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s",
					r.relative(path), line, strings.TrimSpace(scanner.Text())))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %v", err)
	}
	return matches, nil
}

func (r *Registry) globTool() tool {
	return tool{
		name:        "glob",
		description: "Find files by glob pattern, ** supported. Results are newline-joined project-relative paths.",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {"type": "string", "description": "Glob pattern, e.g. src/**/*.ts"},
				"path": {"type": "string", "description": "Project-relative directory, defaults to the root"}
			},
			"required": ["pattern"]
		}`),
		run: func(ctx context.Context, input json.RawMessage) (string, *FileChange, error) {
			var req struct {
				Pattern string `json:"pattern"`
				Path    string `json:"path"`
			}
			if err := decodeInput(input, &req); err != nil {
				return "", nil, err
			}
			if req.Pattern == "" {
				return "", nil, fmt.Errorf("pattern is required")
			}
			base, err := r.resolve(req.Path)
			if err != nil {
				return "", nil, err
			}

			found, err := doublestar.Glob(os.DirFS(base), req.Pattern)
			if err != nil {
				return "", nil, fmt.Errorf("invalid glob pattern: %v", err)
			}

			var kept []string
			for _, m := range found {
				if isIgnored(m) {
					continue
				}
				kept = append(kept, m)
			}
			if len(kept) == 0 {
				return "no matches", nil, nil
			}
			return strings.Join(kept, "\n"), nil, nil
		},
	}
}

func isIgnored(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if part == "node_modules" || part == ".git" {
			return true
		}
	}
	return false
}

func (r *Registry) grepTool() tool {
	return tool{
		name:        "grep",
		description: "Regex search with ripgrep. Results are file:line:content with project-relative paths.",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {"type": "string", "description": "Regular expression"},
				"path": {"type": "string", "description": "Project-relative directory, defaults to the root"},
				"context": {"type": "integer", "description": "Lines of context around each match"}
			},
			"required": ["pattern"]
		}`),
		run: func(ctx context.Context, input json.RawMessage) (string, *FileChange, error) {
			var req struct {
				Pattern string `json:"pattern"`
				Path    string `json:"path"`
				Context int    `json:"context"`
			}
			if err := decodeInput(input, &req); err != nil {
				return "", nil, err
			}
			if req.Pattern == "" {
				return "", nil, fmt.Errorf("pattern is required")
			}
			base, err := r.resolve(req.Path)
			if err != nil {
				return "", nil, err
			}

			if _, err := exec.LookPath("rg"); err != nil {
				// No ripgrep in the image, fall back to the literal scanner.
				matches, err := r.scanFiles(base, req.Pattern)
				if err != nil {
					return "", nil, err
				}
				if len(matches) == 0 {
					return "no matches", nil, nil
				}
				return strings.Join(matches, "\n"), nil, nil
			}

			args := []string{"--line-number", "--no-heading", "--color", "never"}
			if req.Context > 0 {
				args = append(args, "--context", strconv.Itoa(req.Context))
			}
			args = append(args, req.Pattern, base)

			out, err := exec.CommandContext(ctx, "rg", args...).Output()
			if err != nil {
				if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 {
					return "no matches", nil, nil
				}
				return "", nil, fmt.Errorf("grep failed: %v", err)
			}

			// rg prints absolute paths when given an absolute base.
			lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
			for i, line := range lines {
				lines[i] = strings.TrimPrefix(line, r.root+string(filepath.Separator))
			}
			return strings.Join(lines, "\n"), nil, nil
		},
	}
}
