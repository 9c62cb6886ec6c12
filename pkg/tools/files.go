package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Directories never worth surfacing to the model.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	".next":        true,
}

func (r *Registry) readFileTool() tool {
	return tool{
		name:        "read_file",
		description: "Read a file from the project. The result is prefixed with 1-based line numbers.",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Project-relative file path"}
			},
			"required": ["path"]
		}`),
		run: func(ctx context.Context, input json.RawMessage) (string, *FileChange, error) {
			var req struct {
				Path string `json:"path"`
			}
			if err := decodeInput(input, &req); err != nil {
				return "", nil, err
			}
			abs, err := r.resolve(req.Path)
			if err != nil {
				return "", nil, err
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				return "", nil, fmt.Errorf("failed to read %s: %v", req.Path, err)
			}

			lines := strings.Split(string(data), "\n")
			var b strings.Builder
			for i, line := range lines {
				fmt.Fprintf(&b, "%d: %s\n", i+1, line)
			}
			return b.String(), nil, nil
		},
	}
}

func (r *Registry) writeFileTool() tool {
	return tool{
		name:        "write_file",
		description: "Create or overwrite a file. Parent directories are created as needed.",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Project-relative file path"},
				"content": {"type": "string", "description": "Full file content"}
			},
			"required": ["path", "content"]
		}`),
		run: func(ctx context.Context, input json.RawMessage) (string, *FileChange, error) {
			var req struct {
				Path    string `json:"path"`
				Content string `json:"content"`
			}
			if err := decodeInput(input, &req); err != nil {
				return "", nil, err
			}
			abs, err := r.resolve(req.Path)
			if err != nil {
				return "", nil, err
			}
			if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
				return "", nil, fmt.Errorf("failed to create directories for %s: %v", req.Path, err)
			}
			if err := os.WriteFile(abs, []byte(req.Content), 0644); err != nil {
				return "", nil, fmt.Errorf("failed to write %s: %v", req.Path, err)
			}

			result, _ := json.Marshal(map[string]any{
				"status": "ok",
				"path":   req.Path,
				"bytes":  len(req.Content),
			})
			return string(result), &FileChange{Path: req.Path, Content: req.Content}, nil
		},
	}
}

func (r *Registry) editFileTool() tool {
	return tool{
		name:        "edit_file",
		description: "Replace old_string with new_string in a file. old_string must occur exactly once.",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Project-relative file path"},
				"old_string": {"type": "string", "description": "Exact text to replace"},
				"new_string": {"type": "string", "description": "Replacement text"}
			},
			"required": ["path", "old_string", "new_string"]
		}`),
		run: func(ctx context.Context, input json.RawMessage) (string, *FileChange, error) {
			var req struct {
				Path      string `json:"path"`
				OldString string `json:"old_string"`
				NewString string `json:"new_string"`
			}
			if err := decodeInput(input, &req); err != nil {
				return "", nil, err
			}
			abs, err := r.resolve(req.Path)
			if err != nil {
				return "", nil, err
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				return "", nil, fmt.Errorf("failed to read %s: %v", req.Path, err)
			}

			content := string(data)
			switch count := strings.Count(content, req.OldString); {
			case count == 0:
				return "", nil, fmt.Errorf("old_string not found in %s", req.Path)
			case count > 1:
				return "", nil, fmt.Errorf("old_string occurs %d times in %s, must be unique", count, req.Path)
			}

			updated := strings.Replace(content, req.OldString, req.NewString, 1)
			if err := os.WriteFile(abs, []byte(updated), 0644); err != nil {
				return "", nil, fmt.Errorf("failed to write %s: %v", req.Path, err)
			}

			result, _ := json.Marshal(map[string]any{
				"status":       "ok",
				"path":         req.Path,
				"replacements": 1,
			})
			return string(result), &FileChange{Path: req.Path, Content: updated}, nil
		},
	}
}

func (r *Registry) listFilesTool() tool {
	return tool{
		name:        "list_files",
		description: "List files and directories up to two levels deep. Directories are suffixed with /.",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Project-relative directory, defaults to the root"}
			}
		}`),
		run: func(ctx context.Context, input json.RawMessage) (string, *FileChange, error) {
			var req struct {
				Path string `json:"path"`
			}
			if err := decodeInput(input, &req); err != nil {
				return "", nil, err
			}
			base, err := r.resolve(req.Path)
			if err != nil {
				return "", nil, err
			}

			var entries []string
			err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if path == base {
					return nil
				}
				rel, err := filepath.Rel(base, path)
				if err != nil {
					return nil
				}
				depth := strings.Count(rel, string(filepath.Separator)) + 1
				if d.IsDir() {
					if skipDirs[d.Name()] {
						return filepath.SkipDir
					}
					entries = append(entries, filepath.ToSlash(rel)+"/")
					if depth >= 2 {
						return filepath.SkipDir
					}
					return nil
				}
				if depth > 2 {
					return nil
				}
				entries = append(entries, filepath.ToSlash(rel))
				return nil
			})
			if err != nil {
				return "", nil, fmt.Errorf("failed to list %s: %v", req.Path, err)
			}
			sort.Strings(entries)
			return strings.Join(entries, "\n"), nil, nil
		},
	}
}
