package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# foo\n\nuse foo here\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "lib"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.ts"), []byte("console.log('hi')\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "lib", "util.ts"), []byte("export const x = 1\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg", "index.js"), []byte("secret foo\n"), 0644))

	r, err := New(root)
	require.NoError(t, err)
	return r
}

func run(t *testing.T, r *Registry, name string, input map[string]any) (string, *FileChange) {
	t.Helper()
	raw, err := json.Marshal(input)
	require.NoError(t, err)
	return r.Execute(context.Background(), name, raw)
}

func TestSpecsCoverEveryTool(t *testing.T) {
	r := newTestRegistry(t)
	specs := r.Specs()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
		assert.NotEmpty(t, s.Description)
		assert.NotEmpty(t, s.InputSchema)
	}
	assert.ElementsMatch(t, []string{
		"read_file", "write_file", "edit_file", "list_files",
		"search_files", "glob", "grep", "bash_command",
		"restart_preview", "git_status",
	}, names)
}

func TestPathTraversalRejected(t *testing.T) {
	r := newTestRegistry(t)
	for _, path := range []string{"../outside.txt", "src/../../etc/passwd", "/etc/passwd"} {
		result, change := run(t, r, "read_file", map[string]any{"path": path})
		assert.Nil(t, change)
		assert.Contains(t, result, "error", path)
	}
}

func TestReadFileLineNumbers(t *testing.T) {
	r := newTestRegistry(t)
	result, change := run(t, r, "read_file", map[string]any{"path": "README.md"})
	assert.Nil(t, change)
	assert.Contains(t, result, "1: # foo")
	assert.Contains(t, result, "3: use foo here")

	result, _ = run(t, r, "read_file", map[string]any{"path": "missing.md"})
	assert.Contains(t, result, "error")
}

func TestWriteFileCreatesParents(t *testing.T) {
	r := newTestRegistry(t)
	result, change := run(t, r, "write_file", map[string]any{
		"path":    "deep/nested/new.txt",
		"content": "hello",
	})
	require.NotNil(t, change)
	assert.Equal(t, "deep/nested/new.txt", change.Path)
	assert.Equal(t, "hello", change.Content)

	var resp struct {
		Status string `json:"status"`
		Bytes  int    `json:"bytes"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 5, resp.Bytes)

	data, err := os.ReadFile(filepath.Join(r.Root(), "deep", "nested", "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestEditFileUniqueness(t *testing.T) {
	r := newTestRegistry(t)

	// "# foo" occurs once.
	result, change := run(t, r, "edit_file", map[string]any{
		"path": "README.md", "old_string": "# foo", "new_string": "# bar",
	})
	require.NotNil(t, change)
	assert.Contains(t, change.Content, "# bar")
	assert.Contains(t, result, `"replacements":1`)

	// Zero occurrences.
	result, change = run(t, r, "edit_file", map[string]any{
		"path": "README.md", "old_string": "absent", "new_string": "x",
	})
	assert.Nil(t, change)
	assert.Contains(t, result, "not found")

	// Two occurrences of "foo" remain ("use foo here" only has one now;
	// write a file with two).
	_, _ = run(t, r, "write_file", map[string]any{"path": "two.txt", "content": "a a"})
	result, change = run(t, r, "edit_file", map[string]any{
		"path": "two.txt", "old_string": "a", "new_string": "b",
	})
	assert.Nil(t, change)
	assert.Contains(t, result, "must be unique")
}

func TestEditFileIdenticalStringsIsNoOp(t *testing.T) {
	r := newTestRegistry(t)
	before, err := os.ReadFile(filepath.Join(r.Root(), "src", "main.ts"))
	require.NoError(t, err)

	_, change := run(t, r, "edit_file", map[string]any{
		"path": "src/main.ts", "old_string": "console.log", "new_string": "console.log",
	})
	require.NotNil(t, change)

	after, err := os.ReadFile(filepath.Join(r.Root(), "src", "main.ts"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestListFilesDepthAndSuffix(t *testing.T) {
	r := newTestRegistry(t)
	result, _ := run(t, r, "list_files", map[string]any{})
	assert.Contains(t, result, "README.md")
	assert.Contains(t, result, "src/")
	assert.Contains(t, result, "src/lib/")
	assert.Contains(t, result, "src/main.ts")
	// Depth 3 entries are pruned.
	assert.NotContains(t, result, "util.ts")
	assert.NotContains(t, result, "node_modules")
}

func TestSearchFilesSkipsVendoredDirs(t *testing.T) {
	r := newTestRegistry(t)
	result, _ := run(t, r, "search_files", map[string]any{"pattern": "foo"})
	assert.Contains(t, result, "README.md:3: use foo here")
	assert.NotContains(t, result, "node_modules")
}

func TestGlobIgnoresVendoredDirs(t *testing.T) {
	r := newTestRegistry(t)
	result, _ := run(t, r, "glob", map[string]any{"pattern": "**/*.ts"})
	assert.Contains(t, result, "src/main.ts")
	assert.Contains(t, result, "src/lib/util.ts")

	result, _ = run(t, r, "glob", map[string]any{"pattern": "**/*.js"})
	assert.Equal(t, "no matches", result)
}

func TestBashCommand(t *testing.T) {
	r := newTestRegistry(t)
	result, _ := run(t, r, "bash_command", map[string]any{"command": "echo hello"})

	var resp struct {
		ExitCode int    `json:"exit_code"`
		Output   string `json:"output"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &resp))
	assert.Equal(t, 0, resp.ExitCode)
	assert.Equal(t, "hello\n", resp.Output)
}

func TestBashCommandDenylist(t *testing.T) {
	r := newTestRegistry(t)
	for _, command := range []string{
		"rm -rf /",
		"mkfs.ext4 /dev/sda1",
		"dd if=/dev/zero of=/dev/sda",
		"echo x > /dev/sda1",
	} {
		result, _ := run(t, r, "bash_command", map[string]any{"command": command})
		assert.Contains(t, result, "blocked", command)
	}
}

func TestBashCommandTimeout(t *testing.T) {
	r := newTestRegistry(t)
	result, _ := run(t, r, "bash_command", map[string]any{
		"command":    "sleep 5",
		"timeout_ms": 100,
	})

	var resp struct {
		ExitCode int    `json:"exit_code"`
		Output   string `json:"output"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &resp))
	assert.Equal(t, -1, resp.ExitCode)
	assert.True(t, strings.HasPrefix(resp.Output, "[timeout after 100ms]"), resp.Output)
}

func TestUnknownTool(t *testing.T) {
	r := newTestRegistry(t)
	result, change := r.Execute(context.Background(), "nope", nil)
	assert.Nil(t, change)
	assert.Contains(t, result, "unknown tool")
}
