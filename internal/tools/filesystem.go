package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sandevgo/ivorybot/internal/core"
)

const maxReadBytes = 64 * 1024

// Filesystem gives the model read-only access to files under a single root
// directory. Paths are resolved relative to the root and may never escape
// it.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) *Filesystem {
	return &Filesystem{root: filepath.Clean(root)}
}

func (f *Filesystem) Definition() core.ToolDefinition {
	return core.ToolDefinition{
		Name:        "filesystem",
		Description: "Read-only access to the knowledge directory: list directories, read files, search file contents.",
		Parameters: core.Schema{
			Type: "object",
			Properties: map[string]core.Property{
				"operation": {
					Type: "string",
					Enum: []string{"list_dir", "read_file", "search_files"},
				},
				"path": {
					Type:        "string",
					Description: "Path relative to the knowledge root; defaults to the root itself",
				},
				"query": {
					Type:        "string",
					Description: "Substring to search for (search_files only)",
				},
			},
			Required: []string{"operation"},
		},
	}
}

func (f *Filesystem) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	op := StringParam(params, "operation")
	rel := StringParam(params, "path")

	abs, err := f.resolve(rel)
	if err != nil {
		return nil, err
	}

	switch op {
	case "list_dir":
		return f.listDir(rel, abs)
	case "read_file":
		return f.readFile(rel, abs)
	case "search_files":
		query := StringParam(params, "query")
		if query == "" {
			return nil, core.NewToolError(core.FailInvalidParameters, "search_files requires a query")
		}
		return f.searchFiles(abs, query)
	default:
		return nil, core.NewToolError(core.FailInvalidParameters, "unknown filesystem operation: %s", op)
	}
}

// resolve maps a relative request path onto the root and rejects anything
// that would climb out of it.
func (f *Filesystem) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", core.NewToolError(core.FailInvalidParameters, "absolute paths are not allowed")
	}
	abs := filepath.Clean(filepath.Join(f.root, rel))
	if abs != f.root && !strings.HasPrefix(abs, f.root+string(filepath.Separator)) {
		return "", core.NewToolError(core.FailInvalidParameters, "path escapes the knowledge root: %s", rel)
	}
	return abs, nil
}

func (f *Filesystem) listDir(rel, abs string) (map[string]any, error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewToolError(core.FailNotFound, "directory not found: %s", rel)
		}
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		item := map[string]any{"name": e.Name(), "is_dir": e.IsDir()}
		if info, err := e.Info(); err == nil && !e.IsDir() {
			item["size"] = info.Size()
		}
		items = append(items, item)
	}
	return map[string]any{"path": rel, "entries": items, "count": len(items)}, nil
}

func (f *Filesystem) readFile(rel, abs string) (map[string]any, error) {
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewToolError(core.FailNotFound, "file not found: %s", rel)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, core.NewToolError(core.FailInvalidParameters, "%s is a directory", rel)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	truncated := false
	if len(data) > maxReadBytes {
		data = data[:maxReadBytes]
		truncated = true
	}

	return map[string]any{
		"path":      rel,
		"content":   string(data),
		"size":      info.Size(),
		"truncated": truncated,
	}, nil
}

func (f *Filesystem) searchFiles(abs, query string) (map[string]any, error) {
	q := strings.ToLower(query)
	var matches []map[string]any

	err := filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxReadBytes {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		content := strings.ToLower(string(data))
		idx := strings.Index(content, q)
		if idx < 0 {
			return nil
		}

		line := 1 + strings.Count(content[:idx], "\n")
		rel, _ := filepath.Rel(f.root, path)
		matches = append(matches, map[string]any{"path": rel, "line": line})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewToolError(core.FailNotFound, "search path not found")
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return map[string]any{"query": query, "matches": matches, "count": len(matches)}, nil
}
