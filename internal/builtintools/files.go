package builtintools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// validatePath rejects absolute paths and any path that escapes the
// given root via "..", the same two checks the reference file tools
// apply before ever touching the filesystem.
func validatePath(root, path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", path)
	}
	joined := filepath.Join(root, path)
	cleanRoot := filepath.Clean(root)
	if joined != cleanRoot && !strings.HasPrefix(joined, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes working directory: %s", path)
	}
	return joined, nil
}

// ReadFileTool returns the read_file built-in: reads a file relative to
// root, optionally restricted to a line range, rendering output with
// leading line numbers.
func ReadFileTool(root string) toolspec.Tool {
	return toolspec.Tool{
		Descriptor: toolspec.Descriptor{
			Name:        "read_file",
			Description: "Read a text file, optionally a line range, with line numbers.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":       map[string]any{"type": "string"},
					"start_line": map[string]any{"type": "integer"},
					"end_line":   map[string]any{"type": "integer"},
				},
				"required": []any{"path"},
			},
			Origin: toolspec.OriginInternal,
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			path, _ := args["path"].(string)
			if path == "" {
				return nil, &toolspec.ArgError{Msg: "path is required"}
			}
			resolved, err := validatePath(root, path)
			if err != nil {
				return nil, &toolspec.ArgError{Msg: err.Error()}
			}

			start, end := intArg(args, "start_line", 0), intArg(args, "end_line", 0)

			f, err := os.Open(resolved)
			if err != nil {
				return nil, fmt.Errorf("read_file: %w", err)
			}
			defer f.Close()

			var b strings.Builder
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
			lineNo := 0
			for scanner.Scan() {
				lineNo++
				if start > 0 && lineNo < start {
					continue
				}
				if end > 0 && lineNo > end {
					break
				}
				fmt.Fprintf(&b, "%d: %s\n", lineNo, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("read_file: %w", err)
			}
			return b.String(), nil
		},
	}
}

var allowedWriteExtensions = map[string]bool{
	".py": true, ".txt": true, ".md": true, ".json": true,
	".yaml": true, ".yml": true, ".csv": true, ".html": true,
}

// WriteFileTool returns the write_file built-in: writes content to a
// path relative to root, backing up any existing file to "<path>.bak"
// before overwriting it, and refusing extensions outside the allow list.
func WriteFileTool(root string) toolspec.Tool {
	return toolspec.Tool{
		Descriptor: toolspec.Descriptor{
			Name:        "write_file",
			Description: "Write text content to a file, backing up any existing file first.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":    map[string]any{"type": "string"},
					"content": map[string]any{"type": "string"},
				},
				"required": []any{"path", "content"},
			},
			Origin: toolspec.OriginInternal,
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			path, _ := args["path"].(string)
			content, ok := args["content"].(string)
			if path == "" || !ok {
				return nil, &toolspec.ArgError{Msg: "path and content are required"}
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != "" && !allowedWriteExtensions[ext] {
				return nil, &toolspec.ArgError{Msg: fmt.Sprintf("extension %q is not allowed", ext)}
			}
			resolved, err := validatePath(root, path)
			if err != nil {
				return nil, &toolspec.ArgError{Msg: err.Error()}
			}

			if existing, err := os.ReadFile(resolved); err == nil {
				if err := os.WriteFile(resolved+".bak", existing, 0o644); err != nil {
					return nil, fmt.Errorf("write_file: backup failed: %w", err)
				}
			}

			if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
				return nil, fmt.Errorf("write_file: %w", err)
			}
			if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
				return nil, fmt.Errorf("write_file: %w", err)
			}
			return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
		},
	}
}

func intArg(args map[string]any, key string, def int) int {
	v, ok := toFloat(args[key])
	if !ok {
		return def
	}
	return int(v)
}
