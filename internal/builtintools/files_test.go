package builtintools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()
	write := WriteFileTool(dir)
	read := ReadFileTool(dir)

	_, err := write.Handler(context.Background(), map[string]any{"path": "notes.txt", "content": "line one\nline two\n"})
	require.NoError(t, err)

	out, err := read.Handler(context.Background(), map[string]any{"path": "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, "1: line one\n2: line two\n", out)
}

func TestWriteFileBacksUpExisting(t *testing.T) {
	dir := t.TempDir()
	write := WriteFileTool(dir)

	_, err := write.Handler(context.Background(), map[string]any{"path": "a.txt", "content": "v1"})
	require.NoError(t, err)
	_, err = write.Handler(context.Background(), map[string]any{"path": "a.txt", "content": "v2"})
	require.NoError(t, err)

	backup, err := os.ReadFile(filepath.Join(dir, "a.txt.bak"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(backup))
}

func TestWriteFileRejectsDisallowedExtension(t *testing.T) {
	dir := t.TempDir()
	write := WriteFileTool(dir)
	_, err := write.Handler(context.Background(), map[string]any{"path": "payload.exe", "content": "x"})
	assert.Error(t, err)
}

func TestReadFileRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	read := ReadFileTool(dir)
	_, err := read.Handler(context.Background(), map[string]any{"path": "../../etc/passwd"})
	assert.Error(t, err)
}

func TestReadFileRejectsAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	read := ReadFileTool(dir)
	_, err := read.Handler(context.Background(), map[string]any{"path": "/etc/passwd"})
	assert.Error(t, err)
}

func TestReadFileLineRange(t *testing.T) {
	dir := t.TempDir()
	write := WriteFileTool(dir)
	read := ReadFileTool(dir)

	_, err := write.Handler(context.Background(), map[string]any{"path": "lines.txt", "content": "a\nb\nc\nd\n"})
	require.NoError(t, err)

	out, err := read.Handler(context.Background(), map[string]any{"path": "lines.txt", "start_line": 2.0, "end_line": 3.0})
	require.NoError(t, err)
	assert.Equal(t, "2: b\n3: c\n", out)
}
