package builtintools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellToolAllowedCommand(t *testing.T) {
	tool := ShellTool()
	out, err := tool.Handler(context.Background(), map[string]any{"command": "echo hello"})
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestShellToolRejectsDisallowedCommand(t *testing.T) {
	tool := ShellTool()
	_, err := tool.Handler(context.Background(), map[string]any{"command": "rm -rf /"})
	assert.Error(t, err)
}

func TestShellToolRequiresCommand(t *testing.T) {
	tool := ShellTool()
	_, err := tool.Handler(context.Background(), map[string]any{})
	assert.Error(t, err)
}
