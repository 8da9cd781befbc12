package builtintools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplyNumbersTool(t *testing.T) {
	tool := MultiplyNumbersTool()
	out, err := tool.Handler(context.Background(), map[string]any{"a": 6.0, "b": 7.0})
	require.NoError(t, err)
	assert.Equal(t, 42.0, out)
}

func TestMultiplyNumbersToolRejectsNonNumeric(t *testing.T) {
	tool := MultiplyNumbersTool()
	_, err := tool.Handler(context.Background(), map[string]any{"a": "six", "b": 7.0})
	assert.Error(t, err)
}
