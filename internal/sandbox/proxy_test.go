package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

func TestGenerateProxySourceEmptyRegistry(t *testing.T) {
	out := GenerateProxySource(nil, "localhost", 8989)
	assert.Contains(t, out, "class Tools:")
	assert.Contains(t, out, "pass")
	assert.Contains(t, out, `"http://localhost:8989/mcp_tool_call"`)
}

func TestGenerateProxySourceMethodPerTool(t *testing.T) {
	descriptors := []toolspec.Descriptor{
		{
			Name:        "get-weather",
			Description: "Get the weather.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"city": map[string]any{"type": "string"}},
			},
		},
	}
	out := GenerateProxySource(descriptors, "localhost", 8989)

	assert.Contains(t, out, "def get_weather(city):")
	assert.Contains(t, out, `_call_gateway("get-weather", city=city)`)
	assert.Contains(t, out, "Get the weather.")
}

func TestGenerateProxySourceSanitizesSlashes(t *testing.T) {
	descriptors := []toolspec.Descriptor{{Name: "fs/read_file"}}
	out := GenerateProxySource(descriptors, "localhost", 8989)
	assert.Contains(t, out, "def fs_read_file():")
}
