package builtintools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherToolKnownCity(t *testing.T) {
	tool := WeatherTool()
	out, err := tool.Handler(context.Background(), map[string]any{"city": "London"})
	require.NoError(t, err)
	assert.Equal(t, "Weather in London: 12°C, cloudy.", out)
}

func TestWeatherToolCaseInsensitive(t *testing.T) {
	tool := WeatherTool()
	out, err := tool.Handler(context.Background(), map[string]any{"city": "tokyo"})
	require.NoError(t, err)
	assert.Equal(t, "Weather in Tokyo: 22°C, clear skies.", out)
}

func TestWeatherToolUnknownCity(t *testing.T) {
	tool := WeatherTool()
	_, err := tool.Handler(context.Background(), map[string]any{"city": "Atlantis"})
	assert.Error(t, err)
}

func TestWeatherToolMissingArg(t *testing.T) {
	tool := WeatherTool()
	_, err := tool.Handler(context.Background(), map[string]any{})
	assert.Error(t, err)
}
