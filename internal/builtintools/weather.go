package builtintools

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// knownWeather is the canned lookup table the reference tool ships
// with: a handful of cities, nothing more.
var knownWeather = map[string]string{
	"london": "Weather in London: 12°C, cloudy.",
	"tokyo":  "Weather in Tokyo: 22°C, clear skies.",
}

// WeatherTool returns the get_weather built-in: a deliberately tiny
// lookup used to demonstrate tool dispatch without any outbound
// network dependency.
func WeatherTool() toolspec.Tool {
	return toolspec.Tool{
		Descriptor: toolspec.Descriptor{
			Name:        "get_weather",
			Description: "Get the current weather for a known city.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{"type": "string", "description": "City name."},
				},
				"required": []any{"city"},
			},
			Origin: toolspec.OriginInternal,
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			city, ok := args["city"].(string)
			if !ok || city == "" {
				return nil, &toolspec.ArgError{Msg: "city must be a non-empty string"}
			}
			report, ok := knownWeather[strings.ToLower(strings.TrimSpace(city))]
			if !ok {
				return nil, fmt.Errorf("no weather data available for city: %s", city)
			}
			return report, nil
		},
	}
}
