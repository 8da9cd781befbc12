package builtintools

import (
	"context"

	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// MultiplyNumbersTool returns the multiply_numbers built-in, a
// minimal example of a typed, argument-validating internal tool.
func MultiplyNumbersTool() toolspec.Tool {
	return toolspec.Tool{
		Descriptor: toolspec.Descriptor{
			Name:        "multiply_numbers",
			Description: "Multiply two numbers together.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"a": map[string]any{"type": "number"},
					"b": map[string]any{"type": "number"},
				},
				"required": []any{"a", "b"},
			},
			Origin: toolspec.OriginInternal,
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			a, aOK := toFloat(args["a"])
			b, bOK := toFloat(args["b"])
			if !aOK || !bOK {
				return nil, &toolspec.ArgError{Msg: "a and b must both be numbers"}
			}
			return a * b, nil
		},
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
