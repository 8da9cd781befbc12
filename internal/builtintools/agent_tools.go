package builtintools

import (
	"context"

	"github.com/kadirpekel/agentkernel/internal/agentstate"
	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// SystemPromptFunc produces the current system prompt for a
// newly-spawned agent. The tool handler re-evaluates this on every
// call rather than once at startup, since the tool interface it renders
// changes as tool servers come and go.
type SystemPromptFunc func() string

// SpawnAgentTool returns the spawn_agent built-in: creates a new
// READY child agent tracked under the calling agent, seeded with its
// own role and initial prompt plus a freshly rendered system prompt.
//
// The Kernel is responsible for threading the caller's id in as
// parentID before dispatch; the handler itself only needs the store.
func SpawnAgentTool(store *agentstate.Store, systemPrompt SystemPromptFunc) toolspec.Tool {
	return toolspec.Tool{
		Descriptor: toolspec.Descriptor{
			Name:        "spawn_agent",
			Description: "Spawn a new sub-agent with its own role and task prompt.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"role":   map[string]any{"type": "string"},
					"prompt": map[string]any{"type": "string"},
				},
				"required": []any{"role", "prompt"},
			},
			OutputSchema: map[string]any{
				"type":        "string",
				"description": "A unique agent_id handle.",
			},
			Origin: toolspec.OriginAgentOrchestration,
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			role, _ := args["role"].(string)
			prompt, _ := args["prompt"].(string)
			if role == "" || prompt == "" {
				return nil, &toolspec.ArgError{Msg: "role and prompt are required"}
			}
			parentID, _ := ctx.Value(parentAgentIDKey{}).(string)
			var parent *string
			if parentID != "" {
				parent = &parentID
			}
			agent := store.Create(role, prompt, systemPrompt(), parent)
			return agent.ID, nil
		},
	}
}

// LLMRequestTool returns the llm_request built-in: behaves exactly
// like spawn_agent but fixes the role to "LLM-Request", for a one-shot
// sub-query with no orchestration semantics attached to its role name.
func LLMRequestTool(store *agentstate.Store, systemPrompt SystemPromptFunc) toolspec.Tool {
	return toolspec.Tool{
		Descriptor: toolspec.Descriptor{
			Name:        "llm_request",
			Description: "Ask a one-off sub-question, run as its own tracked agent.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prompt": map[string]any{"type": "string"},
				},
				"required": []any{"prompt"},
			},
			OutputSchema: map[string]any{
				"type":        "string",
				"description": "A unique agent_id handle.",
			},
			Origin: toolspec.OriginAgentOrchestration,
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			prompt, _ := args["prompt"].(string)
			if prompt == "" {
				return nil, &toolspec.ArgError{Msg: "prompt is required"}
			}
			parentID, _ := ctx.Value(parentAgentIDKey{}).(string)
			var parent *string
			if parentID != "" {
				parent = &parentID
			}
			agent := store.Create("LLM-Request", prompt, systemPrompt(), parent)
			return agent.ID, nil
		},
	}
}

// parentAgentIDKey is the context key the Kernel sets to the id of the
// agent currently running its turn, so spawn_agent and llm_request can
// record a parent without threading it through every Handler signature.
type parentAgentIDKey struct{}

// WithParentAgentID attaches the calling agent's id to ctx.
func WithParentAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, parentAgentIDKey{}, agentID)
}
