package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/kadirpekel/agentkernel/internal/mcpserver"
	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// mcpProvider is the subset of *mcpserver.Manager the Tool Registry
// depends on, kept as an interface so tests can substitute a fake
// without spawning real child processes.
type mcpProvider interface {
	HasTool(name string) bool
	Dispatch(ctx context.Context, name string, args map[string]any) (*mcpserver.CallResult, error)
	AllToolsMetadata() []toolspec.Descriptor
}

// ToolRegistry is the uniform metadata and dispatch table combining
// in-process tool implementations and the tools published by the Tool
// Server Manager's child servers. It is the single thing both the
// Kernel and the Tool Gateway hold a reference to.
type ToolRegistry struct {
	internal *Table[toolspec.Tool]
	mcp      mcpProvider
}

// NewToolRegistry creates a registry over the given MCP provider. mcp
// may be nil if no tool servers are configured.
func NewToolRegistry(mcp mcpProvider) *ToolRegistry {
	return &ToolRegistry{internal: New[toolspec.Tool](), mcp: mcp}
}

// RegisterInternal adds an in-process tool. Called once per built-in
// tool at startup; the in-process table is immutable thereafter.
func (r *ToolRegistry) RegisterInternal(t toolspec.Tool) error {
	return r.internal.Add(t.Descriptor.Name, t)
}

// HasTool reports whether name is resolvable, internally or via a tool
// server, without actually invoking it.
func (r *ToolRegistry) HasTool(name string) bool {
	if _, ok := r.internal.Get(name); ok {
		return true
	}
	return r.mcp != nil && r.mcp.HasTool(name)
}

// AllDescriptors returns the metadata for every tool in the registry,
// internal and MCP-published alike; used by the Sandbox Runner to
// generate the proxy source and by prompt rendering.
func (r *ToolRegistry) AllDescriptors() []toolspec.Descriptor {
	out := make([]toolspec.Descriptor, 0, r.internal.Len())
	for _, t := range r.internal.List() {
		out = append(out, t.Descriptor)
	}
	if r.mcp != nil {
		out = append(out, r.mcp.AllToolsMetadata()...)
	}
	return out
}

// Dispatch resolves arguments against name and returns the uniform
// Tool Result Envelope the Kernel appends to history. ok is false only
// when name is not found in either table.
func (r *ToolRegistry) Dispatch(ctx context.Context, name string, args map[string]any) (envelope toolspec.Envelope, ok bool) {
	if t, found := r.internal.Get(name); found {
		output, err := t.Handler(ctx, args)
		if err != nil {
			return toolspec.Failure("%s", err.Error()), true
		}
		return toolspec.Success(output), true
	}

	if r.mcp == nil || !r.mcp.HasTool(name) {
		return toolspec.Envelope{}, false
	}

	result, err := r.mcp.Dispatch(ctx, name, args)
	if err != nil {
		return toolspec.Failure("%s", err.Error()), true
	}
	if result.IsError {
		return toolspec.Failure("%s", firstText(result.Content)), true
	}
	if len(result.Content) == 1 && result.Content[0].Type == "text" {
		return toolspec.Success(result.Content[0].Text), true
	}
	return toolspec.Success(result.Content), true
}

// GatewayDispatch resolves name the way the Tool Gateway needs to: the
// raw MCP-style content envelope for an MCP tool, or a synthesized one
// for an internal tool, without unwrapping single-text results the way
// Dispatch does for Kernel consumption. found is false when name is
// unknown anywhere (the Gateway's 404 case).
func (r *ToolRegistry) GatewayDispatch(ctx context.Context, name string, args map[string]any) (result *mcpserver.CallResult, argErr bool, execErr error, found bool) {
	if t, ok := r.internal.Get(name); ok {
		output, err := t.Handler(ctx, args)
		if err != nil {
			var ae *toolspec.ArgError
			if errors.As(err, &ae) {
				return nil, true, err, true
			}
			return nil, false, err, true
		}
		return &mcpserver.CallResult{
			Content: []mcpserver.ContentItem{{Type: "text", Text: fmt.Sprint(output)}},
			IsError: false,
		}, false, nil, true
	}

	if r.mcp == nil || !r.mcp.HasTool(name) {
		return nil, false, nil, false
	}
	res, err := r.mcp.Dispatch(ctx, name, args)
	if err != nil {
		return nil, false, err, true
	}
	return res, false, nil, true
}

func firstText(content []mcpserver.ContentItem) string {
	if len(content) == 0 {
		return "Unknown MCP tool error"
	}
	return content[0].Text
}
