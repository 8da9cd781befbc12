// Package kernel implements the Agent Kernel: the cooperative
// turn-based scheduler that advances one agent one step per call,
// parses tool directives out of LLM output, executes tool batches with
// inter-call dataflow, and transitions agent lifecycle states.
package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kadirpekel/agentkernel/internal/agentstate"
	"github.com/kadirpekel/agentkernel/internal/builtintools"
	"github.com/kadirpekel/agentkernel/internal/llmtransport"
	"github.com/kadirpekel/agentkernel/internal/sandbox"
	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// Dispatcher is the subset of *registry.ToolRegistry the Kernel needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) (toolspec.Envelope, bool)
	AllDescriptors() []toolspec.Descriptor
}

// LLM is the subset of *llmtransport.Client the Kernel needs, kept as
// an interface so tests can substitute a fake model without a network
// round trip.
type LLM interface {
	CompleteStreaming(ctx context.Context, messages []llmtransport.ChatMessage, onChunk llmtransport.ChunkFunc) (string, error)
	Complete(ctx context.Context, messages []llmtransport.ChatMessage) (string, error)
}

// SandboxRunner is the subset of *sandbox.Runner the Kernel needs.
type SandboxRunner interface {
	Execute(ctx context.Context, code string, descriptors []toolspec.Descriptor, mode sandbox.Mode) (sandbox.Result, error)
}

// ConfirmFunc asks the UI layer whether a tool call should proceed.
// When AutoAcceptCode is set, the Kernel skips this hook for
// execute_python_code calls only.
type ConfirmFunc func(call toolspec.Call) bool

// SystemPromptFunc renders the current system prompt for a role.
type SystemPromptFunc func(role string) string

const (
	toolWaitForAgents     = "wait_for_agents"
	toolSpawnAgent        = "spawn_agent"
	toolLLMRequest        = "llm_request"
	toolExecutePythonCode = "execute_python_code"
)

// Kernel drives RunTurn for every agent the Orchestrator selects.
type Kernel struct {
	Registry       Dispatcher
	Store          *agentstate.Store
	LLM            LLM
	Sandbox        SandboxRunner
	Confirm        ConfirmFunc
	SystemPrompt   SystemPromptFunc
	AutoAcceptCode bool
	ToolTagStart   string
	ToolTagEnd     string
	StreamToUser   func(chunk string)
	Logger         *slog.Logger
}

// New builds a Kernel. Tag strings default to "<tool>"/"</tool>" when
// empty, per spec §4.1.
func New(registry Dispatcher, store *agentstate.Store, llm LLM, sb SandboxRunner, confirm ConfirmFunc, systemPrompt SystemPromptFunc, autoAcceptCode bool, tagStart, tagEnd string, streamToUser func(string), logger *slog.Logger) *Kernel {
	if tagStart == "" {
		tagStart = "<tool>"
	}
	if tagEnd == "" {
		tagEnd = "</tool>"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Kernel{
		Registry: registry, Store: store, LLM: llm, Sandbox: sb,
		Confirm: confirm, SystemPrompt: systemPrompt, AutoAcceptCode: autoAcceptCode,
		ToolTagStart: tagStart, ToolTagEnd: tagEnd, StreamToUser: streamToUser, Logger: logger,
	}
}

func (k *Kernel) toolContentPattern() *regexp.Regexp {
	return regexp.MustCompile("(?s)" + regexp.QuoteMeta(k.ToolTagStart) + "(.*?)" + regexp.QuoteMeta(k.ToolTagEnd))
}

// RunTurn advances agent by exactly one LLM turn, per spec §4.1.
// agent.Status must be READY on entry.
func (k *Kernel) RunTurn(ctx context.Context, agent *agentstate.Agent) {
	k.Store.SetStatus(agent.ID, agentstate.StatusRunning)
	agent.Status = agentstate.StatusRunning
	agent.RefreshSystemPrompt(k.SystemPrompt(agent.Role))

	messages := toChatMessages(agent.History)

	var response string
	var err error
	if agent.IsMain {
		response, err = k.LLM.CompleteStreaming(ctx, messages, k.StreamToUser)
	} else {
		response, err = k.LLM.Complete(ctx, messages)
	}
	if err != nil {
		k.Logger.Error("llm transport failure", "agent", agent.ID, "error", err)
		agent.AppendAssistant(fmt.Sprintf("I encountered an error talking to the model: %v", err))
		k.finish(agent, agentstate.StatusDone)
		return
	}

	toolBlock, found := k.extractToolContent(response)
	if !found {
		agent.AppendAssistant(response)
		k.finish(agent, agentstate.StatusDone)
		return
	}

	agent.AppendAssistant(response)

	var calls []toolspec.Call
	if err := json.Unmarshal([]byte(toolBlock), &calls); err != nil {
		agent.AppendUser(fmt.Sprintf("TOOL_EXECUTION_RESULT:\nFailed to parse tool call JSON: %v", err))
		k.finish(agent, agentstate.StatusReady)
		return
	}

	results, finalStatus := k.executeBatch(ctx, agent, calls)

	payload, _ := json.MarshalIndent(results, "", "  ")
	agent.AppendUser("TOOL_EXECUTION_RESULT:\n```json\n" + string(payload) + "\n```")

	k.finish(agent, finalStatus)
}

func (k *Kernel) finish(agent *agentstate.Agent, status agentstate.Status) {
	agent.Status = status
	k.Store.SetStatus(agent.ID, status)
}

// extractToolContent finds the single tool block delimited by the
// configured tags, per spec §4.1 step 3.
func (k *Kernel) extractToolContent(response string) (string, bool) {
	m := k.toolContentPattern().FindStringSubmatch(response)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

type callResultRecord struct {
	CallID string          `json:"call_id"`
	Result toolspec.Envelope `json:"result"`
}

// executeBatch runs every call in order, resolving $ref substitutions
// against prior results in the same batch, per spec §4.1's tool batch
// execution section.
func (k *Kernel) executeBatch(ctx context.Context, agent *agentstate.Agent, calls []toolspec.Call) ([]callResultRecord, agentstate.Status) {
	results := make([]callResultRecord, 0, len(calls))
	byID := make(map[string]toolspec.Envelope, len(calls))
	finalStatus := agentstate.StatusReady

	for _, call := range calls {
		if call.CallID == "" {
			call.CallID = agent.NextCallID()
		}

		resolvedArgs, err := resolveReferences(call.Arguments, byID)
		if err != nil {
			env := toolspec.Failure("%s", err.Error())
			byID[call.CallID] = env
			results = append(results, callResultRecord{CallID: call.CallID, Result: env})
			continue
		}
		call.Arguments = resolvedArgs

		if call.ToolName == toolWaitForAgents {
			env := toolspec.Success("Waiting for agents to complete.")
			byID[call.CallID] = env
			results = append(results, callResultRecord{CallID: call.CallID, Result: env})
			finalStatus = agentstate.StatusWaiting
			break
		}

		if k.Confirm != nil && !(call.ToolName == toolExecutePythonCode && k.AutoAcceptCode) {
			if !k.Confirm(call) {
				env := toolspec.Failure("Tool execution was declined by the user.")
				byID[call.CallID] = env
				results = append(results, callResultRecord{CallID: call.CallID, Result: env})
				continue
			}
		}

		env := k.dispatch(ctx, agent, call)
		byID[call.CallID] = env
		results = append(results, callResultRecord{CallID: call.CallID, Result: env})
	}

	return results, finalStatus
}

func (k *Kernel) dispatch(ctx context.Context, agent *agentstate.Agent, call toolspec.Call) toolspec.Envelope {
	switch call.ToolName {
	case toolSpawnAgent, toolLLMRequest:
		ctx = builtintools.WithParentAgentID(ctx, agent.ID)
	case toolExecutePythonCode:
		return k.dispatchSandbox(ctx, call)
	}

	env, ok := k.Registry.Dispatch(ctx, call.ToolName, call.Arguments)
	if !ok {
		return toolspec.Failure("Unknown tool: %s", call.ToolName)
	}
	return env
}

func (k *Kernel) dispatchSandbox(ctx context.Context, call toolspec.Call) toolspec.Envelope {
	code, _ := call.Arguments["code"].(string)
	if code == "" {
		return toolspec.Failure("execute_python_code requires a 'code' string argument")
	}
	result, err := k.Sandbox.Execute(ctx, code, k.Registry.AllDescriptors(), sandbox.ModeCaptured)
	if err != nil {
		return toolspec.Failure("%s", err.Error())
	}
	output := map[string]any{"stdout": result.Stdout, "stderr": result.Stderr}
	if result.Error != "" {
		output["error"] = result.Error
		return toolspec.Envelope{Status: "error", Output: output, Error: result.Error}
	}
	return toolspec.Success(output)
}

// resolveReferences replaces any string value of the form "$<call_id>"
// with the referenced call's output, recursing into nested maps and
// slices, per spec §4.1.
func resolveReferences(args map[string]any, byID map[string]toolspec.Envelope) (map[string]any, error) {
	resolved := make(map[string]any, len(args))
	for k, v := range args {
		rv, err := resolveValue(v, byID)
		if err != nil {
			return nil, err
		}
		resolved[k] = rv
	}
	return resolved, nil
}

func resolveValue(v any, byID map[string]toolspec.Envelope) (any, error) {
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, "$") {
			refID := strings.TrimPrefix(val, "$")
			env, ok := byID[refID]
			if !ok {
				return nil, fmt.Errorf("Invalid reference: Tool result for '%s' not found.", refID)
			}
			return env.Output, nil
		}
		return val, nil
	case map[string]any:
		return resolveReferences(val, byID)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			rv, err := resolveValue(item, byID)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return val, nil
	}
}

func toChatMessages(history []agentstate.Message) []llmtransport.ChatMessage {
	out := make([]llmtransport.ChatMessage, len(history))
	for i, m := range history {
		out[i] = llmtransport.ChatMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}
