package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentkernel/internal/agentstate"
	"github.com/kadirpekel/agentkernel/internal/llmtransport"
	"github.com/kadirpekel/agentkernel/internal/sandbox"
	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

type fakeLLM struct {
	responses []string
	i         int
}

func (f *fakeLLM) next() string {
	if f.i >= len(f.responses) {
		return f.responses[len(f.responses)-1]
	}
	r := f.responses[f.i]
	f.i++
	return r
}

func (f *fakeLLM) CompleteStreaming(ctx context.Context, messages []llmtransport.ChatMessage, onChunk llmtransport.ChunkFunc) (string, error) {
	r := f.next()
	if onChunk != nil {
		onChunk(r)
	}
	return r, nil
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llmtransport.ChatMessage) (string, error) {
	return f.next(), nil
}

type fakeDispatcher struct {
	handlers map[string]func(args map[string]any) (any, error)
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (toolspec.Envelope, bool) {
	h, ok := f.handlers[name]
	if !ok {
		return toolspec.Envelope{}, false
	}
	out, err := h(args)
	if err != nil {
		return toolspec.Failure("%s", err.Error()), true
	}
	return toolspec.Success(out), true
}

func (f *fakeDispatcher) AllDescriptors() []toolspec.Descriptor { return nil }

type fakeSandbox struct{}

func (fakeSandbox) Execute(ctx context.Context, code string, descriptors []toolspec.Descriptor, mode sandbox.Mode) (sandbox.Result, error) {
	return sandbox.Result{Stdout: "ran: " + code}, nil
}

func multiplyDispatcher() *fakeDispatcher {
	return &fakeDispatcher{handlers: map[string]func(args map[string]any) (any, error){
		"multiply_numbers": func(args map[string]any) (any, error) {
			return args["a"].(float64) * args["b"].(float64), nil
		},
	}}
}

func newTestKernel(t *testing.T, llm *fakeLLM, reg Dispatcher) (*Kernel, *agentstate.Store) {
	t.Helper()
	store := agentstate.NewStore()
	k := New(reg, store, llm, fakeSandbox{}, nil, func(role string) string { return "system prompt" },
		false, "<tool>", "</tool>", nil, nil)
	return k, store
}

// S1: plain answer.
func TestRunTurnPlainAnswer(t *testing.T) {
	llm := &fakeLLM{responses: []string{"hello"}}
	k, store := newTestKernel(t, llm, &fakeDispatcher{handlers: map[string]func(map[string]any) (any, error){}})

	agent := store.Create("main", "", "sys", nil)
	agent.AppendUser("hi")
	store.SetStatus(agent.ID, agentstate.StatusReady)
	agent.Status = agentstate.StatusReady

	k.RunTurn(context.Background(), agent)

	last := agent.History[len(agent.History)-1]
	assert.Equal(t, agentstate.RoleAssistant, last.Role)
	assert.Equal(t, "hello", last.Content)
	assert.Equal(t, agentstate.StatusDone, agent.Status)
}

// S2: single tool call.
func TestRunTurnSingleTool(t *testing.T) {
	llm := &fakeLLM{responses: []string{`<tool>[{"tool_name":"multiply_numbers","arguments":{"a":6,"b":7}}]</tool>`}}
	k, store := newTestKernel(t, llm, multiplyDispatcher())

	agent := store.Create("main", "", "sys", nil)
	agent.Status = agentstate.StatusReady

	k.RunTurn(context.Background(), agent)

	last := agent.History[len(agent.History)-1]
	assert.Contains(t, last.Content, "TOOL_EXECUTION_RESULT")
	assert.Contains(t, last.Content, `"output": 42`)
	assert.Equal(t, agentstate.StatusReady, agent.Status)
}

// S3: batch with $ref.
func TestRunTurnBatchWithRef(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`<tool>[{"call_id":"c1","tool_name":"multiply_numbers","arguments":{"a":2,"b":3}},` +
			`{"call_id":"c2","tool_name":"multiply_numbers","arguments":{"a":"$c1","b":4}}]</tool>`,
	}}
	k, store := newTestKernel(t, llm, multiplyDispatcher())

	agent := store.Create("main", "", "sys", nil)
	agent.Status = agentstate.StatusReady

	k.RunTurn(context.Background(), agent)

	last := agent.History[len(agent.History)-1]
	assert.Contains(t, last.Content, `"output": 24`)
}

// S4: bad $ref.
func TestRunTurnBadRef(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`<tool>[{"call_id":"c1","tool_name":"multiply_numbers","arguments":{"a":2,"b":3}},` +
			`{"call_id":"c2","tool_name":"multiply_numbers","arguments":{"a":"$cX","b":4}}]</tool>`,
	}}
	k, store := newTestKernel(t, llm, multiplyDispatcher())

	agent := store.Create("main", "", "sys", nil)
	agent.Status = agentstate.StatusReady

	k.RunTurn(context.Background(), agent)

	last := agent.History[len(agent.History)-1]
	assert.Contains(t, last.Content, `"output": 6`)
	assert.Contains(t, last.Content, "Invalid reference")
	assert.Equal(t, agentstate.StatusReady, agent.Status)
}

// S5: spawn + wait.
func TestRunTurnSpawnAndWait(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`<tool>[{"call_id":"c1","tool_name":"spawn_agent","arguments":{"role":"W","prompt":"do X"}},` +
			`{"call_id":"c2","tool_name":"wait_for_agents","arguments":{"agent_ids":["$c1"]}}]</tool>`,
	}}
	store := agentstate.NewStore()
	reg := &fakeDispatcher{handlers: map[string]func(map[string]any) (any, error){
		"spawn_agent": func(args map[string]any) (any, error) {
			child := store.Create(args["role"].(string), args["prompt"].(string), "child sys", strPtr(agentstate.RootID))
			return child.ID, nil
		},
	}}
	k := New(reg, store, llm, fakeSandbox{}, nil, func(role string) string { return "sys" },
		false, "<tool>", "</tool>", nil, nil)

	root := store.Create("main", "", "sys", nil)
	root.Status = agentstate.StatusReady

	k.RunTurn(context.Background(), root)

	assert.Equal(t, agentstate.StatusWaiting, root.Status)

	children := store.ChildrenOf(agentstate.RootID)
	require.Len(t, children, 1)
	assert.Equal(t, "W", children[0].Role)
	assert.Equal(t, agentstate.StatusReady, children[0].Status)
}

// S6: child-server unavailable — modeled here as an unknown-tool
// dispatch, with a second call in the same batch still executing.
func TestRunTurnUnknownToolContinuesBatch(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`<tool>[{"call_id":"c1","tool_name":"dead_server_tool","arguments":{}},` +
			`{"call_id":"c2","tool_name":"multiply_numbers","arguments":{"a":3,"b":3}}]</tool>`,
	}}
	k, store := newTestKernel(t, llm, multiplyDispatcher())

	agent := store.Create("main", "", "sys", nil)
	agent.Status = agentstate.StatusReady

	k.RunTurn(context.Background(), agent)

	last := agent.History[len(agent.History)-1]
	assert.Contains(t, last.Content, "dead_server_tool")
	assert.Contains(t, last.Content, `"output": 9`)
}

func TestRunTurnMalformedToolJSON(t *testing.T) {
	llm := &fakeLLM{responses: []string{`<tool>not json</tool>`}}
	k, store := newTestKernel(t, llm, multiplyDispatcher())

	agent := store.Create("main", "", "sys", nil)
	agent.Status = agentstate.StatusReady

	k.RunTurn(context.Background(), agent)

	last := agent.History[len(agent.History)-1]
	assert.Contains(t, last.Content, "TOOL_EXECUTION_RESULT")
	assert.Equal(t, agentstate.StatusReady, agent.Status)
}

func TestRunTurnSystemMessageAlwaysFirst(t *testing.T) {
	llm := &fakeLLM{responses: []string{"hello"}}
	k, store := newTestKernel(t, llm, multiplyDispatcher())

	agent := store.Create("main", "", "sys", nil)
	agent.Status = agentstate.StatusReady

	k.RunTurn(context.Background(), agent)
	assert.Equal(t, agentstate.RoleSystem, agent.History[0].Role)
}

func strPtr(s string) *string { return &s }
