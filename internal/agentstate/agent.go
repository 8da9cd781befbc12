// Package agentstate owns the Agent record and its lifecycle: the
// conversation history, the cooperative-scheduler status, and the
// parent/child relationship created by spawn_agent.
package agentstate

import "strconv"

// Status is one of the five points in an agent's lifecycle.
type Status string

const (
	StatusReady   Status = "READY"
	StatusRunning Status = "RUNNING"
	StatusWaiting Status = "WAITING"
	StatusDone    Status = "DONE"
	StatusError   Status = "ERROR"
)

// Role names a message's author within an agent's history.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RootID is the fixed id reserved for the single main agent.
const RootID = "main"

// Agent is a conversation participant with a history and a status,
// driven by the Kernel. The zero value is not usable; construct via
// Store.Create.
type Agent struct {
	ID       string
	Role     string
	History  []Message
	Status   Status
	Result   *string
	ParentID *string
	IsMain   bool

	toolCallSeq int
}

// NextCallID returns a monotonically increasing call_id of the form
// "call_<N>", scoped to this agent, used when a tool call in a batch
// arrives without one.
func (a *Agent) NextCallID() string {
	a.toolCallSeq++
	return "call_" + strconv.Itoa(a.toolCallSeq)
}

// RefreshSystemPrompt rewrites history[0]'s content in place, which must
// already be the system message, so that tool additions made since the
// agent was created take effect on its next turn.
func (a *Agent) RefreshSystemPrompt(prompt string) {
	if len(a.History) == 0 || a.History[0].Role != RoleSystem {
		return
	}
	a.History[0].Content = prompt
}

// AppendAssistant appends an assistant message to history.
func (a *Agent) AppendAssistant(content string) {
	a.History = append(a.History, Message{Role: RoleAssistant, Content: content})
}

// AppendUser appends a user-role message to history (also used for the
// synthetic TOOL_EXECUTION_RESULT feedback message, which the original
// implementation injects as a user-role turn).
func (a *Agent) AppendUser(content string) {
	a.History = append(a.History, Message{Role: RoleUser, Content: content})
}
