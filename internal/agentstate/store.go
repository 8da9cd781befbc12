package agentstate

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Store is the thread-safe owner of every agent record for the lifetime
// of the process. It has no notion of persistence: agents live and die
// with the process, per the runtime's non-goals.
type Store struct {
	mu       sync.Mutex
	agents   map[string]*Agent
	order    []string // insertion order, for the FIFO ready-agent pick
	mainID   string
	mainSeen bool
}

// NewStore creates an empty agent store.
func NewStore() *Store {
	return &Store{agents: make(map[string]*Agent)}
}

// Create inserts a new agent. The very first agent created becomes the
// root: it is assigned the fixed id "main", starts DONE (awaiting the
// first user turn), and is flagged IsMain. Every subsequent agent gets a
// generated id of the form "agent-<uuid8>", starts READY, and carries
// parentID (nil for agents spawned with no explicit parent, matching the
// original spawn_agent behavior of never threading a parent id through).
func (s *Store) Create(role, initialPrompt, systemPrompt string, parentID *string) *Agent {
	s.mu.Lock()
	defer s.mu.Unlock()

	isMain := !s.mainSeen
	var id string
	if isMain {
		id = RootID
	} else {
		id = fmt.Sprintf("agent-%s", uuid.New().String()[:8])
	}

	history := []Message{{Role: RoleSystem, Content: systemPrompt}}
	if initialPrompt != "" {
		history = append(history, Message{Role: RoleUser, Content: initialPrompt})
	}

	status := StatusReady
	if isMain {
		status = StatusDone
	}

	agent := &Agent{
		ID:       id,
		Role:     role,
		History:  history,
		Status:   status,
		ParentID: parentID,
		IsMain:   isMain,
	}

	s.agents[id] = agent
	s.order = append(s.order, id)
	if isMain {
		s.mainID = id
		s.mainSeen = true
	}
	return agent
}

// Get returns the agent with the given id, if any.
func (s *Store) Get(id string) (*Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	return a, ok
}

// Main returns the root agent, if one has been created yet.
func (s *Store) Main() (*Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mainSeen {
		return nil, false
	}
	a := s.agents[s.mainID]
	return a, a != nil
}

// NextReady returns the first agent (in creation order) whose status is
// READY, or nil if none qualifies.
func (s *Store) NextReady() *Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if a := s.agents[id]; a.Status == StatusReady {
			return a
		}
	}
	return nil
}

// AllChildrenDone reports whether every agent whose parent is parentID
// has reached DONE (or ERROR). Used to decide when a WAITING agent may
// return to READY.
func (s *Store) AllChildrenDone(parentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		a := s.agents[id]
		if a.ParentID != nil && *a.ParentID == parentID {
			if a.Status != StatusDone && a.Status != StatusError {
				return false
			}
		}
	}
	return true
}

// ChildrenOf returns every agent whose ParentID is parentID, in creation
// order.
func (s *Store) ChildrenOf(parentID string) []*Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Agent
	for _, id := range s.order {
		a := s.agents[id]
		if a.ParentID != nil && *a.ParentID == parentID {
			out = append(out, a)
		}
	}
	return out
}

// SetStatus transitions an agent's status under the store's lock, the
// only sanctioned way for anything outside the Kernel turn itself to
// move an agent between states (e.g. the Orchestrator flipping a
// WAITING root back to READY once its children finish).
func (s *Store) SetStatus(id string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.agents[id]; ok {
		a.Status = status
	}
}

// Count returns the number of agents ever created.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.agents)
}
