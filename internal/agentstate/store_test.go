package agentstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFirstAgentIsRootAndDone(t *testing.T) {
	s := NewStore()
	root := s.Create("main", "", "system prompt", nil)

	assert.Equal(t, RootID, root.ID)
	assert.True(t, root.IsMain)
	assert.Equal(t, StatusDone, root.Status)
	require.Len(t, root.History, 1)
	assert.Equal(t, RoleSystem, root.History[0].Role)
}

func TestCreateSecondAgentIsReadyWithGeneratedID(t *testing.T) {
	s := NewStore()
	s.Create("main", "", "sys", nil)
	parent := RootID
	child := s.Create("worker", "do the thing", "sys", &parent)

	assert.NotEqual(t, RootID, child.ID)
	assert.Equal(t, StatusReady, child.Status)
	assert.False(t, child.IsMain)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, RootID, *child.ParentID)
	require.Len(t, child.History, 2)
	assert.Equal(t, RoleUser, child.History[1].Role)
}

func TestNextReadyFIFO(t *testing.T) {
	s := NewStore()
	s.Create("main", "", "sys", nil) // DONE, not ready
	parent := RootID
	a := s.Create("a", "p", "sys", &parent)
	s.Create("b", "p", "sys", &parent)

	next := s.NextReady()
	require.NotNil(t, next)
	assert.Equal(t, a.ID, next.ID)
}

func TestAllChildrenDone(t *testing.T) {
	s := NewStore()
	s.Create("main", "", "sys", nil)
	parent := RootID
	a := s.Create("a", "p", "sys", &parent)
	b := s.Create("b", "p", "sys", &parent)

	assert.False(t, s.AllChildrenDone(RootID))

	s.SetStatus(a.ID, StatusDone)
	assert.False(t, s.AllChildrenDone(RootID))

	s.SetStatus(b.ID, StatusDone)
	assert.True(t, s.AllChildrenDone(RootID))
}

func TestChildrenOf(t *testing.T) {
	s := NewStore()
	s.Create("main", "", "sys", nil)
	parent := RootID
	a := s.Create("a", "p", "sys", &parent)

	children := s.ChildrenOf(RootID)
	require.Len(t, children, 1)
	assert.Equal(t, a.ID, children[0].ID)
}
