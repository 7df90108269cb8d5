package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	valid := []struct{ from, to WorkflowState }{
		{StateDraft, StateActive},
		{StateDraft, StateCancelled},
		{StateActive, StateReview},
		{StateActive, StatePaused},
		{StateActive, StateCancelled},
		{StatePaused, StateActive},
		{StatePaused, StateCancelled},
		{StateReview, StateCompleted},
		{StateReview, StateRejected},
		{StateReview, StateActive},
		{StateRejected, StateActive},
		{StateRejected, StateCancelled},
		{StateCompleted, StateSettled},
	}
	for _, tt := range valid {
		assert.True(t, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	invalid := []struct{ from, to WorkflowState }{
		{StateDraft, StateReview},
		{StateDraft, StateCompleted},
		{StateActive, StateSettled},
		{StateCompleted, StateActive},
		{StateSettled, StateActive},
		{StateCancelled, StateDraft},
		{StateDraft, StateDraft},
		{WorkflowState("bogus"), StateActive},
	}
	for _, tt := range invalid {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StateSettled.IsTerminal())
	assert.True(t, StateCancelled.IsTerminal())
	for _, s := range []WorkflowState{StateDraft, StateActive, StateReview, StateCompleted, StatePaused, StateRejected} {
		assert.False(t, s.IsTerminal(), "%s", s)
		assert.NotEmpty(t, NextStates(s), "%s should have outgoing edges", s)
	}
	assert.Empty(t, NextStates(StateSettled))
	assert.Empty(t, NextStates(StateCancelled))
}

func TestNextStatesReturnsCopy(t *testing.T) {
	a := NextStates(StateDraft)
	a[0] = StateSettled
	b := NextStates(StateDraft)
	assert.Equal(t, StateActive, b[0])
}

func TestDefaultNextState(t *testing.T) {
	assert.Equal(t, StateActive, DefaultNextState(StateDraft))
	assert.Equal(t, StateReview, DefaultNextState(StateActive))
	assert.Equal(t, StateCompleted, DefaultNextState(StateReview))
	assert.Equal(t, StateSettled, DefaultNextState(StateCompleted))

	// No mapped successor: first graph edge.
	assert.Equal(t, StateActive, DefaultNextState(StatePaused))
	assert.Equal(t, StateActive, DefaultNextState(StateRejected))

	// Terminal states resolve to themselves.
	assert.Equal(t, StateSettled, DefaultNextState(StateSettled))
	assert.Equal(t, StateCancelled, DefaultNextState(StateCancelled))
}

func TestStateValid(t *testing.T) {
	for _, s := range []WorkflowState{StateDraft, StateActive, StateReview, StateCompleted, StateSettled, StateCancelled, StatePaused, StateRejected} {
		assert.True(t, s.Valid(), "%s", s)
	}
	assert.False(t, WorkflowState("LIMBO").Valid())
	assert.False(t, AutoDetermine.Valid())
}

func TestRequiredApprovals(t *testing.T) {
	assert.Equal(t, []ApprovalType{ApprovalBusiness, ApprovalInfluencer, ApprovalContent},
		RequiredApprovals(TypeSponsoredPost))
	assert.Equal(t, []ApprovalType{ApprovalBusiness, ApprovalInfluencer, ApprovalContent, ApprovalAdmin},
		RequiredApprovals(TypeProductReview))
	assert.Equal(t, []ApprovalType{ApprovalBusiness, ApprovalInfluencer, ApprovalPayment, ApprovalAdmin},
		RequiredApprovals(TypeBrandPartnership))
	assert.Equal(t, []ApprovalType{ApprovalBusiness, ApprovalInfluencer},
		RequiredApprovals(TypeOther))
	assert.Equal(t, []ApprovalType{ApprovalBusiness, ApprovalInfluencer},
		RequiredApprovals(CampaignType("unheard_of")))
}

func TestWorkflowCloneIsDeep(t *testing.T) {
	w := &Workflow{
		CampaignID:     "c1",
		CurrentState:   StateActive,
		PreviousStates: []WorkflowState{StateDraft},
		ApprovalIDs:    []string{"a1"},
		Metadata:       map[string]any{"k": "v"},
		StateHistory:   []HistoryEntry{{State: StateDraft}},
	}
	cp := w.Clone()
	cp.PreviousStates[0] = StateReview
	cp.ApprovalIDs[0] = "other"
	cp.Metadata["k"] = "changed"
	cp.StateHistory[0].State = StateSettled

	assert.Equal(t, StateDraft, w.PreviousStates[0])
	assert.Equal(t, "a1", w.ApprovalIDs[0])
	assert.Equal(t, "v", w.Metadata["k"])
	assert.Equal(t, StateDraft, w.StateHistory[0].State)

	var nilWorkflow *Workflow
	assert.Nil(t, nilWorkflow.Clone())
}
