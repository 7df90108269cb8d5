package domain

import "time"

// WorkflowState enumerates the lifecycle states of a campaign workflow.
type WorkflowState string

const (
	StateDraft     WorkflowState = "DRAFT"
	StateActive    WorkflowState = "ACTIVE"
	StateReview    WorkflowState = "REVIEW"
	StateCompleted WorkflowState = "COMPLETED"
	StateSettled   WorkflowState = "SETTLED"
	StateCancelled WorkflowState = "CANCELLED"
	StatePaused    WorkflowState = "PAUSED"
	StateRejected  WorkflowState = "REJECTED"
)

// transitionGraph is the static adjacency table for campaign states.
// SETTLED and CANCELLED are terminal and have no outgoing edges.
// CANCELLED is additionally reachable from any non-terminal state via the
// force-cancel path, which bypasses validation entirely.
var transitionGraph = map[WorkflowState][]WorkflowState{
	StateDraft:     {StateActive, StateCancelled},
	StateActive:    {StateReview, StatePaused, StateCancelled},
	StatePaused:    {StateActive, StateCancelled},
	StateReview:    {StateCompleted, StateRejected, StateActive},
	StateRejected:  {StateActive, StateCancelled},
	StateCompleted: {StateSettled},
	StateSettled:   {},
	StateCancelled: {},
}

// defaultNextState maps each state to its natural successor, used when an
// automation action asks for "auto_determine" instead of a concrete target.
var defaultNextState = map[WorkflowState]WorkflowState{
	StateDraft:     StateActive,
	StateActive:    StateReview,
	StateReview:    StateCompleted,
	StateCompleted: StateSettled,
}

// NextStates returns a copy of the valid targets from the given state.
func NextStates(s WorkflowState) []WorkflowState {
	edges := transitionGraph[s]
	out := make([]WorkflowState, len(edges))
	copy(out, edges)
	return out
}

// CanTransition reports whether from -> to is an edge in the transition graph.
func CanTransition(from, to WorkflowState) bool {
	for _, s := range transitionGraph[from] {
		if s == to {
			return true
		}
	}
	return false
}

// DefaultNextState resolves the auto-determined successor for a state. If the
// state has no mapped successor, the first graph edge is used; a state with no
// edges resolves to itself.
func DefaultNextState(s WorkflowState) WorkflowState {
	if next, ok := defaultNextState[s]; ok {
		return next
	}
	if edges := transitionGraph[s]; len(edges) > 0 {
		return edges[0]
	}
	return s
}

// IsTerminal reports whether the state has no outgoing transitions.
func (s WorkflowState) IsTerminal() bool {
	return s == StateSettled || s == StateCancelled
}

// Valid reports whether s is a known workflow state.
func (s WorkflowState) Valid() bool {
	_, ok := transitionGraph[s]
	return ok
}

// CampaignType identifies the commercial shape of a campaign, which
// determines the approvals required before it can leave DRAFT.
type CampaignType string

const (
	TypeSponsoredPost    CampaignType = "sponsored_post"
	TypeProductReview    CampaignType = "product_review"
	TypeBrandPartnership CampaignType = "brand_partnership"
	TypeOther            CampaignType = "other"
)

// TransitionRecord is one applied state change, kept for audit.
type TransitionRecord struct {
	ID          string            `json:"id"`
	From        WorkflowState     `json:"from"`
	To          WorkflowState     `json:"to"`
	Timestamp   time.Time         `json:"timestamp"`
	TriggeredBy string            `json:"triggered_by"`
	Reason      string            `json:"reason,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// HistoryEntry records a state the workflow has been in, including the
// initial DRAFT entry written at creation.
type HistoryEntry struct {
	State       WorkflowState `json:"state"`
	Timestamp   time.Time     `json:"timestamp"`
	TriggeredBy string        `json:"triggered_by"`
	Reason      string        `json:"reason,omitempty"`
}

// Workflow is the per-campaign lifecycle state container.
type Workflow struct {
	CampaignID         string             `json:"campaign_id"`
	BusinessID         string             `json:"business_id"`
	InfluencerID       string             `json:"influencer_id"`
	Type               CampaignType       `json:"type"`
	CurrentState       WorkflowState      `json:"current_state"`
	PreviousStates     []WorkflowState    `json:"previous_states"`
	NextPossibleStates []WorkflowState    `json:"next_possible_states"`
	Transitions        []TransitionRecord `json:"transitions"`
	ApprovalIDs        []string           `json:"approval_ids"`
	StateHistory       []HistoryEntry     `json:"state_history"`
	Metadata           map[string]any     `json:"metadata"`
	CreatedAt          time.Time          `json:"created_at"`
	LastUpdated        time.Time          `json:"last_updated"`
	Version            int                `json:"version"`
}

// Clone returns a deep copy so callers can read workflow state without
// holding the engine lock.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	cp := *w
	cp.PreviousStates = append([]WorkflowState(nil), w.PreviousStates...)
	cp.NextPossibleStates = append([]WorkflowState(nil), w.NextPossibleStates...)
	cp.Transitions = append([]TransitionRecord(nil), w.Transitions...)
	cp.ApprovalIDs = append([]string(nil), w.ApprovalIDs...)
	cp.StateHistory = append([]HistoryEntry(nil), w.StateHistory...)
	cp.Metadata = make(map[string]any, len(w.Metadata))
	for k, v := range w.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}
