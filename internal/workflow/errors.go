package workflow

import (
	"fmt"

	"github.com/ignite/campaign-engine/internal/domain"
)

// WorkflowNotFoundError is returned when no workflow exists for a campaign.
type WorkflowNotFoundError struct {
	CampaignID string
}

func (e *WorkflowNotFoundError) Error() string {
	return fmt.Sprintf("workflow not found for campaign %s", e.CampaignID)
}

// DuplicateWorkflowError is returned when initializing a workflow for a
// campaign that already has one. Re-initialization is rejected, never a
// silent overwrite.
type DuplicateWorkflowError struct {
	CampaignID string
}

func (e *DuplicateWorkflowError) Error() string {
	return fmt.Sprintf("workflow already exists for campaign %s", e.CampaignID)
}

// InvalidTransitionError is returned for a target state that is not an
// edge of the current state in the transition graph.
type InvalidTransitionError struct {
	CampaignID string
	From       domain.WorkflowState
	To         domain.WorkflowState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s for campaign %s", e.From, e.To, e.CampaignID)
}

// PendingApprovalsError is returned when a validated transition is blocked
// by unresolved approvals. It carries the blocking approval types.
type PendingApprovalsError struct {
	CampaignID   string
	PendingTypes []domain.ApprovalType
}

func (e *PendingApprovalsError) Error() string {
	return fmt.Sprintf("campaign %s has %d pending approvals: %v",
		e.CampaignID, len(e.PendingTypes), e.PendingTypes)
}

// ApprovalNotFoundError is returned for an unknown approval id.
type ApprovalNotFoundError struct {
	ApprovalID string
}

func (e *ApprovalNotFoundError) Error() string {
	return fmt.Sprintf("approval not found: %s", e.ApprovalID)
}
