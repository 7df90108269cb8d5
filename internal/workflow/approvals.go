package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/events"
	"github.com/ignite/campaign-engine/internal/pkg/logger"
)

// ApprovalInput holds the fields for creating an ad hoc approval.
type ApprovalInput struct {
	Type        domain.ApprovalType `json:"type"`
	Approver    string              `json:"approver"`
	RequiredBy  time.Time           `json:"required_by"`
	Description string              `json:"description"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
}

// CreateApproval creates a pending approval for a campaign and publishes
// approval.required. If the workflow does not exist the approval is still
// created and returned, with a warning.
func (e *Engine) CreateApproval(ctx context.Context, campaignID string, in ApprovalInput) (*domain.Approval, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a := e.createApprovalLocked(ctx, campaignID, in)
	return a.Clone(), nil
}

func (e *Engine) createApprovalLocked(_ context.Context, campaignID string, in ApprovalInput) *domain.Approval {
	now := e.now()
	approver := in.Approver
	if approver == "" {
		approver = domain.AutoAssign
	}
	requiredBy := in.RequiredBy
	if requiredBy.IsZero() {
		requiredBy = now.Add(approvalDeadline)
	}

	a := &domain.Approval{
		ID:          uuid.New().String(),
		CampaignID:  campaignID,
		Type:        in.Type,
		Approver:    approver,
		Status:      domain.ApprovalPending,
		RequiredBy:  requiredBy,
		Description: in.Description,
		Metadata:    in.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
		Comments:    []domain.ApprovalComment{},
	}
	e.approvals[a.ID] = a

	if w, ok := e.workflows[campaignID]; ok {
		w.ApprovalIDs = append(w.ApprovalIDs, a.ID)
		w.LastUpdated = now
	} else {
		logger.Warn("approval created for unknown campaign",
			"approval_id", a.ID, "campaign_id", campaignID)
	}

	e.persistApprovalAsync(a)
	e.publishAsync(events.EventApprovalRequired, map[string]any{
		"approval_id": a.ID,
		"campaign_id": campaignID,
		"type":        string(a.Type),
		"approver":    a.Approver,
		"required_by": a.RequiredBy,
	})
	return a
}

// setupApprovalsLocked creates the approval batch required by the
// workflow's campaign type.
func (e *Engine) setupApprovalsLocked(ctx context.Context, w *domain.Workflow) {
	for _, t := range domain.RequiredApprovals(w.Type) {
		e.createApprovalLocked(ctx, w.CampaignID, ApprovalInput{
			Type:        t,
			Approver:    domain.AutoAssign,
			Description: fmt.Sprintf("%s approval for %s campaign", t, w.Type),
		})
	}
}

// Decision is the outcome submitted for an approval.
type Decision struct {
	Decision domain.ApprovalStatus `json:"decision"`
	Comments string                `json:"comments,omitempty"`
	Metadata map[string]any        `json:"metadata,omitempty"`
}

// Approver identifies who made an approval decision.
type Approver struct {
	ID   string `json:"approver_id"`
	Name string `json:"approver_name"`
}

// ProcessApproval applies a decision to a pending approval. Once the
// campaign's last pending approval resolves, approval_completed rules are
// evaluated and the first match — only the first — executes.
func (e *Engine) ProcessApproval(ctx context.Context, approvalID string, d Decision, by Approver) (*domain.Approval, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.approvals[approvalID]
	if !ok {
		return nil, &ApprovalNotFoundError{ApprovalID: approvalID}
	}
	if d.Decision != domain.ApprovalApproved && d.Decision != domain.ApprovalRejected {
		return nil, fmt.Errorf("workflow: invalid decision %q", d.Decision)
	}

	now := e.now()
	a.Status = d.Decision
	a.UpdatedAt = now
	switch d.Decision {
	case domain.ApprovalApproved:
		a.ApprovedAt = &now
	case domain.ApprovalRejected:
		a.RejectedAt = &now
	}
	for k, v := range d.Metadata {
		if a.Metadata == nil {
			a.Metadata = make(map[string]any)
		}
		a.Metadata[k] = v
	}
	a.Comments = append(a.Comments, domain.ApprovalComment{
		Timestamp:    now,
		ApproverID:   by.ID,
		ApproverName: by.Name,
		Comment:      d.Comments,
		Decision:     d.Decision,
	})

	e.persistApprovalAsync(a)
	e.publishAsync(events.EventApprovalCompleted, map[string]any{
		"approval_id": a.ID,
		"campaign_id": a.CampaignID,
		"type":        string(a.Type),
		"decision":    string(d.Decision),
		"approver_id": by.ID,
	})

	e.checkAutomaticTransitionLocked(ctx, a.CampaignID)

	logger.Info("approval processed",
		"approval_id", a.ID,
		"campaign_id", a.CampaignID,
		"decision", string(d.Decision),
		"approver", by.ID)
	return a.Clone(), nil
}

// checkAutomaticTransitionLocked runs approval_completed automation once a
// campaign has no pending approvals left. First matching rule wins; the
// rest are not evaluated.
func (e *Engine) checkAutomaticTransitionLocked(ctx context.Context, campaignID string) {
	w, ok := e.workflows[campaignID]
	if !ok {
		return
	}
	if len(e.pendingApprovalIDsLocked(w)) > 0 {
		return
	}

	for _, r := range e.rules {
		if !r.Enabled || r.Trigger != domain.TriggerApprovalCompleted {
			continue
		}
		if !e.conditionsMatchLocked(r, w) {
			continue
		}
		e.executeRuleLocked(ctx, r, w)
		return
	}
}

// pendingApprovalIDsLocked returns the ids of the workflow's approvals
// still in pending status.
func (e *Engine) pendingApprovalIDsLocked(w *domain.Workflow) []string {
	var ids []string
	for _, id := range w.ApprovalIDs {
		if a, ok := e.approvals[id]; ok && a.Status == domain.ApprovalPending {
			ids = append(ids, id)
		}
	}
	return ids
}

// pendingApprovalTypesLocked returns the approval types blocking a
// validated transition.
func (e *Engine) pendingApprovalTypesLocked(w *domain.Workflow) []domain.ApprovalType {
	var types []domain.ApprovalType
	for _, id := range w.ApprovalIDs {
		if a, ok := e.approvals[id]; ok && a.Status == domain.ApprovalPending {
			types = append(types, a.Type)
		}
	}
	return types
}
