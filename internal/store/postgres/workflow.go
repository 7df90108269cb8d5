// Package postgres implements store.Store against PostgreSQL. Collection
// fields (transitions, history, metadata) are stored as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/store"
	"github.com/lib/pq"
)

// WorkflowStore persists workflows and approvals to Postgres.
type WorkflowStore struct{ db *sql.DB }

// New creates a Postgres-backed workflow store.
func New(db *sql.DB) *WorkflowStore { return &WorkflowStore{db: db} }

func (s *WorkflowStore) PersistWorkflow(ctx context.Context, w *domain.Workflow) error {
	transitions, err := json.Marshal(w.Transitions)
	if err != nil {
		return fmt.Errorf("marshal transitions: %w", err)
	}
	history, err := json.Marshal(w.StateHistory)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	metadata, err := json.Marshal(w.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	prev := make([]string, len(w.PreviousStates))
	for i, p := range w.PreviousStates {
		prev[i] = string(p)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaign_workflows
			(campaign_id, business_id, influencer_id, type, current_state,
			 previous_states, transitions, approval_ids, state_history,
			 metadata, created_at, last_updated, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (campaign_id) DO UPDATE SET
			current_state = EXCLUDED.current_state,
			previous_states = EXCLUDED.previous_states,
			transitions = EXCLUDED.transitions,
			approval_ids = EXCLUDED.approval_ids,
			state_history = EXCLUDED.state_history,
			metadata = EXCLUDED.metadata,
			last_updated = EXCLUDED.last_updated,
			version = EXCLUDED.version
	`, w.CampaignID, w.BusinessID, w.InfluencerID, w.Type, w.CurrentState,
		pq.Array(prev), transitions, pq.Array(w.ApprovalIDs), history,
		metadata, w.CreatedAt, w.LastUpdated, w.Version)
	if err != nil {
		return fmt.Errorf("persist workflow %s: %w", w.CampaignID, err)
	}
	return nil
}

func (s *WorkflowStore) LoadWorkflow(ctx context.Context, campaignID string) (*domain.Workflow, error) {
	w := &domain.Workflow{}
	var prev pq.StringArray
	var approvalIDs pq.StringArray
	var transitions, history, metadata []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT campaign_id, business_id, influencer_id, type, current_state,
		       previous_states, transitions, approval_ids, state_history,
		       metadata, created_at, last_updated, version
		FROM campaign_workflows
		WHERE campaign_id = $1
	`, campaignID).Scan(
		&w.CampaignID, &w.BusinessID, &w.InfluencerID, &w.Type, &w.CurrentState,
		&prev, &transitions, &approvalIDs, &history,
		&metadata, &w.CreatedAt, &w.LastUpdated, &w.Version,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", campaignID, err)
	}

	w.PreviousStates = make([]domain.WorkflowState, len(prev))
	for i, p := range prev {
		w.PreviousStates[i] = domain.WorkflowState(p)
	}
	w.ApprovalIDs = approvalIDs
	if err := json.Unmarshal(transitions, &w.Transitions); err != nil {
		return nil, fmt.Errorf("unmarshal transitions: %w", err)
	}
	if err := json.Unmarshal(history, &w.StateHistory); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	if err := json.Unmarshal(metadata, &w.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	w.NextPossibleStates = domain.NextStates(w.CurrentState)
	return w, nil
}

func (s *WorkflowStore) PersistApproval(ctx context.Context, a *domain.Approval) error {
	comments, err := json.Marshal(a.Comments)
	if err != nil {
		return fmt.Errorf("marshal comments: %w", err)
	}
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaign_approvals
			(id, campaign_id, type, approver, status, required_by, description,
			 metadata, comments, created_at, updated_at, approved_at, rejected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			approver = EXCLUDED.approver,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata,
			comments = EXCLUDED.comments,
			updated_at = EXCLUDED.updated_at,
			approved_at = EXCLUDED.approved_at,
			rejected_at = EXCLUDED.rejected_at
	`, a.ID, a.CampaignID, a.Type, a.Approver, a.Status, a.RequiredBy, a.Description,
		metadata, comments, a.CreatedAt, a.UpdatedAt, a.ApprovedAt, a.RejectedAt)
	if err != nil {
		return fmt.Errorf("persist approval %s: %w", a.ID, err)
	}
	return nil
}
