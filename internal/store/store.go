// Package store defines workflow persistence. The engine treats the store
// as best-effort: persistence failures are logged, never surfaced to the
// caller of a state transition.
package store

import (
	"context"
	"errors"
	"log"

	"github.com/ignite/campaign-engine/internal/domain"
)

// ErrNotFound is returned by Load* when no row exists.
var ErrNotFound = errors.New("store: not found")

// Store persists workflow and approval snapshots.
type Store interface {
	PersistWorkflow(ctx context.Context, w *domain.Workflow) error
	LoadWorkflow(ctx context.Context, campaignID string) (*domain.Workflow, error)
	PersistApproval(ctx context.Context, a *domain.Approval) error
}

// Nop discards writes and never finds anything. It is the default when no
// database is configured, matching the engine's in-memory-only mode.
type Nop struct{}

func (Nop) PersistWorkflow(_ context.Context, w *domain.Workflow) error {
	log.Printf("[store] nop persist workflow campaign=%s state=%s version=%d",
		w.CampaignID, w.CurrentState, w.Version)
	return nil
}

func (Nop) LoadWorkflow(_ context.Context, _ string) (*domain.Workflow, error) {
	return nil, ErrNotFound
}

func (Nop) PersistApproval(_ context.Context, a *domain.Approval) error {
	log.Printf("[store] nop persist approval id=%s campaign=%s status=%s",
		a.ID, a.CampaignID, a.Status)
	return nil
}
