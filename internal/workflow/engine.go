// Package workflow implements the campaign lifecycle engine: a finite
// state machine per campaign with multi-stage approvals, rule-based
// automation and scheduled transitions.
//
// The engine owns all workflow, approval and rule state for its process
// lifetime. Mutations are serialized behind a single mutex; downstream
// side effects (event publishes, persistence, webhooks) run on a
// background dispatcher and are best-effort. A side-effect failure never
// rolls back a committed transition.
package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/events"
	"github.com/ignite/campaign-engine/internal/notify"
	"github.com/ignite/campaign-engine/internal/pkg/distlock"
	"github.com/ignite/campaign-engine/internal/store"
	"github.com/ignite/campaign-engine/internal/webhook"
)

// DefaultTickInterval is the automation scheduler period.
const DefaultTickInterval = 60 * time.Second

// approvalDeadline is how long approvals created at workflow setup have
// before their requiredBy date.
const approvalDeadline = 7 * 24 * time.Hour

// Options configures an Engine. Bus is required; everything else has a
// working default.
type Options struct {
	Bus      events.Bus
	Store    store.Store
	Webhooks webhook.Caller
	Notifier *notify.Renderer

	// TickInterval overrides the scheduler period (default 60s).
	TickInterval time.Duration

	// SchedulerLock, when set, gates each scheduler tick so only one
	// replica sharing the lock backend evaluates schedule rules.
	SchedulerLock distlock.DistLock

	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Engine is the campaign workflow engine.
type Engine struct {
	mu        sync.Mutex
	workflows map[string]*domain.Workflow
	approvals map[string]*domain.Approval
	rules     []*domain.Rule // ordered; first-match semantics depend on registration order

	bus      events.Bus
	store    store.Store
	webhooks webhook.Caller
	notifier *notify.Renderer
	now      func() time.Time
	bg       *dispatcher

	tickInterval time.Duration
	schedLock    distlock.DistLock

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// New creates an engine, seeds the default automation rules and registers
// the inbound event subscriptions on the bus.
func New(o Options) (*Engine, error) {
	if o.Bus == nil {
		return nil, fmt.Errorf("workflow: event bus is required")
	}
	if o.Store == nil {
		o.Store = store.Nop{}
	}
	if o.Notifier == nil {
		o.Notifier = notify.NewRenderer()
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}

	e := &Engine{
		workflows:    make(map[string]*domain.Workflow),
		approvals:    make(map[string]*domain.Approval),
		bus:          o.Bus,
		store:        o.Store,
		webhooks:     o.Webhooks,
		notifier:     o.Notifier,
		now:          o.Clock,
		bg:           newDispatcher(0),
		tickInterval: o.TickInterval,
		schedLock:    o.SchedulerLock,
	}
	e.seedDefaultRules()
	e.registerSubscriptions()
	return e, nil
}

// CampaignInput holds the fields for initializing a campaign workflow.
type CampaignInput struct {
	CampaignID   string              `json:"campaign_id"`
	BusinessID   string              `json:"business_id"`
	InfluencerID string              `json:"influencer_id"`
	Type         domain.CampaignType `json:"type"`
	Requirements map[string]any      `json:"requirements,omitempty"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
}

// InitializeCampaignWorkflow creates a workflow in DRAFT with its initial
// history entry and the approval set required by the campaign type.
// Re-initializing an existing campaign fails with DuplicateWorkflowError.
func (e *Engine) InitializeCampaignWorkflow(ctx context.Context, in CampaignInput) (*domain.Workflow, error) {
	if in.CampaignID == "" {
		return nil, fmt.Errorf("workflow: campaign id is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.workflows[in.CampaignID]; exists {
		return nil, &DuplicateWorkflowError{CampaignID: in.CampaignID}
	}

	now := e.now()
	metadata := make(map[string]any, len(in.Metadata)+1)
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	if in.Requirements != nil {
		metadata["requirements"] = in.Requirements
	}

	w := &domain.Workflow{
		CampaignID:         in.CampaignID,
		BusinessID:         in.BusinessID,
		InfluencerID:       in.InfluencerID,
		Type:               in.Type,
		CurrentState:       domain.StateDraft,
		PreviousStates:     []domain.WorkflowState{},
		NextPossibleStates: domain.NextStates(domain.StateDraft),
		Transitions:        []domain.TransitionRecord{},
		ApprovalIDs:        []string{},
		StateHistory: []domain.HistoryEntry{{
			State:       domain.StateDraft,
			Timestamp:   now,
			TriggeredBy: "system",
			Reason:      "workflow initialized",
		}},
		Metadata:    metadata,
		CreatedAt:   now,
		LastUpdated: now,
		Version:     1,
	}
	e.workflows[w.CampaignID] = w

	e.setupApprovalsLocked(ctx, w)

	e.persistAsync(w)
	e.publishAsync(events.EventWorkflowInitialized, map[string]any{
		"campaign_id":   w.CampaignID,
		"business_id":   w.BusinessID,
		"influencer_id": w.InfluencerID,
		"type":          string(w.Type),
		"current_state": string(w.CurrentState),
	})

	log.Printf("[workflow] initialized campaign=%s type=%s approvals=%d",
		w.CampaignID, w.Type, len(w.ApprovalIDs))
	return w.Clone(), nil
}

// TransitionOptions controls a state transition.
type TransitionOptions struct {
	TriggeredBy    string
	Reason         string
	SkipValidation bool
	Metadata       map[string]any
}

// TransitionState moves a campaign to the target state. Unless
// SkipValidation is set it enforces the transition graph and rejects while
// approvals are pending. The state change is committed in memory before
// any side effects run; side-effect failures are logged only.
func (e *Engine) TransitionState(ctx context.Context, campaignID string, target domain.WorkflowState, opts TransitionOptions) (*domain.Workflow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, err := e.transitionLocked(ctx, campaignID, target, opts)
	if err != nil {
		return nil, err
	}
	return w.Clone(), nil
}

func (e *Engine) transitionLocked(ctx context.Context, campaignID string, target domain.WorkflowState, opts TransitionOptions) (*domain.Workflow, error) {
	w, ok := e.workflows[campaignID]
	if !ok {
		return nil, &WorkflowNotFoundError{CampaignID: campaignID}
	}

	if opts.TriggeredBy == "" {
		opts.TriggeredBy = "system"
	}

	if !opts.SkipValidation {
		if !domain.CanTransition(w.CurrentState, target) {
			return nil, &InvalidTransitionError{CampaignID: campaignID, From: w.CurrentState, To: target}
		}
		if pending := e.pendingApprovalTypesLocked(w); len(pending) > 0 {
			return nil, &PendingApprovalsError{CampaignID: campaignID, PendingTypes: pending}
		}
	}

	now := e.now()
	previous := w.CurrentState

	record := domain.TransitionRecord{
		ID:          uuid.New().String(),
		From:        previous,
		To:          target,
		Timestamp:   now,
		TriggeredBy: opts.TriggeredBy,
		Reason:      opts.Reason,
		Metadata:    opts.Metadata,
	}

	w.PreviousStates = append(w.PreviousStates, previous)
	w.CurrentState = target
	w.NextPossibleStates = domain.NextStates(target)
	w.Transitions = append(w.Transitions, record)
	w.StateHistory = append(w.StateHistory, domain.HistoryEntry{
		State:       target,
		Timestamp:   now,
		TriggeredBy: opts.TriggeredBy,
		Reason:      opts.Reason,
	})
	w.LastUpdated = now
	w.Version++

	e.persistAsync(w)

	// Post-transition side effects, keyed by the new state. The transition
	// is already committed; none of these can fail it.
	switch target {
	case domain.StateActive:
		e.publishAsync(events.EventCampaignActivated, map[string]any{
			"campaign_id": w.CampaignID,
			"business_id": w.BusinessID,
		})
	case domain.StateCompleted:
		e.publishAsync(events.EventCampaignCompleted, map[string]any{
			"campaign_id":   w.CampaignID,
			"influencer_id": w.InfluencerID,
		})
	case domain.StateSettled:
		e.publishAsync(events.EventSettlementTrigger, map[string]any{
			"campaign_id":   w.CampaignID,
			"business_id":   w.BusinessID,
			"influencer_id": w.InfluencerID,
		})
	}

	e.publishAsync(events.EventStateChanged, map[string]any{
		"campaign_id":    w.CampaignID,
		"previous_state": string(previous),
		"current_state":  string(target),
		"transition":     record,
	})

	log.Printf("[workflow] transition campaign=%s %s -> %s by=%s",
		w.CampaignID, previous, target, opts.TriggeredBy)
	return w, nil
}

// CancelCampaign force-transitions a campaign to CANCELLED from any
// non-terminal state, bypassing both the transition graph and pending
// approval checks. This is the only caller of the skip-validation path.
func (e *Engine) CancelCampaign(ctx context.Context, campaignID, reason string) (*domain.Workflow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.workflows[campaignID]
	if !ok {
		return nil, &WorkflowNotFoundError{CampaignID: campaignID}
	}
	if w.CurrentState.IsTerminal() {
		return nil, &InvalidTransitionError{CampaignID: campaignID, From: w.CurrentState, To: domain.StateCancelled}
	}

	out, err := e.transitionLocked(ctx, campaignID, domain.StateCancelled, TransitionOptions{
		TriggeredBy:    "system",
		Reason:         fmt.Sprintf("campaign cancelled: %s", reason),
		SkipValidation: true,
	})
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

// GetWorkflow returns a snapshot of the workflow for a campaign.
func (e *Engine) GetWorkflow(campaignID string) (*domain.Workflow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.workflows[campaignID]
	if !ok {
		return nil, &WorkflowNotFoundError{CampaignID: campaignID}
	}
	return w.Clone(), nil
}

// History bundles the audit trail of a workflow.
type History struct {
	CampaignID   string                    `json:"campaign_id"`
	CurrentState domain.WorkflowState      `json:"current_state"`
	StateHistory []domain.HistoryEntry     `json:"state_history"`
	Transitions  []domain.TransitionRecord `json:"transitions"`
}

// GetWorkflowHistory returns the state history and transition records.
func (e *Engine) GetWorkflowHistory(campaignID string) (*History, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.workflows[campaignID]
	if !ok {
		return nil, &WorkflowNotFoundError{CampaignID: campaignID}
	}
	cp := w.Clone()
	return &History{
		CampaignID:   cp.CampaignID,
		CurrentState: cp.CurrentState,
		StateHistory: cp.StateHistory,
		Transitions:  cp.Transitions,
	}, nil
}

// ApprovalSummary is the approval status of one campaign.
type ApprovalSummary struct {
	CampaignID string            `json:"campaign_id"`
	Approvals  []domain.Approval `json:"approvals"`
	Pending    int               `json:"pending"`
}

// GetApprovalStatus returns every approval for a campaign with a pending
// count.
func (e *Engine) GetApprovalStatus(campaignID string) (*ApprovalSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.workflows[campaignID]
	if !ok {
		return nil, &WorkflowNotFoundError{CampaignID: campaignID}
	}

	out := &ApprovalSummary{CampaignID: campaignID}
	for _, id := range w.ApprovalIDs {
		a, ok := e.approvals[id]
		if !ok {
			continue
		}
		out.Approvals = append(out.Approvals, *a.Clone())
		if a.Status == domain.ApprovalPending {
			out.Pending++
		}
	}
	return out, nil
}

// Health is the engine health report.
type Health struct {
	Status           string    `json:"status"`
	ActiveWorkflows  int       `json:"active_workflows"`
	PendingApprovals int       `json:"pending_approvals"`
	AutomationRules  int       `json:"automation_rules"`
	Timestamp        time.Time `json:"timestamp"`
}

// HealthCheck reports engine counters. There is no deep verification; the
// engine is healthy as long as it is running.
func (e *Engine) HealthCheck() Health {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending := 0
	for _, a := range e.approvals {
		if a.Status == domain.ApprovalPending {
			pending++
		}
	}
	return Health{
		Status:           "healthy",
		ActiveWorkflows:  len(e.workflows),
		PendingApprovals: pending,
		AutomationRules:  len(e.rules),
		Timestamp:        e.now(),
	}
}

// Flush blocks until all queued side effects (publishes, persists,
// webhook calls) have completed. Intended for tests and shutdown.
func (e *Engine) Flush() {
	e.bg.flush()
}

// Close stops the scheduler and drains the side-effect queue.
func (e *Engine) Close() {
	e.Stop()
	e.bg.close()
}

// persistAsync snapshots the workflow and persists it on the background
// dispatcher. Failures are logged only.
func (e *Engine) persistAsync(w *domain.Workflow) {
	snapshot := w.Clone()
	e.bg.submit("persist", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.store.PersistWorkflow(ctx, snapshot); err != nil {
			log.Printf("[workflow] persist failed campaign=%s: %v", snapshot.CampaignID, err)
		}
	})
}

func (e *Engine) persistApprovalAsync(a *domain.Approval) {
	snapshot := a.Clone()
	e.bg.submit("persist-approval", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.store.PersistApproval(ctx, snapshot); err != nil {
			log.Printf("[workflow] persist approval failed id=%s: %v", snapshot.ID, err)
		}
	})
}

// publishAsync publishes on the background dispatcher. Failures are logged
// only; publication never affects the operation that queued it.
func (e *Engine) publishAsync(name string, data map[string]any) {
	e.bg.submit(name, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.bus.Publish(ctx, name, data); err != nil {
			log.Printf("[workflow] publish %s failed: %v", name, err)
		}
	})
}
