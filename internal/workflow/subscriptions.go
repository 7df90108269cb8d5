package workflow

import (
	"context"
	"fmt"
	"log"

	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/events"
)

// registerSubscriptions wires the engine's inbound triggers onto the bus.
func (e *Engine) registerSubscriptions() {
	e.bus.Subscribe(events.EventPaymentCompleted, e.handlePaymentCompleted)
	e.bus.Subscribe(events.EventContentSubmitted, e.handleContentSubmitted)
	e.bus.Subscribe(events.EventContentApproved, e.handleContentApproved)
}

func campaignIDFrom(data map[string]any) (string, error) {
	id, _ := data["campaign_id"].(string)
	if id == "" {
		return "", fmt.Errorf("event missing campaign_id")
	}
	return id, nil
}

// handlePaymentCompleted runs every matching payment_completed rule for
// the campaign. All matches execute; this path is deliberately not
// first-match-wins.
func (e *Engine) handlePaymentCompleted(ctx context.Context, data map[string]any) error {
	campaignID, err := campaignIDFrom(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.workflows[campaignID]
	if !ok {
		return &WorkflowNotFoundError{CampaignID: campaignID}
	}
	e.runPaymentRulesLocked(ctx, w)
	return nil
}

// handleContentSubmitted moves the campaign to REVIEW. A failed
// transition is logged by the bus, nothing more.
func (e *Engine) handleContentSubmitted(ctx context.Context, data map[string]any) error {
	campaignID, err := campaignIDFrom(data)
	if err != nil {
		return err
	}
	if _, err := e.TransitionState(ctx, campaignID, domain.StateReview, TransitionOptions{
		TriggeredBy: "content.submitted",
		Reason:      "content submitted for review",
	}); err != nil {
		log.Printf("[workflow] content.submitted transition failed campaign=%s: %v", campaignID, err)
	}
	return nil
}

// handleContentApproved moves the campaign to COMPLETED; failures logged
// only.
func (e *Engine) handleContentApproved(ctx context.Context, data map[string]any) error {
	campaignID, err := campaignIDFrom(data)
	if err != nil {
		return err
	}
	if _, err := e.TransitionState(ctx, campaignID, domain.StateCompleted, TransitionOptions{
		TriggeredBy: "content.approved",
		Reason:      "content approved",
	}); err != nil {
		log.Printf("[workflow] content.approved transition failed campaign=%s: %v", campaignID, err)
	}
	return nil
}
