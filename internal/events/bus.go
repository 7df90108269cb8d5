// Package events defines the publish/subscribe boundary between the
// workflow engine and the rest of the platform, with in-memory, Redis
// pub/sub and SQS backends.
package events

import "context"

// Published event names (contract with consumers).
const (
	EventWorkflowInitialized = "campaign.workflow.initialized"
	EventStateChanged        = "campaign.state.changed"
	EventCampaignActivated   = "campaign.activated"
	EventCampaignCompleted   = "campaign.completed"
	EventSettlementTrigger   = "settlement.trigger"
	EventApprovalRequired    = "approval.required"
	EventApprovalCompleted   = "approval.completed"
	EventRuleExecuted        = "automation.rule.executed"
	EventNotificationSend    = "notification.send"
)

// Consumed event names (inbound triggers).
const (
	EventPaymentCompleted = "payment.completed"
	EventContentSubmitted = "content.submitted"
	EventContentApproved  = "content.approved"
)

// Handler processes one delivered event. Handler errors are logged by the
// bus and never propagate to the publisher.
type Handler func(ctx context.Context, data map[string]any) error

// Bus is the engine's event transport. Publish delivers a named event to
// all subscribers; Subscribe registers a handler for a named event.
type Bus interface {
	Publish(ctx context.Context, name string, data map[string]any) error
	Subscribe(name string, h Handler)
}
