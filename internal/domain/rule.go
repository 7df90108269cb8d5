package domain

import "time"

// RuleTrigger is the event class that causes a rule to be evaluated.
type RuleTrigger string

const (
	TriggerSchedule          RuleTrigger = "schedule"
	TriggerApprovalCompleted RuleTrigger = "approval_completed"
	TriggerPaymentCompleted  RuleTrigger = "payment_completed"
	TriggerCustom            RuleTrigger = "custom"
)

// ConditionField names a value a condition can inspect. The well-known
// fields have fixed accessors; any other value is looked up in the
// workflow metadata map, falling back to top-level workflow fields.
type ConditionField string

const (
	FieldCurrentState     ConditionField = "currentState"
	FieldPendingApprovals ConditionField = "pendingApprovals"
	FieldEndDate          ConditionField = "endDate"
)

// Operator is a closed set of condition comparisons. Unknown operators
// evaluate to false (fail-closed).
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpGT        Operator = "gt"
	OpGTE       Operator = "gte"
	OpLT        Operator = "lt"
	OpLTE       Operator = "lte"
	OpContains  Operator = "contains"
	OpCount     Operator = "count"
)

// NowValue is the sentinel comparison value for OpLTE that requests a
// deadline check against the current time instead of a numeric compare.
const NowValue = "now"

// Condition is one predicate of a rule. All conditions in a rule must hold
// for the rule to fire.
type Condition struct {
	Field    ConditionField `json:"field"`
	Operator Operator       `json:"operator"`
	Value    any            `json:"value"`
}

// ActionType is a closed set of rule actions. Unknown types are logged and
// skipped without aborting the rest of the action list.
type ActionType string

const (
	ActionTransitionState  ActionType = "transition_state"
	ActionSendNotification ActionType = "send_notification"
	ActionCreateApproval   ActionType = "create_approval"
	ActionExecuteWebhook   ActionType = "execute_webhook"
)

// AutoDetermine is the sentinel target state for ActionTransitionState that
// asks the engine to resolve the natural next state at execution time.
const AutoDetermine WorkflowState = "auto_determine"

// Action is one step executed when a rule fires. Only the fields relevant
// to its Type are used.
type Action struct {
	Type ActionType `json:"type"`

	// ActionTransitionState
	TargetState WorkflowState `json:"target_state,omitempty"`
	Reason      string        `json:"reason,omitempty"`

	// ActionSendNotification
	Template   string         `json:"template,omitempty"`
	Recipients []string       `json:"recipients,omitempty"`
	Data       map[string]any `json:"data,omitempty"`

	// ActionCreateApproval
	ApprovalType        ApprovalType `json:"approval_type,omitempty"`
	Approver            string       `json:"approver,omitempty"`
	ApprovalDescription string       `json:"approval_description,omitempty"`

	// ActionExecuteWebhook
	URL string `json:"url,omitempty"`
}

// Rule binds conditions to actions for a trigger. Immutable once registered
// except for Enabled, LastExecuted and ExecutionCount.
type Rule struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	Trigger        RuleTrigger `json:"trigger"`
	Conditions     []Condition `json:"conditions"`
	Actions        []Action    `json:"actions"`
	Priority       int         `json:"priority"`
	Enabled        bool        `json:"enabled"`
	CreatedAt      time.Time   `json:"created_at"`
	LastExecuted   *time.Time  `json:"last_executed,omitempty"`
	ExecutionCount int         `json:"execution_count"`
}
