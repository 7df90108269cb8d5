package workflow

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/events"
)

// seedDefaultRules registers the three built-in automation rules. Order
// matters: approval_completed rules execute first-match-wins in
// registration order.
func (e *Engine) seedDefaultRules() {
	e.rules = append(e.rules,
		&domain.Rule{
			ID:          uuid.New().String(),
			Name:        "Auto Complete Campaign",
			Description: "Move active campaigns to review once their end date passes",
			Trigger:     domain.TriggerSchedule,
			Conditions: []domain.Condition{
				{Field: domain.FieldCurrentState, Operator: domain.OpEquals, Value: string(domain.StateActive)},
				{Field: domain.FieldEndDate, Operator: domain.OpLTE, Value: domain.NowValue},
			},
			Actions: []domain.Action{
				{Type: domain.ActionTransitionState, TargetState: domain.StateReview, Reason: "campaign end date reached"},
				{Type: domain.ActionSendNotification, Template: "campaign_review_started"},
			},
			Priority:  1,
			Enabled:   true,
			CreatedAt: e.now(),
		},
		&domain.Rule{
			ID:          uuid.New().String(),
			Name:        "Auto Progress After Approvals",
			Description: "Advance the workflow once every approval has resolved",
			Trigger:     domain.TriggerApprovalCompleted,
			Conditions: []domain.Condition{
				{Field: domain.FieldPendingApprovals, Operator: domain.OpCount, Value: 0},
			},
			Actions: []domain.Action{
				{Type: domain.ActionTransitionState, TargetState: domain.AutoDetermine, Reason: "all approvals resolved"},
			},
			Priority:  2,
			Enabled:   true,
			CreatedAt: e.now(),
		},
		&domain.Rule{
			ID:          uuid.New().String(),
			Name:        "Activate After Payment",
			Description: "Activate a draft campaign when its payment completes",
			Trigger:     domain.TriggerPaymentCompleted,
			Conditions: []domain.Condition{
				{Field: domain.FieldCurrentState, Operator: domain.OpEquals, Value: string(domain.StateDraft)},
			},
			Actions: []domain.Action{
				{Type: domain.ActionTransitionState, TargetState: domain.StateActive, Reason: "payment completed"},
				{Type: domain.ActionSendNotification, Template: "campaign_activated"},
			},
			Priority:  3,
			Enabled:   true,
			CreatedAt: e.now(),
		},
	)
}

// AddRule registers an automation rule at the end of the evaluation order.
func (e *Engine) AddRule(r domain.Rule) (*domain.Rule, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("workflow: rule name is required")
	}
	switch r.Trigger {
	case domain.TriggerSchedule, domain.TriggerApprovalCompleted,
		domain.TriggerPaymentCompleted, domain.TriggerCustom:
	default:
		return nil, fmt.Errorf("workflow: unknown rule trigger %q", r.Trigger)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = e.now()
	}
	rule := r
	e.rules = append(e.rules, &rule)
	cp := rule
	return &cp, nil
}

// Rules returns a snapshot of the rule registry in evaluation order.
func (e *Engine) Rules() []domain.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Rule, len(e.rules))
	for i, r := range e.rules {
		out[i] = *r
	}
	return out
}

// SetRuleEnabled toggles a rule. Enabled is the only mutable rule field
// besides the execution counters.
func (e *Engine) SetRuleEnabled(ruleID string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.rules {
		if r.ID == ruleID {
			r.Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("workflow: rule not found: %s", ruleID)
}

// runPaymentRulesLocked evaluates every enabled payment_completed rule for
// the workflow and executes all matches. Unlike the approval path this is
// deliberately not first-match-wins.
func (e *Engine) runPaymentRulesLocked(ctx context.Context, w *domain.Workflow) {
	for _, r := range e.rules {
		if !r.Enabled || r.Trigger != domain.TriggerPaymentCompleted {
			continue
		}
		if e.conditionsMatchLocked(r, w) {
			e.executeRuleLocked(ctx, r, w)
		}
	}
}

// conditionsMatchLocked reports whether every condition of the rule holds
// for the workflow (logical AND).
func (e *Engine) conditionsMatchLocked(r *domain.Rule, w *domain.Workflow) bool {
	for _, c := range r.Conditions {
		if !e.evaluateConditionLocked(c, w) {
			return false
		}
	}
	return true
}

// fieldValueLocked resolves a condition field against the workflow.
// Well-known fields have fixed accessors; anything else reads the metadata
// map and falls back to top-level workflow fields.
func (e *Engine) fieldValueLocked(f domain.ConditionField, w *domain.Workflow) any {
	switch f {
	case domain.FieldCurrentState:
		return string(w.CurrentState)
	case domain.FieldPendingApprovals:
		return e.pendingApprovalIDsLocked(w)
	case domain.FieldEndDate:
		return w.Metadata["endDate"]
	}
	if v, ok := w.Metadata[string(f)]; ok {
		return v
	}
	switch string(f) {
	case "campaignId":
		return w.CampaignID
	case "businessId":
		return w.BusinessID
	case "influencerId":
		return w.InfluencerID
	case "type":
		return string(w.Type)
	case "version":
		return w.Version
	}
	return nil
}

func (e *Engine) evaluateConditionLocked(c domain.Condition, w *domain.Workflow) bool {
	fieldValue := e.fieldValueLocked(c.Field, w)

	switch c.Operator {
	case domain.OpEquals:
		return looseEquals(fieldValue, c.Value)
	case domain.OpNotEquals:
		return !looseEquals(fieldValue, c.Value)
	case domain.OpGT:
		a, b, ok := bothFloats(fieldValue, c.Value)
		return ok && a > b
	case domain.OpGTE:
		a, b, ok := bothFloats(fieldValue, c.Value)
		return ok && a >= b
	case domain.OpLT:
		a, b, ok := bothFloats(fieldValue, c.Value)
		return ok && a < b
	case domain.OpLTE:
		// "now" requests a deadline check against the clock.
		if s, isStr := c.Value.(string); isStr && s == domain.NowValue {
			t, ok := timeValue(fieldValue)
			return ok && !t.After(e.now())
		}
		a, b, ok := bothFloats(fieldValue, c.Value)
		return ok && a <= b
	case domain.OpContains:
		items, ok := stringSlice(fieldValue)
		if !ok {
			return false
		}
		want := fmt.Sprint(c.Value)
		for _, it := range items {
			if it == want {
				return true
			}
		}
		return false
	case domain.OpCount:
		items, ok := stringSlice(fieldValue)
		if !ok {
			return false
		}
		n, ok := toFloat(c.Value)
		return ok && float64(len(items)) == n
	default:
		// Unknown operator: fail closed.
		return false
	}
}

// executeRuleLocked runs the rule's actions in order against the workflow.
// Each action failure is logged and does not stop the remaining actions.
func (e *Engine) executeRuleLocked(ctx context.Context, r *domain.Rule, w *domain.Workflow) {
	now := e.now()
	r.LastExecuted = &now
	r.ExecutionCount++

	log.Printf("[workflow] executing rule %q campaign=%s", r.Name, w.CampaignID)
	for _, a := range r.Actions {
		if err := e.executeActionLocked(ctx, r, a, w); err != nil {
			log.Printf("[workflow] rule %q action %s failed campaign=%s: %v",
				r.Name, a.Type, w.CampaignID, err)
		}
	}

	e.publishAsync(events.EventRuleExecuted, map[string]any{
		"rule_id":     r.ID,
		"rule_name":   r.Name,
		"campaign_id": w.CampaignID,
		"executed_at": now,
	})
}

func (e *Engine) executeActionLocked(ctx context.Context, r *domain.Rule, a domain.Action, w *domain.Workflow) error {
	switch a.Type {
	case domain.ActionTransitionState:
		target := a.TargetState
		if target == domain.AutoDetermine {
			target = domain.DefaultNextState(w.CurrentState)
		}
		_, err := e.transitionLocked(ctx, w.CampaignID, target, TransitionOptions{
			TriggeredBy: "automation",
			Reason:      a.Reason,
			Metadata:    map[string]any{"rule_id": r.ID, "rule_name": r.Name},
		})
		return err

	case domain.ActionSendNotification:
		bindings := map[string]any{
			"campaign_id":   w.CampaignID,
			"business_id":   w.BusinessID,
			"influencer_id": w.InfluencerID,
			"current_state": string(w.CurrentState),
		}
		for k, v := range a.Data {
			bindings[k] = v
		}
		e.publishAsync(events.EventNotificationSend, map[string]any{
			"template":    a.Template,
			"recipients":  a.Recipients,
			"body":        e.notifier.Render(a.Template, bindings),
			"data":        bindings,
			"campaign_id": w.CampaignID,
		})
		return nil

	case domain.ActionCreateApproval:
		e.createApprovalLocked(ctx, w.CampaignID, ApprovalInput{
			Type:        a.ApprovalType,
			Approver:    a.Approver,
			Description: a.ApprovalDescription,
		})
		return nil

	case domain.ActionExecuteWebhook:
		if e.webhooks == nil {
			return fmt.Errorf("no webhook caller configured")
		}
		url := a.URL
		payload := map[string]any{
			"rule":     r.Name,
			"data":     a.Data,
			"workflow": w.Clone(),
		}
		e.bg.submit("webhook", func() {
			wctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := e.webhooks.Call(wctx, url, payload); err != nil {
				log.Printf("[workflow] webhook %s failed: %v", url, err)
			}
		})
		return nil

	default:
		// Unknown action types are logged and skipped, never fatal.
		log.Printf("[workflow] unknown action type %q in rule %q", a.Type, r.Name)
		return nil
	}
}

// looseEquals compares numerically when both values parse as numbers,
// otherwise by string form. Condition values arrive from JSON, so ints and
// floats must compare equal.
func looseEquals(a, b any) bool {
	if fa, fb, ok := bothFloatsStrict(a, b); ok {
		return fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func bothFloats(a, b any) (float64, float64, bool) {
	fa, ok := toFloat(a)
	if !ok {
		return 0, 0, false
	}
	fb, ok := toFloat(b)
	if !ok {
		return 0, 0, false
	}
	return fa, fb, true
}

// bothFloatsStrict is bothFloats without string coercion, so "1x" never
// equals 1 but 1 and 1.0 compare numerically.
func bothFloatsStrict(a, b any) (float64, float64, bool) {
	fa, ok := numericFloat(a)
	if !ok {
		return 0, 0, false
	}
	fb, ok := numericFloat(b)
	if !ok {
		return 0, 0, false
	}
	return fa, fb, true
}

func numericFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	if f, ok := numericFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// timeValue coerces metadata values into a time: time.Time directly,
// strings via RFC3339 then date-only form.
func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts, true
		}
		if ts, err := time.Parse("2006-01-02", t); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// stringSlice coerces slice-valued fields into []string.
func stringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, len(s))
		for i, it := range s {
			out[i] = fmt.Sprint(it)
		}
		return out, true
	case nil:
		return nil, false
	}
	return nil, false
}
