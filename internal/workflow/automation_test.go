package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateConditionOperators(t *testing.T) {
	e, _, _ := newTestEngine(t)
	initCampaign(t, e, "c1", domain.TypeOther)

	e.mu.Lock()
	wf := e.workflows["c1"]
	wf.Metadata["budget"] = 5000.0
	wf.Metadata["tags"] = []any{"beauty", "fitness"}
	wf.Metadata["endDate"] = "2020-06-01T00:00:00Z"
	e.mu.Unlock()

	tests := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		{"equals state", domain.Condition{Field: domain.FieldCurrentState, Operator: domain.OpEquals, Value: "DRAFT"}, true},
		{"equals state miss", domain.Condition{Field: domain.FieldCurrentState, Operator: domain.OpEquals, Value: "ACTIVE"}, false},
		{"equals numeric json float vs int", domain.Condition{Field: "budget", Operator: domain.OpEquals, Value: 5000}, true},
		{"not equals", domain.Condition{Field: domain.FieldCurrentState, Operator: domain.OpNotEquals, Value: "ACTIVE"}, true},
		{"gt", domain.Condition{Field: "budget", Operator: domain.OpGT, Value: 4999}, true},
		{"gt miss", domain.Condition{Field: "budget", Operator: domain.OpGT, Value: 5000}, false},
		{"gte boundary", domain.Condition{Field: "budget", Operator: domain.OpGTE, Value: 5000}, true},
		{"lt", domain.Condition{Field: "budget", Operator: domain.OpLT, Value: 5001}, true},
		{"lte numeric", domain.Condition{Field: "budget", Operator: domain.OpLTE, Value: 5000}, true},
		{"lte now past deadline", domain.Condition{Field: domain.FieldEndDate, Operator: domain.OpLTE, Value: domain.NowValue}, true},
		{"gt non-numeric fails closed", domain.Condition{Field: domain.FieldCurrentState, Operator: domain.OpGT, Value: 1}, false},
		{"contains", domain.Condition{Field: "tags", Operator: domain.OpContains, Value: "beauty"}, true},
		{"contains miss", domain.Condition{Field: "tags", Operator: domain.OpContains, Value: "gaming"}, false},
		{"contains on scalar fails closed", domain.Condition{Field: "budget", Operator: domain.OpContains, Value: "x"}, false},
		{"count pending approvals", domain.Condition{Field: domain.FieldPendingApprovals, Operator: domain.OpCount, Value: 2}, true},
		{"count mismatch", domain.Condition{Field: domain.FieldPendingApprovals, Operator: domain.OpCount, Value: 0}, false},
		{"unknown operator fails closed", domain.Condition{Field: domain.FieldCurrentState, Operator: "matches_regex", Value: ".*"}, false},
		{"unknown field is nil", domain.Condition{Field: "nonexistent", Operator: domain.OpGT, Value: 1}, false},
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.evaluateConditionLocked(tt.cond, wf))
		})
	}
}

func TestLTENowWithFutureDeadline(t *testing.T) {
	e, _, _ := newTestEngine(t)
	initCampaign(t, e, "c1", domain.TypeOther)

	e.mu.Lock()
	defer e.mu.Unlock()
	wf := e.workflows["c1"]
	wf.Metadata["endDate"] = time.Now().Add(time.Hour).Format(time.RFC3339)

	c := domain.Condition{Field: domain.FieldEndDate, Operator: domain.OpLTE, Value: domain.NowValue}
	assert.False(t, e.evaluateConditionLocked(c, wf))

	// Missing endDate never matches a deadline check.
	delete(wf.Metadata, "endDate")
	assert.False(t, e.evaluateConditionLocked(c, wf))
}

func TestEndDateFormats(t *testing.T) {
	e, _, _ := newTestEngine(t)
	initCampaign(t, e, "c1", domain.TypeOther)

	e.mu.Lock()
	defer e.mu.Unlock()
	wf := e.workflows["c1"]
	c := domain.Condition{Field: domain.FieldEndDate, Operator: domain.OpLTE, Value: domain.NowValue}

	wf.Metadata["endDate"] = "2020-01-15" // date-only form
	assert.True(t, e.evaluateConditionLocked(c, wf))

	wf.Metadata["endDate"] = time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.True(t, e.evaluateConditionLocked(c, wf))

	wf.Metadata["endDate"] = "not a date"
	assert.False(t, e.evaluateConditionLocked(c, wf))
}

func TestFieldValueFallbacks(t *testing.T) {
	e, _, _ := newTestEngine(t)
	initCampaign(t, e, "c1", domain.TypeSponsoredPost)

	e.mu.Lock()
	defer e.mu.Unlock()
	wf := e.workflows["c1"]

	assert.Equal(t, "c1", e.fieldValueLocked("campaignId", wf))
	assert.Equal(t, "biz-1", e.fieldValueLocked("businessId", wf))
	assert.Equal(t, "inf-1", e.fieldValueLocked("influencerId", wf))
	assert.Equal(t, "sponsored_post", e.fieldValueLocked("type", wf))
	assert.Equal(t, 1, e.fieldValueLocked("version", wf))

	// Metadata shadows the top-level fallback.
	wf.Metadata["type"] = "override"
	assert.Equal(t, "override", e.fieldValueLocked("type", wf))
}

func TestAutoDetermineFollowsDefaultPath(t *testing.T) {
	e, _, _ := newTestEngine(t)
	disableRule(t, e, "Auto Progress After Approvals")
	initCampaign(t, e, "c1", domain.TypeOther)
	approveAll(t, e, "c1")

	rule := &domain.Rule{
		ID:      "r-auto",
		Name:    "auto",
		Trigger: domain.TriggerCustom,
		Enabled: true,
		Actions: []domain.Action{
			{Type: domain.ActionTransitionState, TargetState: domain.AutoDetermine},
		},
	}

	// Walk the default path: DRAFT -> ACTIVE -> REVIEW -> COMPLETED -> SETTLED.
	want := []domain.WorkflowState{
		domain.StateActive, domain.StateReview, domain.StateCompleted, domain.StateSettled,
	}
	for _, s := range want {
		e.mu.Lock()
		e.executeRuleLocked(context.Background(), rule, e.workflows["c1"])
		e.mu.Unlock()
		w, err := e.GetWorkflow("c1")
		require.NoError(t, err)
		assert.Equal(t, s, w.CurrentState)
	}
	assert.Equal(t, len(want), rule.ExecutionCount)
}

func TestRuleActionFailureDoesNotStopRemainingActions(t *testing.T) {
	e, _, rec := newTestEngine(t)
	initCampaign(t, e, "c1", domain.TypeOther)

	rule := &domain.Rule{
		ID:      "r-1",
		Name:    "broken then fine",
		Trigger: domain.TriggerCustom,
		Enabled: true,
		Actions: []domain.Action{
			// Invalid transition: DRAFT -> REVIEW with pending approvals.
			{Type: domain.ActionTransitionState, TargetState: domain.StateReview},
			{Type: domain.ActionSendNotification, Template: "still_runs"},
		},
	}

	e.mu.Lock()
	e.executeRuleLocked(context.Background(), rule, e.workflows["c1"])
	e.mu.Unlock()
	e.Flush()

	w, err := e.GetWorkflow("c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateDraft, w.CurrentState)
	assert.Equal(t, 1, rec.count(events.EventNotificationSend))
	assert.Equal(t, 1, rec.count(events.EventRuleExecuted))
}

func TestUnknownActionTypeSkipped(t *testing.T) {
	e, _, rec := newTestEngine(t)
	initCampaign(t, e, "c1", domain.TypeOther)

	rule := &domain.Rule{
		ID:      "r-1",
		Name:    "with unknown action",
		Trigger: domain.TriggerCustom,
		Enabled: true,
		Actions: []domain.Action{
			{Type: "teleport_campaign"},
			{Type: domain.ActionSendNotification, Template: "after_unknown"},
		},
	}

	e.mu.Lock()
	e.executeRuleLocked(context.Background(), rule, e.workflows["c1"])
	e.mu.Unlock()
	e.Flush()

	assert.Equal(t, 1, rec.count(events.EventNotificationSend))
}

func TestCreateApprovalAction(t *testing.T) {
	e, _, rec := newTestEngine(t)
	initCampaign(t, e, "c1", domain.TypeOther)

	rule := &domain.Rule{
		ID:      "r-1",
		Name:    "escalate",
		Trigger: domain.TriggerCustom,
		Enabled: true,
		Actions: []domain.Action{
			{
				Type:                domain.ActionCreateApproval,
				ApprovalType:        domain.ApprovalAdmin,
				Approver:            "admin-team",
				ApprovalDescription: "manual escalation",
			},
		},
	}

	e.mu.Lock()
	e.executeRuleLocked(context.Background(), rule, e.workflows["c1"])
	e.mu.Unlock()
	e.Flush()

	sum, err := e.GetApprovalStatus("c1")
	require.NoError(t, err)
	require.Len(t, sum.Approvals, 3)
	added := sum.Approvals[2]
	assert.Equal(t, domain.ApprovalAdmin, added.Type)
	assert.Equal(t, "admin-team", added.Approver)
	assert.Equal(t, "manual escalation", added.Description)

	// 2 from setup, 1 from the rule.
	assert.Equal(t, 3, rec.count(events.EventApprovalRequired))
}

func TestExecuteWebhookAction(t *testing.T) {
	fake := &fakeCaller{}
	bus := events.NewMemoryBus()
	e, err := New(Options{Bus: bus, Webhooks: fake})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	initCampaign(t, e, "c1", domain.TypeOther)

	rule := &domain.Rule{
		ID:      "r-1",
		Name:    "notify partner",
		Trigger: domain.TriggerCustom,
		Enabled: true,
		Actions: []domain.Action{
			{Type: domain.ActionExecuteWebhook, URL: "https://partner.example/hook", Data: map[string]any{"k": "v"}},
		},
	}

	e.mu.Lock()
	e.executeRuleLocked(context.Background(), rule, e.workflows["c1"])
	e.mu.Unlock()
	e.Flush()

	require.Len(t, fake.calls, 1)
	assert.Equal(t, "https://partner.example/hook", fake.calls[0].url)
	assert.Equal(t, "notify partner", fake.calls[0].payload["rule"])
}

type fakeCall struct {
	url     string
	payload map[string]any
}

type fakeCaller struct {
	calls []fakeCall
}

func (f *fakeCaller) Call(_ context.Context, url string, payload map[string]any) error {
	f.calls = append(f.calls, fakeCall{url: url, payload: payload})
	return nil
}

func TestDisabledScheduleRuleIgnored(t *testing.T) {
	e, _, _ := newTestEngine(t)
	disableRule(t, e, "Auto Complete Campaign")
	_, err := e.InitializeCampaignWorkflow(context.Background(), CampaignInput{
		CampaignID: "c1",
		Type:       domain.TypeOther,
		Metadata:   map[string]any{"endDate": "2020-01-01T00:00:00Z"},
	})
	require.NoError(t, err)
	approveAll(t, e, "c1")

	e.tick(context.Background())

	w, err := e.GetWorkflow("c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, w.CurrentState)
}
