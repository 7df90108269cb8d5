package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/events"
	"github.com/ignite/campaign-engine/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *workflow.Engine) {
	t.Helper()
	engine, err := workflow.New(workflow.Options{Bus: events.NewMemoryBus()})
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	ts := httptest.NewServer(NewServer(engine).Routes())
	t.Cleanup(ts.Close)
	return ts, engine
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		out = nil
	}
	return resp, out
}

func createCampaign(t *testing.T, ts *httptest.Server, id string, typ domain.CampaignType) {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/workflows", map[string]any{
		"campaign_id":   id,
		"business_id":   "biz-1",
		"influencer_id": "inf-1",
		"type":          string(typ),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateAndGetWorkflow(t *testing.T) {
	ts, _ := newTestServer(t)
	createCampaign(t, ts, "c1", domain.TypeProductReview)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/workflows/c1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "c1", body["campaign_id"])
	assert.Equal(t, "DRAFT", body["current_state"])
	assert.Len(t, body["approval_ids"], 4)
}

func TestCreateWorkflowDuplicate(t *testing.T) {
	ts, _ := newTestServer(t)
	createCampaign(t, ts, "c1", domain.TypeOther)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/workflows", map[string]any{
		"campaign_id": "c1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "c1")
}

func TestCreateWorkflowMissingID(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/workflows", map[string]any{
		"type": "other",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflowNotFound(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/workflows/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransitionPendingApprovals(t *testing.T) {
	ts, _ := newTestServer(t)
	createCampaign(t, ts, "c1", domain.TypeSponsoredPost)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/workflows/c1/transition", map[string]any{
		"target_state": "ACTIVE",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "pending_approvals", body["code"])

	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["pending_types"], 3)
}

func TestTransitionInvalidTarget(t *testing.T) {
	ts, _ := newTestServer(t)
	createCampaign(t, ts, "c1", domain.TypeOther)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/workflows/c1/transition", map[string]any{
		"target_state": "WARP_SPEED",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApprovalDecisionFlow(t *testing.T) {
	ts, _ := newTestServer(t)
	createCampaign(t, ts, "c1", domain.TypeOther)

	resp, sum := doJSON(t, http.MethodGet, ts.URL+"/api/workflows/c1/approvals", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), sum["pending"])

	approvals := sum["approvals"].([]any)
	for _, raw := range approvals {
		a := raw.(map[string]any)
		resp, body := doJSON(t, http.MethodPost,
			fmt.Sprintf("%s/api/approvals/%s/decision", ts.URL, a["id"]),
			map[string]any{
				"decision":      "approved",
				"comments":      "looks good",
				"approver_id":   "u-1",
				"approver_name": "Reviewer",
			})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "approved", body["status"])
	}

	// All approvals resolved: the auto-progress rule should have moved
	// the workflow out of DRAFT.
	resp, wf := doJSON(t, http.MethodGet, ts.URL+"/api/workflows/c1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ACTIVE", wf["current_state"])
}

func TestApprovalDecisionNotFound(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/approvals/missing/decision", map[string]any{
		"decision":    "approved",
		"approver_id": "u-1",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateApprovalEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	createCampaign(t, ts, "c1", domain.TypeOther)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/workflows/c1/approvals", map[string]any{
		"type":        "admin",
		"description": "manual check",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "admin", body["type"])
	assert.Equal(t, "auto_assign", body["approver"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/workflows/c1/approvals", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCancelEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	createCampaign(t, ts, "c1", domain.TypeBrandPartnership)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/workflows/c1/cancel", map[string]any{
		"reason": "budget cut",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CANCELLED", body["current_state"])

	// Cancelling twice conflicts: the workflow is terminal.
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/workflows/c1/cancel", map[string]any{
		"reason": "again",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", body["code"])
}

func TestHistoryEndpoint(t *testing.T) {
	ts, engine := newTestServer(t)
	createCampaign(t, ts, "c1", domain.TypeOther)
	_, err := engine.CancelCampaign(t.Context(), "c1", "test")
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/workflows/c1/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CANCELLED", body["current_state"])
	assert.Len(t, body["state_history"], 2)
	assert.Len(t, body["transitions"], 1)
}

func TestRuleEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/rules", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, created := doJSON(t, http.MethodPost, ts.URL+"/api/rules", map[string]any{
		"name":    "Custom Rule",
		"trigger": "custom",
		"actions": []map[string]any{{"type": "send_notification", "template": "t"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, created["enabled"], "rules default to enabled")
	ruleID := created["id"].(string)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/rules/"+ruleID+"/disable", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["enabled"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/rules/"+ruleID+"/enable", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/rules/nope/enable", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/rules", map[string]any{
		"trigger": "custom",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvalidJSONBody(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/workflows", "application/json",
		bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
