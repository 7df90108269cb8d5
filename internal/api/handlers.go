package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/pkg/httputil"
	"github.com/ignite/campaign-engine/internal/workflow"
)

// writeEngineError maps the engine's typed errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var notFound *workflow.WorkflowNotFoundError
	var approvalNotFound *workflow.ApprovalNotFoundError
	var duplicate *workflow.DuplicateWorkflowError
	var invalid *workflow.InvalidTransitionError
	var pending *workflow.PendingApprovalsError

	switch {
	case errors.As(err, &notFound):
		httputil.NotFound(w, err.Error())
	case errors.As(err, &approvalNotFound):
		httputil.NotFound(w, err.Error())
	case errors.As(err, &duplicate):
		httputil.Conflict(w, err.Error())
	case errors.As(err, &invalid):
		httputil.ErrorWithDetails(w, http.StatusConflict, err.Error(),
			"invalid_transition", map[string]any{"from": invalid.From, "to": invalid.To})
	case errors.As(err, &pending):
		httputil.ErrorWithDetails(w, http.StatusUnprocessableEntity, err.Error(),
			"pending_approvals", map[string]any{"pending_types": pending.PendingTypes})
	default:
		httputil.BadRequest(w, err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, s.engine.HealthCheck())
}

func (s *Server) handleInitializeWorkflow(w http.ResponseWriter, r *http.Request) {
	var in workflow.CampaignInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	wf, err := s.engine.InitializeCampaignWorkflow(r.Context(), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.Created(w, wf)
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.engine.GetWorkflow(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.OK(w, wf)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.engine.GetWorkflowHistory(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.OK(w, h)
}

type transitionRequest struct {
	TargetState domain.WorkflowState `json:"target_state"`
	TriggeredBy string               `json:"triggered_by,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	Metadata    map[string]any       `json:"metadata,omitempty"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if !req.TargetState.Valid() {
		httputil.BadRequest(w, "unknown target state")
		return
	}

	// SkipValidation is not exposed over the API; force-cancel goes
	// through the dedicated cancel endpoint.
	wf, err := s.engine.TransitionState(r.Context(), chi.URLParam(r, "campaignID"),
		req.TargetState, workflow.TransitionOptions{
			TriggeredBy: req.TriggeredBy,
			Reason:      req.Reason,
			Metadata:    req.Metadata,
		})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.OK(w, wf)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	wf, err := s.engine.CancelCampaign(r.Context(), chi.URLParam(r, "campaignID"), req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.OK(w, wf)
}

func (s *Server) handleGetApprovals(w http.ResponseWriter, r *http.Request) {
	sum, err := s.engine.GetApprovalStatus(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.OK(w, sum)
}

func (s *Server) handleCreateApproval(w http.ResponseWriter, r *http.Request) {
	var in workflow.ApprovalInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	if in.Type == "" {
		httputil.BadRequest(w, "approval type is required")
		return
	}
	a, err := s.engine.CreateApproval(r.Context(), chi.URLParam(r, "campaignID"), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.Created(w, a)
}

type decisionRequest struct {
	Decision     domain.ApprovalStatus `json:"decision"`
	Comments     string                `json:"comments,omitempty"`
	Metadata     map[string]any        `json:"metadata,omitempty"`
	ApproverID   string                `json:"approver_id"`
	ApproverName string                `json:"approver_name"`
}

func (s *Server) handleApprovalDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	a, err := s.engine.ProcessApproval(r.Context(), chi.URLParam(r, "approvalID"),
		workflow.Decision{Decision: req.Decision, Comments: req.Comments, Metadata: req.Metadata},
		workflow.Approver{ID: req.ApproverID, Name: req.ApproverName})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.OK(w, a)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, s.engine.Rules())
}

type createRuleRequest struct {
	domain.Rule
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	rule := req.Rule
	// Rules default to enabled unless the request says otherwise.
	rule.Enabled = req.Enabled == nil || *req.Enabled
	out, err := s.engine.AddRule(rule)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.Created(w, out)
}

func (s *Server) handleEnableRule(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.SetRuleEnabled(chi.URLParam(r, "ruleID"), true); err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.OK(w, map[string]any{"enabled": true})
}

func (s *Server) handleDisableRule(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.SetRuleEnabled(chi.URLParam(r, "ruleID"), false); err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.OK(w, map[string]any{"enabled": false})
}
