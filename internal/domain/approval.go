package domain

import "time"

// ApprovalType identifies which party's sign-off an approval represents.
type ApprovalType string

const (
	ApprovalBusiness   ApprovalType = "business"
	ApprovalInfluencer ApprovalType = "influencer"
	ApprovalAdmin      ApprovalType = "admin"
	ApprovalContent    ApprovalType = "content"
	ApprovalPayment    ApprovalType = "payment"
)

// ApprovalStatus is the decision state of an approval record.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// AutoAssign is the placeholder approver meaning "resolve at approval time";
// assignment resolution happens outside the engine.
const AutoAssign = "auto_assign"

// RequiredApprovals returns the ordered approval types a campaign type must
// collect before leaving DRAFT. Unrecognized types get the default pair.
func RequiredApprovals(t CampaignType) []ApprovalType {
	switch t {
	case TypeSponsoredPost:
		return []ApprovalType{ApprovalBusiness, ApprovalInfluencer, ApprovalContent}
	case TypeProductReview:
		return []ApprovalType{ApprovalBusiness, ApprovalInfluencer, ApprovalContent, ApprovalAdmin}
	case TypeBrandPartnership:
		return []ApprovalType{ApprovalBusiness, ApprovalInfluencer, ApprovalPayment, ApprovalAdmin}
	default:
		return []ApprovalType{ApprovalBusiness, ApprovalInfluencer}
	}
}

// ApprovalComment is one entry in an approval's decision trail.
type ApprovalComment struct {
	Timestamp    time.Time      `json:"timestamp"`
	ApproverID   string         `json:"approver_id"`
	ApproverName string         `json:"approver_name"`
	Comment      string         `json:"comment,omitempty"`
	Decision     ApprovalStatus `json:"decision"`
}

// Approval is a discrete sign-off request. It blocks validated state
// transitions for its campaign while pending. Approvals are never deleted.
type Approval struct {
	ID          string            `json:"id"`
	CampaignID  string            `json:"campaign_id"`
	Type        ApprovalType      `json:"type"`
	Approver    string            `json:"approver"`
	Status      ApprovalStatus    `json:"status"`
	RequiredBy  time.Time         `json:"required_by"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ApprovedAt  *time.Time        `json:"approved_at,omitempty"`
	RejectedAt  *time.Time        `json:"rejected_at,omitempty"`
	Comments    []ApprovalComment `json:"comments"`
}

// Clone returns a deep copy safe to hand to callers.
func (a *Approval) Clone() *Approval {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Comments = append([]ApprovalComment(nil), a.Comments...)
	cp.Metadata = make(map[string]any, len(a.Metadata))
	for k, v := range a.Metadata {
		cp.Metadata[k] = v
	}
	if a.ApprovedAt != nil {
		t := *a.ApprovedAt
		cp.ApprovedAt = &t
	}
	if a.RejectedAt != nil {
		t := *a.RejectedAt
		cp.RejectedAt = &t
	}
	return &cp
}
