package draft

import (
	"time"

	"github.com/linnemanlabs/scribe/internal/compose"
	"github.com/linnemanlabs/scribe/internal/risk"
)

// ApprovalStatus tracks where a draft version is in its review lifecycle.
// Transitions only move forward; a rejected or approved version is
// terminal and re-submission creates a new version.
type ApprovalStatus string

const (
	// StatusDraft means saved, not yet submitted for review
	StatusDraft ApprovalStatus = "draft"

	// StatusPending means submitted, awaiting an approval decision
	StatusPending ApprovalStatus = "pending"

	// StatusApproved means cleared for distribution
	StatusApproved ApprovalStatus = "approved"

	// StatusRejected means sent back; a new version supersedes it
	StatusRejected ApprovalStatus = "rejected"
)

// AIEditorID marks versions created by the generation pipeline rather
// than an operator.
const AIEditorID = "ai"

// Version is one draft version of the customer-facing response for a
// notice. VersionNo is strictly increasing per notice, gap-free from 1.
type Version struct {
	ID            int64          `json:"draft_id"`
	NoticeID      string         `json:"notice_id"`
	VersionNo     int            `json:"version_no"`
	EditorID      string         `json:"editor_id"`
	EditedText    string         `json:"edited_text"`
	GenerationID  string         `json:"generation_id,omitempty"`
	RiskFlag      string         `json:"risk_flag"`
	ReviewComment string         `json:"review_comment,omitempty"`
	Status        ApprovalStatus `json:"approval_status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// GenerationStatus tracks the async generation job lifecycle.
type GenerationStatus string

const (
	GenPending    GenerationStatus = "pending"
	GenInProgress GenerationStatus = "in_progress"
	GenComplete   GenerationStatus = "complete"
	GenFailed     GenerationStatus = "failed"
)

// Generation is one async draft-generation job and its outcome. Callers
// submit fire-and-forget and poll by ID.
type Generation struct {
	ID              string           `json:"generation_id"`
	NoticeID        string           `json:"notice_id"`
	TemplateType    string           `json:"template_type"`
	CustomerSegment string           `json:"customer_segment"`
	Instructions    string           `json:"instructions,omitempty"`
	RequestedBy     string           `json:"requested_by"`
	Status          GenerationStatus `json:"status"`
	Output          *compose.Result  `json:"output,omitempty"`
	Risk            *risk.Assessment `json:"risk,omitempty"`
	DraftID         int64            `json:"draft_id,omitempty"`
	Error           string           `json:"error,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	CompletedAt     time.Time        `json:"completed_at,omitempty"`
	Duration        float64          `json:"duration_seconds,omitempty"`
}

// Approval is one decision in a draft's approval history.
type Approval struct {
	ID        int64     `json:"approval_id"`
	DraftID   int64     `json:"draft_id"`
	Approver  string    `json:"approver_id"`
	Decision  string    `json:"decision"`
	Comment   string    `json:"comment,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// Escalation routes a draft to back-office review. One row per draft,
// refreshed on re-evaluation.
type Escalation struct {
	ID         string    `json:"escalation_id"`
	DraftID    int64     `json:"draft_id"`
	NoticeID   string    `json:"notice_id"`
	Reason     string    `json:"reason"`
	Confidence float64   `json:"confidence"`
	Channel    string    `json:"channel"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Distribution is one (mock) send of an approved draft.
type Distribution struct {
	ID           int64     `json:"distribution_id"`
	DraftID      int64     `json:"draft_id"`
	Channel      string    `json:"channel_type"`
	Status       string    `json:"distribution_status"`
	SentAt       time.Time `json:"sent_at"`
	ResultDetail string    `json:"result_detail,omitempty"`
}
