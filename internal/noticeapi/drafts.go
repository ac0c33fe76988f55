package noticeapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/scribe/internal/draft"
)

// draftID parses the {id} route parameter. A non-numeric ID is reported
// as a validation failure, not a lookup miss.
func draftID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid draft id")
		return 0, false
	}
	return id, true
}

func (a *API) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	v, found, err := a.svc.GetDraft(r.Context(), id)
	if err != nil {
		a.internalError(w, r, err, "failed to get draft")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	versions, err := a.svc.ListDrafts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.serviceError(w, r, err, "failed to list drafts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": versions})
}

func (a *API) handleListPending(w http.ResponseWriter, r *http.Request) {
	versions, err := a.svc.ListPendingDrafts(r.Context())
	if err != nil {
		a.internalError(w, r, err, "failed to list pending drafts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": versions})
}

type saveDraftRequest struct {
	EditorID      string `json:"editor_id"`
	EditedText    string `json:"edited_text"`
	GenerationID  string `json:"generation_id"`
	RiskFlag      string `json:"risk_flag"`
	ReviewComment string `json:"review_comment"`
}

func (a *API) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var req saveDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.EditorID == "" {
		writeError(w, http.StatusBadRequest, "editor_id is required")
		return
	}
	if req.EditedText == "" {
		writeError(w, http.StatusBadRequest, "edited_text is required")
		return
	}
	if req.RiskFlag != "" && req.RiskFlag != "Y" && req.RiskFlag != "N" {
		writeError(w, http.StatusBadRequest, "risk_flag must be Y or N")
		return
	}

	v, err := a.svc.SaveDraft(r.Context(), &draft.SaveRequest{
		NoticeID:      chi.URLParam(r, "id"),
		EditorID:      req.EditorID,
		EditedText:    req.EditedText,
		GenerationID:  req.GenerationID,
		RiskFlag:      req.RiskFlag,
		ReviewComment: req.ReviewComment,
	})
	if err != nil {
		a.serviceError(w, r, err, "failed to save draft")
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

type submitRequest struct {
	SubmittedBy string `json:"submitted_by"`
	RiskFlag    string `json:"risk_flag"`
	Comment     string `json:"comment"`
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.SubmittedBy == "" {
		writeError(w, http.StatusBadRequest, "submitted_by is required")
		return
	}
	if req.RiskFlag != "" && req.RiskFlag != "Y" && req.RiskFlag != "N" {
		writeError(w, http.StatusBadRequest, "risk_flag must be Y or N")
		return
	}

	v, err := a.svc.SubmitDraft(r.Context(), id, req.SubmittedBy, req.RiskFlag, req.Comment)
	if err != nil {
		a.serviceError(w, r, err, "failed to submit draft")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type decisionRequest struct {
	ApproverID string `json:"approver_id"`
	Decision   string `json:"decision"`
	Comment    string `json:"comment"`
}

func (a *API) handleDecision(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ApproverID == "" {
		writeError(w, http.StatusBadRequest, "approver_id is required")
		return
	}
	decision := draft.ApprovalStatus(req.Decision)
	if decision != draft.StatusApproved && decision != draft.StatusRejected {
		writeError(w, http.StatusBadRequest, "decision must be approved or rejected")
		return
	}

	v, err := a.svc.Decide(r.Context(), id, req.ApproverID, decision, req.Comment)
	if err != nil {
		a.serviceError(w, r, err, "failed to record decision")
		return
	}

	a.logger.Info(r.Context(), "draft decided",
		"draft_id", id, "decision", req.Decision, "approver_id", req.ApproverID)
	writeJSON(w, http.StatusOK, v)
}

func (a *API) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	approvals, err := a.svc.ListApprovals(r.Context(), id)
	if err != nil {
		a.internalError(w, r, err, "failed to list approvals")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"approvals": approvals})
}

type reviewRequest struct {
	ReviewerID         string   `json:"reviewer_id"`
	EditDistance       *float64 `json:"edit_distance"`
	OperatorConfidence *float64 `json:"operator_confidence"`
}

func (a *API) handleReview(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.EditDistance == nil || *req.EditDistance < 0 || *req.EditDistance > 1 {
		writeError(w, http.StatusBadRequest, "edit_distance must be in [0,1]")
		return
	}
	if req.OperatorConfidence == nil || *req.OperatorConfidence < 0 || *req.OperatorConfidence > 1 {
		writeError(w, http.StatusBadRequest, "operator_confidence must be in [0,1]")
		return
	}

	decision, err := a.svc.ReviewEdit(r.Context(), &draft.ReviewRequest{
		DraftID:            id,
		ReviewerID:         req.ReviewerID,
		EditDistance:       *req.EditDistance,
		OperatorConfidence: *req.OperatorConfidence,
	})
	if err != nil {
		a.serviceError(w, r, err, "failed to review draft")
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

type distributeRequest struct {
	Channel     string `json:"channel_type"`
	RequestedBy string `json:"requested_by"`
}

func (a *API) handleDistribute(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req distributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	d, err := a.svc.Distribute(r.Context(), id, req.Channel, req.RequestedBy)
	if err != nil {
		a.serviceError(w, r, err, "failed to distribute draft")
		return
	}

	a.logger.Info(r.Context(), "draft distributed", "draft_id", id, "channel", d.Channel)
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleListDistributions(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	list, err := a.svc.ListDistributions(r.Context(), id)
	if err != nil {
		a.internalError(w, r, err, "failed to list distributions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"distributions": list})
}

func (a *API) handleListAudits(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	audits, err := a.svc.ListAudits(r.Context(), limit)
	if err != nil {
		a.internalError(w, r, err, "failed to list audits")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audits": audits})
}
