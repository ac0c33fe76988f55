package noticeapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/scribe/internal/draft"
	"github.com/linnemanlabs/scribe/internal/notice"
)

type createNoticeRequest struct {
	NoticeID      string          `json:"notice_id"`
	SecurityCode  string          `json:"security_code"`
	SecurityName  string          `json:"security_name"`
	EventType     string          `json:"event_type"`
	RecordDate    string          `json:"record_date"`
	PaymentDate   string          `json:"payment_date"`
	NoticeText    string          `json:"notice_text"`
	SourceChannel string          `json:"source_channel"`
	Reports       []notice.Report `json:"reports"`
}

func (req *createNoticeRequest) validate() string {
	switch {
	case req.NoticeID == "":
		return "notice_id is required"
	case req.SecurityCode == "":
		return "security_code is required"
	case req.EventType == "":
		return "event_type is required"
	case req.NoticeText == "":
		return "notice_text is required"
	}
	return ""
}

func (a *API) handleCreateNotice(w http.ResponseWriter, r *http.Request) {
	var req createNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	n, err := a.svc.CreateNotice(r.Context(), &notice.Notice{
		ID:            req.NoticeID,
		SecurityCode:  req.SecurityCode,
		SecurityName:  req.SecurityName,
		EventType:     req.EventType,
		RecordDate:    req.RecordDate,
		PaymentDate:   req.PaymentDate,
		NoticeText:    req.NoticeText,
		SourceChannel: req.SourceChannel,
		Reports:       req.Reports,
	})
	if err != nil {
		a.serviceError(w, r, err, "failed to create notice")
		return
	}

	a.logger.Info(r.Context(), "notice ingested",
		"notice_id", n.ID, "event_type", n.EventType, "security_code", n.SecurityCode)
	writeJSON(w, http.StatusCreated, n)
}

type generateRequest struct {
	TemplateType    string `json:"template_type"`
	CustomerSegment string `json:"customer_segment"`
	Instructions    string `json:"instructions"`
	RequestedBy     string `json:"requested_by"`
}

func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	noticeID := chi.URLParam(r, "id")

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	g, err := a.svc.RequestGeneration(r.Context(), &draft.GenerationRequest{
		NoticeID:        noticeID,
		TemplateType:    req.TemplateType,
		CustomerSegment: req.CustomerSegment,
		Instructions:    req.Instructions,
		RequestedBy:     req.RequestedBy,
	})
	if err != nil {
		a.serviceError(w, r, err, "failed to request generation")
		return
	}

	writeJSON(w, http.StatusAccepted, g)
}
