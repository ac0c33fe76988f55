// Package noticeapi exposes the draft workflow over HTTP.
package noticeapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/scribe/internal/audit"
	"github.com/linnemanlabs/scribe/internal/draft"
	"github.com/linnemanlabs/scribe/internal/notice"
	"github.com/linnemanlabs/scribe/internal/triage"
)

// DraftService defines the business operations noticeapi needs.
type DraftService interface {
	CreateNotice(ctx context.Context, n *notice.Notice) (*notice.Notice, error)
	GetNotice(ctx context.Context, id string) (*notice.Notice, bool, error)
	ListNotices(ctx context.Context) ([]*notice.Notice, error)
	RequestGeneration(ctx context.Context, req *draft.GenerationRequest) (*draft.Generation, error)
	GetGeneration(ctx context.Context, id string) (*draft.Generation, bool, error)
	SaveDraft(ctx context.Context, req *draft.SaveRequest) (*draft.Version, error)
	GetDraft(ctx context.Context, id int64) (*draft.Version, bool, error)
	ListDrafts(ctx context.Context, noticeID string) ([]*draft.Version, error)
	ListPendingDrafts(ctx context.Context) ([]*draft.Version, error)
	SubmitDraft(ctx context.Context, draftID int64, submittedBy, riskFlag, comment string) (*draft.Version, error)
	Decide(ctx context.Context, draftID int64, approverID string, decision draft.ApprovalStatus, comment string) (*draft.Version, error)
	ListApprovals(ctx context.Context, draftID int64) ([]*draft.Approval, error)
	ReviewEdit(ctx context.Context, req *draft.ReviewRequest) (*triage.Decision, error)
	Distribute(ctx context.Context, draftID int64, channel, requestedBy string) (*draft.Distribution, error)
	ListDistributions(ctx context.Context, draftID int64) ([]*draft.Distribution, error)
	ListAudits(ctx context.Context, limit int) ([]*audit.Record, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    DraftService
}

// New creates a new API handler.
func New(logger log.Logger, svc DraftService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("draft service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/notices", a.handleCreateNotice)
		r.Get("/notices", a.handleListNotices)
		r.Get("/notices/{id}", a.handleGetNotice)
		r.Post("/notices/{id}/generate", a.handleGenerate)
		r.Get("/notices/{id}/drafts", a.handleListDrafts)
		r.Post("/notices/{id}/drafts", a.handleSaveDraft)

		r.Get("/generations/{id}", a.handleGetGeneration)

		r.Get("/drafts/pending", a.handleListPending)
		r.Get("/drafts/{id}", a.handleGetDraft)
		r.Post("/drafts/{id}/submit", a.handleSubmit)
		r.Post("/drafts/{id}/decision", a.handleDecision)
		r.Get("/drafts/{id}/approvals", a.handleListApprovals)
		r.Post("/drafts/{id}/review", a.handleReview)
		r.Post("/drafts/{id}/distribute", a.handleDistribute)
		r.Get("/drafts/{id}/distributions", a.handleListDistributions)

		r.Get("/audits", a.handleListAudits)
	})
}

func (a *API) handleGetNotice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("scribe.notice.id", id))

	n, ok, err := a.svc.GetNotice(r.Context(), id)
	if err != nil {
		a.internalError(w, r, err, "failed to get notice")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (a *API) handleListNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := a.svc.ListNotices(r.Context())
	if err != nil {
		a.internalError(w, r, err, "failed to list notices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notices": notices})
}

func (a *API) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("scribe.generation.id", id))

	g, ok, err := a.svc.GetGeneration(r.Context(), id)
	if err != nil {
		a.internalError(w, r, err, "failed to get generation")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	a.logger.Error(r.Context(), err, msg, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// serviceError maps sentinel errors onto HTTP status codes; anything
// unrecognized is a 500.
func (a *API) serviceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, draft.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, draft.ErrNoticeExists):
		writeError(w, http.StatusConflict, "notice already exists")
	case errors.Is(err, draft.ErrNotApproved):
		writeError(w, http.StatusConflict, "draft not approved")
	case errors.Is(err, draft.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid status transition")
	case errors.Is(err, draft.ErrConflict):
		writeError(w, http.StatusConflict, "version conflict, retry")
	default:
		a.internalError(w, r, err, msg)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
