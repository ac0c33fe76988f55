package draft

import (
	"context"
	"strconv"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/scribe/internal/audit"
	"github.com/linnemanlabs/scribe/internal/compose"
	"github.com/linnemanlabs/scribe/internal/notice"
	"github.com/linnemanlabs/scribe/internal/retrieval"
	"github.com/linnemanlabs/scribe/internal/risk"
	"github.com/linnemanlabs/scribe/internal/triage"
)

// Notifier forwards escalations to the back-office channel. Send failures
// are logged, never propagated: notification is best-effort.
type Notifier interface {
	NotifyEscalation(ctx context.Context, e *Escalation, v *Version) error
}

// Service is the business boundary for the draft workflow.
type Service struct {
	store      Store
	composer   *compose.Composer
	lexicon    *risk.Lexicon
	scorer     *risk.Scorer
	thresholds func() risk.Thresholds
	rules      func() triage.Rules
	notifier   Notifier
	logger     log.Logger
	metrics    *Metrics
}

// NewService creates the draft service. thresholds and rules are read per
// evaluation so configuration reloads take effect without a restart; nil
// funcs fall back to defaults. notifier and metrics may be nil.
func NewService(
	store Store,
	composer *compose.Composer,
	lexicon *risk.Lexicon,
	scorer *risk.Scorer,
	thresholds func() risk.Thresholds,
	rules func() triage.Rules,
	notifier Notifier,
	logger log.Logger,
	metrics *Metrics,
) *Service {
	if thresholds == nil {
		thresholds = risk.DefaultThresholds
	}
	if rules == nil {
		rules = triage.DefaultRules
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:      store,
		composer:   composer,
		lexicon:    lexicon,
		scorer:     scorer,
		thresholds: thresholds,
		rules:      rules,
		notifier:   notifier,
		logger:     logger,
		metrics:    metrics,
	}
}

// CreateNotice ingests a notice. The notice ID is caller-supplied;
// re-ingesting an existing ID fails with ErrNoticeExists.
func (s *Service) CreateNotice(ctx context.Context, n *notice.Notice) (*notice.Notice, error) {
	now := time.Now().UTC()
	n.Status = notice.StatusNew
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.SourceChannel == "" {
		n.SourceChannel = "manual"
	}

	rec := audit.NewRecord("NOTICE", n.ID, "CREATE", "system", map[string]any{
		"security_code": n.SecurityCode,
		"event_type":    n.EventType,
		"record_date":   n.RecordDate,
	})
	if err := s.store.CreateNotice(ctx, n, rec); err != nil {
		return nil, err
	}
	return n, nil
}

// GetNotice retrieves a notice by ID.
func (s *Service) GetNotice(ctx context.Context, id string) (*notice.Notice, bool, error) {
	return s.store.GetNotice(ctx, id)
}

// ListNotices returns all notices, newest first.
func (s *Service) ListNotices(ctx context.Context) ([]*notice.Notice, error) {
	return s.store.ListNotices(ctx)
}

// GenerationRequest asks for an AI draft of one notice.
type GenerationRequest struct {
	NoticeID        string
	TemplateType    string
	CustomerSegment string
	Instructions    string
	RequestedBy     string
}

// RequestGeneration accepts a generation job: the pending job record is
// persisted, composition runs in the background, and the caller polls
// GetGeneration for completion.
func (s *Service) RequestGeneration(ctx context.Context, req *GenerationRequest) (*Generation, error) {
	if _, ok, err := s.store.GetNotice(ctx, req.NoticeID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}

	g := &Generation{
		ID:              ulid.Make().String(),
		NoticeID:        req.NoticeID,
		TemplateType:    orDefault(req.TemplateType, "standard"),
		CustomerSegment: orDefault(req.CustomerSegment, "retail"),
		Instructions:    req.Instructions,
		RequestedBy:     req.RequestedBy,
		Status:          GenPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.PutGeneration(ctx, g); err != nil {
		return nil, err
	}

	// kick off async generation - pass only the ID to avoid sharing the
	// Generation pointer.
	go s.runGeneration(context.WithoutCancel(ctx), g.ID)

	return g, nil
}

// GetGeneration retrieves a generation job by ID.
func (s *Service) GetGeneration(ctx context.Context, id string) (*Generation, bool, error) {
	return s.store.GetGeneration(ctx, id)
}

func (s *Service) runGeneration(ctx context.Context, id string) {
	L := s.logger.With("generation_id", id)
	start := time.Now()

	g, ok, err := s.store.GetGeneration(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch generation job")
		return
	}
	// idempotent wrt dispatcher retries: a finished job is not recomputed,
	// so no extra draft version or audit event is produced
	if g.Status == GenComplete {
		return
	}

	g.Status = GenInProgress
	if err := s.store.PutGeneration(ctx, g); err != nil {
		L.Error(ctx, err, "failed to mark generation in progress")
		return
	}

	n, ok, err := s.store.GetNotice(ctx, g.NoticeID)
	if err != nil || !ok {
		s.failGeneration(ctx, g, "notice disappeared")
		return
	}

	hits := s.lexicon.Scan(n.NoticeText)

	var all []notice.Section
	for _, r := range n.Reports {
		all = append(all, r.Sections...)
	}
	sections := retrieval.Rank(n.NoticeText, all)

	result := s.composer.Compose(ctx, &compose.Input{
		Notice:          n,
		Sections:        sections,
		DangerHits:      hits,
		TemplateType:    g.TemplateType,
		CustomerSegment: g.CustomerSegment,
		Instructions:    g.Instructions,
	})

	assessment := s.scorer.Score(n.EventType, result.RiskTokens, "", s.thresholds())

	v := &Version{
		NoticeID:     g.NoticeID,
		EditorID:     AIEditorID,
		EditedText:   result.CustomerDraft,
		GenerationID: g.ID,
		RiskFlag:     assessment.Flag,
		Status:       StatusDraft,
	}
	rec := audit.NewRecord("AI_OUTPUT", g.ID, "GENERATE", g.RequestedBy, map[string]any{
		"notice_id":  g.NoticeID,
		"source":     result.Source,
		"model":      result.ModelVersion,
		"risk_score": assessment.Score,
		"risk_flag":  assessment.Flag,
	})
	if err := s.store.CreateDraft(ctx, v, notice.StatusAIGenerated, rec); err != nil {
		s.failGeneration(ctx, g, "persist draft: "+err.Error())
		return
	}

	g.Status = GenComplete
	g.Output = result
	g.Risk = &assessment
	g.DraftID = v.ID
	g.CompletedAt = time.Now().UTC()
	g.Duration = time.Since(start).Seconds()
	if err := s.store.PutGeneration(ctx, g); err != nil {
		L.Error(ctx, err, "failed to persist generation result")
		return
	}

	if s.metrics != nil {
		s.metrics.GenerationsTotal.WithLabelValues(result.Source, string(GenComplete)).Inc()
		s.metrics.GenerationDuration.WithLabelValues(result.Source).Observe(g.Duration)
		s.metrics.RiskScore.Observe(float64(assessment.Score))
		s.metrics.DangerHits.Observe(float64(len(hits)))
		s.metrics.DraftsTotal.WithLabelValues(AIEditorID).Inc()
	}

	L.Info(ctx, "generation complete",
		"notice_id", g.NoticeID,
		"source", result.Source,
		"model", result.ModelVersion,
		"risk_score", assessment.Score,
		"risk_flag", assessment.Flag,
		"danger_hits", len(hits),
		"duration", g.Duration,
	)
}

func (s *Service) failGeneration(ctx context.Context, g *Generation, reason string) {
	g.Status = GenFailed
	g.Error = reason
	g.CompletedAt = time.Now().UTC()
	if err := s.store.PutGeneration(ctx, g); err != nil {
		s.logger.Error(ctx, err, "failed to persist generation failure", "generation_id", g.ID)
	}
	if s.metrics != nil {
		s.metrics.GenerationsTotal.WithLabelValues("none", string(GenFailed)).Inc()
	}
}

// SaveRequest is a manual draft save by an operator.
type SaveRequest struct {
	NoticeID      string
	EditorID      string
	EditedText    string
	GenerationID  string
	RiskFlag      string
	ReviewComment string
}

// SaveDraft creates a new draft version from an operator edit.
func (s *Service) SaveDraft(ctx context.Context, req *SaveRequest) (*Version, error) {
	if _, ok, err := s.store.GetNotice(ctx, req.NoticeID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}

	v := &Version{
		NoticeID:      req.NoticeID,
		EditorID:      req.EditorID,
		EditedText:    req.EditedText,
		GenerationID:  req.GenerationID,
		RiskFlag:      orDefault(req.RiskFlag, "N"),
		ReviewComment: req.ReviewComment,
		Status:        StatusDraft,
	}
	rec := audit.NewRecord("DRAFT", req.NoticeID, "SAVE", req.EditorID, map[string]any{
		"editor_id":     req.EditorID,
		"edited_text":   req.EditedText,
		"risk_flag":     v.RiskFlag,
		"generation_id": req.GenerationID,
	})
	if err := s.store.CreateDraft(ctx, v, notice.StatusDraftUpdated, rec); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DraftsTotal.WithLabelValues("operator").Inc()
	}
	return v, nil
}

// SubmitDraft moves a draft to pending review.
func (s *Service) SubmitDraft(ctx context.Context, draftID int64, submittedBy, riskFlag, comment string) (*Version, error) {
	rec := audit.NewRecord("DRAFT", formatID(draftID), "SUBMIT", submittedBy, map[string]any{
		"risk_flag": riskFlag,
		"comment":   comment,
	})
	v, err := s.store.SubmitDraft(ctx, draftID, riskFlag, comment, rec)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SubmitsTotal.Inc()
	}
	return v, nil
}

// Decide approves or rejects a pending draft. decision must be
// StatusApproved or StatusRejected.
func (s *Service) Decide(ctx context.Context, draftID int64, approverID string, decision ApprovalStatus, comment string) (*Version, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return nil, ErrInvalidTransition
	}

	a := &Approval{
		DraftID:   draftID,
		Approver:  approverID,
		Decision:  string(decision),
		Comment:   comment,
		DecidedAt: time.Now().UTC(),
	}
	rec := audit.NewRecord("APPROVAL", formatID(draftID), "DECIDE", approverID, map[string]any{
		"decision": string(decision),
		"comment":  comment,
	})
	v, err := s.store.DecideDraft(ctx, draftID, a, rec)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.DecisionsTotal.WithLabelValues(string(decision)).Inc()
	}
	return v, nil
}

// GetDraft retrieves a draft version by ID.
func (s *Service) GetDraft(ctx context.Context, id int64) (*Version, bool, error) {
	return s.store.GetDraft(ctx, id)
}

// ListDrafts returns all versions for a notice, newest version first.
func (s *Service) ListDrafts(ctx context.Context, noticeID string) ([]*Version, error) {
	if _, ok, err := s.store.GetNotice(ctx, noticeID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}
	return s.store.ListDrafts(ctx, noticeID)
}

// ListPendingDrafts returns drafts awaiting review, most recent first.
func (s *Service) ListPendingDrafts(ctx context.Context) ([]*Version, error) {
	return s.store.ListPendingDrafts(ctx)
}

// ListApprovals returns a draft's decision history.
func (s *Service) ListApprovals(ctx context.Context, draftID int64) ([]*Approval, error) {
	return s.store.ListApprovals(ctx, draftID)
}

// ReviewRequest carries the operator's post-edit signals for triage.
type ReviewRequest struct {
	DraftID            int64
	ReviewerID         string
	EditDistance       float64
	OperatorConfidence float64
}

// ReviewEdit runs escalation triage on an edited draft. AI confidence
// comes from the generation that seeded the draft (0.5 when the draft was
// written from scratch); danger hits are re-scanned from the edited text.
// An escalating decision upserts the draft's escalation and notifies the
// back-office channel.
func (s *Service) ReviewEdit(ctx context.Context, req *ReviewRequest) (*triage.Decision, error) {
	v, ok, err := s.store.GetDraft(ctx, req.DraftID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	aiConfidence := 0.5
	if v.GenerationID != "" {
		if g, ok, err := s.store.GetGeneration(ctx, v.GenerationID); err == nil && ok && g.Output != nil {
			aiConfidence = g.Output.Confidence
		}
	}

	hits := s.lexicon.Scan(v.EditedText)

	decision := triage.Evaluate(triage.Inputs{
		AIConfidence:       aiConfidence,
		EditDistance:       req.EditDistance,
		OperatorConfidence: req.OperatorConfidence,
		DangerHits:         len(hits),
	}, s.rules())

	if s.metrics != nil {
		outcome := "pass"
		if decision.ShouldEscalate {
			outcome = "escalate"
		}
		s.metrics.TriageTotal.WithLabelValues(outcome).Inc()
		s.metrics.TriageConfidence.Observe(decision.Confidence)
	}

	if !decision.ShouldEscalate {
		return &decision, nil
	}

	e := &Escalation{
		ID:         ulid.Make().String(),
		DraftID:    v.ID,
		NoticeID:   v.NoticeID,
		Reason:     decision.Rationale,
		Confidence: decision.Confidence,
		Channel:    decision.RecommendedChannel,
		Status:     "pending",
	}
	rec := audit.NewRecord("ESCALATION", formatID(v.ID), "EVALUATE", req.ReviewerID, map[string]any{
		"confidence":  decision.Confidence,
		"channel":     decision.RecommendedChannel,
		"danger_hits": len(hits),
	})
	if err := s.store.UpsertEscalation(ctx, e, rec); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyEscalation(ctx, e, v); err != nil {
			s.logger.Error(ctx, err, "escalation notification failed", "draft_id", v.ID)
		}
	}

	s.logger.Info(ctx, "draft escalated",
		"draft_id", v.ID,
		"notice_id", v.NoticeID,
		"confidence", decision.Confidence,
		"danger_hits", len(hits),
	)
	return &decision, nil
}

// Distribute sends an approved draft over the given channel. Drafts not
// in approved state are refused without mutation.
func (s *Service) Distribute(ctx context.Context, draftID int64, channel, requestedBy string) (*Distribution, error) {
	v, ok, err := s.store.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if v.Status != StatusApproved {
		if s.metrics != nil {
			s.metrics.DistributionsTotal.WithLabelValues("refused").Inc()
		}
		return nil, ErrNotApproved
	}

	d := &Distribution{
		DraftID:      draftID,
		Channel:      orDefault(channel, "email"),
		Status:       "success",
		SentAt:       time.Now().UTC(),
		ResultDetail: "mock-sent",
	}
	rec := audit.NewRecord("DISTRIBUTION", formatID(draftID), "SEND", requestedBy, map[string]any{
		"channel": d.Channel,
	})
	if err := s.store.CreateDistribution(ctx, d, notice.StatusDistributed, rec); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DistributionsTotal.WithLabelValues("sent").Inc()
	}
	return d, nil
}

// ListDistributions returns a draft's distribution log.
func (s *Service) ListDistributions(ctx context.Context, draftID int64) ([]*Distribution, error) {
	return s.store.ListDistributions(ctx, draftID)
}

// ListAudits returns the most recent audit records.
func (s *Service) ListAudits(ctx context.Context, limit int) ([]*audit.Record, error) {
	return s.store.ListAudits(ctx, limit)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
