// Package memstore provides an in-memory implementation of draft.Store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linnemanlabs/scribe/internal/audit"
	"github.com/linnemanlabs/scribe/internal/compose"
	"github.com/linnemanlabs/scribe/internal/draft"
	"github.com/linnemanlabs/scribe/internal/notice"
)

// Store holds the draft workflow state in memory. Suitable for dev/testing.
// A single mutex serializes all writes, which also serializes the
// read-max-then-insert in CreateDraft.
type Store struct {
	mu            sync.RWMutex
	notices       map[string]*notice.Notice
	generations   map[string]*draft.Generation
	drafts        map[int64]*draft.Version
	approvals     map[int64][]*draft.Approval // draft ID -> decisions
	escalations   map[int64]*draft.Escalation // draft ID -> escalation
	distributions map[int64][]*draft.Distribution
	audits        []*audit.Record
	nextDraftID   int64
	nextRowID     int64
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		notices:       make(map[string]*notice.Notice),
		generations:   make(map[string]*draft.Generation),
		drafts:        make(map[int64]*draft.Version),
		approvals:     make(map[int64][]*draft.Approval),
		escalations:   make(map[int64]*draft.Escalation),
		distributions: make(map[int64][]*draft.Distribution),
	}
}

// CreateNotice stores a copy of the notice, failing if the ID is taken.
func (s *Store) CreateNotice(_ context.Context, n *notice.Notice, rec *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notices[n.ID]; ok {
		return draft.ErrNoticeExists
	}
	s.notices[n.ID] = cloneNotice(n)
	s.appendAuditLocked(rec)
	return nil
}

// GetNotice retrieves a notice by ID. Returns a copy.
func (s *Store) GetNotice(_ context.Context, id string) (*notice.Notice, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notices[id]
	if !ok {
		return nil, false, nil
	}
	return cloneNotice(n), true, nil
}

// ListNotices returns all notices, newest first.
func (s *Store) ListNotices(_ context.Context) ([]*notice.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*notice.Notice, 0, len(s.notices))
	for _, n := range s.notices {
		out = append(out, cloneNotice(n))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// PutGeneration stores a copy of the generation job.
func (s *Store) PutGeneration(_ context.Context, g *draft.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[g.ID] = cloneGeneration(g)
	return nil
}

// GetGeneration retrieves a generation job by ID. Returns a copy.
func (s *Store) GetGeneration(_ context.Context, id string) (*draft.Generation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.generations[id]
	if !ok {
		return nil, false, nil
	}
	return cloneGeneration(g), true, nil
}

// CreateDraft assigns the next version number for the notice and inserts.
// The mutex makes max+1 and insert atomic, so concurrent creates for the
// same notice get distinct consecutive version numbers.
func (s *Store) CreateDraft(_ context.Context, d *draft.Version, noticeStatus notice.Status, rec *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notices[d.NoticeID]
	if !ok {
		return draft.ErrNotFound
	}

	maxVersion := 0
	for _, v := range s.drafts {
		if v.NoticeID == d.NoticeID && v.VersionNo > maxVersion {
			maxVersion = v.VersionNo
		}
	}

	s.nextDraftID++
	now := time.Now().UTC()
	d.ID = s.nextDraftID
	d.VersionNo = maxVersion + 1
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = draft.StatusDraft
	}

	cp := *d
	s.drafts[d.ID] = &cp

	if noticeStatus != "" {
		n.Status = noticeStatus
		n.UpdatedAt = now
	}
	s.appendAuditLocked(rec)
	return nil
}

// GetDraft retrieves a draft version by ID. Returns a copy.
func (s *Store) GetDraft(_ context.Context, id int64) (*draft.Version, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.drafts[id]
	if !ok {
		return nil, false, nil
	}
	cp := *v
	return &cp, true, nil
}

// ListDrafts returns all versions for a notice, newest version first.
func (s *Store) ListDrafts(_ context.Context, noticeID string) ([]*draft.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*draft.Version
	for _, v := range s.drafts {
		if v.NoticeID == noticeID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNo > out[j].VersionNo })
	return out, nil
}

// ListPendingDrafts returns drafts awaiting review, most recent first.
func (s *Store) ListPendingDrafts(_ context.Context) ([]*draft.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*draft.Version
	for _, v := range s.drafts {
		if v.Status == draft.StatusPending {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// SubmitDraft moves draft -> pending. The stored row is untouched on error.
func (s *Store) SubmitDraft(_ context.Context, id int64, riskFlag, comment string, rec *audit.Record) (*draft.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.drafts[id]
	if !ok {
		return nil, draft.ErrNotFound
	}
	if v.Status != draft.StatusDraft {
		return nil, draft.ErrInvalidTransition
	}
	v.Status = draft.StatusPending
	if riskFlag != "" {
		v.RiskFlag = riskFlag
	}
	if comment != "" {
		v.ReviewComment = comment
	}
	v.UpdatedAt = time.Now().UTC()
	s.appendAuditLocked(rec)
	cp := *v
	return &cp, nil
}

// DecideDraft moves pending -> approved|rejected and records the approval.
func (s *Store) DecideDraft(_ context.Context, id int64, a *draft.Approval, rec *audit.Record) (*draft.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.drafts[id]
	if !ok {
		return nil, draft.ErrNotFound
	}
	if v.Status != draft.StatusPending {
		return nil, draft.ErrInvalidTransition
	}
	v.Status = draft.ApprovalStatus(a.Decision)
	v.UpdatedAt = time.Now().UTC()

	s.nextRowID++
	a.ID = s.nextRowID
	cp := *a
	s.approvals[id] = append(s.approvals[id], &cp)
	s.appendAuditLocked(rec)
	vcp := *v
	return &vcp, nil
}

// ListApprovals returns a draft's decision history in decision order.
func (s *Store) ListApprovals(_ context.Context, draftID int64) ([]*draft.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*draft.Approval, 0, len(s.approvals[draftID]))
	for _, a := range s.approvals[draftID] {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

// UpsertEscalation inserts or refreshes the one escalation row per draft.
func (s *Store) UpsertEscalation(_ context.Context, e *draft.Escalation, rec *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := s.escalations[e.DraftID]; ok {
		e.ID = prev.ID
		e.CreatedAt = prev.CreatedAt
	} else {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	cp := *e
	s.escalations[e.DraftID] = &cp
	s.appendAuditLocked(rec)
	return nil
}

// GetEscalationByDraft retrieves a draft's escalation, if any. Returns a copy.
func (s *Store) GetEscalationByDraft(_ context.Context, draftID int64) (*draft.Escalation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.escalations[draftID]
	if !ok {
		return nil, false, nil
	}
	cp := *e
	return &cp, true, nil
}

// CreateDistribution appends a distribution record for a draft.
func (s *Store) CreateDistribution(_ context.Context, d *draft.Distribution, noticeStatus notice.Status, rec *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRowID++
	d.ID = s.nextRowID
	cp := *d
	s.distributions[d.DraftID] = append(s.distributions[d.DraftID], &cp)
	if noticeStatus != "" {
		if v, ok := s.drafts[d.DraftID]; ok {
			if n, ok := s.notices[v.NoticeID]; ok {
				n.Status = noticeStatus
				n.UpdatedAt = time.Now().UTC()
			}
		}
	}
	s.appendAuditLocked(rec)
	return nil
}

// ListDistributions returns a draft's distribution log in send order.
func (s *Store) ListDistributions(_ context.Context, draftID int64) ([]*draft.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*draft.Distribution, 0, len(s.distributions[draftID]))
	for _, d := range s.distributions[draftID] {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

// AppendAudit appends a standalone audit record.
func (s *Store) AppendAudit(_ context.Context, rec *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendAuditLocked(rec)
	return nil
}

// ListAudits returns the most recent records, newest first. limit <= 0
// means no limit.
func (s *Store) ListAudits(_ context.Context, limit int) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*audit.Record, 0, len(s.audits))
	for i := len(s.audits) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *s.audits[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) appendAuditLocked(rec *audit.Record) {
	if rec == nil {
		return
	}
	cp := *rec
	s.audits = append(s.audits, &cp)
}

// cloneNotice copies a notice including its nested report sections, so
// mutating a returned copy cannot reach the stored row.
func cloneNotice(n *notice.Notice) *notice.Notice {
	cp := *n
	if n.Reports != nil {
		cp.Reports = make([]notice.Report, len(n.Reports))
		for i, r := range n.Reports {
			cp.Reports[i] = r
			cp.Reports[i].Sections = append([]notice.Section(nil), r.Sections...)
		}
	}
	return &cp
}

// cloneGeneration copies a generation job including its composition output
// and risk assessment.
func cloneGeneration(g *draft.Generation) *draft.Generation {
	cp := *g
	if g.Output != nil {
		out := *g.Output
		out.RiskTokens = append([]string(nil), g.Output.RiskTokens...)
		out.Evidence = append([]compose.Evidence(nil), g.Output.Evidence...)
		out.Memos = append([]string(nil), g.Output.Memos...)
		cp.Output = &out
	}
	if g.Risk != nil {
		r := *g.Risk
		r.Tokens = append([]string(nil), g.Risk.Tokens...)
		cp.Risk = &r
	}
	return &cp
}
