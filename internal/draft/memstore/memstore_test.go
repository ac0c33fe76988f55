package memstore

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/scribe/internal/audit"
	"github.com/linnemanlabs/scribe/internal/compose"
	"github.com/linnemanlabs/scribe/internal/draft"
	"github.com/linnemanlabs/scribe/internal/notice"
	"github.com/linnemanlabs/scribe/internal/risk"
)

func seedNotice(t *testing.T, s *Store, id string) {
	t.Helper()
	n := &notice.Notice{ID: id, SecurityCode: "7203", EventType: "merger", Status: notice.StatusNew}
	if err := s.CreateNotice(context.Background(), n, nil); err != nil {
		t.Fatalf("CreateNotice: %v", err)
	}
}

func TestStore_CreateNoticeDuplicate(t *testing.T) {
	t.Parallel()

	s := New()
	seedNotice(t, s, "CA-001")
	err := s.CreateNotice(context.Background(), &notice.Notice{ID: "CA-001"}, nil)
	if !errors.Is(err, draft.ErrNoticeExists) {
		t.Fatalf("err = %v, want ErrNoticeExists", err)
	}
}

func TestStore_GetNoticeMissing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.GetNotice(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetNotice: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing ID")
	}
}

func TestStore_CopiesIsolateNestedData(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	n := &notice.Notice{
		ID:     "CA-001",
		Status: notice.StatusNew,
		Reports: []notice.Report{
			{Sections: []notice.Section{{Title: "概要", Text: "本文"}}},
		},
	}
	if err := s.CreateNotice(ctx, n, nil); err != nil {
		t.Fatalf("CreateNotice: %v", err)
	}

	// mutating the caller's struct and a returned copy must not reach
	// the stored row
	n.Reports[0].Sections[0].Text = "caller mutated"
	got, _, _ := s.GetNotice(ctx, "CA-001")
	got.Reports[0].Sections[0].Text = "copy mutated"

	stored, _, _ := s.GetNotice(ctx, "CA-001")
	if stored.Reports[0].Sections[0].Text != "本文" {
		t.Errorf("stored section text = %q, want %q", stored.Reports[0].Sections[0].Text, "本文")
	}

	g := &draft.Generation{
		ID:       "gen-1",
		NoticeID: "CA-001",
		Status:   draft.GenComplete,
		Output:   &compose.Result{CustomerDraft: "draft", RiskTokens: []string{"遅延"}},
		Risk:     &risk.Assessment{Score: 80, Flag: "Y", Tokens: []string{"遅延"}},
	}
	if err := s.PutGeneration(ctx, g); err != nil {
		t.Fatalf("PutGeneration: %v", err)
	}

	g.Output.CustomerDraft = "caller mutated"
	g.Risk.Tokens[0] = "caller mutated"
	gotG, _, _ := s.GetGeneration(ctx, "gen-1")
	gotG.Output.RiskTokens[0] = "copy mutated"

	storedG, _, _ := s.GetGeneration(ctx, "gen-1")
	if storedG.Output.CustomerDraft != "draft" {
		t.Errorf("stored output draft = %q, want %q", storedG.Output.CustomerDraft, "draft")
	}
	if storedG.Output.RiskTokens[0] != "遅延" {
		t.Errorf("stored risk token = %q, want 遅延", storedG.Output.RiskTokens[0])
	}
	if storedG.Risk.Tokens[0] != "遅延" {
		t.Errorf("stored assessment token = %q, want 遅延", storedG.Risk.Tokens[0])
	}
}

func TestStore_CreateDraftAssignsVersions(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	seedNotice(t, s, "CA-001")

	for want := 1; want <= 3; want++ {
		v := &draft.Version{NoticeID: "CA-001", EditorID: "op-1", EditedText: "text"}
		if err := s.CreateDraft(ctx, v, notice.StatusDraftUpdated, nil); err != nil {
			t.Fatalf("CreateDraft: %v", err)
		}
		if v.VersionNo != want {
			t.Errorf("VersionNo = %d, want %d", v.VersionNo, want)
		}
	}

	n, _, _ := s.GetNotice(ctx, "CA-001")
	if n.Status != notice.StatusDraftUpdated {
		t.Errorf("notice status = %q, want %q", n.Status, notice.StatusDraftUpdated)
	}
}

func TestStore_CreateDraftMissingNotice(t *testing.T) {
	t.Parallel()

	s := New()
	err := s.CreateDraft(context.Background(), &draft.Version{NoticeID: "nope"}, "", nil)
	if !errors.Is(err, draft.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_ConcurrentCreateDraft(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	seedNotice(t, s, "CA-001")

	const n = 50
	var g errgroup.Group
	for range n {
		g.Go(func() error {
			return s.CreateDraft(ctx, &draft.Version{NoticeID: "CA-001", EditorID: "op-1"}, "", nil)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}

	versions, err := s.ListDrafts(ctx, "CA-001")
	if err != nil {
		t.Fatalf("ListDrafts: %v", err)
	}
	if len(versions) != n {
		t.Fatalf("len(versions) = %d, want %d", len(versions), n)
	}
	// every number in 1..n exactly once
	seen := make(map[int]bool, n)
	for _, v := range versions {
		if v.VersionNo < 1 || v.VersionNo > n {
			t.Errorf("VersionNo %d out of range [1,%d]", v.VersionNo, n)
		}
		if seen[v.VersionNo] {
			t.Errorf("VersionNo %d assigned twice", v.VersionNo)
		}
		seen[v.VersionNo] = true
	}
}

func TestStore_SubmitAndDecide(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	seedNotice(t, s, "CA-001")

	v := &draft.Version{NoticeID: "CA-001", EditorID: "op-1", EditedText: "text"}
	if err := s.CreateDraft(ctx, v, "", nil); err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}

	got, err := s.SubmitDraft(ctx, v.ID, "Y", "please review", nil)
	if err != nil {
		t.Fatalf("SubmitDraft: %v", err)
	}
	if got.Status != draft.StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, draft.StatusPending)
	}
	if got.RiskFlag != "Y" {
		t.Errorf("RiskFlag = %q, want %q", got.RiskFlag, "Y")
	}

	a := &draft.Approval{DraftID: v.ID, Approver: "mgr-1", Decision: string(draft.StatusApproved)}
	got, err = s.DecideDraft(ctx, v.ID, a, nil)
	if err != nil {
		t.Fatalf("DecideDraft: %v", err)
	}
	if got.Status != draft.StatusApproved {
		t.Errorf("Status = %q, want %q", got.Status, draft.StatusApproved)
	}

	approvals, err := s.ListApprovals(ctx, v.ID)
	if err != nil {
		t.Fatalf("ListApprovals: %v", err)
	}
	if len(approvals) != 1 {
		t.Fatalf("len(approvals) = %d, want 1", len(approvals))
	}
	if approvals[0].Approver != "mgr-1" {
		t.Errorf("Approver = %q, want %q", approvals[0].Approver, "mgr-1")
	}
}

func TestStore_SubmitOnlyFromDraft(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	seedNotice(t, s, "CA-001")

	v := &draft.Version{NoticeID: "CA-001", EditorID: "op-1"}
	_ = s.CreateDraft(ctx, v, "", nil)
	if _, err := s.SubmitDraft(ctx, v.ID, "", "", nil); err != nil {
		t.Fatalf("SubmitDraft: %v", err)
	}

	// second submit must fail and leave the row pending
	if _, err := s.SubmitDraft(ctx, v.ID, "", "", nil); !errors.Is(err, draft.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	got, _, _ := s.GetDraft(ctx, v.ID)
	if got.Status != draft.StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, draft.StatusPending)
	}
}

func TestStore_DecideOnlyFromPending(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	seedNotice(t, s, "CA-001")

	v := &draft.Version{NoticeID: "CA-001", EditorID: "op-1"}
	_ = s.CreateDraft(ctx, v, "", nil)

	a := &draft.Approval{DraftID: v.ID, Approver: "mgr-1", Decision: string(draft.StatusApproved)}
	if _, err := s.DecideDraft(ctx, v.ID, a, nil); !errors.Is(err, draft.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	got, _, _ := s.GetDraft(ctx, v.ID)
	if got.Status != draft.StatusDraft {
		t.Errorf("Status = %q, want %q", got.Status, draft.StatusDraft)
	}
}

func TestStore_DecideMissing(t *testing.T) {
	t.Parallel()

	s := New()
	a := &draft.Approval{DraftID: 99, Decision: string(draft.StatusRejected)}
	if _, err := s.DecideDraft(context.Background(), 99, a, nil); !errors.Is(err, draft.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_ListPendingDrafts(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	seedNotice(t, s, "CA-001")

	v1 := &draft.Version{NoticeID: "CA-001", EditorID: "op-1"}
	v2 := &draft.Version{NoticeID: "CA-001", EditorID: "op-1"}
	_ = s.CreateDraft(ctx, v1, "", nil)
	_ = s.CreateDraft(ctx, v2, "", nil)
	_, _ = s.SubmitDraft(ctx, v2.ID, "", "", nil)

	pending, err := s.ListPendingDrafts(ctx)
	if err != nil {
		t.Fatalf("ListPendingDrafts: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	if pending[0].ID != v2.ID {
		t.Errorf("pending[0].ID = %d, want %d", pending[0].ID, v2.ID)
	}
}

func TestStore_UpsertEscalationRefreshes(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	e1 := &draft.Escalation{ID: "esc-1", DraftID: 7, NoticeID: "CA-001", Confidence: 0.4, Status: "pending"}
	if err := s.UpsertEscalation(ctx, e1, nil); err != nil {
		t.Fatalf("UpsertEscalation: %v", err)
	}

	e2 := &draft.Escalation{ID: "esc-2", DraftID: 7, NoticeID: "CA-001", Confidence: 0.2, Status: "pending"}
	if err := s.UpsertEscalation(ctx, e2, nil); err != nil {
		t.Fatalf("UpsertEscalation: %v", err)
	}

	got, ok, err := s.GetEscalationByDraft(ctx, 7)
	if err != nil {
		t.Fatalf("GetEscalationByDraft: %v", err)
	}
	if !ok {
		t.Fatal("expected escalation")
	}
	if got.ID != "esc-1" {
		t.Errorf("ID = %q, want original %q", got.ID, "esc-1")
	}
	if got.Confidence != 0.2 {
		t.Errorf("Confidence = %v, want 0.2", got.Confidence)
	}
}

func TestStore_AuditAppendedWithWrite(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	rec := audit.NewRecord("NOTICE", "CA-001", "CREATE", "system", map[string]any{"k": "v"})
	n := &notice.Notice{ID: "CA-001"}
	if err := s.CreateNotice(ctx, n, rec); err != nil {
		t.Fatalf("CreateNotice: %v", err)
	}

	audits, err := s.ListAudits(ctx, 10)
	if err != nil {
		t.Fatalf("ListAudits: %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("len(audits) = %d, want 1", len(audits))
	}
	if audits[0].Action != "CREATE" || audits[0].EntityID != "CA-001" {
		t.Errorf("audit = %+v, want CREATE on CA-001", audits[0])
	}
}

func TestStore_ListAuditsLimitNewestFirst(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	for _, action := range []string{"A", "B", "C"} {
		rec := audit.NewRecord("NOTICE", "CA-001", action, "system", nil)
		if err := s.AppendAudit(ctx, rec); err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}

	audits, err := s.ListAudits(ctx, 2)
	if err != nil {
		t.Fatalf("ListAudits: %v", err)
	}
	if len(audits) != 2 {
		t.Fatalf("len(audits) = %d, want 2", len(audits))
	}
	if audits[0].Action != "C" || audits[1].Action != "B" {
		t.Errorf("actions = %q,%q, want C,B", audits[0].Action, audits[1].Action)
	}
}

func TestStore_Distributions(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	seedNotice(t, s, "CA-001")
	v := &draft.Version{NoticeID: "CA-001", EditorID: "op-1"}
	_ = s.CreateDraft(ctx, v, "", nil)

	d := &draft.Distribution{DraftID: v.ID, Channel: "email", Status: "success", ResultDetail: "mock-sent"}
	if err := s.CreateDistribution(ctx, d, notice.StatusDistributed, nil); err != nil {
		t.Fatalf("CreateDistribution: %v", err)
	}
	if d.ID == 0 {
		t.Error("expected assigned distribution ID")
	}
	n, _, _ := s.GetNotice(ctx, "CA-001")
	if n.Status != notice.StatusDistributed {
		t.Errorf("notice status = %q, want %q", n.Status, notice.StatusDistributed)
	}

	list, err := s.ListDistributions(ctx, v.ID)
	if err != nil {
		t.Fatalf("ListDistributions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	if list[0].Channel != "email" {
		t.Errorf("Channel = %q, want %q", list[0].Channel, "email")
	}
}
