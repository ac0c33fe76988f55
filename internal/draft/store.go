package draft

import (
	"context"
	"errors"

	"github.com/linnemanlabs/scribe/internal/audit"
	"github.com/linnemanlabs/scribe/internal/notice"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrNotFound means the notice, draft, or generation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoticeExists means a notice with the same ID was already ingested.
	ErrNoticeExists = errors.New("notice already exists")

	// ErrInvalidTransition means the draft exists but is not in the state
	// the transition requires. The stored row is left untouched.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotApproved means a distribution was requested for a draft that
	// is not in the approved state.
	ErrNotApproved = errors.New("draft not approved")

	// ErrConflict means a concurrent writer won a version-number race and
	// the bounded retries were exhausted.
	ErrConflict = errors.New("version conflict")
)

// Store is the persistence boundary for the draft workflow. Mutating
// operations accept an optional audit record that must be appended in the
// same transaction/scope as the business write, so the audit trail cannot
// silently diverge from the data.
type Store interface {
	CreateNotice(ctx context.Context, n *notice.Notice, rec *audit.Record) error
	GetNotice(ctx context.Context, id string) (*notice.Notice, bool, error)
	ListNotices(ctx context.Context) ([]*notice.Notice, error)

	PutGeneration(ctx context.Context, g *Generation) error
	GetGeneration(ctx context.Context, id string) (*Generation, bool, error)

	// CreateDraft assigns d.VersionNo = current max for the notice + 1 and
	// inserts. The read-then-increment is serialized per notice: two
	// concurrent creates never observe the same version number. When
	// noticeStatus is non-empty the parent notice status moves in the same
	// transaction.
	CreateDraft(ctx context.Context, d *Version, noticeStatus notice.Status, rec *audit.Record) error
	GetDraft(ctx context.Context, id int64) (*Version, bool, error)
	ListDrafts(ctx context.Context, noticeID string) ([]*Version, error)
	ListPendingDrafts(ctx context.Context) ([]*Version, error)

	// SubmitDraft moves draft -> pending, optionally overwriting risk flag
	// and review comment. DecideDraft moves pending -> approved|rejected
	// and records the approval. Both fail without mutation when the draft
	// is missing (ErrNotFound) or in the wrong state (ErrInvalidTransition).
	SubmitDraft(ctx context.Context, id int64, riskFlag, comment string, rec *audit.Record) (*Version, error)
	DecideDraft(ctx context.Context, id int64, a *Approval, rec *audit.Record) (*Version, error)
	ListApprovals(ctx context.Context, draftID int64) ([]*Approval, error)

	UpsertEscalation(ctx context.Context, e *Escalation, rec *audit.Record) error
	GetEscalationByDraft(ctx context.Context, draftID int64) (*Escalation, bool, error)

	// CreateDistribution appends the send record; when noticeStatus is
	// non-empty the parent notice status moves in the same transaction.
	CreateDistribution(ctx context.Context, d *Distribution, noticeStatus notice.Status, rec *audit.Record) error
	ListDistributions(ctx context.Context, draftID int64) ([]*Distribution, error)

	AppendAudit(ctx context.Context, rec *audit.Record) error
	ListAudits(ctx context.Context, limit int) ([]*audit.Record, error)
}
