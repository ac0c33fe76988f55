// Package pgstore provides a PostgreSQL implementation of draft.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/scribe/internal/audit"
	"github.com/linnemanlabs/scribe/internal/draft"
	"github.com/linnemanlabs/scribe/internal/notice"
)

var tracer = otel.Tracer("github.com/linnemanlabs/scribe/internal/draft/pgstore")

//go:embed schema.sql
var schema string

// versionInsertRetries bounds retries when a concurrent writer wins the
// (notice_id, version_no) race.
const versionInsertRetries = 3

// Store persists the draft workflow in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store. The pool is owned by
// the caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// CreateNotice inserts a notice, failing with ErrNoticeExists on a taken ID.
func (s *Store) CreateNotice(ctx context.Context, n *notice.Notice, rec *audit.Record) error {
	ctx, span := startSpan(ctx, "pgstore.CreateNotice", "INSERT")
	defer span.End()

	reportsJSON, err := json.Marshal(n.Reports)
	if err != nil {
		return spanErr(span, fmt.Errorf("marshal reports: %w", err))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return spanErr(span, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	_, err = tx.Exec(ctx,
		`INSERT INTO notices (id, security_code, security_name, event_type, record_date,
			payment_date, notice_text, source_channel, status, reports, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		n.ID, n.SecurityCode, n.SecurityName, n.EventType, n.RecordDate,
		n.PaymentDate, n.NoticeText, n.SourceChannel, string(n.Status), reportsJSON,
		n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return draft.ErrNoticeExists
		}
		return spanErr(span, fmt.Errorf("insert notice: %w", err))
	}

	if err := appendAuditTx(ctx, tx, rec); err != nil {
		return spanErr(span, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return spanErr(span, fmt.Errorf("commit: %w", err))
	}
	return nil
}

const noticeColumns = `id, security_code, security_name, event_type, record_date,
	payment_date, notice_text, source_channel, status, reports, created_at, updated_at`

// GetNotice retrieves a notice by ID.
func (s *Store) GetNotice(ctx context.Context, id string) (*notice.Notice, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetNotice", "SELECT")
	defer span.End()

	query := `SELECT ` + noticeColumns + ` FROM notices WHERE id = $1`
	n, err := scanNotice(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, false, spanErr(span, err)
	}
	if n == nil {
		return nil, false, nil
	}
	return n, true, nil
}

// ListNotices returns all notices, newest first.
func (s *Store) ListNotices(ctx context.Context) ([]*notice.Notice, error) {
	ctx, span := startSpan(ctx, "pgstore.ListNotices", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT `+noticeColumns+` FROM notices ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("query notices: %w", err))
	}
	defer rows.Close()

	var out []*notice.Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, spanErr(span, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, spanErr(span, fmt.Errorf("iterate notices: %w", err))
	}
	return out, nil
}

// PutGeneration inserts or updates a generation job.
func (s *Store) PutGeneration(ctx context.Context, g *draft.Generation) error {
	ctx, span := startSpan(ctx, "pgstore.PutGeneration", "UPSERT")
	defer span.End()

	var outputJSON, riskJSON []byte
	var err error
	if g.Output != nil {
		if outputJSON, err = json.Marshal(g.Output); err != nil {
			return spanErr(span, fmt.Errorf("marshal output: %w", err))
		}
	}
	if g.Risk != nil {
		if riskJSON, err = json.Marshal(g.Risk); err != nil {
			return spanErr(span, fmt.Errorf("marshal risk: %w", err))
		}
	}

	var completedAt *time.Time
	if !g.CompletedAt.IsZero() {
		completedAt = &g.CompletedAt
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO generations (id, notice_id, template_type, customer_segment, instructions,
			requested_by, status, output, risk, draft_id, error, created_at, completed_at, duration_s)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 ON CONFLICT (id) DO UPDATE SET
			status       = EXCLUDED.status,
			output       = EXCLUDED.output,
			risk         = EXCLUDED.risk,
			draft_id     = EXCLUDED.draft_id,
			error        = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at,
			duration_s   = EXCLUDED.duration_s`,
		g.ID, g.NoticeID, g.TemplateType, g.CustomerSegment, g.Instructions,
		g.RequestedBy, string(g.Status), outputJSON, riskJSON, g.DraftID, g.Error,
		g.CreatedAt, completedAt, g.Duration,
	)
	if err != nil {
		return spanErr(span, fmt.Errorf("upsert generation: %w", err))
	}
	return nil
}

// GetGeneration retrieves a generation job by ID.
func (s *Store) GetGeneration(ctx context.Context, id string) (*draft.Generation, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetGeneration", "SELECT")
	defer span.End()

	var (
		g           draft.Generation
		status      string
		outputJSON  []byte
		riskJSON    []byte
		completedAt *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, notice_id, template_type, customer_segment, instructions, requested_by,
			status, output, risk, draft_id, error, created_at, completed_at, duration_s
		 FROM generations WHERE id = $1`, id,
	).Scan(&g.ID, &g.NoticeID, &g.TemplateType, &g.CustomerSegment, &g.Instructions,
		&g.RequestedBy, &status, &outputJSON, &riskJSON, &g.DraftID, &g.Error,
		&g.CreatedAt, &completedAt, &g.Duration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, spanErr(span, fmt.Errorf("scan generation: %w", err))
	}

	g.Status = draft.GenerationStatus(status)
	if completedAt != nil {
		g.CompletedAt = *completedAt
	}
	if len(outputJSON) > 0 {
		if err := json.Unmarshal(outputJSON, &g.Output); err != nil {
			return nil, false, spanErr(span, fmt.Errorf("unmarshal output: %w", err))
		}
	}
	if len(riskJSON) > 0 {
		if err := json.Unmarshal(riskJSON, &g.Risk); err != nil {
			return nil, false, spanErr(span, fmt.Errorf("unmarshal risk: %w", err))
		}
	}
	return &g, true, nil
}

// CreateDraft inserts the next version for a notice. The version number is
// computed in the insert itself; the unique constraint catches concurrent
// writers and the insert is retried with a bounded budget.
func (s *Store) CreateDraft(ctx context.Context, d *draft.Version, noticeStatus notice.Status, rec *audit.Record) error {
	ctx, span := startSpan(ctx, "pgstore.CreateDraft", "INSERT")
	defer span.End()

	for attempt := 0; attempt < versionInsertRetries; attempt++ {
		err := s.tryCreateDraft(ctx, d, noticeStatus, rec)
		if err == nil {
			return nil
		}
		if isUniqueViolation(err) {
			continue
		}
		if errors.Is(err, draft.ErrNotFound) {
			return err
		}
		return spanErr(span, err)
	}
	return spanErr(span, draft.ErrConflict)
}

func (s *Store) tryCreateDraft(ctx context.Context, d *draft.Version, noticeStatus notice.Status, rec *audit.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	status := d.Status
	if status == "" {
		status = draft.StatusDraft
	}
	now := time.Now().UTC()

	err = tx.QueryRow(ctx,
		`INSERT INTO draft_versions (notice_id, version_no, editor_id, edited_text,
			generation_id, risk_flag, review_comment, approval_status, created_at, updated_at)
		 SELECT $1, COALESCE(MAX(version_no), 0) + 1, $2, $3, $4, $5, $6, $7, $8, $8
		 FROM draft_versions WHERE notice_id = $1
		 RETURNING id, version_no`,
		d.NoticeID, d.EditorID, d.EditedText, d.GenerationID, d.RiskFlag,
		d.ReviewComment, string(status), now,
	).Scan(&d.ID, &d.VersionNo)
	if err != nil {
		if isForeignKeyViolation(err) {
			return draft.ErrNotFound
		}
		return fmt.Errorf("insert draft: %w", err)
	}
	d.Status = status
	d.CreatedAt = now
	d.UpdatedAt = now

	if noticeStatus != "" {
		tag, err := tx.Exec(ctx,
			`UPDATE notices SET status = $1, updated_at = $2 WHERE id = $3`,
			string(noticeStatus), now, d.NoticeID)
		if err != nil {
			return fmt.Errorf("update notice status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return draft.ErrNotFound
		}
	}

	if err := appendAuditTx(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const draftColumns = `id, notice_id, version_no, editor_id, edited_text,
	generation_id, risk_flag, review_comment, approval_status, created_at, updated_at`

// GetDraft retrieves a draft version by ID.
func (s *Store) GetDraft(ctx context.Context, id int64) (*draft.Version, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetDraft", "SELECT")
	defer span.End()

	query := `SELECT ` + draftColumns + ` FROM draft_versions WHERE id = $1`
	v, err := scanDraft(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, false, spanErr(span, err)
	}
	if v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

// ListDrafts returns all versions for a notice, newest version first.
func (s *Store) ListDrafts(ctx context.Context, noticeID string) ([]*draft.Version, error) {
	ctx, span := startSpan(ctx, "pgstore.ListDrafts", "SELECT")
	defer span.End()

	query := `SELECT ` + draftColumns + ` FROM draft_versions WHERE notice_id = $1 ORDER BY version_no DESC`
	return s.queryDrafts(ctx, span, query, noticeID)
}

// ListPendingDrafts returns drafts awaiting review, most recent first.
func (s *Store) ListPendingDrafts(ctx context.Context) ([]*draft.Version, error) {
	ctx, span := startSpan(ctx, "pgstore.ListPendingDrafts", "SELECT")
	defer span.End()

	query := `SELECT ` + draftColumns + ` FROM draft_versions WHERE approval_status = $1 ORDER BY updated_at DESC, id DESC`
	return s.queryDrafts(ctx, span, query, string(draft.StatusPending))
}

func (s *Store) queryDrafts(ctx context.Context, span trace.Span, query string, args ...any) ([]*draft.Version, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("query drafts: %w", err))
	}
	defer rows.Close()

	var out []*draft.Version
	for rows.Next() {
		v, err := scanDraft(rows)
		if err != nil {
			return nil, spanErr(span, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, spanErr(span, fmt.Errorf("iterate drafts: %w", err))
	}
	return out, nil
}

// SubmitDraft moves draft -> pending. The conditional update leaves the
// row untouched when the draft is in any other state.
func (s *Store) SubmitDraft(ctx context.Context, id int64, riskFlag, comment string, rec *audit.Record) (*draft.Version, error) {
	ctx, span := startSpan(ctx, "pgstore.SubmitDraft", "UPDATE")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	query := `UPDATE draft_versions SET
			approval_status = $1,
			risk_flag       = CASE WHEN $2 <> '' THEN $2 ELSE risk_flag END,
			review_comment  = CASE WHEN $3 <> '' THEN $3 ELSE review_comment END,
			updated_at      = $4
		 WHERE id = $5 AND approval_status = $6
		 RETURNING ` + draftColumns
	v, err := scanDraft(tx.QueryRow(ctx, query,
		string(draft.StatusPending), riskFlag, comment, time.Now().UTC(), id, string(draft.StatusDraft)))
	if err != nil {
		return nil, spanErr(span, err)
	}
	if v == nil {
		return nil, s.transitionError(ctx, id)
	}

	if err := appendAuditTx(ctx, tx, rec); err != nil {
		return nil, spanErr(span, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, spanErr(span, fmt.Errorf("commit: %w", err))
	}
	return v, nil
}

// DecideDraft moves pending -> approved|rejected and records the approval
// in the same transaction.
func (s *Store) DecideDraft(ctx context.Context, id int64, a *draft.Approval, rec *audit.Record) (*draft.Version, error) {
	ctx, span := startSpan(ctx, "pgstore.DecideDraft", "UPDATE")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	query := `UPDATE draft_versions SET approval_status = $1, updated_at = $2
		 WHERE id = $3 AND approval_status = $4
		 RETURNING ` + draftColumns
	v, err := scanDraft(tx.QueryRow(ctx, query,
		a.Decision, time.Now().UTC(), id, string(draft.StatusPending)))
	if err != nil {
		return nil, spanErr(span, err)
	}
	if v == nil {
		return nil, s.transitionError(ctx, id)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO approvals (draft_id, approver_id, decision, comment, decided_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		a.DraftID, a.Approver, a.Decision, a.Comment, a.DecidedAt,
	).Scan(&a.ID)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("insert approval: %w", err))
	}

	if err := appendAuditTx(ctx, tx, rec); err != nil {
		return nil, spanErr(span, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, spanErr(span, fmt.Errorf("commit: %w", err))
	}
	return v, nil
}

// transitionError distinguishes a missing draft from one in the wrong state.
func (s *Store) transitionError(ctx context.Context, id int64) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM draft_versions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check draft: %w", err)
	}
	if !exists {
		return draft.ErrNotFound
	}
	return draft.ErrInvalidTransition
}

// ListApprovals returns a draft's decision history in decision order.
func (s *Store) ListApprovals(ctx context.Context, draftID int64) ([]*draft.Approval, error) {
	ctx, span := startSpan(ctx, "pgstore.ListApprovals", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, draft_id, approver_id, decision, comment, decided_at
		 FROM approvals WHERE draft_id = $1 ORDER BY id`, draftID)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("query approvals: %w", err))
	}
	defer rows.Close()

	var out []*draft.Approval
	for rows.Next() {
		var a draft.Approval
		if err := rows.Scan(&a.ID, &a.DraftID, &a.Approver, &a.Decision, &a.Comment, &a.DecidedAt); err != nil {
			return nil, spanErr(span, fmt.Errorf("scan approval: %w", err))
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, spanErr(span, fmt.Errorf("iterate approvals: %w", err))
	}
	return out, nil
}

// UpsertEscalation inserts or refreshes the one escalation row per draft.
func (s *Store) UpsertEscalation(ctx context.Context, e *draft.Escalation, rec *audit.Record) error {
	ctx, span := startSpan(ctx, "pgstore.UpsertEscalation", "UPSERT")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return spanErr(span, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	now := time.Now().UTC()
	err = tx.QueryRow(ctx,
		`INSERT INTO escalations (id, draft_id, notice_id, reason, confidence, channel,
			assigned_to, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
		 ON CONFLICT (draft_id) DO UPDATE SET
			reason      = EXCLUDED.reason,
			confidence  = EXCLUDED.confidence,
			channel     = EXCLUDED.channel,
			assigned_to = EXCLUDED.assigned_to,
			status      = EXCLUDED.status,
			updated_at  = EXCLUDED.updated_at
		 RETURNING id, created_at, updated_at`,
		e.ID, e.DraftID, e.NoticeID, e.Reason, e.Confidence, e.Channel,
		e.AssignedTo, e.Status, now,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return spanErr(span, fmt.Errorf("upsert escalation: %w", err))
	}

	if err := appendAuditTx(ctx, tx, rec); err != nil {
		return spanErr(span, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return spanErr(span, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// GetEscalationByDraft retrieves a draft's escalation, if any.
func (s *Store) GetEscalationByDraft(ctx context.Context, draftID int64) (*draft.Escalation, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetEscalationByDraft", "SELECT")
	defer span.End()

	var e draft.Escalation
	err := s.pool.QueryRow(ctx,
		`SELECT id, draft_id, notice_id, reason, confidence, channel, assigned_to,
			status, created_at, updated_at
		 FROM escalations WHERE draft_id = $1`, draftID,
	).Scan(&e.ID, &e.DraftID, &e.NoticeID, &e.Reason, &e.Confidence, &e.Channel,
		&e.AssignedTo, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, spanErr(span, fmt.Errorf("scan escalation: %w", err))
	}
	return &e, true, nil
}

// CreateDistribution appends the send record, optionally moving the parent
// notice status in the same transaction.
func (s *Store) CreateDistribution(ctx context.Context, d *draft.Distribution, noticeStatus notice.Status, rec *audit.Record) error {
	ctx, span := startSpan(ctx, "pgstore.CreateDistribution", "INSERT")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return spanErr(span, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	err = tx.QueryRow(ctx,
		`INSERT INTO distributions (draft_id, channel_type, distribution_status, sent_at, result_detail)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		d.DraftID, d.Channel, d.Status, d.SentAt, d.ResultDetail,
	).Scan(&d.ID)
	if err != nil {
		return spanErr(span, fmt.Errorf("insert distribution: %w", err))
	}

	if noticeStatus != "" {
		_, err = tx.Exec(ctx,
			`UPDATE notices SET status = $1, updated_at = $2
			 WHERE id = (SELECT notice_id FROM draft_versions WHERE id = $3)`,
			string(noticeStatus), time.Now().UTC(), d.DraftID)
		if err != nil {
			return spanErr(span, fmt.Errorf("update notice status: %w", err))
		}
	}

	if err := appendAuditTx(ctx, tx, rec); err != nil {
		return spanErr(span, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return spanErr(span, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// ListDistributions returns a draft's distribution log in send order.
func (s *Store) ListDistributions(ctx context.Context, draftID int64) ([]*draft.Distribution, error) {
	ctx, span := startSpan(ctx, "pgstore.ListDistributions", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, draft_id, channel_type, distribution_status, sent_at, result_detail
		 FROM distributions WHERE draft_id = $1 ORDER BY id`, draftID)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("query distributions: %w", err))
	}
	defer rows.Close()

	var out []*draft.Distribution
	for rows.Next() {
		var d draft.Distribution
		if err := rows.Scan(&d.ID, &d.DraftID, &d.Channel, &d.Status, &d.SentAt, &d.ResultDetail); err != nil {
			return nil, spanErr(span, fmt.Errorf("scan distribution: %w", err))
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, spanErr(span, fmt.Errorf("iterate distributions: %w", err))
	}
	return out, nil
}

// AppendAudit appends a standalone audit record.
func (s *Store) AppendAudit(ctx context.Context, rec *audit.Record) error {
	ctx, span := startSpan(ctx, "pgstore.AppendAudit", "INSERT")
	defer span.End()

	if rec == nil {
		return nil
	}
	if err := insertAudit(ctx, s.pool, rec); err != nil {
		return spanErr(span, err)
	}
	return nil
}

// ListAudits returns the most recent records, newest first. limit <= 0
// means no limit.
func (s *Store) ListAudits(ctx context.Context, limit int) ([]*audit.Record, error) {
	ctx, span := startSpan(ctx, "pgstore.ListAudits", "SELECT")
	defer span.End()

	query := `SELECT id, entity_type, entity_id, action, actor_id, performed_at, payload_digest
		 FROM audit_logs ORDER BY performed_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("query audits: %w", err))
	}
	defer rows.Close()

	var out []*audit.Record
	for rows.Next() {
		var r audit.Record
		if err := rows.Scan(&r.ID, &r.EntityType, &r.EntityID, &r.Action, &r.Actor, &r.At, &r.PayloadDigest); err != nil {
			return nil, spanErr(span, fmt.Errorf("scan audit: %w", err))
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, spanErr(span, fmt.Errorf("iterate audits: %w", err))
	}
	return out, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func appendAuditTx(ctx context.Context, tx pgx.Tx, rec *audit.Record) error {
	if rec == nil {
		return nil
	}
	return insertAudit(ctx, tx, rec)
}

func insertAudit(ctx context.Context, db execer, rec *audit.Record) error {
	_, err := db.Exec(ctx,
		`INSERT INTO audit_logs (id, entity_type, entity_id, action, actor_id, performed_at, payload_digest)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.EntityType, rec.EntityID, rec.Action, rec.Actor, rec.At, rec.PayloadDigest)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// scanNotice scans a single notice row. Returns (nil, nil) when no row is
// found.
func scanNotice(row pgx.Row) (*notice.Notice, error) {
	var (
		n           notice.Notice
		status      string
		reportsJSON []byte
	)
	err := row.Scan(&n.ID, &n.SecurityCode, &n.SecurityName, &n.EventType, &n.RecordDate,
		&n.PaymentDate, &n.NoticeText, &n.SourceChannel, &status, &reportsJSON,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan notice: %w", err)
	}
	n.Status = notice.Status(status)
	if err := json.Unmarshal(reportsJSON, &n.Reports); err != nil {
		return nil, fmt.Errorf("unmarshal reports: %w", err)
	}
	return &n, nil
}

// scanDraft scans a single draft version row. Returns (nil, nil) when no
// row is found.
func scanDraft(row pgx.Row) (*draft.Version, error) {
	var (
		v      draft.Version
		status string
	)
	err := row.Scan(&v.ID, &v.NoticeID, &v.VersionNo, &v.EditorID, &v.EditedText,
		&v.GenerationID, &v.RiskFlag, &v.ReviewComment, &status, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan draft: %w", err)
	}
	v.Status = draft.ApprovalStatus(status)
	return &v, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
