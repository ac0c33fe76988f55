// Package compose produces the customer-facing draft and internal summary
// for a corporate-action notice. A remote generation backend is tried
// first when configured; any transport error, timeout, or malformed answer
// routes to a deterministic heuristic fallback within the same call, so
// composition never fails.
package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/scribe/internal/notice"
	"github.com/linnemanlabs/scribe/internal/risk"
)

var tracer = otel.Tracer("github.com/linnemanlabs/scribe/internal/compose")

// Result sources.
const (
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

const (
	snippetMaxRunes = 180

	confidenceFloor   = 0.35
	confidenceCeiling = 0.95
)

// Provider is the interface for the remote generation backend.
type Provider interface {
	Generate(ctx context.Context, system, user string) (*RemoteDraft, error)
}

// RemoteDraft is the structured output expected from the remote backend.
type RemoteDraft struct {
	InternalSummary string   `json:"internal_summary"`
	CustomerDraft   string   `json:"customer_draft"`
	RiskTokens      []string `json:"risk_tokens"`
	ModelVersion    string   `json:"-"`
}

// Input is the composition context for one notice.
type Input struct {
	Notice          *notice.Notice
	Sections        []notice.Section
	DangerHits      []string
	TemplateType    string
	CustomerSegment string
	Instructions    string
}

// Evidence references the report section backing a statement in the draft.
type Evidence struct {
	Source  string `json:"source"`
	Page    int    `json:"page,omitempty"`
	Snippet string `json:"snippet"`
}

// Result is the composition outcome. Source records which strategy
// produced it, making the fallback visible to callers instead of hiding
// it behind error unwinding.
type Result struct {
	Source          string     `json:"source"`
	ModelVersion    string     `json:"model_version"`
	InternalSummary string     `json:"internal_summary"`
	CustomerDraft   string     `json:"customer_draft"`
	RiskTokens      []string   `json:"risk_tokens,omitempty"`
	Evidence        []Evidence `json:"evidence,omitempty"`
	Memos           []string   `json:"operator_memo,omitempty"`
	Confidence      float64    `json:"confidence"`
}

// Composer builds drafts. A nil provider means fallback-only operation.
type Composer struct {
	provider Provider
	lexicon  *risk.Lexicon
	prompt   *Prompt
	logger   log.Logger
}

// New creates a composer.
func New(provider Provider, lexicon *risk.Lexicon, prompt *Prompt, logger log.Logger) *Composer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Composer{
		provider: provider,
		lexicon:  lexicon,
		prompt:   prompt,
		logger:   logger,
	}
}

// Compose returns a draft for the notice. It never returns an error: a
// failed or absent remote backend degrades to the heuristic strategy.
func (c *Composer) Compose(ctx context.Context, in *Input) *Result {
	ctx, span := tracer.Start(ctx, "compose.draft", trace.WithAttributes(
		attribute.String("scribe.notice.id", in.Notice.ID),
		attribute.String("scribe.notice.event_type", in.Notice.EventType),
		attribute.Int("compose.sections", len(in.Sections)),
		attribute.Int("compose.danger_hits", len(in.DangerHits)),
	))
	defer span.End()

	memos := buildMemos(in)
	evidence := buildEvidence(in.Sections)
	confidence := confidenceFor(len(in.Sections), len(in.DangerHits))

	if c.provider != nil {
		remote, err := c.generate(ctx, in)
		if err == nil {
			span.SetAttributes(attribute.String("compose.source", SourceRemote))
			return &Result{
				Source:          SourceRemote,
				ModelVersion:    remote.ModelVersion,
				InternalSummary: remote.InternalSummary,
				CustomerDraft:   remote.CustomerDraft,
				RiskTokens:      remote.RiskTokens,
				Evidence:        evidence,
				Memos:           memos,
				Confidence:      confidence,
			}
		}
		// failed, not fatal: no inline retry, fall through to heuristic
		c.logger.Error(ctx, err, "remote generation failed, using fallback",
			"notice_id", in.Notice.ID,
			"event_type", in.Notice.EventType,
		)
	}

	span.SetAttributes(attribute.String("compose.source", SourceFallback))
	r := c.fallback(in)
	r.Evidence = evidence
	r.Memos = memos
	r.Confidence = confidence
	return r
}

// generate wraps the remote call in its own span so backend latency and
// failures are visible separately from the composition as a whole.
func (c *Composer) generate(ctx context.Context, in *Input) (*RemoteDraft, error) {
	ctx, span := tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("scribe.notice.id", in.Notice.ID),
	))
	defer span.End()

	remote, err := c.provider.Generate(ctx, c.prompt.System(), userPrompt(in))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("llm.model_version", remote.ModelVersion))
	return remote, nil
}

func buildMemos(in *Input) []string {
	var memos []string
	if len(in.Sections) == 0 {
		memos = append(memos, "帳票の解析結果が不足しています。必要なページをアップロードしてください。")
	}
	if len(in.DangerHits) > 0 {
		memos = append(memos, fmt.Sprintf("危険語検知: %s。必ず内容を精査してください。", strings.Join(in.DangerHits, ", ")))
	}
	return memos
}

func buildEvidence(sections []notice.Section) []Evidence {
	out := make([]Evidence, 0, len(sections))
	for _, s := range sections {
		source := s.Title
		if source == "" {
			source = "不明セクション"
		}
		out = append(out, Evidence{
			Source:  source,
			Page:    s.Page,
			Snippet: truncateRunes(s.Text, snippetMaxRunes),
		})
	}
	return out
}

func confidenceFor(sections, dangerHits int) float64 {
	c := 0.55 + 0.10*float64(sections) - 0.10*float64(dangerHits)
	if c > confidenceCeiling {
		c = confidenceCeiling
	}
	if c < confidenceFloor {
		c = confidenceFloor
	}
	return c
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
