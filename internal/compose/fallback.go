package compose

import (
	"fmt"
	"strings"
)

const (
	fallbackModelVersion = "heuristic-v1"
	noticeTextMaxRunes   = 600
)

// fallback synthesizes the internal summary and customer draft from fixed
// templates. It is pure and always available.
func (c *Composer) fallback(in *Input) *Result {
	n := in.Notice

	payment := n.PaymentDate
	if payment == "" {
		payment = "未定"
	}

	summary := strings.TrimSpace(fmt.Sprintf(`%sに関する%sの要約です。
・権利確定日: %s
・支払開始日: %s
・対象セグメント: %s
重要ポイントを確認のうえ、テンプレート %s に沿って通知してください。`,
		n.SecurityName, n.EventType,
		n.RecordDate,
		payment,
		in.CustomerSegment,
		in.TemplateType,
	))

	body := n.NoticeText
	if len([]rune(body)) > noticeTextMaxRunes {
		body = truncateRunes(body, noticeTextMaxRunes) + "..."
	}

	draft := strings.TrimSpace(fmt.Sprintf(`%sのお客様各位

%sより「%s」に関するご案内です。
権利確定日は %s、支払開始日は %s です。
詳細:
%s

ご不明点がございましたら担当窓口までお問い合わせください。`,
		in.CustomerSegment,
		n.SecurityName, n.EventType,
		n.RecordDate, payment,
		body,
	))

	return &Result{
		Source:          SourceFallback,
		ModelVersion:    fallbackModelVersion,
		InternalSummary: summary,
		CustomerDraft:   draft,
		RiskTokens:      c.lexicon.Scan(n.NoticeText),
	}
}
