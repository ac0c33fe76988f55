package compose

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// defaultSystemPrompt is used when no base-prompt file is configured or
// the configured file is missing.
const defaultSystemPrompt = `You are a bilingual financial analyst who prepares concise internal summaries
and polite Japanese customer notifications for corporate action events.
Output strict JSON with the following keys:
internal_summary (JP), customer_draft (JP), risk_tokens (array of strings).`

// Prompt holds the cached base system prompt with a reload hook so tests
// can swap the file without restarting the process.
type Prompt struct {
	mu   sync.RWMutex
	path string
	text string
}

// NewPrompt loads the base prompt at path, falling back to the built-in
// default when the file is absent.
func NewPrompt(path string) *Prompt {
	p := &Prompt{path: path}
	p.Reload()
	return p
}

// Reload re-reads the prompt from its source path.
func (p *Prompt) Reload() {
	text := defaultSystemPrompt
	if p.path != "" {
		if b, err := os.ReadFile(p.path); err == nil {
			if s := strings.TrimSpace(string(b)); s != "" {
				text = s
			}
		}
	}
	p.mu.Lock()
	p.text = text
	p.mu.Unlock()
}

// System returns the current base system prompt.
func (p *Prompt) System() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text
}

// userPrompt renders the deterministic generation request for one notice.
func userPrompt(in *Input) string {
	payment := in.Notice.PaymentDate
	if payment == "" {
		payment = "未定"
	}
	instructions := in.Instructions
	if instructions == "" {
		instructions = "なし"
	}

	return fmt.Sprintf(`[CA NOTICE CONTEXT]
銘柄名: %s (%s)
イベント種別: %s
権利確定日: %s
支払開始日: %s
テンプレート: %s
セグメント: %s
追加指示: %s
原文:
%s

必ず JSON 形式 (keys: internal_summary, customer_draft, risk_tokens) で返却してください。`,
		in.Notice.SecurityName, in.Notice.SecurityCode,
		in.Notice.EventType,
		in.Notice.RecordDate,
		payment,
		in.TemplateType,
		in.CustomerSegment,
		instructions,
		in.Notice.NoticeText,
	)
}
