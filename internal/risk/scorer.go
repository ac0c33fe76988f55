package risk

import "strings"

// Event tiers mirror the back-office classification tables. Unlisted event
// types score as low risk.
var highRiskEvents = map[string]struct{}{
	"tender_offer": {},
	"merger":       {},
	"spin_off":     {},
	"delisting":    {},
	"bankruptcy":   {},
	"litigation":   {},
	"減資":           {},
	"整理":           {},
	"償還遅延":         {},
}

var mediumRiskEvents = map[string]struct{}{
	"dividend_cut":  {},
	"dividend_omit": {},
	"stock_split":   {},
	"rights_issue":  {},
	"優先株発行":        {},
	"増資":           {},
}

const (
	baseScoreHigh   = 60
	baseScoreMedium = 40
	baseScoreLow    = 20

	weightLexiconToken = 20
	weightOtherToken   = 10
)

// Thresholds are the flag cut-offs. They come from configuration and are
// passed per evaluation so a config reload takes effect immediately.
type Thresholds struct {
	High   int
	Medium int
}

// DefaultThresholds matches the back-office defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 70, Medium: 50}
}

// Assessment is the outcome of scoring one draft against its notice.
type Assessment struct {
	Score  int      `json:"score"`
	Flag   string   `json:"flag"` // "Y" or "N"
	Tokens []string `json:"tokens,omitempty"`
}

// Scorer computes risk scores. Token weighting consults the danger-word
// lexicon, so a scorer always carries one.
type Scorer struct {
	lexicon *Lexicon
}

// NewScorer creates a scorer backed by the given lexicon.
func NewScorer(lexicon *Lexicon) *Scorer {
	return &Scorer{lexicon: lexicon}
}

// Score combines the event-type base score, per-token weights, and an
// optional manual override ("Y" forces at least High+10, "N" caps at
// Medium-5, anything else leaves the computed score alone). The raw score
// is intentionally not clamped to 0..100; only the flag is thresholded.
func (s *Scorer) Score(eventType string, tokens []string, manualFlag string, th Thresholds) Assessment {
	score := baseScore(eventType)

	kept := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		kept = append(kept, tok)

		if s.lexicon.Contains(tok) {
			score += weightLexiconToken
		} else {
			score += weightOtherToken
		}
	}

	switch manualFlag {
	case "Y":
		if score < th.High+10 {
			score = th.High + 10
		}
	case "N":
		if score > th.Medium-5 {
			score = th.Medium - 5
		}
	}

	flag := "N"
	if score >= th.High {
		flag = "Y"
	}

	return Assessment{Score: score, Flag: flag, Tokens: kept}
}

func baseScore(eventType string) int {
	normalized := strings.ToLower(eventType)
	if _, ok := highRiskEvents[normalized]; ok {
		return baseScoreHigh
	}
	if _, ok := mediumRiskEvents[normalized]; ok {
		return baseScoreMedium
	}
	return baseScoreLow
}
