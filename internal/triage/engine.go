// Package triage decides whether an edited draft must be escalated to
// back-office review before distribution. Evaluation is pure: no store, no
// transport, just the rule arithmetic.
package triage

// Fixed rationale strings. The decision is binary and so is the rationale;
// there is no graded wording.
const (
	RationaleEscalate = "自信度が閾値を下回っています"
	RationalePass     = "自動判定基準を満たしています"

	ChannelOperator   = "operator"
	ChannelBackoffice = "backoffice"
)

// Rules are the tunable thresholds for escalation.
type Rules struct {
	MinConfidence   float64
	MaxEditDistance float64
	DangerPenalty   float64
}

// DefaultRules returns the back-office defaults.
func DefaultRules() Rules {
	return Rules{
		MinConfidence:   0.65,
		MaxEditDistance: 0.35,
		DangerPenalty:   0.1,
	}
}

// Inputs are the observed signals for one edited draft.
type Inputs struct {
	AIConfidence       float64
	EditDistance       float64
	OperatorConfidence float64
	DangerHits         int
}

// Decision is the triage outcome.
type Decision struct {
	ShouldEscalate     bool    `json:"should_escalate"`
	Confidence         float64 `json:"confidence"`
	Rationale          string  `json:"rationale"`
	RecommendedChannel string  `json:"recommended_channel"`
}

// Evaluate combines AI confidence, edit magnitude, operator confidence,
// and danger-hit count into an escalate/no-escalate decision. The
// composite confidence is the average of the penalized AI confidence and
// the operator confidence, clamped to [0,1]; escalation triggers strictly
// below MinConfidence.
func Evaluate(in Inputs, rules Rules) Decision {
	score := in.AIConfidence - in.EditDistance - rules.DangerPenalty*float64(in.DangerHits)
	score = (score + in.OperatorConfidence) / 2

	escalate := score < rules.MinConfidence

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}

	d := Decision{
		ShouldEscalate:     escalate,
		Confidence:         score,
		Rationale:          RationalePass,
		RecommendedChannel: ChannelOperator,
	}
	if escalate {
		d.Rationale = RationaleEscalate
		d.RecommendedChannel = ChannelBackoffice
	}
	return d
}
