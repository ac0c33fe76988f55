package triage

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluate_ConfidentEditPasses(t *testing.T) {
	t.Parallel()

	d := Evaluate(Inputs{
		AIConfidence:       0.9,
		EditDistance:       0.1,
		OperatorConfidence: 0.9,
		DangerHits:         0,
	}, DefaultRules())

	if d.ShouldEscalate {
		t.Error("expected no escalation")
	}
	if !almostEqual(d.Confidence, 0.85) {
		t.Errorf("confidence = %v, want 0.85", d.Confidence)
	}
	if d.Rationale != RationalePass {
		t.Errorf("rationale = %q, want %q", d.Rationale, RationalePass)
	}
	if d.RecommendedChannel != ChannelOperator {
		t.Errorf("channel = %q, want %q", d.RecommendedChannel, ChannelOperator)
	}
}

func TestEvaluate_HeavyEditWithDangerHitsEscalates(t *testing.T) {
	t.Parallel()

	d := Evaluate(Inputs{
		AIConfidence:       0.5,
		EditDistance:       0.4,
		OperatorConfidence: 0.3,
		DangerHits:         2,
	}, DefaultRules())

	if !d.ShouldEscalate {
		t.Error("expected escalation")
	}
	// ((0.5 - 0.4 - 0.1*2) + 0.3) / 2 = 0.1
	if !almostEqual(d.Confidence, 0.1) {
		t.Errorf("confidence = %v, want 0.1", d.Confidence)
	}
	if d.Rationale != RationaleEscalate {
		t.Errorf("rationale = %q, want %q", d.Rationale, RationaleEscalate)
	}
	if d.RecommendedChannel != ChannelBackoffice {
		t.Errorf("channel = %q, want %q", d.RecommendedChannel, ChannelBackoffice)
	}
}

func TestEvaluate_ExactlyAtThresholdPasses(t *testing.T) {
	t.Parallel()

	// composite = (0.65 + 0.65) / 2 = 0.65; escalation is strictly below
	d := Evaluate(Inputs{AIConfidence: 0.65, OperatorConfidence: 0.65}, DefaultRules())
	if d.ShouldEscalate {
		t.Error("composite equal to threshold must not escalate")
	}
}

func TestEvaluate_ConfidenceClampedLow(t *testing.T) {
	t.Parallel()

	d := Evaluate(Inputs{
		AIConfidence:       0.1,
		EditDistance:       0.9,
		OperatorConfidence: 0.0,
		DangerHits:         5,
	}, DefaultRules())

	if d.Confidence != 0 {
		t.Errorf("confidence = %v, want clamped 0", d.Confidence)
	}
	if !d.ShouldEscalate {
		t.Error("expected escalation")
	}
}

func TestEvaluate_ConfidenceClampedHigh(t *testing.T) {
	t.Parallel()

	d := Evaluate(Inputs{AIConfidence: 1.5, OperatorConfidence: 1.5}, DefaultRules())
	if d.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped 1", d.Confidence)
	}
}

func TestEvaluate_DangerPenaltyScalesWithHits(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	base := Evaluate(Inputs{AIConfidence: 0.8, OperatorConfidence: 0.8}, rules)
	hit := Evaluate(Inputs{AIConfidence: 0.8, OperatorConfidence: 0.8, DangerHits: 1}, rules)

	if !almostEqual(base.Confidence-hit.Confidence, rules.DangerPenalty/2) {
		t.Errorf("penalty per hit = %v, want %v", base.Confidence-hit.Confidence, rules.DangerPenalty/2)
	}
}
