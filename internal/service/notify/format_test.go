package notify

import (
	"strings"
	"testing"

	"TradePulse/internal/domain/models"
)

func TestFormatDecisionEntry(t *testing.T) {
	d := &models.Decision{
		Symbol:    "BTCUSDT",
		Context:   models.ContextEntry,
		Direction: models.DirectionLong,
		Kind:      models.DecisionEnter,
		Reason:    "entry admitted: score 82.0 grade A",
		Scores: models.ScoreBundle{
			TechnicalScore: 78.5,
			MatchRatio:     81.2,
			Grade:          models.GradeA,
			RiskClass:      models.RiskMedium,
			Confidence:     0.91,
		},
		Divergence: models.NeutralDivergence(),
		Entry: &models.EntryVerdict{
			Reasons: []string{"base: 0.4×match(81.2) + 0.4×technical(78.5) = 63.9"},
		},
	}

	out := FormatDecision(d)

	for _, want := range []string{"[ENTRY]", "BTCUSDT", "ENTER", "grade A", "entry audit:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "bias:") {
		t.Fatalf("neutral bias must not be rendered:\n%s", out)
	}
	if strings.HasSuffix(out, "\n") {
		t.Fatalf("trailing newline not trimmed")
	}
}

func TestFormatDecisionPosition(t *testing.T) {
	d := &models.Decision{
		Symbol:    "ETHUSDT",
		Context:   models.ContextPosition,
		Direction: models.DirectionShort,
		Kind:      models.DecisionClosePartial,
		Reason:    "take-profit ROI 112.0%: close 70%, keep 30%",
		Divergence: models.DivergenceFinding{
			OverallBias: models.BiasBullishReversal,
			Confidence:  0.55,
		},
		ClosePercent: 70,
	}

	out := FormatDecision(d)

	for _, want := range []string{"[POSITION]", "CLOSE_PARTIAL", "bias: bullish_reversal (0.55)", "close: 70% of position"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
