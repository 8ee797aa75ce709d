package usecase

import (
	"strings"
	"testing"

	"TradePulse/internal/domain/models"
)

func validatorSnapshot(match, technical float64) *models.Snapshot {
	return &models.Snapshot{
		Symbol:    "BTCUSDT",
		Direction: models.DirectionLong,
		Scores: models.ScoreBundle{
			MatchRatio:     match,
			TechnicalScore: technical,
		},
		MajorTrend: models.TrendSideways,
		Divergence: models.NeutralDivergence(),
	}
}

func TestValidateStrongSetup(t *testing.T) {
	v := NewEntryValidator()
	snap := validatorSnapshot(90, 90)
	snap.MajorTrend = models.TrendStrongBull
	snap.Divergence.OverallBias = models.BiasContinuation

	verdict := v.Validate(snap)

	// 0.4x90 + 0.4x90 = 72, +10 strong aligned trend, +10 continuation.
	if !approx(verdict.Score, 92) {
		t.Fatalf("score %v, want 92", verdict.Score)
	}
	if verdict.Grade != models.GradeA || verdict.Mode != models.EntryOK || !verdict.Allowed {
		t.Fatalf("expected admitted A setup, got %+v", verdict)
	}
	if snap.Scores.SmartEntry != verdict.Score {
		t.Fatalf("smart entry score not recorded on snapshot")
	}
}

func TestValidateOpposingDivergencePenalties(t *testing.T) {
	v := NewEntryValidator()
	snap := validatorSnapshot(90, 90)
	snap.MajorTrend = models.TrendStrongBull
	snap.Divergence.Oscillator = models.IndicatorDivergence{
		Type:     models.DivergenceBearish,
		Strength: models.StrengthStrong,
	}

	verdict := v.Validate(snap)

	// 72 base, +10 trend, +5 neutral bias, -15 strong opposing, -5 unconfirmed.
	if !approx(verdict.Score, 67) {
		t.Fatalf("score %v, want 67", verdict.Score)
	}
	if verdict.Grade != models.GradeB || !verdict.Allowed {
		t.Fatalf("expected admitted B setup, got %+v", verdict)
	}
	if !hasReason(verdict.Reasons, "strong opposing divergence") {
		t.Fatalf("missing strong opposing reason: %v", verdict.Reasons)
	}
	if !hasReason(verdict.Reasons, "unconfirmed opposing divergence") {
		t.Fatalf("missing unconfirmed opposing reason: %v", verdict.Reasons)
	}
}

func TestValidateReversalForcesBlock(t *testing.T) {
	v := NewEntryValidator()
	snap := validatorSnapshot(70, 70)
	snap.Divergence.OverallBias = models.BiasBearishReversal

	verdict := v.Validate(snap)

	// 56 base, +4 sideways, -5 reversal bias = 55: grade C, which a reversal
	// bias downgrades from warn to block.
	if verdict.Grade != models.GradeC {
		t.Fatalf("grade %v, want C", verdict.Grade)
	}
	if verdict.Mode != models.EntryBlock || verdict.Allowed {
		t.Fatalf("expected forced block, got %+v", verdict)
	}
	if !hasReason(verdict.Reasons, "forced block") {
		t.Fatalf("missing forced block reason: %v", verdict.Reasons)
	}
}

func TestValidateWeakSetupBlocked(t *testing.T) {
	v := NewEntryValidator()
	snap := validatorSnapshot(30, 30)

	verdict := v.Validate(snap)
	if verdict.Grade != models.GradeD || verdict.Allowed {
		t.Fatalf("expected blocked D setup, got %+v", verdict)
	}
}

func TestMajorTrendBonusLadder(t *testing.T) {
	cases := []struct {
		code models.TrendCode
		dir  models.Direction
		want float64
	}{
		{models.TrendStrongBull, models.DirectionLong, 10},
		{models.TrendBull, models.DirectionLong, 6},
		{models.TrendSideways, models.DirectionLong, 4},
		{models.TrendBear, models.DirectionLong, 2},
		{models.TrendStrongBear, models.DirectionLong, 0},
		{models.TrendStrongBear, models.DirectionShort, 10},
		{models.TrendStrongBull, models.DirectionShort, 0},
	}
	for _, c := range cases {
		if got := majorTrendBonus(c.code, c.dir); got != c.want {
			t.Fatalf("bonus(%v, %v) = %v, want %v", c.code, c.dir, got, c.want)
		}
	}
}

func hasReason(reasons []string, substr string) bool {
	for _, r := range reasons {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}
