package usecase

import (
	"fmt"

	"TradePulse/internal/domain/models"
)

// EntryValidator turns a scored snapshot into an admission verdict for a new
// entry. Every contribution to the score is recorded as a human-readable
// reason; that list is the audit trail the decision log keeps.
type EntryValidator struct{}

func NewEntryValidator() *EntryValidator {
	return &EntryValidator{}
}

// Validate computes the entry score, grade and mode.
func (v *EntryValidator) Validate(snap *models.Snapshot) models.EntryVerdict {
	bundle := snap.Scores
	reasons := make([]string, 0, 6)

	score := 0.4*bundle.MatchRatio + 0.4*bundle.TechnicalScore
	reasons = append(reasons, fmt.Sprintf("base: 0.4×match(%.1f) + 0.4×technical(%.1f) = %.1f",
		bundle.MatchRatio, bundle.TechnicalScore, score))

	trendBonus := majorTrendBonus(snap.MajorTrend, snap.Direction)
	score += trendBonus
	reasons = append(reasons, fmt.Sprintf("major trend %s: %+.0f", snap.MajorTrend.Label(), trendBonus))

	biasBonus := biasBonusFor(snap.Divergence.OverallBias)
	score += biasBonus
	reasons = append(reasons, fmt.Sprintf("bias %s: %+.0f", snap.Divergence.OverallBias, biasBonus))

	if hasOpposingDivergence(snap, models.StrengthStrong, false) {
		score -= 15
		reasons = append(reasons, "strong opposing divergence: -15")
	}
	if hasOpposingDivergence(snap, "", true) {
		score -= 5
		reasons = append(reasons, "unconfirmed opposing divergence: -5")
	}

	score = clampScore(score)
	grade := models.GradeOf(score)

	verdict := models.EntryVerdict{
		Score: score,
		Grade: grade,
	}

	switch grade {
	case models.GradeA, models.GradeB:
		verdict.Mode = models.EntryOK
	case models.GradeC:
		verdict.Mode = models.EntryWarn
		reasons = append(reasons, fmt.Sprintf("grade %s: marginal setup, enter with caution", grade))
	default:
		verdict.Mode = models.EntryBlock
		reasons = append(reasons, fmt.Sprintf("grade %s: setup too weak", grade))
	}

	// Reversal risk overrides a marginal score: a C or D setup while the
	// market flags reversal conditions is never admitted.
	if snap.Divergence.OverallBias.IsReversal() && (grade == models.GradeC || grade == models.GradeD) {
		verdict.Mode = models.EntryBlock
		reasons = append(reasons, "reversal bias with marginal grade: forced block")
	}

	verdict.Allowed = verdict.Mode != models.EntryBlock
	verdict.Reasons = reasons

	snap.Scores.SmartEntry = score
	return verdict
}

// majorTrendBonus rewards alignment with the major trend on a 0-10 ladder.
func majorTrendBonus(major models.TrendCode, dir models.Direction) float64 {
	switch relativeCode(major, dir) {
	case 2:
		return 10
	case 1:
		return 6
	case 0:
		return 4
	case -1:
		return 2
	default:
		return 0
	}
}

// biasBonusFor rewards a continuation bias and taxes entering into reversal
// conditions, whichever way they point.
func biasBonusFor(bias models.Bias) float64 {
	switch bias {
	case models.BiasContinuation:
		return 10
	case models.BiasNeutral:
		return 5
	default:
		return -5
	}
}

// hasOpposingDivergence scans both indicator findings for a divergence
// arguing against the requested direction. When minStrength is set, only
// that strength counts; when unconfirmedOnly is set, only unconfirmed ones.
func hasOpposingDivergence(snap *models.Snapshot, minStrength models.DivergenceStrength, unconfirmedOnly bool) bool {
	opposing := models.DivergenceBearish
	if snap.Direction == models.DirectionShort {
		opposing = models.DivergenceBullish
	}

	for _, f := range []models.IndicatorDivergence{snap.Divergence.Oscillator, snap.Divergence.Histogram} {
		if f.Type != opposing {
			continue
		}
		if minStrength != "" && f.Strength != minStrength {
			continue
		}
		if unconfirmedOnly && f.Confirmed {
			continue
		}
		return true
	}
	return false
}
