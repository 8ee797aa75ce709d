package notify

import (
	"fmt"
	"strings"

	"TradePulse/internal/domain/models"
)

// FormatDecision renders a decision into the plain-text summary delivered to
// the notification sink.
func FormatDecision(d *models.Decision) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s %s → %s\n", strings.ToUpper(string(d.Context)), d.Symbol, d.Direction, strings.ToUpper(string(d.Kind)))
	fmt.Fprintf(&b, "%s\n", d.Reason)
	fmt.Fprintf(&b, "technical %.1f (grade %s, risk %s) | match %.1f | confidence %.2f\n",
		d.Scores.TechnicalScore, d.Scores.Grade, d.Scores.RiskClass, d.Scores.MatchRatio, d.Scores.Confidence)

	if d.Divergence.OverallBias != models.BiasNeutral {
		fmt.Fprintf(&b, "bias: %s (%.2f)\n", d.Divergence.OverallBias, d.Divergence.Confidence)
	}
	if d.DynamicStop > 0 {
		fmt.Fprintf(&b, "dynamic stop: %.6f\n", d.DynamicStop)
	}
	if d.ClosePercent > 0 {
		fmt.Fprintf(&b, "close: %.0f%% of position\n", d.ClosePercent)
	}
	if d.Entry != nil && len(d.Entry.Reasons) > 0 {
		fmt.Fprintf(&b, "entry audit:\n")
		for _, r := range d.Entry.Reasons {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
