package usecase

import (
	"math"

	"TradePulse/internal/domain/models"
)

// Weights are the fixed linear-combination weights of the composite
// technical score. They are a design parameter, not derived data.
type Weights struct {
	Trend      float64
	Momentum   float64
	Divergence float64
	Structure  float64
	Volatility float64
	Micro      float64
}

// DefaultWeights returns the documented composite weights.
func DefaultWeights() Weights {
	return Weights{
		Trend:      0.30,
		Momentum:   0.20,
		Divergence: 0.20,
		Structure:  0.10,
		Volatility: 0.05,
		Micro:      0.15,
	}
}

// Scorer normalizes a snapshot plus divergence finding into the ScoreBundle.
// Every sub-score is a deterministic map of its inputs into [0,100].
type Scorer struct {
	weights Weights
}

func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score fills snap.Scores and returns a copy of the bundle.
func (s *Scorer) Score(snap *models.Snapshot) models.ScoreBundle {
	bundle := models.ScoreBundle{
		Trend:      trendScore(snap.MajorTrend, snap.Direction),
		Momentum:   momentumScore(snap),
		Volatility: volatilityScore(snap),
		Divergence: divergenceScore(snap.Divergence, snap.MajorTrend, snap.Direction),
		Structure:  structureScore(snap),
		Micro:      microScore(snap),
	}

	w := s.weights
	bundle.TechnicalScore = clampScore(
		w.Trend*bundle.Trend +
			w.Momentum*bundle.Momentum +
			w.Divergence*bundle.Divergence +
			w.Structure*bundle.Structure +
			w.Volatility*bundle.Volatility +
			w.Micro*bundle.Micro)

	// Match ratio measures agreement with the requested direction only; it
	// leans on the direction-relative sub-scores and ignores absolute
	// quality concerns like volatility.
	bundle.MatchRatio = clampScore(0.5*bundle.Trend + 0.3*bundle.Momentum + 0.2*bundle.Divergence)

	bundle.Grade = models.GradeOf(bundle.TechnicalScore)
	bundle.RiskClass = models.RiskClassOf(bundle.TechnicalScore)
	bundle.Confidence = confidence(snap)

	snap.Scores = bundle
	return bundle
}

// trendScore maps the direction-relative major trend to a fixed ladder.
func trendScore(major models.TrendCode, dir models.Direction) float64 {
	code := relativeCode(major, dir)
	switch code {
	case 2:
		return 95
	case 1:
		return 75
	case -1:
		return 25
	case -2:
		return 5
	default:
		return 50
	}
}

// relativeCode flips the trend code for shorts so that positive always means
// "in the requested direction".
func relativeCode(code models.TrendCode, dir models.Direction) int {
	if dir == models.DirectionShort {
		return -int(code)
	}
	return int(code)
}

// momentumScore blends oscillator positioning with the histogram's sign on
// the lowest analysis timeframe.
func momentumScore(snap *models.Snapshot) float64 {
	series := LowestSeries(snap)
	if series == nil || series.Len() == 0 {
		return 50
	}
	n := series.Len()

	osc := series.Oscillator[n-1]
	hist := series.Histogram[n-1]

	favorOsc := osc
	histAligned := hist > 0
	if snap.Direction == models.DirectionShort {
		favorOsc = 100 - osc
		histAligned = hist < 0
	}

	histScore := 25.0
	if histAligned {
		histScore = 75.0
	} else if hist == 0 {
		histScore = 50.0
	}

	return clampScore(0.7*favorOsc + 0.3*histScore)
}

// volatilityScore maps relative ATR into risk bands: extreme churn scores
// low, a quiet but moving market scores high.
func volatilityScore(snap *models.Snapshot) float64 {
	series := LowestSeries(snap)
	if series == nil || series.Len() == 0 {
		return 50
	}
	n := series.Len()
	price := series.LastClose()
	if price <= 0 || len(series.ATR) != n {
		return 50
	}

	ratio := series.ATR[n-1] / price
	switch {
	case ratio > 0.08:
		return 25
	case ratio > 0.04:
		return 60
	case ratio > 0.02:
		return 90
	default:
		return 50
	}
}

// divergenceScore weights the finding's confidence toward the requested
// direction: a favoring bias lifts the score, an opposing one drags it.
func divergenceScore(finding models.DivergenceFinding, major models.TrendCode, dir models.Direction) float64 {
	favored := biasFavors(finding.OverallBias, major, dir)
	switch favored {
	case 1:
		return clampScore(50 + finding.Confidence*50)
	case -1:
		return clampScore(50 - finding.Confidence*50)
	default:
		return 50
	}
}

// biasFavors returns 1 when the bias argues for dir, -1 against, 0 neutral.
func biasFavors(bias models.Bias, major models.TrendCode, dir models.Direction) int {
	switch bias {
	case models.BiasBullishReversal:
		if dir == models.DirectionLong {
			return 1
		}
		return -1
	case models.BiasBearishReversal:
		if dir == models.DirectionShort {
			return 1
		}
		return -1
	case models.BiasContinuation:
		if major == models.TrendSideways {
			return 0
		}
		if major.Favors(dir) {
			return 1
		}
		return -1
	default:
		return 0
	}
}

// structureScore penalizes overextension: price far from its fast EMA tends
// to snap back before continuing.
func structureScore(snap *models.Snapshot) float64 {
	series := LowestSeries(snap)
	if series == nil || series.Len() == 0 {
		return 50
	}
	n := series.Len()
	price := series.LastClose()
	if price <= 0 || len(series.EMAShort) != n {
		return 50
	}

	distPct := math.Abs(price-series.EMAShort[n-1]) / price * 100
	if distPct > 5 {
		distPct = 5
	}
	return clampScore(100 - distPct*15)
}

// microScore checks whether the micro timeframes already lean the requested
// way. Missing micro data is neutral, not a penalty.
func microScore(snap *models.Snapshot) float64 {
	var available, favoring, opposing int
	for _, tf := range models.MicroTimeframes {
		reading, ok := snap.Trends[tf]
		if !ok {
			continue
		}
		available++
		if reading.Code.Favors(snap.Direction) {
			favoring++
		} else if reading.Code.Favors(snap.Direction.Opposite()) {
			opposing++
		}
	}

	if available == 0 {
		return 50
	}
	switch {
	case favoring == available:
		return 85
	case favoring > 0:
		return 60
	case opposing == available:
		return 15
	default:
		return 40
	}
}

// confidence measures timeframe agreement: the weighted share of selected
// timeframes whose trend sign matches the major trend.
func confidence(snap *models.Snapshot) float64 {
	if snap.MajorTrend == models.TrendSideways {
		return 0.3
	}

	var totalW, agreeW float64
	for _, tf := range snap.Selected {
		reading, ok := snap.Trends[tf]
		if !ok {
			continue
		}
		w := float64(tf.Minutes())
		totalW += w
		if sameSign(reading.Code, snap.MajorTrend) {
			agreeW += w
		}
	}
	if totalW == 0 {
		return 0
	}
	return agreeW / totalW
}

func sameSign(a, b models.TrendCode) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
