package usecase

import (
	"math"
	"testing"

	"TradePulse/internal/domain/models"
)

func scorerSnapshot(dir models.Direction) *models.Snapshot {
	series := &models.TimeframeSeries{
		Timeframe:  models.TF15m,
		Candles:    []models.Candle{{Close: 100, High: 101, Low: 99}},
		EMAShort:   []float64{99},
		EMALong:    []float64{98},
		Oscillator: []float64{70},
		Histogram:  []float64{1},
		ATR:        []float64{3},
		MFI:        []float64{55},
	}
	return &models.Snapshot{
		Symbol:    "BTCUSDT",
		Direction: dir,
		Selected:  []models.Timeframe{models.TF15m},
		Series:    map[models.Timeframe]*models.TimeframeSeries{models.TF15m: series},
		Trends: map[models.Timeframe]models.TrendReading{
			models.TF15m: {Timeframe: models.TF15m, Code: models.TrendBull, Strength: 0.5},
			models.TF5m:  {Timeframe: models.TF5m, Code: models.TrendBull, Strength: 0.4},
		},
		MajorTrend: models.TrendBull,
		Divergence: models.NeutralDivergence(),
	}
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 0.01
}

func TestScoreLongComposite(t *testing.T) {
	s := NewScorer(DefaultWeights())
	snap := scorerSnapshot(models.DirectionLong)

	bundle := s.Score(snap)

	if !approx(bundle.Trend, 75) {
		t.Fatalf("trend score %v, want 75", bundle.Trend)
	}
	// 0.7x oscillator(70) + 0.3x aligned histogram(75).
	if !approx(bundle.Momentum, 71.5) {
		t.Fatalf("momentum score %v, want 71.5", bundle.Momentum)
	}
	// ATR 3 on price 100 lands in the 0.02-0.04 band.
	if !approx(bundle.Volatility, 90) {
		t.Fatalf("volatility score %v, want 90", bundle.Volatility)
	}
	if !approx(bundle.Divergence, 50) {
		t.Fatalf("divergence score %v, want 50 for neutral", bundle.Divergence)
	}
	// Price 1% above the fast EMA costs 15 points of structure.
	if !approx(bundle.Structure, 85) {
		t.Fatalf("structure score %v, want 85", bundle.Structure)
	}
	if !approx(bundle.Micro, 85) {
		t.Fatalf("micro score %v, want 85", bundle.Micro)
	}

	if !approx(bundle.TechnicalScore, 72.55) {
		t.Fatalf("technical score %v, want 72.55", bundle.TechnicalScore)
	}
	if !approx(bundle.MatchRatio, 68.95) {
		t.Fatalf("match ratio %v, want 68.95", bundle.MatchRatio)
	}
	if bundle.Grade != models.GradeB {
		t.Fatalf("grade %v, want B", bundle.Grade)
	}
	if !approx(bundle.Confidence, 1.0) {
		t.Fatalf("confidence %v, want 1.0 for full agreement", bundle.Confidence)
	}
	if snap.Scores != bundle {
		t.Fatalf("snapshot bundle not updated")
	}
}

func TestScoreShortFlipsRelativeReadings(t *testing.T) {
	s := NewScorer(DefaultWeights())
	snap := scorerSnapshot(models.DirectionShort)

	bundle := s.Score(snap)

	// Bull major trend reads as against a short.
	if !approx(bundle.Trend, 25) {
		t.Fatalf("trend score %v, want 25", bundle.Trend)
	}
	// Oscillator flips to 30 and the positive histogram no longer aligns.
	if !approx(bundle.Momentum, 28.5) {
		t.Fatalf("momentum score %v, want 28.5", bundle.Momentum)
	}
	// The lone micro trend opposes the short.
	if !approx(bundle.Micro, 15) {
		t.Fatalf("micro score %v, want 15", bundle.Micro)
	}
}

func TestScoreSidewaysConfidenceFloor(t *testing.T) {
	s := NewScorer(DefaultWeights())
	snap := scorerSnapshot(models.DirectionLong)
	snap.MajorTrend = models.TrendSideways

	bundle := s.Score(snap)
	if !approx(bundle.Confidence, 0.3) {
		t.Fatalf("confidence %v, want 0.3 for sideways market", bundle.Confidence)
	}
	if !approx(bundle.Trend, 50) {
		t.Fatalf("trend score %v, want 50 for sideways", bundle.Trend)
	}
}

func TestScoreMissingSeriesNeutral(t *testing.T) {
	s := NewScorer(DefaultWeights())
	snap := &models.Snapshot{
		Symbol:     "BTCUSDT",
		Direction:  models.DirectionLong,
		Series:     map[models.Timeframe]*models.TimeframeSeries{},
		Trends:     map[models.Timeframe]models.TrendReading{},
		MajorTrend: models.TrendSideways,
		Divergence: models.NeutralDivergence(),
	}

	bundle := s.Score(snap)
	for name, v := range map[string]float64{
		"momentum":   bundle.Momentum,
		"volatility": bundle.Volatility,
		"structure":  bundle.Structure,
		"micro":      bundle.Micro,
	} {
		if !approx(v, 50) {
			t.Fatalf("%s score %v, want neutral 50 without data", name, v)
		}
	}
}

func TestDivergenceScoreDirectional(t *testing.T) {
	finding := models.NeutralDivergence()
	finding.OverallBias = models.BiasBullishReversal
	finding.Confidence = 0.6

	up := divergenceScore(finding, models.TrendBear, models.DirectionLong)
	if !approx(up, 80) {
		t.Fatalf("favoring bias score %v, want 80", up)
	}
	down := divergenceScore(finding, models.TrendBear, models.DirectionShort)
	if !approx(down, 20) {
		t.Fatalf("opposing bias score %v, want 20", down)
	}
}

func TestClampScore(t *testing.T) {
	if clampScore(math.NaN()) != 0 {
		t.Fatalf("NaN must clamp to 0")
	}
	if clampScore(-3) != 0 || clampScore(140) != 100 {
		t.Fatalf("out-of-range values must clamp")
	}
}
