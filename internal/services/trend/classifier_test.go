package trend

import (
	"testing"

	"TradePulse/internal/domain/models"
)

func seriesWith(emaShort, emaLong, atr []float64) *models.TimeframeSeries {
	candles := make([]models.Candle, len(emaShort))
	for i := range candles {
		candles[i].Close = 100
	}
	return &models.TimeframeSeries{
		Timeframe: models.TF1h,
		Candles:   candles,
		EMAShort:  emaShort,
		EMALong:   emaLong,
		ATR:       atr,
	}
}

func TestClassifyBull(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	s := seriesWith(
		[]float64{100, 100.1, 100.2, 100.3, 100.3},
		[]float64{100, 100, 100, 100, 100},
		[]float64{1, 1, 1, 1, 1},
	)

	r := c.Classify(s)
	if r.Code != models.TrendBull {
		t.Fatalf("expected bull, got %v", r.Code)
	}
	if r.Strength < 0.29 || r.Strength > 0.31 {
		t.Fatalf("unexpected strength %v", r.Strength)
	}
}

func TestClassifyStrongBullRequiresWidening(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	// Spread grows over the lookback and exceeds the strong band.
	widening := seriesWith(
		[]float64{100.2, 100.5, 100.8, 101.2, 101.5},
		[]float64{100, 100, 100, 100, 100},
		[]float64{1, 1, 1, 1, 1},
	)
	if r := c.Classify(widening); r.Code != models.TrendStrongBull {
		t.Fatalf("expected strong bull, got %v", r.Code)
	}

	// Same final spread but contracting: stays a plain bull.
	contracting := seriesWith(
		[]float64{102, 101.9, 101.8, 101.6, 101.5},
		[]float64{100, 100, 100, 100, 100},
		[]float64{1, 1, 1, 1, 1},
	)
	if r := c.Classify(contracting); r.Code != models.TrendBull {
		t.Fatalf("expected plain bull, got %v", r.Code)
	}
}

func TestClassifyBear(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	s := seriesWith(
		[]float64{100, 99.9, 99.8, 99.7, 99.6},
		[]float64{100, 100, 100, 100, 100},
		[]float64{1, 1, 1, 1, 1},
	)

	if r := c.Classify(s); r.Code != models.TrendBear {
		t.Fatalf("expected bear, got %v", r.Code)
	}
}

func TestClassifySidewaysBand(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	s := seriesWith(
		[]float64{100, 100, 100, 100, 100.05},
		[]float64{100, 100, 100, 100, 100},
		[]float64{1, 1, 1, 1, 1},
	)

	if r := c.Classify(s); r.Code != models.TrendSideways {
		t.Fatalf("expected sideways, got %v", r.Code)
	}
}

func TestClassifyFlatATRFallback(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	// ATR zero: strength normalizes against 1% of price instead.
	s := seriesWith(
		[]float64{100, 100.5, 101, 101.5, 102},
		[]float64{100, 100, 100, 100, 100},
		[]float64{0, 0, 0, 0, 0},
	)

	r := c.Classify(s)
	if r.Code != models.TrendStrongBull {
		t.Fatalf("expected strong bull, got %v", r.Code)
	}
	if r.Strength < 1.9 || r.Strength > 2.1 {
		t.Fatalf("unexpected strength %v", r.Strength)
	}
}

func TestClassifyEmptySeries(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	r := c.Classify(&models.TimeframeSeries{Timeframe: models.TF1h})
	if r.Code != models.TrendSideways || r.Strength != 0 {
		t.Fatalf("expected neutral reading, got %+v", r)
	}
}
