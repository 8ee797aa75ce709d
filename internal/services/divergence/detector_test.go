package divergence

import (
	"testing"

	"TradePulse/internal/domain/models"
)

// divergentSeries builds a 30-candle series with price swing lows at indexes
// 10 and 20. The second low undercuts the first while the oscillator holds a
// higher low, the classic double-bottom disagreement.
func divergentSeries() *models.TimeframeSeries {
	const n = 30
	s := &models.TimeframeSeries{
		Timeframe:  models.TF1h,
		Candles:    make([]models.Candle, n),
		EMAShort:   make([]float64, n),
		EMALong:    make([]float64, n),
		Oscillator: make([]float64, n),
		Histogram:  make([]float64, n),
		ATR:        make([]float64, n),
		MFI:        make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.Candles[i] = models.Candle{Open: 10, High: 10.5, Low: 10, Close: 10, Volume: 100}
		s.EMAShort[i] = 9.0
		s.EMALong[i] = 9.5
		s.Oscillator[i] = 50
		s.ATR[i] = 0.5
		s.MFI[i] = 50
	}
	s.Candles[10].Low, s.Candles[10].High = 8.0, 8.5
	s.Candles[20].Low, s.Candles[20].High = 7.5, 8.0
	s.Oscillator[10] = 30
	s.Oscillator[20] = 40
	return s
}

func TestDetectBullishReversal(t *testing.T) {
	d := NewDetector(DefaultConfig())
	f := d.Detect(divergentSeries())

	if f.Oscillator.Type != models.DivergenceBullish {
		t.Fatalf("expected bullish oscillator divergence, got %v", f.Oscillator.Type)
	}
	// Indicator moved 33% against a 6.25% price drop: well past the strong
	// ratio.
	if f.Oscillator.Strength != models.StrengthStrong {
		t.Fatalf("expected strong, got %v", f.Oscillator.Strength)
	}
	if f.Histogram.Type != models.DivergenceNone {
		t.Fatalf("flat histogram must not diverge, got %v", f.Histogram.Type)
	}
	// Local EMAs point down, so a bullish divergence argues for reversal.
	if f.OverallBias != models.BiasBullishReversal {
		t.Fatalf("expected bullish reversal bias, got %v", f.OverallBias)
	}
	if f.Oscillator.Confirmed {
		t.Fatalf("flat closes must not confirm")
	}
	if f.Confidence != 0.4 {
		t.Fatalf("expected base strong confidence 0.4, got %v", f.Confidence)
	}
}

func TestDetectConfirmationBonus(t *testing.T) {
	s := divergentSeries()
	// Latest close, money flow, and short EMA all turn up.
	s.Candles[29].Close = 10.2
	s.MFI[29] = 55
	s.EMAShort[29] = 9.2

	d := NewDetector(DefaultConfig())
	f := d.Detect(s)

	if !f.Oscillator.Confirmed {
		t.Fatalf("expected confirmed divergence")
	}
	if f.Confidence < 0.499 || f.Confidence > 0.501 {
		t.Fatalf("expected 0.4 base + 0.1 confirmation, got %v", f.Confidence)
	}
}

func TestDetectVolumeSurgeBonus(t *testing.T) {
	s := divergentSeries()
	// Last volume at 1.5x the trailing mean crosses the surge ratio.
	s.Candles[29].Volume = 150

	d := NewDetector(DefaultConfig())
	f := d.Detect(s)

	if f.Confidence < 0.449 || f.Confidence > 0.451 {
		t.Fatalf("expected 0.4 base + 0.05 surge, got %v", f.Confidence)
	}
}

func TestDetectBearish(t *testing.T) {
	const n = 30
	s := &models.TimeframeSeries{
		Timeframe:  models.TF1h,
		Candles:    make([]models.Candle, n),
		EMAShort:   make([]float64, n),
		EMALong:    make([]float64, n),
		Oscillator: make([]float64, n),
		Histogram:  make([]float64, n),
		ATR:        make([]float64, n),
		MFI:        make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.Candles[i] = models.Candle{Open: 10, High: 10, Low: 9.5, Close: 10, Volume: 100}
		s.EMAShort[i] = 10.5
		s.EMALong[i] = 10.0
		s.Oscillator[i] = 50
		s.ATR[i] = 0.5
		s.MFI[i] = 50
	}
	// Price makes a higher high while the oscillator rolls over.
	s.Candles[10].High, s.Candles[10].Low = 12.0, 11.5
	s.Candles[20].High, s.Candles[20].Low = 12.5, 12.0
	s.Oscillator[10] = 80
	s.Oscillator[20] = 65

	d := NewDetector(DefaultConfig())
	f := d.Detect(s)

	if f.Oscillator.Type != models.DivergenceBearish {
		t.Fatalf("expected bearish divergence, got %v", f.Oscillator.Type)
	}
	// Local EMAs point up: a bearish divergence against them is reversal.
	if f.OverallBias != models.BiasBearishReversal {
		t.Fatalf("expected bearish reversal bias, got %v", f.OverallBias)
	}
}

func TestDetectShortSeriesNeutral(t *testing.T) {
	d := NewDetector(DefaultConfig())
	s := &models.TimeframeSeries{
		Timeframe: models.TF1h,
		Candles:   make([]models.Candle, 4),
	}

	f := d.Detect(s)
	if f.OverallBias != models.BiasNeutral || f.Confidence != 0 {
		t.Fatalf("expected neutral finding, got %+v", f)
	}
	if f.Oscillator.Type != models.DivergenceNone {
		t.Fatalf("expected no oscillator divergence, got %v", f.Oscillator.Type)
	}
}

func TestDetectNilSeriesNeutral(t *testing.T) {
	d := NewDetector(DefaultConfig())
	f := d.Detect(nil)
	if f.OverallBias != models.BiasNeutral {
		t.Fatalf("expected neutral, got %v", f.OverallBias)
	}
}

func TestDetectIdempotent(t *testing.T) {
	d := NewDetector(DefaultConfig())
	s := divergentSeries()

	first := d.Detect(s)
	second := d.Detect(s)
	if first != second {
		t.Fatalf("repeated detection diverged: %+v vs %+v", first, second)
	}
}
