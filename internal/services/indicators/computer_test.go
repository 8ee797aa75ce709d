package indicators

import (
	"errors"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
)

func makeCandles(n int, start, step float64) []models.Candle {
	out := make([]models.Candle, n)
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		close := start + float64(i)*step
		out[i] = models.Candle{
			Timestamp: ts.Add(time.Duration(i) * time.Minute),
			Open:      close - step/2,
			High:      close + 0.2,
			Low:       close - 0.2,
			Close:     close,
			Volume:    100,
		}
	}
	return out
}

func TestComputeAlignment(t *testing.T) {
	c := NewComputer(DefaultConfig())
	candles := makeCandles(60, 100, 0.5)

	series, err := c.Compute(models.TF15m, candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n := series.Len()
	if n != 60 {
		t.Fatalf("unexpected length %d", n)
	}
	for name, s := range map[string][]float64{
		"ema_short":  series.EMAShort,
		"ema_long":   series.EMALong,
		"oscillator": series.Oscillator,
		"histogram":  series.Histogram,
		"atr":        series.ATR,
		"mfi":        series.MFI,
	} {
		if len(s) != n {
			t.Fatalf("%s length %d, want %d", name, len(s), n)
		}
	}
}

func TestComputeInsufficientData(t *testing.T) {
	c := NewComputer(DefaultConfig())
	_, err := c.Compute(models.TF15m, makeCandles(5, 100, 1))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEMASeriesSeed(t *testing.T) {
	values := []float64{10, 11, 12, 13}
	ema := EMASeries(values, 3)
	if ema[0] != 10 {
		t.Fatalf("expected seed at first value, got %v", ema[0])
	}
	if ema[3] <= ema[0] {
		t.Fatalf("expected rising ema, got %v", ema)
	}
}

func TestRSISeriesBounds(t *testing.T) {
	candles := makeCandles(40, 100, 1)
	rsi := RSISeries(models.Closes(candles), 14)
	for i, v := range rsi {
		if v < 0 || v > 100 {
			t.Fatalf("rsi out of bounds at %d: %v", i, v)
		}
	}
	// Monotonic gains drive RSI to the ceiling once the period fills.
	if rsi[39] != 100 {
		t.Fatalf("expected 100 for pure gains, got %v", rsi[39])
	}
	// Before the first full period RSI holds neutral.
	if rsi[5] != 50 {
		t.Fatalf("expected neutral before period, got %v", rsi[5])
	}
}

func TestATRSeriesPositive(t *testing.T) {
	candles := makeCandles(30, 100, 0.5)
	atr := ATRSeries(candles, 14)
	for i, v := range atr {
		if v <= 0 {
			t.Fatalf("atr not positive at %d: %v", i, v)
		}
	}
}

func TestMFISeriesBounds(t *testing.T) {
	candles := makeCandles(40, 100, -0.5)
	mfi := MFISeries(candles, 14)
	for i, v := range mfi {
		if v < 0 || v > 100 {
			t.Fatalf("mfi out of bounds at %d: %v", i, v)
		}
	}
	// Pure selling pressure pins the index at the floor.
	if mfi[39] != 0 {
		t.Fatalf("expected 0 for pure outflow, got %v", mfi[39])
	}
}
