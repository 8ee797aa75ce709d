package usecase

import (
	"context"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/services/indicators"
	"TradePulse/internal/services/trend"
	"TradePulse/pkg/logger"
)

// mapSource serves a distinct candle sequence per timeframe; missing entries
// fetch as empty.
type mapSource struct {
	data map[models.Timeframe][]models.Candle
}

func (m *mapSource) Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	return m.data[tf], nil
}

func (m *mapSource) LastPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}

func newTestBuilder(t *testing.T, source *mapSource) *SnapshotBuilder {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewSnapshotBuilder(source,
		indicators.NewComputer(indicators.DefaultConfig()),
		trend.NewClassifier(trend.DefaultConfig()),
		60, log)
}

func fullSource() *mapSource {
	candles := trendingCandles(60, 100, 0.5)
	data := make(map[models.Timeframe][]models.Candle)
	for _, tf := range []models.Timeframe{models.TF1m, models.TF5m, models.TF15m, models.TF30m, models.TF1h, models.TF4h} {
		data[tf] = candles
	}
	return &mapSource{data: data}
}

func TestBuildPrimarySet(t *testing.T) {
	b := newTestBuilder(t, fullSource())

	snap, err := b.Build(context.Background(), "BTCUSDT", models.DirectionLong)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []models.Timeframe{models.TF4h, models.TF1h, models.TF30m, models.TF15m}
	if len(snap.Selected) != len(want) {
		t.Fatalf("selected %v, want %v", snap.Selected, want)
	}
	for i, tf := range want {
		if snap.Selected[i] != tf {
			t.Fatalf("selected %v, want %v", snap.Selected, want)
		}
	}
	for _, tf := range want {
		if _, ok := snap.Series[tf]; !ok {
			t.Fatalf("missing series for %s", tf)
		}
		if _, ok := snap.Trends[tf]; !ok {
			t.Fatalf("missing trend for %s", tf)
		}
	}
	if !snap.MajorTrend.Favors(models.DirectionLong) {
		t.Fatalf("expected bullish major trend, got %d", snap.MajorTrend)
	}
}

func TestBuildFallsBackToSecondSet(t *testing.T) {
	src := fullSource()
	delete(src.data, models.TF4h)
	b := newTestBuilder(t, src)

	snap, err := b.Build(context.Background(), "BTCUSDT", models.DirectionLong)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Selected[0] != models.TF1h {
		t.Fatalf("expected fallback set starting at 1h, got %v", snap.Selected)
	}
	if _, ok := snap.Dropped[models.TF4h]; !ok {
		t.Fatalf("4h drop not recorded: %v", snap.Dropped)
	}
}

func TestBuildImpossibleWhenNoSetSurvives(t *testing.T) {
	// Only micro data: both preferred sets miss their higher timeframes.
	src := &mapSource{data: map[models.Timeframe][]models.Candle{
		models.TF1m: trendingCandles(60, 100, 0.5),
	}}
	b := newTestBuilder(t, src)

	_, err := b.Build(context.Background(), "BTCUSDT", models.DirectionLong)
	if err == nil {
		t.Fatalf("expected error with no usable timeframe set")
	}
}

// slowSource delays every fetch so concurrent set loads are actually in
// flight together rather than finishing before the next one spawns.
type slowSource struct {
	mapSource
	delay time.Duration
}

func (s *slowSource) Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	time.Sleep(s.delay)
	return s.mapSource.Fetch(ctx, symbol, tf, limit)
}

func TestBuildOverlappingFetches(t *testing.T) {
	// The 4h gap forces a second set pass over the partially filled
	// snapshot while per-fetch latency keeps goroutines alive across the
	// spawn loop. Run with the race detector enabled.
	src := &slowSource{mapSource: *fullSource(), delay: 2 * time.Millisecond}
	delete(src.data, models.TF4h)

	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	b := NewSnapshotBuilder(src,
		indicators.NewComputer(indicators.DefaultConfig()),
		trend.NewClassifier(trend.DefaultConfig()),
		60, log)

	snap, err := b.Build(context.Background(), "BTCUSDT", models.DirectionLong)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Selected[0] != models.TF1h {
		t.Fatalf("expected fallback set starting at 1h, got %v", snap.Selected)
	}
	for _, tf := range snap.Selected {
		if _, ok := snap.Series[tf]; !ok {
			t.Fatalf("missing series for %s", tf)
		}
	}
}

func TestBuildSkipsShortHistory(t *testing.T) {
	// 4h exists but is below the indicator minimum: first set disqualified.
	src := fullSource()
	src.data[models.TF4h] = trendingCandles(5, 100, 0.5)
	b := newTestBuilder(t, src)

	snap, err := b.Build(context.Background(), "BTCUSDT", models.DirectionLong)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Selected[0] != models.TF1h {
		t.Fatalf("expected fallback set, got %v", snap.Selected)
	}
}

func TestMajorTrendVote(t *testing.T) {
	set := []models.Timeframe{models.TF4h, models.TF1h, models.TF30m, models.TF15m}

	// Higher timeframes outweigh lower ones: 4h bull beats three bears on
	// minutes-weighted voting (240 vs 105).
	trends := map[models.Timeframe]models.TrendReading{
		models.TF4h:  {Code: models.TrendBull},
		models.TF1h:  {Code: models.TrendBear},
		models.TF30m: {Code: models.TrendBear},
		models.TF15m: {Code: models.TrendBear},
	}
	if got := majorTrend(set, trends); got != models.TrendBull {
		t.Fatalf("expected bull vote, got %d", got)
	}

	// Unanimous strong readings upgrade the aggregate.
	for tf := range trends {
		trends[tf] = models.TrendReading{Code: models.TrendStrongBear}
	}
	if got := majorTrend(set, trends); got != models.TrendStrongBear {
		t.Fatalf("expected strong bear vote, got %d", got)
	}

	// An even split resolves to sideways.
	trends = map[models.Timeframe]models.TrendReading{
		models.TF4h:  {Code: models.TrendSideways},
		models.TF1h:  {Code: models.TrendSideways},
		models.TF30m: {Code: models.TrendBull},
		models.TF15m: {Code: models.TrendBull},
	}
	if got := majorTrend(set, trends); got != models.TrendSideways {
		t.Fatalf("expected sideways on tie, got %d", got)
	}
}
