package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/services/divergence"
	"TradePulse/internal/services/indicators"
	"TradePulse/internal/services/trend"
	"TradePulse/pkg/logger"
)

// fakeSource serves the same canned candle sequence for every timeframe.
type fakeSource struct {
	candles []models.Candle
	err     error
	last    float64
}

func (f *fakeSource) Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

func (f *fakeSource) LastPrice(ctx context.Context, symbol string) (float64, error) {
	return f.last, nil
}

func trendingCandles(n int, start, step float64) []models.Candle {
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

func newTestEngine(t *testing.T, source *fakeSource) *Engine {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	computer := indicators.NewComputer(indicators.DefaultConfig())
	classifier := trend.NewClassifier(trend.DefaultConfig())
	builder := NewSnapshotBuilder(source, computer, classifier, 60, log)
	detector := divergence.NewDetector(divergence.DefaultConfig())

	return NewEngine(builder, detector, NewScorer(DefaultWeights()), NewEntryValidator(),
		source, computer, classifier, DefaultEngineConfig(), nil, log)
}

func TestEvaluateEntryUptrendLong(t *testing.T) {
	e := newTestEngine(t, &fakeSource{candles: trendingCandles(60, 100, 0.5)})

	d := e.Evaluate(context.Background(), "BTCUSDT", models.DirectionLong, models.ContextEntry, nil)

	if d.Kind != models.DecisionEnter {
		t.Fatalf("expected enter, got %s (%s)", d.Kind, d.Reason)
	}
	if d.Entry == nil || !d.Entry.Allowed {
		t.Fatalf("expected admitted entry verdict, got %+v", d.Entry)
	}
	if d.Scores.Grade != models.GradeA && d.Scores.Grade != models.GradeB {
		t.Fatalf("expected A/B grade in a clean uptrend, got %s", d.Scores.Grade)
	}
}

func TestEvaluateEntryDowntrendLongSkipped(t *testing.T) {
	e := newTestEngine(t, &fakeSource{candles: trendingCandles(60, 130, -0.5)})

	d := e.Evaluate(context.Background(), "BTCUSDT", models.DirectionLong, models.ContextEntry, nil)

	if d.Kind != models.DecisionSkip {
		t.Fatalf("expected skip against a bear market, got %s (%s)", d.Kind, d.Reason)
	}
	if d.Entry == nil || d.Entry.Allowed {
		t.Fatalf("expected blocked entry verdict, got %+v", d.Entry)
	}
}

func TestEvaluateImpossibleFailsClosed(t *testing.T) {
	e := newTestEngine(t, &fakeSource{err: errors.New("exchange down")})

	cases := []struct {
		evalCtx models.EvalContext
		want    models.DecisionKind
	}{
		{models.ContextEntry, models.DecisionSkip},
		{models.ContextReactivation, models.DecisionWait},
		{models.ContextPosition, models.DecisionKeep},
	}
	for _, c := range cases {
		d := e.Evaluate(context.Background(), "BTCUSDT", models.DirectionLong, c.evalCtx, nil)
		if d.Kind != c.want {
			t.Fatalf("context %s: expected %s, got %s", c.evalCtx, c.want, d.Kind)
		}
		if d.Reason == "" {
			t.Fatalf("context %s: missing reason", c.evalCtx)
		}
	}
}

func TestEvaluateReactivationThresholds(t *testing.T) {
	up := newTestEngine(t, &fakeSource{candles: trendingCandles(60, 100, 0.5)})
	d := up.Evaluate(context.Background(), "BTCUSDT", models.DirectionLong, models.ContextReactivation, nil)
	if d.Kind != models.DecisionEnter || !d.ReactivationAllowed {
		t.Fatalf("expected reactivation in a confirming uptrend, got %s (%s)", d.Kind, d.Reason)
	}

	down := newTestEngine(t, &fakeSource{candles: trendingCandles(60, 130, -0.5)})
	d = down.Evaluate(context.Background(), "BTCUSDT", models.DirectionLong, models.ContextReactivation, nil)
	if d.Kind != models.DecisionWait || d.ReactivationAllowed {
		t.Fatalf("expected wait against the trend, got %s (%s)", d.Kind, d.Reason)
	}
}

func TestEvaluatePositionTakeProfit(t *testing.T) {
	e := newTestEngine(t, &fakeSource{candles: trendingCandles(60, 100, 0.5)})
	// Default 20x leverage turns a 6% move into +120% ROI.
	pos := &models.PositionState{Symbol: "BTCUSDT", Direction: models.DirectionLong, EntryPrice: 100, MarkPrice: 106}

	d := e.Evaluate(context.Background(), "BTCUSDT", models.DirectionLong, models.ContextPosition, pos)

	if d.Kind != models.DecisionClosePartial {
		t.Fatalf("expected partial close, got %s (%s)", d.Kind, d.Reason)
	}
	if d.ClosePercent != 70 {
		t.Fatalf("expected 70%% close, got %v", d.ClosePercent)
	}
}

func TestEvaluatePositionDynamicStop(t *testing.T) {
	e := newTestEngine(t, &fakeSource{candles: trendingCandles(60, 100, 0.5)})
	// +70% ROI: past the dynamic-stop trigger, short of take-profit.
	pos := &models.PositionState{Symbol: "BTCUSDT", Direction: models.DirectionLong, EntryPrice: 100, MarkPrice: 103.5, Leverage: 20}

	d := e.Evaluate(context.Background(), "BTCUSDT", models.DirectionLong, models.ContextPosition, pos)

	if d.Kind != models.DecisionKeep {
		t.Fatalf("expected keep, got %s (%s)", d.Kind, d.Reason)
	}
	if !approx(d.DynamicStop, 105) {
		t.Fatalf("expected stop at entry+5%%, got %v", d.DynamicStop)
	}
}

func TestEvaluatePositionDeepLossReverse(t *testing.T) {
	// All short timeframes confirm a trend against the long.
	e := newTestEngine(t, &fakeSource{candles: trendingCandles(60, 130, -0.5)})
	pos := &models.PositionState{Symbol: "BTCUSDT", Direction: models.DirectionLong, EntryPrice: 100, MarkPrice: 98, Leverage: 20}

	d := e.Evaluate(context.Background(), "BTCUSDT", models.DirectionLong, models.ContextPosition, pos)

	if d.Kind != models.DecisionReverse {
		t.Fatalf("expected reverse at -40%% ROI with confirmation, got %s (%s)", d.Kind, d.Reason)
	}
}

func TestEvaluatePositionDeepLossNoConfirmation(t *testing.T) {
	// Market data still points up: the drawdown gets no reversal votes.
	e := newTestEngine(t, &fakeSource{candles: trendingCandles(60, 100, 0.5)})
	pos := &models.PositionState{Symbol: "BTCUSDT", Direction: models.DirectionLong, EntryPrice: 100, MarkPrice: 98, Leverage: 20}

	d := e.Evaluate(context.Background(), "BTCUSDT", models.DirectionLong, models.ContextPosition, pos)

	if d.Kind != models.DecisionKeep {
		t.Fatalf("expected keep without confirmation, got %s (%s)", d.Kind, d.Reason)
	}
}

func TestEvaluatePositionNormalRange(t *testing.T) {
	e := newTestEngine(t, &fakeSource{candles: trendingCandles(60, 100, 0.5)})
	pos := &models.PositionState{Symbol: "BTCUSDT", Direction: models.DirectionLong, EntryPrice: 100, MarkPrice: 101, Leverage: 20}

	d := e.Evaluate(context.Background(), "BTCUSDT", models.DirectionLong, models.ContextPosition, pos)

	if d.Kind != models.DecisionKeep {
		t.Fatalf("expected keep at +20%% ROI, got %s (%s)", d.Kind, d.Reason)
	}
	if d.DynamicStop != 0 {
		t.Fatalf("no dynamic stop expected, got %v", d.DynamicStop)
	}
}

func TestEvaluatePositionNilState(t *testing.T) {
	e := newTestEngine(t, &fakeSource{candles: trendingCandles(60, 100, 0.5)})

	d := e.Evaluate(context.Background(), "BTCUSDT", models.DirectionLong, models.ContextPosition, nil)
	if d.Kind != models.DecisionKeep {
		t.Fatalf("expected keep without position state, got %s", d.Kind)
	}
}

func TestDecideReactivationThresholds(t *testing.T) {
	e := newTestEngine(t, &fakeSource{candles: trendingCandles(60, 100, 0.5)})

	cases := []struct {
		name    string
		match   float64
		tech    float64
		allowed bool
	}{
		{"both above", 61, 56, true},
		{"exactly at both floors", 60, 55, true},
		{"match below despite strong technicals", 59, 90, false},
		{"technical just below", 60, 54.9, false},
		{"match just below", 59.9, 55, false},
	}

	for _, tc := range cases {
		snap := &models.Snapshot{
			Symbol:     "BTCUSDT",
			Direction:  models.DirectionLong,
			Divergence: models.NeutralDivergence(),
			Scores:     models.ScoreBundle{MatchRatio: tc.match, TechnicalScore: tc.tech},
		}
		d := e.decideReactivation(snap)

		if tc.allowed {
			if d.Kind != models.DecisionEnter || !d.ReactivationAllowed {
				t.Fatalf("%s: expected allowed reactivation, got %s allowed=%v (%s)",
					tc.name, d.Kind, d.ReactivationAllowed, d.Reason)
			}
		} else {
			if d.Kind != models.DecisionWait || d.ReactivationAllowed {
				t.Fatalf("%s: expected wait, got %s allowed=%v (%s)",
					tc.name, d.Kind, d.ReactivationAllowed, d.Reason)
			}
		}
	}
}
