package usecase

import (
	"context"
	"testing"

	"TradePulse/internal/domain/models"
)

// recordingEvaluator captures the position state the use case hands down.
type recordingEvaluator struct {
	position *models.PositionState
	calls    int
}

func (e *recordingEvaluator) Evaluate(ctx context.Context, symbol string, direction models.Direction, evalCtx models.EvalContext, position *models.PositionState) *models.Decision {
	e.calls++
	e.position = position
	return &models.Decision{Symbol: symbol}
}

func TestEvaluatePositionMarkPriceFallback(t *testing.T) {
	ev := &recordingEvaluator{}
	uc := NewEvaluateUseCase(ev, nil, &fakeSource{last: 104.5})

	_, err := uc.Evaluate(context.Background(), EvaluateParams{
		Symbol:     "BTCUSDT",
		Direction:  models.DirectionLong,
		Context:    models.ContextPosition,
		EntryPrice: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.position == nil {
		t.Fatalf("position state not passed to evaluator")
	}
	if ev.position.MarkPrice != 104.5 {
		t.Fatalf("mark price %v, want last traded 104.5", ev.position.MarkPrice)
	}
}

func TestEvaluatePositionMarkPriceUnavailable(t *testing.T) {
	ev := &recordingEvaluator{}
	uc := NewEvaluateUseCase(ev, nil, &fakeSource{last: 0})

	_, err := uc.Evaluate(context.Background(), EvaluateParams{
		Symbol:     "BTCUSDT",
		Direction:  models.DirectionShort,
		Context:    models.ContextPosition,
		EntryPrice: 100,
	})
	if err == nil {
		t.Fatalf("expected error when no mark price can be resolved")
	}
	if ev.calls != 0 {
		t.Fatalf("evaluator ran %d times on an unpriced position", ev.calls)
	}
}

func TestEvaluatePositionMarkPricePassedThrough(t *testing.T) {
	ev := &recordingEvaluator{}
	uc := NewEvaluateUseCase(ev, nil, &fakeSource{last: 999})

	_, err := uc.Evaluate(context.Background(), EvaluateParams{
		Symbol:     "BTCUSDT",
		Direction:  models.DirectionLong,
		Context:    models.ContextPosition,
		EntryPrice: 100,
		MarkPrice:  101.25,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.position.MarkPrice != 101.25 {
		t.Fatalf("mark price %v, want caller-supplied 101.25", ev.position.MarkPrice)
	}
}
