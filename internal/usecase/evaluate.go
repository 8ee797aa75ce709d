package usecase

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
)

// EvaluateUseCase wraps the engine for the HTTP surface: request shaping,
// per-call timeout, nothing else.
type EvaluateUseCase struct {
	evaluator domsvc.Evaluator
	recorder  *DecisionRecorder
	source    domrepo.CandleSource
	timeout   time.Duration
}

func NewEvaluateUseCase(evaluator domsvc.Evaluator, recorder *DecisionRecorder, source domrepo.CandleSource) *EvaluateUseCase {
	return &EvaluateUseCase{evaluator: evaluator, recorder: recorder, source: source, timeout: 15 * time.Second}
}

type EvaluateParams struct {
	Symbol     string
	Direction  models.Direction
	Context    models.EvalContext
	EntryPrice float64
	MarkPrice  float64
	Size       float64
	Leverage   float64
}

func (uc *EvaluateUseCase) Evaluate(ctx context.Context, p EvaluateParams) (*models.Decision, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.Direction != models.DirectionShort {
		p.Direction = models.DirectionLong
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	var position *models.PositionState
	if p.Context == models.ContextPosition {
		if p.EntryPrice <= 0 {
			return nil, fmt.Errorf("entry_price required for position context")
		}
		// Without a live mark the ROI ladder would read the position as a
		// total loss and manufacture a reversal.
		if p.MarkPrice <= 0 && uc.source != nil {
			if price, err := uc.source.LastPrice(ctx, p.Symbol); err == nil && price > 0 {
				p.MarkPrice = price
			}
		}
		if p.MarkPrice <= 0 {
			return nil, fmt.Errorf("mark price unavailable for %s", p.Symbol)
		}
		position = &models.PositionState{
			Symbol:     p.Symbol,
			Direction:  p.Direction,
			EntryPrice: p.EntryPrice,
			MarkPrice:  p.MarkPrice,
			Size:       p.Size,
			Leverage:   p.Leverage,
		}
	}

	decision := uc.evaluator.Evaluate(ctx, p.Symbol, p.Direction, p.Context, position)

	if uc.recorder != nil {
		if err := uc.recorder.Record(ctx, decision); err != nil {
			// The decision is still valid evidence for the caller.
			return decision, nil
		}
	}
	return decision, nil
}
