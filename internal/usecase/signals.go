package usecase

import (
	"context"
	"fmt"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
)

// SignalsUseCase provides read access to stored signals and decisions for
// the HTTP surface.
type SignalsUseCase struct {
	store domrepo.SignalStore
}

func NewSignalsUseCase(store domrepo.SignalStore) *SignalsUseCase {
	return &SignalsUseCase{store: store}
}

func (uc *SignalsUseCase) GetPending(ctx context.Context, limit int) ([]*models.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	signals, err := uc.store.GetPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending signals: %w", err)
	}
	return signals, nil
}

func (uc *SignalsUseCase) DecisionHistory(ctx context.Context, symbol string, limit int) ([]*models.Decision, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	decisions, err := uc.store.GetDecisions(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("get decisions: %w", err)
	}
	return decisions, nil
}
