package repository

import (
	"context"

	"TradePulse/internal/domain/models"
)

// ActivePositionProvider exposes active signals as open positions for the
// position monitor. Mark price and leverage are filled in by the monitor
// itself before evaluation.
type ActivePositionProvider struct {
	store *CHSignalStore
	limit int
}

func NewActivePositionProvider(store *CHSignalStore, limit int) *ActivePositionProvider {
	if limit <= 0 {
		limit = 200
	}
	return &ActivePositionProvider{store: store, limit: limit}
}

func (p *ActivePositionProvider) OpenPositions(ctx context.Context) ([]*models.PositionState, error) {
	active, err := p.store.GetActive(ctx, p.limit)
	if err != nil {
		return nil, err
	}
	out := make([]*models.PositionState, 0, len(active))
	for _, sig := range active {
		out = append(out, &models.PositionState{
			Symbol:     sig.Symbol,
			Direction:  sig.Direction,
			EntryPrice: sig.EntryPrice,
		})
	}
	return out, nil
}
