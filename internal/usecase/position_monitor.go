package usecase

import (
	"context"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/pkg/logger"
)

// PositionProvider lists the open positions the monitor should review.
type PositionProvider interface {
	OpenPositions(ctx context.Context) ([]*models.PositionState, error)
}

// PositionMonitor periodically reviews open positions in the position
// context: it refreshes the mark price, computes leveraged ROI, and records
// the ROI-ladder decision.
type PositionMonitor struct {
	positions PositionProvider
	source    domrepo.CandleSource
	evaluator domsvc.Evaluator
	recorder  *DecisionRecorder
	interval  time.Duration
	leverage  float64
	log       *logger.Logger

	cancel context.CancelFunc
}

func NewPositionMonitor(positions PositionProvider, source domrepo.CandleSource, evaluator domsvc.Evaluator, recorder *DecisionRecorder, interval time.Duration, leverage float64, log *logger.Logger) *PositionMonitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &PositionMonitor{
		positions: positions,
		source:    source,
		evaluator: evaluator,
		recorder:  recorder,
		interval:  interval,
		leverage:  leverage,
		log:       log,
	}
}

func (m *PositionMonitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	go m.loop(ctx)
}

func (m *PositionMonitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *PositionMonitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reviewAll(ctx)
		}
	}
}

// reviewAll evaluates every open position. Different symbols are
// independent, so reviews run concurrently.
func (m *PositionMonitor) reviewAll(ctx context.Context) {
	open, err := m.positions.OpenPositions(ctx)
	if err != nil {
		m.log.Warn("position monitor: list positions failed", logger.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, pos := range open {
		wg.Add(1)
		go func(pos *models.PositionState) {
			defer wg.Done()
			m.review(ctx, pos)
		}(pos)
	}
	wg.Wait()
}

func (m *PositionMonitor) review(ctx context.Context, pos *models.PositionState) {
	if price, err := m.source.LastPrice(ctx, pos.Symbol); err == nil && price > 0 {
		pos.MarkPrice = price
	}
	if pos.Leverage <= 0 {
		pos.Leverage = m.leverage
	}

	decision := m.evaluator.Evaluate(ctx, pos.Symbol, pos.Direction, models.ContextPosition, pos)

	if err := m.recorder.Record(ctx, decision); err != nil {
		m.log.Warn("position monitor: record failed",
			logger.String("symbol", pos.Symbol),
			logger.Error(err))
		return
	}

	if decision.Kind != models.DecisionKeep {
		m.log.Info("position review",
			logger.String("symbol", pos.Symbol),
			logger.String("decision", string(decision.Kind)),
			logger.Float64("roi", pos.ROI()),
			logger.String("reason", decision.Reason))
	}
}
