package repository

import (
	"context"
	"errors"

	"TradePulse/internal/domain/models"
)

// ErrUnavailable marks a candle fetch that failed or returned nothing. The
// snapshot builder drops the affected timeframe instead of treating it as
// zero-valued data.
var ErrUnavailable = errors.New("timeframe unavailable")

// CandleSource fetches ordered OHLCV history for a symbol/timeframe.
type CandleSource interface {
	Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// SignalStore persists signal lifecycle state and the decision audit trail.
type SignalStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	SaveSignal(ctx context.Context, s *models.Signal) error
	GetPending(ctx context.Context, limit int) ([]*models.Signal, error)
	MarkReactivated(ctx context.Context, id string) error
	UpdateMatchRatio(ctx context.Context, id string, matchRatio float64) error
	SaveDecision(ctx context.Context, d *models.Decision) error
	GetDecisions(ctx context.Context, symbol string, limit int) ([]*models.Decision, error)
	Health(ctx context.Context) error
	Close() error
}

// Notifier delivers a formatted decision summary. Fire-and-forget from the
// engine's point of view.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// DecisionPublisher emits completed decisions to downstream consumers.
type DecisionPublisher interface {
	Publish(ctx context.Context, d *models.Decision) error
	Close() error
}

// KlineStream is a live market-data connection feeding the candle cache.
type KlineStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Kline, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records operational counters for evaluations.
type Metrics interface {
	RecordEvaluation(context, decision string)
	RecordError(kind string)
	RecordScore(symbol string, score float64)
	RecordLatency(op string, seconds float64)
}
