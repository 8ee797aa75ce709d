package usecase

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/service/notify"
	"TradePulse/pkg/logger"
)

// DecisionRecorder is the side-effect boundary around the stateless engine:
// it persists a decision, publishes it downstream, and hands a formatted
// summary to the notification sink. The engine itself never touches any of
// these collaborators.
type DecisionRecorder struct {
	store    drepo.SignalStore
	pub      drepo.DecisionPublisher
	notifier drepo.Notifier
	metrics  drepo.Metrics
	log      *logger.Logger
}

func NewDecisionRecorder(store drepo.SignalStore, pub drepo.DecisionPublisher, notifier drepo.Notifier, metrics drepo.Metrics, log *logger.Logger) *DecisionRecorder {
	return &DecisionRecorder{store: store, pub: pub, notifier: notifier, metrics: metrics, log: log}
}

// Record persists and fans out one decision. Persistence failures are
// returned; publish and notify failures are logged and counted but do not
// fail the call.
func (r *DecisionRecorder) Record(ctx context.Context, d *models.Decision) error {
	start := time.Now()

	if err := r.store.SaveDecision(ctx, d); err != nil {
		r.metrics.RecordError("decision_store")
		return fmt.Errorf("save decision: %w", err)
	}

	if r.pub != nil {
		if err := r.pub.Publish(ctx, d); err != nil {
			r.metrics.RecordError("decision_publish")
			if r.log != nil {
				r.log.Warn("decision publish failed",
					logger.String("symbol", d.Symbol),
					logger.Error(err))
			}
		}
	}

	if r.notifier != nil {
		if err := r.notifier.Send(ctx, notify.FormatDecision(d)); err != nil {
			r.metrics.RecordError("decision_notify")
			if r.log != nil {
				r.log.Warn("decision notify failed",
					logger.String("symbol", d.Symbol),
					logger.Error(err))
			}
		}
	}

	r.metrics.RecordLatency("decision_record", time.Since(start).Seconds())
	return nil
}
