package usecase

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/queue"
)

const reactivationMsgType = "reactivation_review"

type reactivationPayload struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Direction string `json:"direction"`
}

// ReactivationSweeper periodically pushes every pending signal through the
// job queue for a reactivation review, so a burst of pending signals spreads
// across the queue workers instead of hammering the candle source at once.
type ReactivationSweeper struct {
	store    domrepo.SignalStore
	jobs     queue.QueueService
	interval time.Duration
	batch    int
	log      *logger.Logger

	cancel context.CancelFunc
}

func NewReactivationSweeper(store domrepo.SignalStore, jobs queue.QueueService, interval time.Duration, log *logger.Logger) *ReactivationSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ReactivationSweeper{
		store:    store,
		jobs:     jobs,
		interval: interval,
		batch:    100,
		log:      log,
	}
}

// Start launches the sweep loop.
func (s *ReactivationSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.sweepLoop(ctx)
}

func (s *ReactivationSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *ReactivationSweeper) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ReactivationSweeper) sweep(ctx context.Context) {
	pending, err := s.store.GetPending(ctx, s.batch)
	if err != nil {
		s.log.Warn("reactivation sweep: load pending failed", logger.Error(err))
		return
	}

	enqueued := 0
	for _, sig := range pending {
		payload := reactivationPayload{
			ID:        sig.ID,
			Symbol:    sig.Symbol,
			Direction: string(sig.Direction),
		}
		if err := s.jobs.PublishMessage(ctx, reactivationMsgType, payload); err != nil {
			s.log.Warn("reactivation sweep: enqueue failed",
				logger.String("symbol", sig.Symbol),
				logger.Error(err))
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		s.log.Info("reactivation sweep enqueued", logger.Int("count", enqueued))
	}
}

// ReactivationJob handles one queued reactivation review. The review is
// idempotent: a non-allowed check only refreshes the stored match ratio.
type ReactivationJob struct {
	store     domrepo.SignalStore
	evaluator domsvc.Evaluator
	recorder  *DecisionRecorder
	log       *logger.Logger
}

var _ queue.Job = (*ReactivationJob)(nil)

func NewReactivationJob(store domrepo.SignalStore, evaluator domsvc.Evaluator, recorder *DecisionRecorder, log *logger.Logger) *ReactivationJob {
	return &ReactivationJob{store: store, evaluator: evaluator, recorder: recorder, log: log}
}

func (j *ReactivationJob) Name() string { return "reactivation-review" }
func (j *ReactivationJob) Type() string { return reactivationMsgType }

func (j *ReactivationJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[reactivationPayload](payload)
	if err != nil {
		return fmt.Errorf("parse reactivation payload: %w", err)
	}

	decision := j.evaluator.Evaluate(ctx, p.Symbol, models.Direction(p.Direction), models.ContextReactivation, nil)

	if err := j.store.UpdateMatchRatio(ctx, p.ID, decision.Scores.MatchRatio); err != nil {
		j.log.Warn("reactivation: match ratio update failed",
			logger.String("signal", p.ID),
			logger.Error(err))
	}

	if decision.ReactivationAllowed {
		if err := j.store.MarkReactivated(ctx, p.ID); err != nil {
			return fmt.Errorf("mark reactivated %s: %w", p.ID, err)
		}
	}

	return j.recorder.Record(ctx, decision)
}
