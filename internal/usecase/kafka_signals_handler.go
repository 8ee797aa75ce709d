package usecase

import (
	"context"
	"encoding/json"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	pkgkafka "TradePulse/pkg/kafka"
)

// KafkaSignalsHandler consumes incoming signal events, evaluates them in the
// entry context, and records the resulting decision.
type KafkaSignalsHandler struct {
	topic     string
	evaluator domsvc.Evaluator
	store     domrepo.SignalStore
	recorder  *DecisionRecorder
	metrics   domrepo.Metrics
}

func NewKafkaSignalsHandler(topic string, evaluator domsvc.Evaluator, store domrepo.SignalStore, recorder *DecisionRecorder, metrics domrepo.Metrics) *KafkaSignalsHandler {
	return &KafkaSignalsHandler{topic: topic, evaluator: evaluator, store: store, recorder: recorder, metrics: metrics}
}

func (h *KafkaSignalsHandler) Topic() string { return h.topic }

// incoming message schema: {id, symbol, direction, entry_price, t}
func (h *KafkaSignalsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		ID         string  `json:"id"`
		Symbol     string  `json:"symbol"`
		Direction  string  `json:"direction"`
		EntryPrice float64 `json:"entry_price"`
		T          int64   `json:"t"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	h.metrics.RecordLatency("signal_ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	direction := models.DirectionLong
	if m.Direction == string(models.DirectionShort) {
		direction = models.DirectionShort
	}

	decision := h.evaluator.Evaluate(ctx, m.Symbol, direction, models.ContextEntry, nil)

	signal := &models.Signal{
		ID:         m.ID,
		Symbol:     m.Symbol,
		Direction:  direction,
		EntryPrice: m.EntryPrice,
		Status:     signalStatusFor(decision.Kind),
		MatchRatio: decision.Scores.MatchRatio,
		CreatedAt:  time.Unix(m.T, 0).UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := h.store.SaveSignal(ctx, signal); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}

	return h.recorder.Record(ctx, decision)
}

func signalStatusFor(kind models.DecisionKind) models.SignalStatus {
	switch kind {
	case models.DecisionEnter:
		return models.SignalActive
	case models.DecisionSkip:
		return models.SignalDiscarded
	default:
		return models.SignalPending
	}
}

var _ pkgkafka.MessageHandler = (*KafkaSignalsHandler)(nil)
