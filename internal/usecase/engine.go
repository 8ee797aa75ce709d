package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/pkg/logger"
)

// EngineConfig carries the decision-policy thresholds.
type EngineConfig struct {
	ReactivationMinMatch float64 // match_ratio floor
	ReactivationMinScore float64 // technical_score floor
	ROIReversion         float64 // deep-loss re-check trigger
	ROIDynamicStop       float64 // dynamic-stop trigger
	ROITakeProfit        float64 // partial take-profit trigger
	PartialClosePercent  float64
	Leverage             float64 // default when position state omits it
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ReactivationMinMatch: 60,
		ReactivationMinScore: 55,
		ROIReversion:         -30,
		ROIDynamicStop:       60,
		ROITakeProfit:        100,
		PartialClosePercent:  70,
		Leverage:             20,
	}
}

// Engine is the technical evaluation engine: one shared evidence pipeline,
// three context policies. Stateless; every call recomputes from current
// market data.
type Engine struct {
	builder   *SnapshotBuilder
	detector  domsvc.DivergenceDetector
	scorer    *Scorer
	validator *EntryValidator
	source    domrepo.CandleSource
	computer  domsvc.IndicatorComputer
	trends    domsvc.TrendClassifier
	cfg       EngineConfig
	metrics   domrepo.Metrics
	log       *logger.Logger
}

var _ domsvc.Evaluator = (*Engine)(nil)

func NewEngine(
	builder *SnapshotBuilder,
	detector domsvc.DivergenceDetector,
	scorer *Scorer,
	validator *EntryValidator,
	source domrepo.CandleSource,
	computer domsvc.IndicatorComputer,
	trends domsvc.TrendClassifier,
	cfg EngineConfig,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *Engine {
	return &Engine{
		builder:   builder,
		detector:  detector,
		scorer:    scorer,
		validator: validator,
		source:    source,
		computer:  computer,
		trends:    trends,
		cfg:       cfg,
		metrics:   metrics,
		log:       log,
	}
}

// Evaluate runs one evaluation. It never returns an error: every expected
// failure mode maps to a fully populated Decision with a reason.
func (e *Engine) Evaluate(ctx context.Context, symbol string, direction models.Direction, evalCtx models.EvalContext, position *models.PositionState) *models.Decision {
	start := time.Now()
	decision := e.evaluate(ctx, symbol, direction, evalCtx, position)
	if e.metrics != nil {
		e.metrics.RecordEvaluation(string(evalCtx), string(decision.Kind))
		e.metrics.RecordScore(symbol, decision.Scores.TechnicalScore)
		e.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	}
	return decision
}

func (e *Engine) evaluate(ctx context.Context, symbol string, direction models.Direction, evalCtx models.EvalContext, position *models.PositionState) *models.Decision {
	snap, err := e.builder.Build(ctx, symbol, direction)
	if err != nil {
		return e.impossible(symbol, direction, evalCtx, err)
	}

	if lowest := LowestSeries(snap); lowest != nil {
		snap.Divergence = e.detector.Detect(lowest)
	} else {
		snap.Divergence = models.NeutralDivergence()
	}

	e.scorer.Score(snap)

	switch evalCtx {
	case models.ContextReactivation:
		return e.decideReactivation(snap)
	case models.ContextPosition:
		return e.decidePosition(ctx, snap, position)
	default:
		return e.decideEntry(snap)
	}
}

// impossible is the fail-closed terminal decision: no partial scores escape.
func (e *Engine) impossible(symbol string, direction models.Direction, evalCtx models.EvalContext, err error) *models.Decision {
	kind := models.DecisionSkip
	switch evalCtx {
	case models.ContextReactivation:
		kind = models.DecisionWait
	case models.ContextPosition:
		kind = models.DecisionKeep
	}

	reason := "evaluation impossible: insufficient market data"
	if errors.Is(err, ErrEvaluationImpossible) {
		reason = "no timeframe set has sufficient candle history"
	}
	if e.log != nil {
		e.log.Warn("evaluation impossible",
			logger.String("symbol", symbol),
			logger.String("context", string(evalCtx)),
			logger.Error(err))
	}

	return &models.Decision{
		Symbol:     symbol,
		Context:    evalCtx,
		Direction:  direction,
		Kind:       kind,
		Reason:     reason,
		Divergence: models.NeutralDivergence(),
		Timestamp:  time.Now().UTC(),
	}
}

// decideEntry admits, delays or rejects a fresh signal.
func (e *Engine) decideEntry(snap *models.Snapshot) *models.Decision {
	verdict := e.validator.Validate(snap)
	d := e.baseDecision(snap, models.ContextEntry)
	d.Entry = &verdict

	switch {
	case verdict.Allowed:
		d.Kind = models.DecisionEnter
		d.Reason = fmt.Sprintf("entry admitted: score %.1f grade %s", verdict.Score, verdict.Grade)
	case verdict.Grade == models.GradeD && !snap.MajorTrend.Favors(snap.Direction) && snap.MajorTrend != models.TrendSideways:
		d.Kind = models.DecisionSkip
		d.Reason = fmt.Sprintf("grade %s against a %s major trend", verdict.Grade, snap.MajorTrend.Label())
	default:
		d.Kind = models.DecisionWait
		d.Reason = fmt.Sprintf("entry blocked: score %.1f grade %s", verdict.Score, verdict.Grade)
	}
	return d
}

// decideReactivation is idempotent: a non-allowed check changes nothing.
func (e *Engine) decideReactivation(snap *models.Snapshot) *models.Decision {
	d := e.baseDecision(snap, models.ContextReactivation)
	bundle := snap.Scores

	if bundle.MatchRatio >= e.cfg.ReactivationMinMatch && bundle.TechnicalScore >= e.cfg.ReactivationMinScore {
		d.Kind = models.DecisionEnter
		d.ReactivationAllowed = true
		d.Reason = fmt.Sprintf("reactivation confirmed: match %.1f technical %.1f", bundle.MatchRatio, bundle.TechnicalScore)
	} else {
		d.Kind = models.DecisionWait
		d.Reason = fmt.Sprintf("insufficient match: match %.1f technical %.1f (need %.0f/%.0f)",
			bundle.MatchRatio, bundle.TechnicalScore, e.cfg.ReactivationMinMatch, e.cfg.ReactivationMinScore)
	}
	return d
}

// decidePosition applies the ROI ladder to an open position.
func (e *Engine) decidePosition(ctx context.Context, snap *models.Snapshot, position *models.PositionState) *models.Decision {
	d := e.baseDecision(snap, models.ContextPosition)

	if position == nil {
		d.Kind = models.DecisionKeep
		d.Reason = "no position state supplied"
		return d
	}
	if position.Leverage <= 0 {
		position.Leverage = e.cfg.Leverage
	}
	d.Direction = position.Direction
	roi := position.ROI()

	switch {
	case roi <= e.cfg.ROIReversion:
		return e.decideDeepLoss(ctx, d, position, roi)

	case roi >= e.cfg.ROITakeProfit:
		d.Kind = models.DecisionClosePartial
		d.ClosePercent = e.cfg.PartialClosePercent
		d.Reason = fmt.Sprintf("take-profit ROI %.1f%%: close %.0f%%, keep %.0f%%",
			roi, e.cfg.PartialClosePercent, 100-e.cfg.PartialClosePercent)

	case roi >= e.cfg.ROIDynamicStop:
		d.Kind = models.DecisionKeep
		d.DynamicStop = dynamicStop(position)
		d.Reason = fmt.Sprintf("ROI %.1f%%: keep with dynamic stop at %.6f", roi, d.DynamicStop)

	default:
		if e.reversalRiskAgainst(snap, position.Direction) {
			d.Kind = models.DecisionReversalRisk
			d.Reason = fmt.Sprintf("ROI %.1f%% but strong %s reversal conditions against the position", roi, snap.Divergence.OverallBias)
		} else {
			d.Kind = models.DecisionKeep
			d.Reason = fmt.Sprintf("ROI %.1f%% within normal range", roi)
		}
	}
	return d
}

// decideDeepLoss re-checks the short timeframes when a position is deep
// underwater and counts how many confirm a trend against it.
func (e *Engine) decideDeepLoss(ctx context.Context, d *models.Decision, position *models.PositionState, roi float64) *models.Decision {
	opposing, total := e.countOpposing(ctx, position)

	switch {
	case total > 0 && opposing*3 >= total*2: // at least 2 of 3
		d.Kind = models.DecisionReverse
		d.Reason = fmt.Sprintf("ROI %.1f%%: %d/%d short timeframes confirm reversal", roi, opposing, total)
	case opposing >= 1:
		d.Kind = models.DecisionClosePartial
		d.ClosePercent = e.cfg.PartialClosePercent
		d.Reason = fmt.Sprintf("ROI %.1f%%: %d/%d short timeframes suggest reversal", roi, opposing, total)
	default:
		d.Kind = models.DecisionKeep
		d.Reason = fmt.Sprintf("ROI %.1f%% critical but no reversal confirmation (%d/%d short timeframes)", roi, opposing, total)
	}
	return d
}

// countOpposing classifies each short timeframe and counts trends opposite
// the position's direction. Unavailable timeframes simply don't vote.
func (e *Engine) countOpposing(ctx context.Context, position *models.PositionState) (opposing, total int) {
	against := position.Direction.Opposite()

	for _, tf := range models.ShortTimeframes {
		candles, err := e.source.Fetch(ctx, position.Symbol, tf, 100)
		if err != nil || len(candles) == 0 {
			continue
		}
		series, err := e.computer.Compute(tf, candles)
		if err != nil {
			continue
		}
		total++
		if e.trends.Classify(series).Code.Favors(against) {
			opposing++
		}
	}
	return opposing, total
}

// reversalRiskAgainst flags a strong confirmed divergence bias working
// against an open position at otherwise normal ROI.
func (e *Engine) reversalRiskAgainst(snap *models.Snapshot, dir models.Direction) bool {
	bias := snap.Divergence.OverallBias
	if !bias.IsReversal() || snap.Divergence.Confidence < 0.4 {
		return false
	}
	if dir == models.DirectionLong {
		return bias == models.BiasBearishReversal
	}
	return bias == models.BiasBullishReversal
}

func (e *Engine) baseDecision(snap *models.Snapshot, evalCtx models.EvalContext) *models.Decision {
	return &models.Decision{
		Symbol:     snap.Symbol,
		Context:    evalCtx,
		Direction:  snap.Direction,
		Scores:     snap.Scores,
		Divergence: snap.Divergence,
		Timestamp:  time.Now().UTC(),
	}
}

// dynamicStop is the protective reference price once a position is deep in
// profit: entry plus 5% in the position's favor.
func dynamicStop(p *models.PositionState) float64 {
	if p.Direction == models.DirectionLong {
		return p.EntryPrice * 1.05
	}
	return p.EntryPrice * 0.95
}
