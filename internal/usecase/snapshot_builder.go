package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/services/indicators"
	"TradePulse/pkg/logger"
)

// ErrEvaluationImpossible means no preferred timeframe set had sufficient
// data after exclusions. Callers map it to a terminal skip/wait decision.
var ErrEvaluationImpossible = errors.New("no timeframe set with sufficient data")

// SnapshotBuilder assembles the per-evaluation multi-timeframe snapshot. It
// walks the preferred timeframe sets in order and picks the first one where
// every timeframe yields enough candles.
type SnapshotBuilder struct {
	source     domrepo.CandleSource
	computer   domsvc.IndicatorComputer
	classifier domsvc.TrendClassifier
	limit      int
	log        *logger.Logger
}

func NewSnapshotBuilder(source domrepo.CandleSource, computer domsvc.IndicatorComputer, classifier domsvc.TrendClassifier, candleLimit int, log *logger.Logger) *SnapshotBuilder {
	return &SnapshotBuilder{
		source:     source,
		computer:   computer,
		classifier: classifier,
		limit:      candleLimit,
		log:        log,
	}
}

// Build fetches and derives every timeframe needed for one evaluation.
// Timeframes with too little data or failed fetches are dropped; if no
// preferred set survives intact, Build returns ErrEvaluationImpossible.
func (b *SnapshotBuilder) Build(ctx context.Context, symbol string, direction models.Direction) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		Symbol:    symbol,
		Direction: direction,
		Series:    make(map[models.Timeframe]*models.TimeframeSeries),
		Trends:    make(map[models.Timeframe]models.TrendReading),
		Dropped:   make(map[models.Timeframe]string),
	}

	for _, set := range models.PreferredTimeframeSets {
		if b.loadSet(ctx, snap, set) {
			snap.Selected = set
			break
		}
	}
	if snap.Selected == nil {
		return nil, fmt.Errorf("%w: %s", ErrEvaluationImpossible, symbol)
	}

	// Micro timeframes are best-effort; their absence only flattens the
	// micro sub-score.
	for _, tf := range models.MicroTimeframes {
		b.loadTimeframe(ctx, snap, tf)
	}

	for tf, series := range snap.Series {
		snap.Trends[tf] = b.classifier.Classify(series)
	}

	snap.MajorTrend = majorTrend(snap.Selected, snap.Trends)

	return snap, nil
}

// loadSet fetches every timeframe of one candidate set concurrently and
// reports whether all of them qualified.
func (b *SnapshotBuilder) loadSet(ctx context.Context, snap *models.Snapshot, set []models.Timeframe) bool {
	// Decide what still needs fetching before the first goroutine starts;
	// once fetches are in flight the snapshot maps are only touched under mu.
	var missing []models.Timeframe
	for _, tf := range set {
		if _, have := snap.Series[tf]; have {
			continue
		}
		if _, dropped := snap.Dropped[tf]; dropped {
			continue
		}
		missing = append(missing, tf)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, tf := range missing {
		wg.Add(1)
		go func(tf models.Timeframe) {
			defer wg.Done()
			series, err := b.fetchAndCompute(ctx, snap.Symbol, tf)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				snap.Dropped[tf] = err.Error()
				return
			}
			snap.Series[tf] = series
		}(tf)
	}
	wg.Wait()

	// The set qualifies only when every timeframe made it in, whether it
	// was fetched now or in an earlier pass.
	for _, tf := range set {
		if _, have := snap.Series[tf]; !have {
			return false
		}
	}
	return true
}

// loadTimeframe fetches a single optional timeframe, recording drops.
func (b *SnapshotBuilder) loadTimeframe(ctx context.Context, snap *models.Snapshot, tf models.Timeframe) {
	if _, have := snap.Series[tf]; have {
		return
	}
	if _, dropped := snap.Dropped[tf]; dropped {
		return
	}
	series, err := b.fetchAndCompute(ctx, snap.Symbol, tf)
	if err != nil {
		snap.Dropped[tf] = err.Error()
		return
	}
	snap.Series[tf] = series
}

func (b *SnapshotBuilder) fetchAndCompute(ctx context.Context, symbol string, tf models.Timeframe) (*models.TimeframeSeries, error) {
	candles, err := b.source.Fetch(ctx, symbol, tf, b.limit)
	if err != nil || len(candles) == 0 {
		if b.log != nil {
			b.log.Warn("timeframe unavailable",
				logger.String("symbol", symbol),
				logger.String("timeframe", string(tf)),
				logger.Error(nonNilErr(err)))
		}
		return nil, fmt.Errorf("%w: %s %s", domrepo.ErrUnavailable, symbol, tf)
	}

	series, err := b.computer.Compute(tf, candles)
	if err != nil {
		if errors.Is(err, indicators.ErrInsufficientData) {
			return nil, err
		}
		return nil, fmt.Errorf("compute indicators: %w", err)
	}
	return series, nil
}

// majorTrend takes a weighted majority vote across the selected set, with
// higher timeframes counting more. Ties resolve toward sideways.
func majorTrend(set []models.Timeframe, trends map[models.Timeframe]models.TrendReading) models.TrendCode {
	var bullW, bearW, sideW, bullCode, bearCode float64

	for _, tf := range set {
		reading, ok := trends[tf]
		if !ok {
			continue
		}
		w := float64(tf.Minutes())
		switch {
		case reading.Code > 0:
			bullW += w
			bullCode += w * float64(reading.Code)
		case reading.Code < 0:
			bearW += w
			bearCode += w * float64(-reading.Code)
		default:
			sideW += w
		}
	}

	switch {
	case bullW > bearW && bullW > sideW:
		if bullCode/bullW >= 1.5 {
			return models.TrendStrongBull
		}
		return models.TrendBull
	case bearW > bullW && bearW > sideW:
		if bearCode/bearW >= 1.5 {
			return models.TrendStrongBear
		}
		return models.TrendBear
	default:
		return models.TrendSideways
	}
}

// LowestSeries returns the series of the lowest selected timeframe, the one
// divergence detection runs on.
func LowestSeries(snap *models.Snapshot) *models.TimeframeSeries {
	var lowest *models.TimeframeSeries
	for _, tf := range snap.Selected {
		s, ok := snap.Series[tf]
		if !ok {
			continue
		}
		if lowest == nil || tf.Minutes() < lowest.Timeframe.Minutes() {
			lowest = s
		}
	}
	return lowest
}

func nonNilErr(err error) error {
	if err == nil {
		return errors.New("empty candle response")
	}
	return err
}
