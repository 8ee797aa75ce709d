package service

import (
	"context"

	"TradePulse/internal/domain/models"
)

// IndicatorComputer derives aligned indicator series from one candle
// sequence.
type IndicatorComputer interface {
	Compute(tf models.Timeframe, candles []models.Candle) (*models.TimeframeSeries, error)
}

// TrendClassifier reduces a timeframe's indicator series to a trend reading.
type TrendClassifier interface {
	Classify(series *models.TimeframeSeries) models.TrendReading
}

// DivergenceDetector finds price/indicator divergences via swing-pivot
// comparison. Implementations must degrade to the neutral finding rather
// than fail.
type DivergenceDetector interface {
	Detect(series *models.TimeframeSeries) models.DivergenceFinding
}

// Evaluator is the engine boundary the rest of the system calls.
type Evaluator interface {
	Evaluate(ctx context.Context, symbol string, direction models.Direction, evalCtx models.EvalContext, position *models.PositionState) *models.Decision
}
