package trend

import (
	"math"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
)

// Config holds the trend classification thresholds.
type Config struct {
	// WideningLookback is how many candles back the EMA spread is compared
	// against to decide whether a trend is accelerating.
	WideningLookback int
	// SidewaysBand is the strength below which a trend counts as sideways.
	SidewaysBand float64
	// StrongBand is the strength at or above which a widening trend is
	// upgraded to strong.
	StrongBand float64
}

func DefaultConfig() Config {
	return Config{
		WideningLookback: 3,
		SidewaysBand:     0.10,
		StrongBand:       1.0,
	}
}

// Classifier reduces a timeframe's indicator series to a trend reading.
// Strength is the EMA spread normalized by ATR so readings stay comparable
// across symbols of different price scale.
type Classifier struct {
	cfg Config
}

var _ service.TrendClassifier = (*Classifier)(nil)

func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

func (c *Classifier) Classify(series *models.TimeframeSeries) models.TrendReading {
	reading := models.TrendReading{Timeframe: series.Timeframe, Code: models.TrendSideways}

	n := series.Len()
	if n == 0 || len(series.EMAShort) != n || len(series.EMALong) != n {
		return reading
	}

	spread := series.EMAShort[n-1] - series.EMALong[n-1]
	reading.Strength = c.normalizedStrength(series, spread)

	if reading.Strength < c.cfg.SidewaysBand {
		return reading
	}

	widening := c.isWidening(series, n)

	if spread > 0 {
		reading.Code = models.TrendBull
		if widening && reading.Strength >= c.cfg.StrongBand {
			reading.Code = models.TrendStrongBull
		}
	} else {
		reading.Code = models.TrendBear
		if widening && reading.Strength >= c.cfg.StrongBand {
			reading.Code = models.TrendStrongBear
		}
	}

	return reading
}

// normalizedStrength divides the EMA spread by ATR. When ATR is degenerate
// (flat series) it falls back to 1% of price so the division stays finite.
func (c *Classifier) normalizedStrength(series *models.TimeframeSeries, spread float64) float64 {
	n := series.Len()
	atr := 0.0
	if len(series.ATR) == n {
		atr = series.ATR[n-1]
	}
	if atr <= 0 {
		price := series.LastClose()
		if price <= 0 {
			return 0
		}
		atr = price * 0.01
	}
	return math.Abs(spread) / atr
}

// isWidening reports whether the absolute EMA spread grew over the lookback.
func (c *Classifier) isWidening(series *models.TimeframeSeries, n int) bool {
	back := c.cfg.WideningLookback
	if back <= 0 || n <= back {
		return false
	}
	now := math.Abs(series.EMAShort[n-1] - series.EMALong[n-1])
	then := math.Abs(series.EMAShort[n-1-back] - series.EMALong[n-1-back])
	return now > then
}
