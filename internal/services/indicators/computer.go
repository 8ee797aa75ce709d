package indicators

import (
	"errors"
	"fmt"
	"math"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
)

// ErrInsufficientData marks a candle sequence too short to derive indicators
// from. Callers exclude the timeframe from the snapshot.
var ErrInsufficientData = errors.New("insufficient candles")

// Config holds the indicator periods.
type Config struct {
	EMAShortPeriod   int
	EMALongPeriod    int
	OscillatorPeriod int
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int
	ATRPeriod        int
	MFIPeriod        int
	MinCandles       int
}

// DefaultConfig returns the standard periods.
func DefaultConfig() Config {
	return Config{
		EMAShortPeriod:   10,
		EMALongPeriod:    30,
		OscillatorPeriod: 14,
		MACDFastPeriod:   12,
		MACDSlowPeriod:   26,
		MACDSignalPeriod: 9,
		ATRPeriod:        14,
		MFIPeriod:        14,
		MinCandles:       10,
	}
}

// Computer derives aligned indicator series from candle sequences.
type Computer struct {
	cfg Config
}

var _ service.IndicatorComputer = (*Computer)(nil)

func NewComputer(cfg Config) *Computer {
	return &Computer{cfg: cfg}
}

// Compute builds the full TimeframeSeries for one candle sequence. Every
// derived series has exactly len(candles) entries so that swing comparisons
// can index price and indicator values at the same position.
func (c *Computer) Compute(tf models.Timeframe, candles []models.Candle) (*models.TimeframeSeries, error) {
	if len(candles) < c.cfg.MinCandles {
		return nil, fmt.Errorf("%w: %s has %d candles, need %d", ErrInsufficientData, tf, len(candles), c.cfg.MinCandles)
	}

	closes := models.Closes(candles)

	series := &models.TimeframeSeries{
		Timeframe:  tf,
		Candles:    candles,
		EMAShort:   EMASeries(closes, c.cfg.EMAShortPeriod),
		EMALong:    EMASeries(closes, c.cfg.EMALongPeriod),
		Oscillator: RSISeries(closes, c.cfg.OscillatorPeriod),
		Histogram:  MACDHistogram(closes, c.cfg.MACDFastPeriod, c.cfg.MACDSlowPeriod, c.cfg.MACDSignalPeriod),
		ATR:        ATRSeries(candles, c.cfg.ATRPeriod),
		MFI:        MFISeries(candles, c.cfg.MFIPeriod),
	}

	return series, nil
}

// EMASeries computes a full-length exponential moving average seeded at the
// first value.
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	k := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// RSISeries computes a Wilder-smoothed RSI. Entries before the first full
// period are held at the neutral 50.
func RSISeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = 50
	}
	if len(values) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return clamp(100-100/(1+rs), 0, 100)
}

// MACDHistogram computes the fast-minus-signal momentum histogram.
func MACDHistogram(values []float64, fast, slow, signal int) []float64 {
	emaFast := EMASeries(values, fast)
	emaSlow := EMASeries(values, slow)

	macd := make([]float64, len(values))
	for i := range macd {
		macd[i] = emaFast[i] - emaSlow[i]
	}

	signalLine := EMASeries(macd, signal)

	out := make([]float64, len(values))
	for i := range out {
		out[i] = macd[i] - signalLine[i]
	}
	return out
}

// ATRSeries computes a Wilder-smoothed average true range.
func ATRSeries(candles []models.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	if len(candles) == 0 {
		return out
	}

	tr := make([]float64, len(candles))
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowClose := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	out[0] = tr[0]
	k := 1.0 / float64(period)
	for i := 1; i < len(candles); i++ {
		out[i] = out[i-1] + (tr[i]-out[i-1])*k
	}
	return out
}

// MFISeries computes a rolling money flow index. Entries before the first
// full period are held at the neutral 50.
func MFISeries(candles []models.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	for i := range out {
		out[i] = 50
	}
	if len(candles) <= period {
		return out
	}

	typical := make([]float64, len(candles))
	flow := make([]float64, len(candles))
	for i, c := range candles {
		typical[i] = (c.High + c.Low + c.Close) / 3
		flow[i] = typical[i] * c.Volume
	}

	for i := period; i < len(candles); i++ {
		var positive, negative float64
		for j := i - period + 1; j <= i; j++ {
			if typical[j] > typical[j-1] {
				positive += flow[j]
			} else if typical[j] < typical[j-1] {
				negative += flow[j]
			}
		}
		if negative == 0 {
			if positive == 0 {
				out[i] = 50
			} else {
				out[i] = 100
			}
			continue
		}
		ratio := positive / negative
		out[i] = clamp(100-100/(1+ratio), 0, 100)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
