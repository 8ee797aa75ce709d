package models

// Timeframe represents a candle resolution bucket.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
)

// PreferredTimeframeSets lists the candidate analysis sets in priority order.
// The snapshot builder picks the first set where every timeframe has enough
// candles.
var PreferredTimeframeSets = [][]Timeframe{
	{TF4h, TF1h, TF30m, TF15m},
	{TF1h, TF30m, TF15m, TF5m},
}

// MicroTimeframes feed the micro sub-score.
var MicroTimeframes = []Timeframe{TF5m, TF1m}

// ShortTimeframes are re-checked when an open position is deep underwater.
var ShortTimeframes = []Timeframe{TF1m, TF5m, TF15m}

// Minutes returns the bucket width in minutes, used to weight majority votes
// toward higher timeframes.
func (tf Timeframe) Minutes() int {
	switch tf {
	case TF1m:
		return 1
	case TF5m:
		return 5
	case TF15m:
		return 15
	case TF30m:
		return 30
	case TF1h:
		return 60
	case TF4h:
		return 240
	default:
		return 0
	}
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	return tf.Minutes() > 0
}

// NormalizeTimeframe converts a raw string to a valid timeframe (or 15m).
func NormalizeTimeframe(s string) Timeframe {
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return TF15m
}
