package models

import "time"

// Candle is one OHLCV record. Sequences are ordered ascending by time and
// treated as immutable once fetched.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Kline is one live candle update from the market stream.
type Kline struct {
	Symbol    string
	Timeframe Timeframe
	Candle    Candle
	Closed    bool // true once the bucket is final
}

// Closes extracts the close series from a candle sequence.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volume series from a candle sequence.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
