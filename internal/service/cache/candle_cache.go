package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
)

// CandleCache keeps recently fetched candle sequences keyed by
// symbol/timeframe. It belongs to the candle source adapter; the evaluation
// core never caches across evaluations.
type CandleCache struct {
	backend BytesCache
	ttl     time.Duration
	maxLen  int
}

func NewCandleCache(backend BytesCache, ttl time.Duration) *CandleCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CandleCache{backend: backend, ttl: ttl, maxLen: 1000}
}

func candleKey(symbol string, tf models.Timeframe) string {
	return fmt.Sprintf("candles:%s:%s", symbol, tf)
}

// Get returns the cached sequence, or ok=false on miss or decode failure.
func (c *CandleCache) Get(symbol string, tf models.Timeframe) ([]models.Candle, bool) {
	b, ok, err := c.backend.GetBytes(candleKey(symbol, tf))
	if err != nil || !ok {
		return nil, false
	}
	var candles []models.Candle
	if err := json.Unmarshal(b, &candles); err != nil {
		return nil, false
	}
	return candles, true
}

// Put stores a freshly fetched sequence.
func (c *CandleCache) Put(symbol string, tf models.Timeframe, candles []models.Candle) {
	if len(candles) > c.maxLen {
		candles = candles[len(candles)-c.maxLen:]
	}
	b, err := json.Marshal(candles)
	if err != nil {
		return
	}
	_ = c.backend.SetBytes(candleKey(symbol, tf), b, c.ttl)
}

// ApplyKline merges a live stream update into the cached tail: same bucket
// replaces the last candle, a newer bucket appends.
func (c *CandleCache) ApplyKline(k *models.Kline) {
	candles, ok := c.Get(k.Symbol, k.Timeframe)
	if !ok || len(candles) == 0 {
		return
	}

	last := candles[len(candles)-1]
	switch {
	case k.Candle.Timestamp.Equal(last.Timestamp):
		candles[len(candles)-1] = k.Candle
	case k.Candle.Timestamp.After(last.Timestamp):
		candles = append(candles, k.Candle)
	default:
		return // stale update
	}

	c.Put(k.Symbol, k.Timeframe, candles)
}
