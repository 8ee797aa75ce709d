package bybit

import (
	"context"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/service/cache"
)

// CacheWriter is the pipeline downstream that folds live kline updates into
// the candle cache, keeping cached tails fresh between REST refreshes.
type CacheWriter struct {
	cache *cache.CandleCache
}

func NewCacheWriter(c *cache.CandleCache) *CacheWriter {
	return &CacheWriter{cache: c}
}

func (w *CacheWriter) Process(ctx context.Context, k *models.Kline) error {
	w.cache.ApplyKline(k)
	return nil
}
