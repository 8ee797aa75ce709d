package cache

import (
	"testing"
	"time"

	"TradePulse/internal/domain/models"
)

type memBytes struct {
	store map[string][]byte
}

func newMemBytes() *memBytes {
	return &memBytes{store: make(map[string][]byte)}
}

func (m *memBytes) GetBytes(key string) ([]byte, bool, error) {
	b, ok := m.store[key]
	return b, ok, nil
}

func (m *memBytes) SetBytes(key string, value []byte, ttl time.Duration) error {
	m.store[key] = value
	return nil
}

func cachedCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out[i] = models.Candle{
			Timestamp: ts.Add(time.Duration(i) * time.Minute),
			Close:     100 + float64(i),
			Volume:    10,
		}
	}
	return out
}

func TestCandleCacheRoundTrip(t *testing.T) {
	c := NewCandleCache(newMemBytes(), time.Minute)
	candles := cachedCandles(5)

	c.Put("BTCUSDT", models.TF1m, candles)

	got, ok := c.Get("BTCUSDT", models.TF1m)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(got) != 5 || !got[4].Timestamp.Equal(candles[4].Timestamp) || got[4].Close != candles[4].Close {
		t.Fatalf("cached sequence mismatch: %+v", got)
	}

	if _, ok := c.Get("ETHUSDT", models.TF1m); ok {
		t.Fatalf("unexpected hit for other symbol")
	}
	if _, ok := c.Get("BTCUSDT", models.TF5m); ok {
		t.Fatalf("unexpected hit for other timeframe")
	}
}

func TestApplyKlineReplacesSameBucket(t *testing.T) {
	c := NewCandleCache(newMemBytes(), time.Minute)
	candles := cachedCandles(5)
	c.Put("BTCUSDT", models.TF1m, candles)

	update := candles[4]
	update.Close = 250
	c.ApplyKline(&models.Kline{Symbol: "BTCUSDT", Timeframe: models.TF1m, Candle: update})

	got, _ := c.Get("BTCUSDT", models.TF1m)
	if len(got) != 5 {
		t.Fatalf("expected in-place replace, got %d candles", len(got))
	}
	if got[4].Close != 250 {
		t.Fatalf("last candle not replaced: %+v", got[4])
	}
}

func TestApplyKlineAppendsNewerBucket(t *testing.T) {
	c := NewCandleCache(newMemBytes(), time.Minute)
	candles := cachedCandles(5)
	c.Put("BTCUSDT", models.TF1m, candles)

	next := models.Candle{
		Timestamp: candles[4].Timestamp.Add(time.Minute),
		Close:     300,
	}
	c.ApplyKline(&models.Kline{Symbol: "BTCUSDT", Timeframe: models.TF1m, Candle: next})

	got, _ := c.Get("BTCUSDT", models.TF1m)
	if len(got) != 6 {
		t.Fatalf("expected append, got %d candles", len(got))
	}
	if got[5].Close != 300 {
		t.Fatalf("appended candle mismatch: %+v", got[5])
	}
}

func TestApplyKlineIgnoresStaleUpdate(t *testing.T) {
	c := NewCandleCache(newMemBytes(), time.Minute)
	candles := cachedCandles(5)
	c.Put("BTCUSDT", models.TF1m, candles)

	stale := candles[2]
	stale.Close = 1
	c.ApplyKline(&models.Kline{Symbol: "BTCUSDT", Timeframe: models.TF1m, Candle: stale})

	got, _ := c.Get("BTCUSDT", models.TF1m)
	if len(got) != 5 || got[2].Close != candles[2].Close {
		t.Fatalf("stale update must not mutate the cache: %+v", got)
	}
}

func TestApplyKlineNoopOnEmptyCache(t *testing.T) {
	backend := newMemBytes()
	c := NewCandleCache(backend, time.Minute)

	c.ApplyKline(&models.Kline{Symbol: "BTCUSDT", Timeframe: models.TF1m, Candle: cachedCandles(1)[0]})

	if len(backend.store) != 0 {
		t.Fatalf("stream update without a cached tail must be dropped")
	}
}
