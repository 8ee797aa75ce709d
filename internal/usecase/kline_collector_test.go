package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
	mid "TradePulse/internal/middleware"
)

// countingMetrics tallies error kinds for assertions.
type countingMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{errors: make(map[string]int)}
}

func (m *countingMetrics) RecordEvaluation(context, decision string) {}
func (m *countingMetrics) RecordScore(symbol string, score float64)  {}
func (m *countingMetrics) RecordLatency(op string, seconds float64)  {}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

// droppingStream fails its first read with a single error and closed
// channels, the way the websocket stream does, then serves klines on the
// read that follows the reconnect.
type droppingStream struct {
	mu         sync.Mutex
	reads      int
	reconnects int
}

func (s *droppingStream) Connect(ctx context.Context) error   { return nil }
func (s *droppingStream) Subscribe(ctx context.Context) error { return nil }
func (s *droppingStream) Close() error                        { return nil }
func (s *droppingStream) IsConnected() bool                   { return true }

func (s *droppingStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	s.reconnects++
	s.mu.Unlock()
	return nil
}

func (s *droppingStream) Read(ctx context.Context) (<-chan *models.Kline, <-chan error) {
	s.mu.Lock()
	s.reads++
	n := s.reads
	s.mu.Unlock()

	klines := make(chan *models.Kline, 4)
	errs := make(chan error, 1)
	if n == 1 {
		errs <- errors.New("connection reset")
		close(klines)
		close(errs)
		return klines, errs
	}
	klines <- &models.Kline{
		Symbol:    "BTCUSDT",
		Timeframe: models.TF1m,
		Candle:    models.Candle{Timestamp: time.Now().UTC(), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
		Closed:    true,
	}
	return klines, errs
}

func (s *droppingStream) counts() (reads, reconnects int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.reconnects
}

type countingProc struct{ n atomic.Int64 }

func (p *countingProc) Process(ctx context.Context, k *models.Kline) error {
	p.n.Add(1)
	return nil
}

func TestCollectorResumesAfterStreamDrop(t *testing.T) {
	stream := &droppingStream{}
	proc := &countingProc{}
	metrics := newCountingMetrics()
	c := NewKlineCollector(stream, metrics, mid.NewKlinePipeline(proc, metrics))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for proc.n.Load() == 0 {
		if time.Now().After(deadline) {
			reads, _ := stream.counts()
			t.Fatalf("no kline processed after stream drop (reads=%d)", reads)
		}
		time.Sleep(5 * time.Millisecond)
	}

	reads, reconnects := stream.counts()
	if reads < 2 {
		t.Fatalf("expected a fresh read after reconnect, got %d reads", reads)
	}
	if reconnects == 0 {
		t.Fatalf("expected a reconnect after the read error")
	}
	_ = c.Shutdown(ctx)
}
