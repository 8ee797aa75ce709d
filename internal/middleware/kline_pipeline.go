package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
)

// Proc is the minimal downstream interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, k *models.Kline) error
}

// KlinePipeline sits between the websocket stream and the candle cache. It
// validates, throttles per symbol, and buffers updates when the downstream
// is temporarily unavailable.
type KlinePipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.Kline
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-symbol last accepted time

	transform func(*models.Kline) *models.Kline
}

type PipelineOption func(*KlinePipeline)

// WithMaxRPS sets the max updates per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *KlinePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size for downstream outages.
func WithBufferSize(n int) PipelineOption {
	return func(p *KlinePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a hook to normalize kline format.
func WithTransform(fn func(*models.Kline) *models.Kline) PipelineOption {
	return func(p *KlinePipeline) { p.transform = fn }
}

// NewKlinePipeline creates a new pipeline.
func NewKlinePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *KlinePipeline {
	p := &KlinePipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,
		bufSize:  1000,
		bufCh:    make(chan *models.Kline, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.Kline, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered klines.
func (p *KlinePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case k := <-p.bufCh:
				if k == nil {
					continue
				}
				if err := p.proc.Process(ctx, k); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- k:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *KlinePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards a kline, buffering on errors.
func (p *KlinePipeline) Process(ctx context.Context, k *models.Kline) error {
	start := time.Now()
	if err := validateKline(k); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		k = p.transform(k)
		if err := validateKline(k); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(k.Symbol, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, k); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- k:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateKline(k *models.Kline) error {
	if k == nil {
		return fmt.Errorf("kline nil")
	}
	if k.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if !models.IsValidTimeframe(k.Timeframe) {
		return fmt.Errorf("timeframe invalid")
	}
	if k.Candle.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	c := k.Candle
	if c.Open < 0 || c.High < 0 || c.Low < 0 || c.Close < 0 || c.Volume < 0 {
		return fmt.Errorf("negative price/volume")
	}
	return nil
}

// allow enforces a simple at-most-maxRPS-per-second throttle per symbol.
func (p *KlinePipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	last := p.lastSeen[symbol]
	if last.IsZero() {
		p.lastSeen[symbol] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}
