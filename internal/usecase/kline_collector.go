package usecase

import (
	"context"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	mid "TradePulse/internal/middleware"
)

// KlineCollector pulls live candle updates from the market stream and pushes
// them through the pipeline into the candle cache.
type KlineCollector struct {
	stream  drepo.KlineStream
	metrics drepo.Metrics
	pipe    *mid.KlinePipeline
}

// NewKlineCollector creates a new KlineCollector instance.
func NewKlineCollector(stream drepo.KlineStream, metrics drepo.Metrics, pipe *mid.KlinePipeline) *KlineCollector {
	return &KlineCollector{stream: stream, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the market stream is connected.
func (c *KlineCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *KlineCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)
	klCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, klCh, errCh)
	return nil
}

func (c *KlineCollector) consume(ctx context.Context, klCh <-chan *models.Kline, errCh <-chan error) {
	for {
		// The stream closes both channels after a read failure; once they
		// are drained, reconnect and start a fresh read.
		if klCh == nil && errCh == nil {
			klCh, errCh = c.reopen(ctx)
			if klCh == nil {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case err, open := <-errCh:
			if !open {
				errCh = nil
				continue
			}
			if err != nil {
				c.metrics.RecordError("stream")
			}
		case k, open := <-klCh:
			if !open {
				klCh = nil
				continue
			}
			if k == nil {
				continue
			}
			_ = c.pipe.Process(ctx, k)
		}
	}
}

// reopen reconnects until the stream yields new read channels or the context
// ends. Reconnect backs off internally between attempts.
func (c *KlineCollector) reopen(ctx context.Context) (<-chan *models.Kline, <-chan error) {
	for {
		if ctx.Err() != nil {
			return nil, nil
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream_reconnect")
			continue
		}
		return c.stream.Read(ctx)
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *KlineCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	return c.stream.Close()
}
