package usecase

import (
	"context"

	"SellingView/internal/domain/models"
	drepo "SellingView/internal/domain/repository"
	mid "SellingView/internal/middleware"
)

// OrderCollector collects live order events from the CRM stream and routes
// them through the realtime pipeline into the processor.
type OrderCollector struct {
	stream  drepo.OrderStream
	proc    *OrderProcessor
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline
}

// NewOrderCollector creates a new OrderCollector instance.
func NewOrderCollector(stream drepo.OrderStream, proc *OrderProcessor, metrics drepo.Metrics, pipe *mid.RealtimePipeline) *OrderCollector {
	return &OrderCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the order stream is connected.
func (c *OrderCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *OrderCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	ordCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, ordCh, errCh)
	return nil
}

func (c *OrderCollector) consume(ctx context.Context, ordCh <-chan *models.Order, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case o := <-ordCh:
			if o == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, o)
			} else {
				_ = c.proc.Process(ctx, o)
			}
			c.metrics.RecordLastAmount(o.AccountID, o.Amount)
		}
	}
}

func (c *OrderCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying OrderProcessor for lifecycle management.
func (c *OrderCollector) Processor() *OrderProcessor { return c.proc }

// Shutdown stops pipeline and closes stream.
func (c *OrderCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
