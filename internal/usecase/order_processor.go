package usecase

import (
	"context"
	"fmt"
	"time"

	"SellingView/internal/domain/models"
	drepo "SellingView/internal/domain/repository"
)

// OrderProcessor processes order events and routes them to the configured
// backend.
type OrderProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
}

// NewOrderProcessor creates a new OrderProcessor instance.
func NewOrderProcessor(
	pub drepo.Publisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *OrderProcessor {
	return &OrderProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process processes a single order and routes it to the configured backend.
func (p *OrderProcessor) Process(ctx context.Context, o *models.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, o)
	case "clickhouse":
		err = p.store.Store(ctx, o)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process order: %w", err)
	}

	p.metrics.RecordMessageSent(p.backend, o.AccountID)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch processes multiple orders in a batch.
func (p *OrderProcessor) ProcessBatch(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, orders)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, orders)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, o := range orders {
		p.metrics.RecordMessageSent(p.backend, o.AccountID)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *OrderProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
