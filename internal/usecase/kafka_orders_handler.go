package usecase

import (
	"context"
	"encoding/json"
	"time"

	"SellingView/internal/domain/models"
	domrepo "SellingView/internal/domain/repository"
	pkgkafka "SellingView/pkg/kafka"
)

// KafkaOrdersHandler consumes order events from Kafka and writes them to
// storage.
type KafkaOrdersHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaOrdersHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaOrdersHandler {
	return &KafkaOrdersHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaOrdersHandler) Topic() string { return h.topic }

// incoming message schema: {id, account_id, account_name, product_id,
// product_name, shipped_at, amount, quantity, unit_price}
func (h *KafkaOrdersHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		ID          string  `json:"id"`
		AccountID   string  `json:"account_id"`
		AccountName string  `json:"account_name"`
		ProductID   string  `json:"product_id"`
		ProductName string  `json:"product_name"`
		ShippedAt   int64   `json:"shipped_at"`
		Amount      float64 `json:"amount"`
		Quantity    float64 `json:"quantity"`
		UnitPrice   float64 `json:"unit_price"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.ShippedAt > 1e11 { // ms
		m.ShippedAt = m.ShippedAt / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.ShippedAt, 0)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &models.Order{
		ID:          m.ID,
		AccountID:   m.AccountID,
		AccountName: m.AccountName,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		ShippedAt:   time.Unix(m.ShippedAt, 0).UTC(),
		Amount:      m.Amount,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", m.AccountID)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaOrdersHandler)(nil)
