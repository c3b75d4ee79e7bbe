package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SellingView/internal/domain/models"
	"SellingView/internal/domain/repository"
	pkgkafka "SellingView/pkg/kafka"
)

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	return &ClickHouseStorage{db: db, table: table}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseStorage) Store(ctx context.Context, o *models.Order) error {
	q := fmt.Sprintf("INSERT INTO %s (shipped_at, order_id, account_id, account_name, product_id, product_name, amount, quantity, unit_price, source, event_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	// Idempotency: event_id derived from order and product identity
	eventID := fmt.Sprintf("%s-%s", o.ID, o.ProductID)
	_, err := s.db.ExecContext(ctx, q,
		o.ShippedAt,
		o.ID,
		o.AccountID,
		o.AccountName,
		o.ProductID,
		o.ProductName,
		o.Amount,
		o.Quantity,
		o.UnitPrice,
		"crm",
		eventID,
	)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	// Chunk size tuned to 2000 rows per batch.
	const chunkSize = 2000
	for start := 0; start < len(orders); start += chunkSize {
		end := start + chunkSize
		if end > len(orders) {
			end = len(orders)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*11)
		for _, o := range orders[start:end] {
			if o == nil || o.ID == "" || o.ShippedAt.IsZero() {
				continue
			}
			eventID := fmt.Sprintf("%s-%s", o.ID, o.ProductID)
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				o.ShippedAt,
				o.ID,
				o.AccountID,
				o.AccountName,
				o.ProductID,
				o.ProductName,
				o.Amount,
				o.Quantity,
				o.UnitPrice,
				"crm",
				eventID,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (shipped_at, order_id, account_id, account_name, product_id, product_name, amount, quantity, unit_price, source, event_id) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Query(ctx context.Context, accountID string, from, to time.Time) ([]models.Order, error) {
	q := fmt.Sprintf("SELECT order_id, shipped_at, account_id, account_name, product_id, product_name, amount, quantity, unit_price FROM %s WHERE account_id = ? AND shipped_at >= ? AND shipped_at <= ? ORDER BY shipped_at", s.table)
	rows, err := s.db.QueryContext(ctx, q, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		var ts time.Time
		if err := rows.Scan(&o.ID, &ts, &o.AccountID, &o.AccountName, &o.ProductID, &o.ProductName, &o.Amount, &o.Quantity, &o.UnitPrice); err != nil {
			return nil, err
		}
		o.ShippedAt = ts
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func orderPayload(o *models.Order) map[string]interface{} {
	return map[string]interface{}{
		"id":           o.ID,
		"account_id":   o.AccountID,
		"account_name": o.AccountName,
		"product_id":   o.ProductID,
		"product_name": o.ProductName,
		"shipped_at":   o.ShippedAt.Unix(),
		"amount":       o.Amount,
		"quantity":     o.Quantity,
		"unit_price":   o.UnitPrice,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, o *models.Order) error {
	return p.producer.Publish(ctx, p.topic, []byte(o.AccountID), orderPayload(o))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(orders))
	for i, o := range orders {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(o.AccountID),
			Value: orderPayload(o),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
