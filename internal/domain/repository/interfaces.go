package repository

import (
	"context"
	"time"

	"SellingView/internal/domain/models"
)

// OrderSource is the external data-access collaborator a report run reads
// from. ListOrders must include orders booked under declared child accounts
// of the given account.
type OrderSource interface {
	AccountInfo(ctx context.Context, accountID string) (models.AccountInfo, error)
	ListOrders(ctx context.Context, accountID string, from, to time.Time) ([]models.Order, error)
	ListProducts(ctx context.Context, accountID string, from, to time.Time) (map[string]string, error)
	// ReferencePrice returns the current pricebook unit price for a product,
	// with ok=false when the product has no active pricebook entry.
	ReferencePrice(ctx context.Context, productID string) (price float64, ok bool, err error)
}

// OrderStream delivers live order events pushed by the CRM.
type OrderStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Order, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, o *models.Order) error
	PublishBatch(ctx context.Context, orders []*models.Order) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, o *models.Order) error
	StoreBatch(ctx context.Context, orders []*models.Order) error
	Query(ctx context.Context, accountID string, from, to time.Time) ([]models.Order, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// ReportPublisher announces completed reports downstream.
type ReportPublisher interface {
	PublishReport(ctx context.Context, r *models.Report) error
}

type Metrics interface {
	RecordMessageSent(backend, accountID string)
	RecordError(kind string)
	RecordLastAmount(accountID string, amount float64)
	RecordLatency(op string, seconds float64)
	RecordReportGenerated(accountID string)
	RecordOpportunities(accountID string, n int)
}
