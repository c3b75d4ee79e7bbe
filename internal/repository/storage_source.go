package repository

import (
	"context"
	"fmt"
	"time"

	"SellingView/internal/domain/models"
	"SellingView/internal/domain/repository"
)

// StorageOrderSource serves report generation from ingested order history
// instead of live CRM queries. Account identity and the product map are
// derived from the stored rows; pricebook prices are not tracked in
// storage, so callers always fall back to historical unit prices.
type StorageOrderSource struct {
	storage repository.Storage
}

func NewStorageOrderSource(storage repository.Storage) repository.OrderSource {
	return &StorageOrderSource{storage: storage}
}

func (s *StorageOrderSource) AccountInfo(ctx context.Context, accountID string) (models.AccountInfo, error) {
	// Wide lookback just to resolve the display name.
	to := time.Now()
	orders, err := s.storage.Query(ctx, accountID, to.AddDate(-5, 0, 0), to)
	if err != nil {
		return models.AccountInfo{}, fmt.Errorf("account lookup: %w", err)
	}
	info := models.AccountInfo{ID: accountID}
	for _, o := range orders {
		if o.AccountName != "" {
			info.Name = o.AccountName
			break
		}
	}
	if info.Name == "" {
		info.Name = accountID
	}
	return info, nil
}

func (s *StorageOrderSource) ListOrders(ctx context.Context, accountID string, from, to time.Time) ([]models.Order, error) {
	return s.storage.Query(ctx, accountID, from, to)
}

func (s *StorageOrderSource) ListProducts(ctx context.Context, accountID string, from, to time.Time) (map[string]string, error) {
	orders, err := s.storage.Query(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}
	products := make(map[string]string)
	for _, o := range orders {
		if o.ProductID == "" {
			continue
		}
		name := o.ProductName
		if name == "" {
			name = o.ProductID
		}
		products[o.ProductID] = name
	}
	return products, nil
}

func (s *StorageOrderSource) ReferencePrice(ctx context.Context, productID string) (float64, bool, error) {
	return 0, false, nil
}
