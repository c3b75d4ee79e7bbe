package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"SellingView/internal/domain/models"
	drepo "SellingView/internal/domain/repository"
	"SellingView/internal/service/ratelimit"
	pkgcache "SellingView/pkg/cache"
	xhttp "SellingView/pkg/http"
	"SellingView/pkg/logger"
	"SellingView/pkg/util"
)

const (
	// internalPrefix marks accounts managed through the integration user;
	// it is stripped from display names.
	internalPrefix = "(DSS) "

	itemBatchSize = 100

	limiterKey = "crm_api"
)

// Client implements an OrderSource backed by the CRM REST API.
type Client struct {
	baseURL    string
	token      string
	http       *xhttp.Client
	limiter    *ratelimit.Limiter
	cache      pkgcache.Service
	priceTTL   time.Duration
	log        *logger.Logger
	rateCap    float64
	rateRefill float64
}

// NewClient creates a new CRM API client. Pricebook lookups repeat per
// product across report runs, so they go through an in-memory cache.
func NewClient(baseURL, token string, timeout time.Duration, limiter *ratelimit.Limiter, rateCap, rateRefill float64, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		http:       xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter:    limiter,
		cache:      pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(4096)),
		priceTTL:   15 * time.Minute,
		log:        log,
		rateCap:    rateCap,
		rateRefill: rateRefill,
	}
}

var _ drepo.OrderSource = (*Client)(nil)

// SetPriceCache replaces the pricebook cache, typically with a layered
// memory+Redis cache shared across instances.
func (c *Client) SetPriceCache(cache pkgcache.Service) {
	if cache != nil {
		c.cache = cache
	}
}

type accountPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OwnerUsername string `json:"owner_username"`
}

// AccountInfo fetches account identity and strips the integration prefix
// from the display name.
func (c *Client) AccountInfo(ctx context.Context, accountID string) (models.AccountInfo, error) {
	var payload accountPayload
	if err := c.get(ctx, "/api/v1/accounts/"+accountID, nil, &payload); err != nil {
		return models.AccountInfo{}, fmt.Errorf("account %s: %w", accountID, err)
	}
	return models.AccountInfo{
		ID:            payload.ID,
		Name:          strings.TrimPrefix(payload.Name, internalPrefix),
		OwnerUsername: payload.OwnerUsername,
	}, nil
}

type orderHeader struct {
	ID          string  `json:"id"`
	ShippedAt   string  `json:"shipped_at"`
	TotalAmount float64 `json:"total_amount"`
	AccountID   string  `json:"account_id"`
	AccountName string  `json:"account_name"`
}

type orderItem struct {
	OrderID     string  `json:"order_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	TotalPrice  float64 `json:"total_price"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// ListOrders fetches order headers for the account (child accounts
// included) and joins them with their line items. Orders with no resolvable
// line items are kept as a single header-level row so account totals stay
// complete.
func (c *Client) ListOrders(ctx context.Context, accountID string, from, to time.Time) ([]models.Order, error) {
	var headers []orderHeader
	params := map[string][]string{
		"from":             {from.UTC().Format(time.RFC3339)},
		"to":               {to.UTC().Format(time.RFC3339)},
		"include_children": {"true"},
	}
	if err := c.get(ctx, "/api/v1/accounts/"+accountID+"/orders", params, &headers); err != nil {
		return nil, fmt.Errorf("orders for %s: %w", accountID, err)
	}
	if len(headers) == 0 {
		return nil, nil
	}

	orderIDs := make([]string, len(headers))
	for i, h := range headers {
		orderIDs[i] = h.ID
	}
	items, err := c.fetchItems(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	itemsByOrder := make(map[string][]orderItem)
	for _, item := range items {
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	var orders []models.Order
	for _, h := range headers {
		shipped, ok := util.ParseTime(h.ShippedAt)
		if !ok {
			c.log.Warn("skipping order with unparseable shipped time",
				logger.String("order_id", h.ID), logger.String("shipped_at", h.ShippedAt))
			continue
		}
		accountName := strings.TrimPrefix(h.AccountName, internalPrefix)

		rows := itemsByOrder[h.ID]
		if len(rows) == 0 {
			orders = append(orders, models.Order{
				ID:          h.ID,
				ShippedAt:   shipped,
				Amount:      h.TotalAmount,
				AccountID:   h.AccountID,
				AccountName: accountName,
			})
			continue
		}
		for _, item := range rows {
			orders = append(orders, models.Order{
				ID:          h.ID,
				ShippedAt:   shipped,
				Amount:      item.TotalPrice,
				AccountID:   h.AccountID,
				AccountName: accountName,
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
			})
		}
	}
	return orders, nil
}

// fetchItems resolves line items for the given order IDs. One bulk request
// is tried first; if the API rejects it the IDs are re-queried in batches.
func (c *Client) fetchItems(ctx context.Context, orderIDs []string) ([]orderItem, error) {
	items, err := c.queryItems(ctx, orderIDs)
	if err == nil {
		return items, nil
	}
	c.log.Warn("bulk item query failed, falling back to batches",
		logger.Int("orders", len(orderIDs)), logger.Error(err))

	var all []orderItem
	for start := 0; start < len(orderIDs); start += itemBatchSize {
		end := start + itemBatchSize
		if end > len(orderIDs) {
			end = len(orderIDs)
		}
		batch, err := c.queryItems(ctx, orderIDs[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		all = append(all, batch...)
	}
	return all, nil
}

func (c *Client) queryItems(ctx context.Context, orderIDs []string) ([]orderItem, error) {
	var items []orderItem
	err := c.post(ctx, "/api/v1/order-items/query", map[string]interface{}{
		"order_ids": orderIDs,
	}, &items)
	return items, err
}

type productPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ListProducts returns products ordered by the account in the window. The
// display name cascades through name, code and description before falling
// back to the raw ID.
func (c *Client) ListProducts(ctx context.Context, accountID string, from, to time.Time) (map[string]string, error) {
	var payload []productPayload
	params := map[string][]string{
		"from": {from.UTC().Format(time.RFC3339)},
		"to":   {to.UTC().Format(time.RFC3339)},
	}
	if err := c.get(ctx, "/api/v1/accounts/"+accountID+"/products", params, &payload); err != nil {
		return nil, fmt.Errorf("products for %s: %w", accountID, err)
	}

	products := make(map[string]string, len(payload))
	for _, p := range payload {
		name := p.Name
		if name == "" {
			name = p.Code
		}
		if name == "" {
			name = p.Description
		}
		if name == "" {
			name = p.ID
		}
		products[p.ID] = name
	}
	return products, nil
}

type pricePayload struct {
	Price  float64 `json:"price"`
	Active bool    `json:"active"`
}

// ReferencePrice returns the product's current pricebook price. A missing
// or inactive entry reports ok=false so callers fall back to historical
// prices.
func (c *Client) ReferencePrice(ctx context.Context, productID string) (float64, bool, error) {
	cacheKey := "refprice:" + productID
	if c.cache != nil {
		var raw string
		if err := c.cache.Get(ctx, cacheKey, &raw); err == nil && raw != "" {
			var p pricePayload
			if jerr := json.Unmarshal([]byte(raw), &p); jerr == nil {
				if !p.Active || p.Price <= 0 {
					return 0, false, nil
				}
				return p.Price, true, nil
			}
		}
	}
	var payload pricePayload
	err := c.get(ctx, "/api/v1/products/"+productID+"/pricebook-entry", nil, &payload)
	if err != nil {
		if strings.Contains(err.Error(), "status 404") {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("pricebook entry %s: %w", productID, err)
	}
	if c.cache != nil {
		// Stored as a JSON string so the same value round-trips through
		// the memory, Redis, and layered cache backends.
		if buf, jerr := json.Marshal(payload); jerr == nil {
			if cerr := c.cache.Set(ctx, cacheKey, string(buf), c.priceTTL); cerr != nil && c.log != nil {
				c.log.Warn("pricebook cache set failed", logger.Error(cerr))
			}
		}
	}
	if !payload.Active || payload.Price <= 0 {
		return 0, false, nil
	}
	return payload.Price, true, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	if err := c.waitForSlot(ctx); err != nil {
		return err
	}
	return c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     c.authHeaders(),
		QueryParams: params,
	}, dest)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, dest interface{}) error {
	if err := c.waitForSlot(ctx); err != nil {
		return err
	}
	return c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + path,
		Headers: c.authHeaders(),
		Body:    body,
	}, dest)
}

func (c *Client) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.token,
		"Content-Type":  "application/json",
	}
}

// waitForSlot blocks until the client-side rate limiter admits the call.
func (c *Client) waitForSlot(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	for !c.limiter.Allow(limiterKey, c.rateCap, c.rateRefill) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}
