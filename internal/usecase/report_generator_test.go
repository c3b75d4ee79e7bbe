package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"SellingView/internal/domain/models"
	drepo "SellingView/internal/domain/repository"
	"SellingView/pkg/logger"
)

type fakeSource struct {
	account  models.AccountInfo
	orders   []models.Order
	products map[string]string
	prices   map[string]float64

	ordersErr   error
	productsErr error
}

func (f *fakeSource) AccountInfo(ctx context.Context, accountID string) (models.AccountInfo, error) {
	return f.account, nil
}

func (f *fakeSource) ListOrders(ctx context.Context, accountID string, from, to time.Time) ([]models.Order, error) {
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	var out []models.Order
	for _, o := range f.orders {
		if !o.ShippedAt.Before(from) && !o.ShippedAt.After(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeSource) ListProducts(ctx context.Context, accountID string, from, to time.Time) (map[string]string, error) {
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return f.products, nil
}

func (f *fakeSource) ReferencePrice(ctx context.Context, productID string) (float64, bool, error) {
	price, ok := f.prices[productID]
	return price, ok, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string)    {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordLastAmount(string, float64)    {}
func (nopMetrics) RecordLatency(string, float64)       {}
func (nopMetrics) RecordReportGenerated(string)        {}
func (nopMetrics) RecordOpportunities(string, int)     {}

var _ drepo.Metrics = nopMetrics{}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func seededOrders(accountID, productID string, start time.Time, days int, amountFor func(i int) float64) []models.Order {
	var orders []models.Order
	for i := 0; i < days; i++ {
		orders = append(orders, models.Order{
			ID:          fmt.Sprintf("%s-%d", productID, i),
			ShippedAt:   start.AddDate(0, 0, i),
			Amount:      amountFor(i),
			AccountID:   accountID,
			AccountName: "Acme Clinic",
			ProductID:   productID,
			ProductName: "Daily Greens",
			Quantity:    2,
			UnitPrice:   25,
		})
	}
	return orders
}

func testParams(start time.Time) GenerateParams {
	return GenerateParams{
		AccountID:  "acc1",
		Start:      start.AddDate(0, 0, 180),
		End:        start.AddDate(0, 0, 400),
		Resolution: drepo.Res3D,
		WindowDays: 90,
		WarmupDays: 180,
	}
}

func TestGenerateFullPipeline(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{
		account: models.AccountInfo{ID: "acc1", Name: "Acme Clinic"},
		orders: seededOrders("acc1", "p1", start, 400, func(i int) float64 {
			return 100 + float64(i%11)*40 // enough variance for real bands
		}),
		products: map[string]string{"p1": "Daily Greens"},
		prices:   map[string]float64{"p1": 25},
	}
	g := NewReportGenerator(src, nil, nopMetrics{}, testLogger(t), "(FS)", nil, 18)

	report, err := g.Generate(context.Background(), testParams(start))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if report.AccountID != "acc1" || report.AccountName != "Acme Clinic" {
		t.Fatalf("unexpected account identity: %+v", report)
	}
	if len(report.AccountCandles) == 0 {
		t.Fatalf("expected account candles")
	}
	for _, c := range report.AccountCandles {
		if c.PeriodStart.Before(testParams(start).Start) {
			t.Fatalf("warmup candle leaked into analysis window: %v", c.PeriodStart)
		}
	}
	if len(report.ProductCandles["p1"]) == 0 {
		t.Fatalf("expected product candles")
	}
	if !strings.Contains(report.Overview, "ACCOUNT OVERVIEW") {
		t.Fatalf("missing overview")
	}
	if report.WeekDetail == "" || report.TotalSummary == "" {
		t.Fatalf("missing report sections")
	}
}

func TestGenerateFlatSeriesYieldsNoOpportunities(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{
		account:  models.AccountInfo{ID: "acc1", Name: "Acme Clinic"},
		orders:   seededOrders("acc1", "p1", start, 400, func(int) float64 { return 100 }),
		products: map[string]string{"p1": "Daily Greens"},
		prices:   map[string]float64{"p1": 25},
	}
	g := NewReportGenerator(src, nil, nopMetrics{}, testLogger(t), "(FS)", nil, 18)

	report, err := g.Generate(context.Background(), testParams(start))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// A perfectly flat series collapses the band to zero width, which
	// disqualifies the product from scoring.
	if len(report.Opportunities) != 0 {
		t.Fatalf("expected no opportunities for flat series, got %d", len(report.Opportunities))
	}
}

func TestGenerateUpstreamFailureIsHard(t *testing.T) {
	src := &fakeSource{
		account:   models.AccountInfo{ID: "acc1", Name: "Acme Clinic"},
		ordersErr: errors.New("query timeout"),
	}
	g := NewReportGenerator(src, nil, nopMetrics{}, testLogger(t), "(FS)", nil, 18)

	_, err := g.Generate(context.Background(), GenerateParams{
		AccountID:  "acc1",
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Resolution: drepo.Res3D,
		WindowDays: 90,
		WarmupDays: 90,
	})
	if err == nil {
		t.Fatalf("expected hard failure")
	}
	if !strings.Contains(err.Error(), "list orders") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateInvalidResolution(t *testing.T) {
	g := NewReportGenerator(&fakeSource{}, nil, nopMetrics{}, testLogger(t), "", nil, 18)
	if _, err := g.Generate(context.Background(), GenerateParams{Resolution: "7D"}); err == nil {
		t.Fatalf("expected invalid resolution error")
	}
}
