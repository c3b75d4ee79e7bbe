package analytics

import (
	"math"
	"testing"
	"time"

	"SellingView/internal/domain/models"
)

func TestDistributeLumpSumPreserved(t *testing.T) {
	d := NewDistributor("(FS)")
	src := models.Order{
		ID:          "o1",
		ShippedAt:   time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
		Amount:      3000,
		AccountID:   "acc1",
		AccountName: "(FS) Acme Wellness",
	}
	out := d.Distribute([]models.Order{src})

	if len(out) < 20 || len(out) > 24 {
		t.Fatalf("expected around 22 business-day slices, got %d", len(out))
	}
	var sum float64
	for _, o := range out {
		sum += o.Amount
		switch o.ShippedAt.Weekday() {
		case time.Saturday, time.Sunday:
			t.Fatalf("slice landed on weekend: %v", o.ShippedAt)
		}
		if o.ID != src.ID || o.AccountID != src.AccountID {
			t.Fatalf("slice lost source identity: %+v", o)
		}
	}
	if math.Abs(sum-src.Amount)/src.Amount > 1e-6 {
		t.Fatalf("distributed sum %v != source amount %v", sum, src.Amount)
	}
}

func TestDistributeNonLumpPassThrough(t *testing.T) {
	d := NewDistributor("(FS)")
	src := models.Order{
		ID:          "o2",
		ShippedAt:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Amount:      250,
		AccountName: "Regular Clinic",
	}
	out := d.Distribute([]models.Order{src})
	if len(out) != 1 {
		t.Fatalf("expected pass-through, got %d orders", len(out))
	}
	if out[0] != src {
		t.Fatalf("order modified: %+v", out[0])
	}
}

func TestDistributeMidweekWeighting(t *testing.T) {
	d := NewDistributor("(FS)")
	src := models.Order{
		ID:          "o3",
		ShippedAt:   time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		Amount:      1000,
		AccountName: "(FS) Bulk Partner",
	}
	out := d.Distribute([]models.Order{src})

	// Tue-Thu slices carry a 1.2x multiplier over same-position Mon/Fri.
	var midweek, edge float64
	var midweekN, edgeN int
	for _, o := range out {
		switch o.ShippedAt.Weekday() {
		case time.Tuesday, time.Wednesday, time.Thursday:
			midweek += o.Amount
			midweekN++
		default:
			edge += o.Amount
			edgeN++
		}
	}
	if midweekN == 0 || edgeN == 0 {
		t.Fatalf("expected both midweek and edge slices, got %d/%d", midweekN, edgeN)
	}
	if midweek/float64(midweekN) <= edge/float64(edgeN) {
		t.Fatalf("midweek average %v not above edge average %v", midweek/float64(midweekN), edge/float64(edgeN))
	}
}

func TestDistributeEmptyPrefixNeverMatches(t *testing.T) {
	d := NewDistributor("")
	if d.IsLumpAccount("(FS) Acme") {
		t.Fatalf("empty prefix should disable lump detection")
	}
}
