package analytics

import (
	"fmt"
	"testing"
	"time"

	"SellingView/internal/domain/models"
)

func dailyOrders(start time.Time, days int, amount, quantity, unitPrice float64) []models.Order {
	orders := make([]models.Order, 0, days)
	for i := 0; i < days; i++ {
		orders = append(orders, models.Order{
			ID:        fmt.Sprintf("o%d", i),
			ShippedAt: start.AddDate(0, 0, i),
			Amount:    amount,
			Quantity:  quantity,
			UnitPrice: unitPrice,
		})
	}
	return orders
}

func TestBuildRequiresFullWindow(t *testing.T) {
	b := NewSeriesBuilder(90, 3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := b.Build(dailyOrders(start, 50, 100, 1, 10), 0); got != nil {
		t.Fatalf("expected no candles with partial window, got %d", len(got))
	}
}

func TestBuildCandleBounds(t *testing.T) {
	b := NewSeriesBuilder(90, 3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orders := dailyOrders(start, 200, 100, 1, 10)
	// uneven amounts so the trend actually moves
	for i := range orders {
		orders[i].Amount = 100 + float64(i%7)*30
	}
	candles := b.Build(orders, 0)
	if len(candles) == 0 {
		t.Fatalf("expected candles")
	}
	for i, c := range candles {
		if c.Low > c.Open || c.Low > c.Close || c.High < c.Open || c.High < c.Close {
			t.Fatalf("candle %d violates OHLC bounds: %+v", i, c)
		}
	}
}

func TestBuildNoCandleBeforeWindow(t *testing.T) {
	b := NewSeriesBuilder(90, 3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := b.Build(dailyOrders(start, 200, 100, 1, 10), 0)
	firstValid := start.AddDate(0, 0, 89)
	for _, c := range candles {
		if c.PeriodStart.Before(firstValid) {
			t.Fatalf("candle starts before trend window is populated: %v", c.PeriodStart)
		}
	}
}

func TestBuildLiveCandleIdempotence(t *testing.T) {
	b := NewSeriesBuilder(90, 3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orders := dailyOrders(start, 180, 100, 1, 10)

	before := b.Build(orders, 0)
	if len(before) == 0 {
		t.Fatalf("expected candles")
	}
	if !before[len(before)-1].IsLive {
		t.Fatalf("last candle should be live")
	}

	// Appending one more day changes only the live tail of the series.
	more := append(append([]models.Order(nil), orders...),
		models.Order{ID: "new", ShippedAt: start.AddDate(0, 0, 180), Amount: 5000, Quantity: 3, UnitPrice: 10})
	after := b.Build(more, 0)

	closed := len(before) - 1
	if len(after) < closed {
		t.Fatalf("candle count shrank from %d to %d", len(before), len(after))
	}
	for i := 0; i < closed; i++ {
		if before[i].IsLive {
			continue
		}
		if before[i] != after[i] {
			t.Fatalf("closed candle %d changed after new data:\nbefore %+v\nafter  %+v", i, before[i], after[i])
		}
	}
}

func TestBuildSkipsOrderFreePeriods(t *testing.T) {
	b := NewSeriesBuilder(90, 3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orders := dailyOrders(start, 120, 100, 1, 10)
	// 24-day order gap, then more history so the gap periods are closed.
	for i := 0; i < 30; i++ {
		orders = append(orders, models.Order{
			ID:        fmt.Sprintf("late%d", i),
			ShippedAt: start.AddDate(0, 0, 144+i),
			Amount:    100,
			Quantity:  1,
			UnitPrice: 10,
		})
	}
	candles := b.Build(orders, 0)
	if len(candles) == 0 {
		t.Fatalf("expected candles")
	}
	gapStart := start.AddDate(0, 0, 120)
	gapEnd := start.AddDate(0, 0, 144)
	for _, c := range candles {
		if c.IsLive {
			continue
		}
		if !c.PeriodStart.Before(gapStart) && c.PeriodStart.Before(gapEnd) {
			t.Fatalf("closed candle emitted for order-free period %v", c.PeriodStart)
		}
	}
	// The series is compressed, not gap-filled: candle count reflects only
	// periods that actually contained orders.
	for i := 1; i < len(candles); i++ {
		if candles[i].PeriodStart.Sub(candles[i-1].PeriodStart) < 3*24*time.Hour {
			t.Fatalf("periods overlap at %d", i)
		}
	}
}

func TestBuildUnitPriceWeightsOrders(t *testing.T) {
	b := NewSeriesBuilder(4, 3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orders := dailyOrders(start, 6, 100, 1, 10)
	// Day 5 falls in the second period along with day 3 and 4. Three extra
	// orders at 40 on day 5 must pull the period mean to the per-order
	// average, not the per-day average.
	for i := 0; i < 3; i++ {
		orders = append(orders, models.Order{
			ID:        fmt.Sprintf("x%d", i),
			ShippedAt: start.AddDate(0, 0, 5),
			Amount:    100,
			Quantity:  1,
			UnitPrice: 40,
		})
	}
	candles := b.Build(orders, 0)
	var got *models.Candle
	for i := range candles {
		if candles[i].PeriodStart.Equal(start.AddDate(0, 0, 3)) {
			got = &candles[i]
		}
	}
	if got == nil {
		t.Fatalf("no candle for second period, got %d candles", len(candles))
	}
	// Orders in the period: day 3 at 10, day 4 at 10, day 5 at 10 and 40x3.
	want := (10.0 + 10 + 10 + 40*3) / 6
	if diff := got.UnitPrice - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("unit price = %v, want %v", got.UnitPrice, want)
	}
}

func TestDailyGapFill(t *testing.T) {
	b := NewSeriesBuilder(5, 3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orders := []models.Order{
		{ID: "a", ShippedAt: start, Amount: 100, Quantity: 2, UnitPrice: 50},
		{ID: "b", ShippedAt: start.AddDate(0, 0, 4), Amount: 200, Quantity: 1, UnitPrice: 60},
	}
	daily := b.Daily(orders, 0)
	if len(daily) != 5 {
		t.Fatalf("expected 5 daily points, got %d", len(daily))
	}
	for i := 1; i < 4; i++ {
		if daily[i].Amount != 0 || daily[i].Quantity != 0 {
			t.Fatalf("gap day %d should have zero amount/quantity: %+v", i, daily[i])
		}
		if daily[i].UnitPrice != 50 {
			t.Fatalf("gap day %d should carry unit price forward, got %v", i, daily[i].UnitPrice)
		}
	}
	if daily[4].UnitPrice != 60 {
		t.Fatalf("expected fresh unit price on day 4, got %v", daily[4].UnitPrice)
	}
}

func TestDailyReferencePriceOverride(t *testing.T) {
	b := NewSeriesBuilder(5, 3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	daily := b.Daily(dailyOrders(start, 5, 100, 1, 37.5), 42)
	for i, p := range daily {
		if p.UnitPrice != 42 {
			t.Fatalf("day %d: reference price not applied, got %v", i, p.UnitPrice)
		}
	}
}

func TestCandlesFrom(t *testing.T) {
	b := NewSeriesBuilder(90, 3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := b.Build(dailyOrders(start, 300, 100, 1, 10), 0)
	cutoff := start.AddDate(0, 0, 150)
	trimmed := CandlesFrom(candles, cutoff)
	if len(trimmed) == 0 || len(trimmed) == len(candles) {
		t.Fatalf("expected a strict trim, got %d of %d", len(trimmed), len(candles))
	}
	for _, c := range trimmed {
		if c.PeriodStart.Before(cutoff) {
			t.Fatalf("candle before cutoff survived: %v", c.PeriodStart)
		}
	}
}
