package analytics

import (
	"testing"
	"time"

	"SellingView/internal/domain/models"
)

func TestConsolidateCarryForward(t *testing.T) {
	c := NewConsolidator(3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	grid := c.Grid(start, start.AddDate(0, 0, 12))
	if len(grid) != 5 {
		t.Fatalf("expected 5 grid dates, got %d", len(grid))
	}

	candles := map[string][]models.Candle{
		"p1": {
			{PeriodStart: start, Close: 100},
			{PeriodStart: start.AddDate(0, 0, 6), Close: 140},
		},
		"p2": {
			{PeriodStart: start.AddDate(0, 0, 9), Close: 55},
		},
	}
	records := c.Consolidate(candles, grid)

	// p1: exact at day 0, carried to day 3, exact at day 6, carried after.
	wantP1 := []float64{100, 100, 140, 140, 140}
	for i, want := range wantP1 {
		if got := records[i].Values["p1"]; got != want {
			t.Fatalf("p1 at grid %d: got %v want %v", i, got, want)
		}
	}

	// p2 has no value before its first candle and never interpolates back.
	for i := 0; i < 3; i++ {
		if _, ok := records[i].Values["p2"]; ok {
			t.Fatalf("p2 should have no value at grid %d", i)
		}
	}
	if got := records[3].Values["p2"]; got != 55 {
		t.Fatalf("p2 at grid 3: got %v want 55", got)
	}
	if got := records[4].Values["p2"]; got != 55 {
		t.Fatalf("p2 carry-forward at grid 4: got %v want 55", got)
	}
}

func TestGridAnchoredAtStart(t *testing.T) {
	c := NewConsolidator(3)
	start := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	grid := c.Grid(start, start.AddDate(0, 0, 10))
	if len(grid) == 0 || !grid[0].Equal(start) {
		t.Fatalf("grid must begin at the requested start, got %v", grid)
	}
	for i := 1; i < len(grid); i++ {
		if grid[i].Sub(grid[i-1]) != 3*24*time.Hour {
			t.Fatalf("grid step %d is not one period: %v -> %v", i, grid[i-1], grid[i])
		}
	}
}

func TestAverageContributionsIgnoresTerms(t *testing.T) {
	contributions := []models.Contribution{
		{Values: map[string]float64{"p1": 100, "p2": 10}},
		{Values: map[string]float64{"p1": 200, "p2": 20}},
	}
	names := map[string]string{"p1": "Daily Greens", "p2": "Mouth Cleaner Pro"}
	avgs := AverageContributions(contributions, []string{"Mouth Cleaner"}, names)
	if got := avgs["p1"]; got != 150 {
		t.Fatalf("p1 average: got %v want 150", got)
	}
	if _, ok := avgs["p2"]; ok {
		t.Fatalf("ignored product should not be averaged")
	}
}
