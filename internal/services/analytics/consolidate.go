package analytics

import (
	"sort"
	"strings"
	"time"

	"SellingView/internal/domain/models"
)

// Consolidator aligns every product's candle closes onto one shared period
// grid so contributions are comparable across products regardless of when
// each product's own periods fall.
type Consolidator struct {
	periodDays int
}

func NewConsolidator(periodDays int) *Consolidator {
	return &Consolidator{periodDays: periodDays}
}

// Grid produces the shared period boundaries from start to end inclusive.
func (c *Consolidator) Grid(start, end time.Time) []time.Time {
	start, end = dateOnly(start), dateOnly(end)
	var grid []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, c.periodDays) {
		grid = append(grid, d)
	}
	return grid
}

// Consolidate maps every grid date to each product's close value at that
// date, carrying the most recent prior close forward when no candle starts
// exactly on the grid date. Values are never interpolated and never pushed
// backward in time; a product with no candle at or before a grid date simply
// has no entry there.
func (c *Consolidator) Consolidate(productCandles map[string][]models.Candle, grid []time.Time) []models.Contribution {
	out := make([]models.Contribution, len(grid))
	for i, date := range grid {
		out[i] = models.Contribution{Date: date, Values: make(map[string]float64)}
	}

	for productID, candles := range productCandles {
		if len(candles) == 0 {
			continue
		}
		for i, date := range grid {
			// Most recent candle starting at or before this grid date.
			j := sort.Search(len(candles), func(k int) bool {
				return candles[k].PeriodStart.After(date)
			})
			if j == 0 {
				continue
			}
			out[i].Values[productID] = candles[j-1].Close
		}
	}
	return out
}

// AverageContributions returns each product's mean close across the grid
// dates where it has a value, skipping products matching the ignore terms.
func AverageContributions(contributions []models.Contribution, ignoreTerms []string, productNames map[string]string) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, record := range contributions {
		for productID, value := range record.Values {
			if matchesIgnoreTerm(productNames[productID], ignoreTerms) {
				continue
			}
			sums[productID] += value
			counts[productID]++
		}
	}
	avgs := make(map[string]float64, len(sums))
	for productID, sum := range sums {
		avgs[productID] = sum / float64(counts[productID])
	}
	return avgs
}

func matchesIgnoreTerm(name string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(name, term) {
			return true
		}
	}
	return false
}
