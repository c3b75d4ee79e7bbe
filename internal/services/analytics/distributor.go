package analytics

import (
	"strings"
	"time"

	"SellingView/internal/domain/models"
)

// Distributor spreads lump-sum orders recorded on a single date across the
// business days of the trailing month. Fulfillment-partner accounts report
// a whole month of activity as one order; leaving those as-is would put a
// spike in the daily series and poison every rolling statistic downstream.
type Distributor struct {
	lumpPrefix string
}

func NewDistributor(lumpPrefix string) *Distributor {
	return &Distributor{lumpPrefix: lumpPrefix}
}

// IsLumpAccount reports whether the account name carries the
// fulfillment-partner prefix.
func (d *Distributor) IsLumpAccount(accountName string) bool {
	return d.lumpPrefix != "" && strings.HasPrefix(accountName, d.lumpPrefix)
}

// Distribute returns a new order list where every lump-sum order has been
// replaced by per-business-day derived orders over the month preceding its
// shipped date. Non-lump orders pass through unchanged. The derived amounts
// of one source order always sum to the source amount.
func (d *Distributor) Distribute(orders []models.Order) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if !d.IsLumpAccount(o.AccountName) {
			out = append(out, o)
			continue
		}
		out = append(out, d.distributeOne(o)...)
	}
	return out
}

func (d *Distributor) distributeOne(o models.Order) []models.Order {
	end := o.ShippedAt
	start := addMonthsClamped(end, -1)

	days := businessDaysBetween(start, end)
	if len(days) == 0 {
		return []models.Order{o}
	}

	weights := make([]float64, len(days))
	totalDays := float64(daysInMonth(end))
	quarter := totalDays / 4
	var sum float64
	for i, day := range days {
		dom := float64(day.Day())

		// W-shaped position-in-month curve: heavier at the month's
		// edges, lighter in the middle.
		var w float64
		switch {
		case dom <= quarter:
			w = 1.5 - (dom/quarter)*0.5
		case dom <= totalDays/2:
			w = 1.0 + (dom-quarter)/quarter*0.5
		case dom <= 3*totalDays/4:
			w = 1.5 - (dom-totalDays/2)/quarter*0.5
		default:
			w = 1.0 + (dom-3*quarter)/quarter*0.5
		}

		switch day.Weekday() {
		case time.Tuesday, time.Wednesday, time.Thursday:
			w *= 1.2
		}

		weights[i] = w
		sum += w
	}

	derived := make([]models.Order, len(days))
	for i, day := range days {
		slice := o
		slice.ShippedAt = day
		slice.Amount = o.Amount * weights[i] / sum
		derived[i] = slice
	}
	return derived
}

// businessDaysBetween returns every Mon-Fri date in [start, end], at the
// start date's clock time, in ascending order.
func businessDaysBetween(start, end time.Time) []time.Time {
	var days []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			days = append(days, day)
		}
	}
	return days
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// addMonthsClamped shifts t by the given number of months, clamping the day
// of month instead of normalizing (Mar 31 minus one month is Feb 28, not
// Mar 3 as time.AddDate would give).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if max := daysInMonth(first); day > max {
		day = max
	}
	hour, min, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}
