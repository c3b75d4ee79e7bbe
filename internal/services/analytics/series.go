package analytics

import (
	"sort"
	"time"

	"SellingView/internal/domain/models"
)

// SeriesBuilder turns raw orders into a gap-filled daily series, smooths it
// with a rolling mean, and aggregates the smoothed values into fixed-width
// candles. One builder is safe to share across goroutines.
type SeriesBuilder struct {
	windowDays int
	periodDays int
}

func NewSeriesBuilder(windowDays, periodDays int) *SeriesBuilder {
	return &SeriesBuilder{windowDays: windowDays, periodDays: periodDays}
}

func (b *SeriesBuilder) PeriodDays() int { return b.periodDays }
func (b *SeriesBuilder) WindowDays() int { return b.windowDays }

// Daily resamples orders into one point per calendar day between the first
// and last order date. Amount and quantity are summed per day; unit price is
// the mean of that day's orders and is carried forward over gap days.
// referencePrice, when positive, overrides all observed unit prices.
func (b *SeriesBuilder) Daily(orders []models.Order, referencePrice float64) []models.DailyPoint {
	if len(orders) == 0 {
		return nil
	}

	type bucket struct {
		amount   float64
		quantity float64
		priceSum float64
		orders   int
	}
	byDay := make(map[time.Time]*bucket)
	var first, last time.Time
	for _, o := range orders {
		day := dateOnly(o.ShippedAt)
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
		bk := byDay[day]
		if bk == nil {
			bk = &bucket{}
			byDay[day] = bk
		}
		bk.amount += o.Amount
		bk.quantity += o.Quantity
		price := o.UnitPrice
		if referencePrice > 0 {
			price = referencePrice
		}
		bk.priceSum += price
		bk.orders++
	}

	var points []models.DailyPoint
	var lastPrice float64
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		p := models.DailyPoint{Date: day}
		if bk, ok := byDay[day]; ok {
			p.Amount = bk.amount
			p.Quantity = bk.quantity
			p.UnitPrice = bk.priceSum / float64(bk.orders)
			lastPrice = p.UnitPrice
		} else {
			p.UnitPrice = lastPrice
		}
		points = append(points, p)
	}

	// Rolling mean of daily amount, partial windows allowed at the head.
	var sum float64
	for i := range points {
		sum += points[i].Amount
		if i >= b.windowDays {
			sum -= points[i-b.windowDays].Amount
		}
		n := i + 1
		if n > b.windowDays {
			n = b.windowDays
		}
		points[i].Trend = sum / float64(n)
	}
	return points
}

// Build produces the candle series for the given orders. It returns nil when
// fewer than windowDays of daily history exist, since no trend value would be
// backed by a full window yet.
//
// Periods are aligned to the first order date. The final period usually
// extends past the last data date; that candle is marked live and closes at
// the most recent trend value instead of a period boundary. Closed periods
// with no orders emit no candle, so sparse products produce a compressed
// series. Closed candles are a pure function of historical data and never
// change between runs.
func (b *SeriesBuilder) Build(orders []models.Order, referencePrice float64) []models.Candle {
	daily := b.Daily(orders, referencePrice)
	if len(daily) < b.windowDays {
		return nil
	}

	first := daily[0].Date
	last := daily[len(daily)-1].Date
	firstValid := b.windowDays - 1 // index of the first full-window trend value

	index := func(day time.Time) int {
		return int(day.Sub(first).Hours() / 24)
	}

	// Volume and unit price come from the raw orders, not the daily series:
	// the period unit price weights each order equally, however the orders
	// fall across the period's days.
	type periodAgg struct {
		quantity float64
		priceSum float64
		orders   int
	}
	byPeriod := make(map[int]*periodAgg)
	for _, o := range orders {
		pi := index(dateOnly(o.ShippedAt)) / b.periodDays
		agg := byPeriod[pi]
		if agg == nil {
			agg = &periodAgg{}
			byPeriod[pi] = agg
		}
		agg.quantity += o.Quantity
		price := o.UnitPrice
		if referencePrice > 0 {
			price = referencePrice
		}
		agg.priceSum += price
		agg.orders++
	}

	var candles []models.Candle
	var lastUnitPrice float64
	pi := 0
	for start := first; !start.After(last); start, pi = start.AddDate(0, 0, b.periodDays), pi+1 {
		// Unit price carries forward over order-free periods.
		agg := byPeriod[pi]
		unitPrice := lastUnitPrice
		var volume float64
		if agg != nil {
			unitPrice = agg.priceSum / float64(agg.orders)
			lastUnitPrice = unitPrice
			volume = agg.quantity
		}

		si := index(start)
		if si < firstValid {
			continue
		}
		end := start.AddDate(0, 0, b.periodDays)
		ei := index(end)

		c := models.Candle{PeriodStart: start, Volume: volume, UnitPrice: unitPrice}
		if end.After(last) {
			// Live candle: close tracks today's trend value.
			c.IsLive = true
			c.Open = daily[si].Trend
			c.Close = daily[len(daily)-1].Trend
			c.High, c.Low = trendRange(daily[si:])
		} else {
			if agg == nil {
				continue
			}
			span := daily[si : ei+1]
			if len(span) < 2 {
				continue
			}
			c.Open = span[0].Trend
			c.Close = span[len(span)-1].Trend
			c.High, c.Low = trendRange(span)
		}

		candles = append(candles, c)
	}
	return candles
}

// CandlesFrom drops candles whose period starts before the cutoff. Warmup
// history is included in Build so early trend values are well-formed, then
// trimmed here before indicators run.
func CandlesFrom(candles []models.Candle, cutoff time.Time) []models.Candle {
	cutoff = dateOnly(cutoff)
	i := sort.Search(len(candles), func(i int) bool {
		return !candles[i].PeriodStart.Before(cutoff)
	})
	return candles[i:]
}

func trendRange(points []models.DailyPoint) (high, low float64) {
	high, low = points[0].Trend, points[0].Trend
	for _, p := range points[1:] {
		if p.Trend > high {
			high = p.Trend
		}
		if p.Trend < low {
			low = p.Trend
		}
	}
	return high, low
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
