package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"SellingView/internal/domain/models"
	"SellingView/pkg/logger"
)

const reportTimeframeDays = 90

// Assembler renders the scored opportunities into the structured text
// report: account overview, week-by-week detail, and totals.
type Assembler struct {
	log *logger.Logger
}

func NewAssembler(log *logger.Logger) *Assembler {
	return &Assembler{log: log}
}

// Assemble buckets opportunities into Mon-Fri weeks keyed by projected next
// order date and renders the three report sections. Opportunities without a
// known order interval stay out of the calendar buckets. A formatting
// failure on a single opportunity is logged and replaced with an inline
// error marker instead of aborting the report.
func (a *Assembler) Assemble(account models.AccountInfo, accountCandles []models.Candle, accountSet models.IndicatorSet, opportunities []models.Opportunity, now time.Time) *models.Report {
	report := &models.Report{
		AccountID:     account.ID,
		AccountName:   account.Name,
		GeneratedAt:   now,
		Opportunities: opportunities,
	}

	report.Weeks = a.bucketByWeek(opportunities)
	report.Overview = a.renderOverview(accountCandles, accountSet, opportunities, now)
	report.WeekDetail = a.renderWeekDetail(report.Weeks, now)
	report.TotalSummary = a.renderTotals(report.Weeks)
	return report
}

func (a *Assembler) bucketByWeek(opportunities []models.Opportunity) []models.WeekBucket {
	byStart := make(map[time.Time]*models.WeekBucket)
	for _, opp := range opportunities {
		if !opp.HasInterval {
			continue
		}
		start := weekStart(opp.NextOrderDue)
		bucket := byStart[start]
		if bucket == nil {
			bucket = &models.WeekBucket{Start: start, End: start.AddDate(0, 0, 4)}
			byStart[start] = bucket
		}
		bucket.Opportunities = append(bucket.Opportunities, opp)
		bucket.Conservative += opp.Recommendations.Conservative.Value
		bucket.Balanced += opp.Recommendations.Balanced.Value
		bucket.Aggressive += opp.Recommendations.Aggressive.Value
	}

	weeks := make([]models.WeekBucket, 0, len(byStart))
	for _, bucket := range byStart {
		sort.SliceStable(bucket.Opportunities, func(i, j int) bool {
			return bucket.Opportunities[i].PriorityScore < bucket.Opportunities[j].PriorityScore
		})
		weeks = append(weeks, *bucket)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Start.Before(weeks[j].Start) })
	return weeks
}

func (a *Assembler) renderWeekDetail(weeks []models.WeekBucket, now time.Time) string {
	var b strings.Builder
	b.WriteString("Product Sales Opportunity Report\n")
	b.WriteString("Generated on: " + now.Format("2006-01-02 15:04:05") + "\n")
	b.WriteString("\n" + separator + "\n\n")
	b.WriteString(reportLegend)
	b.WriteString(separator + "\n")

	if len(weeks) == 0 {
		b.WriteString("\nNo priority opportunities found matching criteria.\n")
		return b.String()
	}

	for i, week := range weeks {
		fmt.Fprintf(&b, "\nORDER WEEK: %s - %s\n", week.Start.Format("2006.01.02"), week.End.Format("2006.01.02"))
		fmt.Fprintf(&b, "Value Range: [%s < %s < %s]\n",
			money0(week.Conservative), money0(week.Balanced), money0(week.Aggressive))
		fmt.Fprintf(&b, "Products Due: %d\n", len(week.Opportunities))

		for j, opp := range week.Opportunities {
			if j > 0 {
				b.WriteString("\n")
			}
			entry, err := a.formatOpportunity(opp)
			if err != nil {
				a.log.Error("format opportunity",
					logger.String("product_id", opp.ProductID),
					logger.Error(err))
				fmt.Fprintf(&b, "\nError formatting opportunity: %v\n", err)
				continue
			}
			b.WriteString(entry)
		}

		if i < len(weeks)-1 {
			b.WriteString("\n" + separator + "\n")
		}
	}
	return b.String()
}

func (a *Assembler) formatOpportunity(opp models.Opportunity) (string, error) {
	if opp.BBUpper == opp.BBLower {
		return "", fmt.Errorf("degenerate band for %s", opp.ProductName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n", opp.ProductName)
	fmt.Fprintf(&b, "     Priority: %d\n", opp.ContributionRank)
	if opp.HasInterval {
		fmt.Fprintf(&b, "     Next Order Due: %s\n", opp.NextOrderDue.Format("2006.01.02"))
	}
	b.WriteString("     Current Position:\n")
	b.WriteString("     " + bandSpectrum(opp.BandPosition) + "\n")
	b.WriteString("     Floor -------- Average -------- Ceiling\n")
	b.WriteString("     Order Recommendations:\n")

	writeLevel := func(label string, rec models.Recommendation, fallback string) {
		if rec.Quantity > 0 {
			fmt.Fprintf(&b, "     - %s: %d units (%s)\n", label, rec.Quantity, money2(rec.Value))
		} else {
			fmt.Fprintf(&b, "     - %s: %s\n", label, fallback)
		}
	}
	writeLevel("Conservative", opp.Recommendations.Conservative, "Maintain current position")
	writeLevel("Balanced", opp.Recommendations.Balanced, "At or above average")
	writeLevel("Aggressive", opp.Recommendations.Aggressive, "At upper target")
	return b.String(), nil
}

func (a *Assembler) renderOverview(candles []models.Candle, set models.IndicatorSet, opportunities []models.Opportunity, now time.Time) string {
	var b strings.Builder
	b.WriteString("ACCOUNT OVERVIEW\n")
	b.WriteString(thinSeparator + "\n")

	lower := models.Latest(set.BBLower)
	upper := models.Latest(set.BBUpper)
	if len(candles) > 0 && lower.Valid && upper.Valid && upper.Value > lower.Value {
		close := candles[len(candles)-1].Close
		position := (close - lower.Value) / (upper.Value - lower.Value) * 100
		fmt.Fprintf(&b, "Current Position in Bollinger Band: %.1f%%\n", position)
		b.WriteString(bandSpectrum(position) + "\n")
		b.WriteString("Floor -------- Average -------- Ceiling\n")
	}

	if trend, ok := macdTrend(set); ok {
		fmt.Fprintf(&b, "\nMACD Trend: %s\n", trend)
	}

	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}
	fmt.Fprintf(&b, "Volume Trend: %s\n", volumeTrend(volumes, 5))

	if rsi := models.Latest(set.RSI); rsi.Valid {
		fmt.Fprintf(&b, "RSI Signal (%.1f): %s\n", rsi.Value, strings.ToUpper(rsiDescription(rsi.Value)))
	}

	weeks := weekTimeline(opportunities, now)
	var totalCons, totalBal, totalAgg float64
	for _, w := range weeks {
		totalCons += w.conservative
		totalBal += w.balanced
		totalAgg += w.aggressive
	}

	// Trailing spend is the sum of the most recent closes covering roughly
	// one window of history.
	var trailing float64
	tail := candles
	if len(tail) > 30 {
		tail = tail[len(tail)-30:]
	}
	for _, c := range tail {
		trailing += c.Close
	}

	b.WriteString("\nTARGET ACCOUNT SPEND (90-Day Period)\n")
	b.WriteString(thinSeparator + "\n")
	fmt.Fprintf(&b, "Conservative: %s\n", money2(totalCons))
	fmt.Fprintf(&b, "Balanced:     %s\n", money2(totalBal))
	fmt.Fprintf(&b, "Aggressive:   %s\n", money2(totalAgg))
	fmt.Fprintf(&b, "\nTrailing 90-Day Average: %s\n", money2(trailing))

	b.WriteString("\nORDER TIMELINE (Next 90 Days)\n")
	b.WriteString(thinSeparator + "\n")
	for _, w := range weeks {
		dates := fmt.Sprintf("%s - %s", w.start.Format("01/02"), w.end.Format("01/02"))
		if len(w.products) > 0 {
			fmt.Fprintf(&b, "Week %d (%s): %s [%s < %s < %s] (%d products)\n",
				w.num+1, dates, bandSpectrum(w.position),
				money0(w.conservative), money0(w.balanced), money0(w.aggressive),
				len(w.products))
		} else {
			fmt.Fprintf(&b, "Week %d (%s): No orders due\n", w.num+1, dates)
		}
	}

	b.WriteString("\nRECOMMENDED ACTIONS\n")
	b.WriteString(thinSeparator + "\n")
	if best := bestWeek(weeks); best != nil && len(best.products) > 0 {
		fmt.Fprintf(&b, "Primary Focus: Week %d [%s < %s < %s]\n",
			best.num+1, money0(best.conservative), money0(best.balanced), money0(best.aggressive))
		focus := append([]models.Opportunity(nil), best.products...)
		sort.SliceStable(focus, func(i, j int) bool { return focus[i].PriorityScore < focus[j].PriorityScore })
		if len(focus) > 3 {
			focus = focus[:3]
		}
		b.WriteString("Key Products to Focus:\n")
		for _, p := range focus {
			fmt.Fprintf(&b, "  - %s\n", p.ProductName)
		}
	}

	fmt.Fprintf(&b, "\nTotal 90-Day Opportunity:\n[%s < %s < %s]\n",
		money0(totalCons), money0(totalBal), money0(totalAgg))
	return b.String()
}

func (a *Assembler) renderTotals(weeks []models.WeekBucket) string {
	var totalCons, totalBal, totalAgg float64
	products := 0
	for _, w := range weeks {
		totalCons += w.Conservative
		totalBal += w.Balanced
		totalAgg += w.Aggressive
		products += len(w.Opportunities)
	}

	var b strings.Builder
	b.WriteString("\n" + separator + "\n")
	b.WriteString("\nTOTAL OPPORTUNITY SUMMARY\n")
	b.WriteString(thinSeparator + "\n")
	fmt.Fprintf(&b, "Total Value Range: [%s < %s < %s]\n", money0(totalCons), money0(totalBal), money0(totalAgg))
	fmt.Fprintf(&b, "Total Products: %d\n", products)
	fmt.Fprintf(&b, "Total Weeks: %d\n", len(weeks))
	return b.String()
}

type timelineWeek struct {
	num          int
	start, end   time.Time
	products     []models.Opportunity
	position     float64
	conservative float64
	balanced     float64
	aggressive   float64
}

// weekTimeline slots each opportunity's projected next order into 7-day
// buckets counted from now, spanning the report timeframe.
func weekTimeline(opportunities []models.Opportunity, now time.Time) []timelineWeek {
	numWeeks := reportTimeframeDays / 7
	if reportTimeframeDays%7 != 0 {
		numWeeks++
	}
	weeks := make([]timelineWeek, numWeeks)
	for i := range weeks {
		weeks[i].num = i
		weeks[i].start = now.AddDate(0, 0, i*7)
		weeks[i].end = weeks[i].start.AddDate(0, 0, 6)
	}

	for _, opp := range opportunities {
		if !opp.HasInterval {
			continue
		}
		days := int(opp.NextOrderDue.Sub(now).Hours() / 24)
		num := days / 7
		if num < 0 || num >= len(weeks) {
			continue
		}
		w := &weeks[num]
		w.products = append(w.products, opp)
		w.conservative += opp.Recommendations.Conservative.Value
		w.balanced += opp.Recommendations.Balanced.Value
		w.aggressive += opp.Recommendations.Aggressive.Value
		w.position += opp.BandPosition
	}
	for i := range weeks {
		if n := len(weeks[i].products); n > 0 {
			weeks[i].position /= float64(n)
		}
	}
	return weeks
}

func bestWeek(weeks []timelineWeek) *timelineWeek {
	var best *timelineWeek
	for i := range weeks {
		if best == nil || weeks[i].balanced > best.balanced {
			best = &weeks[i]
		}
	}
	return best
}

// macdTrend compares line/signal convergence over the last two periods.
func macdTrend(set models.IndicatorSet) (string, bool) {
	n := len(set.MACD)
	if n < 2 || len(set.MACDSignal) != n {
		return "", false
	}
	cur, prev := n-1, n-2
	if !set.MACD[cur].Valid || !set.MACDSignal[cur].Valid || !set.MACD[prev].Valid || !set.MACDSignal[prev].Valid {
		return "", false
	}
	curGap := set.MACD[cur].Value - set.MACDSignal[cur].Value
	prevGap := set.MACD[prev].Value - set.MACDSignal[prev].Value
	if abs(curGap) < abs(prevGap) {
		if curGap < 0 {
			return "MACD approaching bullish crossover", true
		}
		return "MACD approaching bearish crossover", true
	}
	if curGap > 0 {
		return "MACD confirms bullish trend", true
	}
	return "MACD trending lower", true
}

// volumeTrend classifies the recent volume slope relative to its mean.
func volumeTrend(volumes []float64, periods int) string {
	if len(volumes) < periods {
		return "Insufficient volume data"
	}
	recent := volumes[len(volumes)-periods:]

	// Least-squares slope over x = 0..periods-1.
	n := float64(periods)
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range recent {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 || sumY == 0 {
		return "STABLE"
	}
	slope := (n*sumXY - sumX*sumY) / denom
	avg := sumY / n

	pct := slope * n / avg * 100
	switch {
	case pct > 5:
		return "INCREASING"
	case pct < -5:
		return "DECREASING"
	default:
		return "STABLE"
	}
}

// rsiDescription maps the oscillator to the five resistance levels used in
// the report text.
func rsiDescription(rsi float64) string {
	switch {
	case rsi < 30:
		return "Very open to ordering"
	case rsi < 40:
		return "Open to ordering"
	case rsi < 45:
		return "Neutral"
	case rsi < 50:
		return "Resistant to ordering"
	default:
		return "Strongly resistant to ordering"
	}
}

// bandSpectrum draws the position marker on a fixed-width band scale. Out of
// range positions pin an x before the floor or after the ceiling.
func bandSpectrum(position float64) string {
	spectrum := []byte("||---------------||----------------||")
	switch {
	case position < 0:
		return "x" + string(spectrum)
	case position > 100:
		return string(spectrum) + "x"
	default:
		pos := int(2 + position/100*31)
		if pos >= len(spectrum) {
			pos = len(spectrum) - 1
		}
		spectrum[pos] = 'x'
		return string(spectrum)
	}
}

// weekStart returns the Monday on or before t, at midnight UTC.
func weekStart(t time.Time) time.Time {
	d := dateOnly(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

const separator = "================================================================================"
const thinSeparator = "--------------------------------------------------------------------------------"

const reportLegend = `How to read this report:
1. Account Overview provides:
   - Current market position and trend analysis
   - 90-day spending targets (Conservative/Balanced/Aggressive)
   - Week-by-week order timeline with value ranges
2. Products are grouped by workweeks based on next order date
3. Priority ranking indicates product's contribution value
   and market position (lower number = higher priority)
4. Order recommendations show:
   - Conservative: Maintain floor support
   - Balanced: Target historical average
   - Aggressive: Reach upper band value
5. Weekly summaries include:
   - Total value ranges [Conservative < Balanced < Aggressive]
   - Number of products due
   - Individual product recommendations

`

func money0(v float64) string { return "$" + groupThousands(fmt.Sprintf("%.0f", v)) }
func money2(v float64) string { return "$" + groupThousands(fmt.Sprintf("%.2f", v)) }

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	for i := len(intPart) - 3; i > 0; i -= 3 {
		intPart = intPart[:i] + "," + intPart[i:]
	}
	if neg {
		intPart = "-" + intPart
	}
	return intPart + frac
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
