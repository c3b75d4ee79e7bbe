package analytics

import (
	"math"
	"sort"
	"time"

	"SellingView/internal/domain/models"
)

// ProductAnalysis pairs one product's candle series with its indicators.
type ProductAnalysis struct {
	ProductID   string
	ProductName string
	Candles     []models.Candle
	Indicators  models.IndicatorSet
}

// Scorer filters analyzed products into actionable opportunities and orders
// them by a composite priority score. Lower score means higher priority.
type Scorer struct {
	windowDays  int
	ignoreTerms []string
}

func NewScorer(windowDays int, ignoreTerms []string) *Scorer {
	return &Scorer{windowDays: windowDays, ignoreTerms: ignoreTerms}
}

// Score builds the opportunity list. Products below 1% of the maximum
// average contribution are treated as noise and dropped before ranking.
// Products whose latest band range is degenerate, whose RSI shows deep
// resistance, that already sit near the band ceiling, or that have no
// usable unit price are excluded per-entry.
func (s *Scorer) Score(analyses []ProductAnalysis, contributions []models.Contribution, productNames map[string]string, now time.Time) []models.Opportunity {
	avgs := AverageContributions(contributions, s.ignoreTerms, productNames)
	if len(avgs) == 0 {
		return nil
	}

	var maxAvg float64
	for _, v := range avgs {
		if v > maxAvg {
			maxAvg = v
		}
	}
	threshold := maxAvg * 0.01

	type ranked struct {
		productID string
		avg       float64
	}
	active := make([]ranked, 0, len(avgs))
	for productID, avg := range avgs {
		if avg > threshold {
			active = append(active, ranked{productID, avg})
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].avg != active[j].avg {
			return active[i].avg > active[j].avg
		}
		return active[i].productID < active[j].productID
	})
	ranks := make(map[string]int, len(active))
	for i, r := range active {
		ranks[r.productID] = i + 1
	}

	byID := make(map[string]*ProductAnalysis, len(analyses))
	for i := range analyses {
		byID[analyses[i].ProductID] = &analyses[i]
	}

	var opportunities []models.Opportunity
	for _, r := range active {
		pa := byID[r.productID]
		if pa == nil || len(pa.Candles) == 0 {
			continue
		}
		set := pa.Indicators

		rsi := models.Latest(set.RSI)
		lower := models.Latest(set.BBLower)
		middle := models.Latest(set.BBMiddle)
		upper := models.Latest(set.BBUpper)
		if !rsi.Valid || !lower.Valid || !middle.Valid || !upper.Valid {
			continue
		}

		latest := pa.Candles[len(pa.Candles)-1]
		bandRange := upper.Value - lower.Value
		if bandRange == 0 {
			continue
		}
		position := (latest.Close - lower.Value) / bandRange * 100

		if rsi.Value > 75 {
			continue
		}
		if position > 90 {
			continue
		}
		if latest.UnitPrice == 0 {
			continue
		}

		opp := models.Opportunity{
			ProductID:    pa.ProductID,
			ProductName:  pa.ProductName,
			CurrentClose: latest.Close,
			RSI:          rsi.Value,
			BandPosition: position,
			BBLower:      lower.Value,
			BBMiddle:     middle.Value,
			BBUpper:      upper.Value,
			UnitPrice:    latest.UnitPrice,

			AvgContribution:  r.avg,
			ContributionRank: ranks[r.productID],
		}
		if set.DaysUntilLowerBreach.Valid {
			opp.DaysUntilLowerBreach = int(set.DaysUntilLowerBreach.Value)
		}
		if set.DaysUntilMiddleBreach.Valid {
			opp.DaysUntilMiddleBreach = int(set.DaysUntilMiddleBreach.Value)
		}

		opp.Volumes = make([]float64, len(pa.Candles))
		for i, c := range pa.Candles {
			opp.Volumes[i] = c.Volume
		}

		if interval, ok := averageOrderInterval(pa.Candles); ok {
			opp.OrderIntervalDays = interval
			opp.HasInterval = true
			opp.NextOrderDue = now.AddDate(0, 0, interval)
		}

		opp.Recommendations = s.recommend(&opp)
		opportunities = append(opportunities, opp)
	}

	total := len(ranks)
	for i := range opportunities {
		opp := &opportunities[i]
		rankScore := float64(opp.ContributionRank) / float64(total)
		rsiScore := opp.RSI / 75
		positionScore := opp.BandPosition / 100
		opp.PriorityScore = rankScore*0.5 + rsiScore*0.3 + positionScore*0.2
	}
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].PriorityScore < opportunities[j].PriorityScore
	})
	return opportunities
}

// recommend derives order quantities for the three target levels:
// conservative pulls the trend back to the band middle, balanced to the
// 70% point of the band range, aggressive to the band ceiling.
func (s *Scorer) recommend(opp *models.Opportunity) models.RecommendationSet {
	balancedTarget := opp.BBLower + (opp.BBUpper-opp.BBLower)*0.7
	return models.RecommendationSet{
		Conservative: s.targetQuantity(opp, opp.BBMiddle),
		Balanced:     s.targetQuantity(opp, balancedTarget),
		Aggressive:   s.targetQuantity(opp, opp.BBUpper),
	}
}

// targetQuantity models how many units it takes to lift the rolling mean
// from the current close to the target: the value gap spread over the full
// window, priced at the current unit price.
func (s *Scorer) targetQuantity(opp *models.Opportunity, target float64) models.Recommendation {
	if opp.CurrentClose >= target || opp.UnitPrice <= 0 {
		return models.Recommendation{}
	}
	gap := target - opp.CurrentClose
	qty := int(math.Round(gap * float64(s.windowDays) / opp.UnitPrice))
	if qty < 0 {
		qty = 0
	}
	return models.Recommendation{
		Quantity: qty,
		Value:    float64(qty) * opp.UnitPrice,
	}
}

// averageOrderInterval is the mean gap in days between candle periods that
// carried real volume. Fewer than two such periods means no interval.
func averageOrderInterval(candles []models.Candle) (int, bool) {
	var dates []time.Time
	for _, c := range candles {
		if c.Volume > 0 {
			dates = append(dates, c.PeriodStart)
		}
	}
	if len(dates) < 2 {
		return 0, false
	}
	var totalDays float64
	for i := 1; i < len(dates); i++ {
		totalDays += dates[i].Sub(dates[i-1]).Hours() / 24
	}
	return int(totalDays / float64(len(dates)-1)), true
}
