package analytics

import (
	"testing"
	"time"

	"SellingView/internal/domain/models"
)

func constIndicators(n int, value float64) []models.Indicator {
	out := make([]models.Indicator, n)
	for i := range out {
		out[i] = models.Computed(value)
	}
	return out
}

// scorableAnalysis builds a product whose latest close sits below the band
// middle, with a steady order cadence.
func scorableAnalysis(productID, name string, close, lower, middle, upper float64) ProductAnalysis {
	candles := candlesFromCloses([]float64{close, close, close, close})
	for i := range candles {
		candles[i].Volume = 2
		candles[i].UnitPrice = 10
	}
	n := len(candles)
	return ProductAnalysis{
		ProductID:   productID,
		ProductName: name,
		Candles:     candles,
		Indicators: models.IndicatorSet{
			RSI:      constIndicators(n, 40),
			BBLower:  constIndicators(n, lower),
			BBMiddle: constIndicators(n, middle),
			BBUpper:  constIndicators(n, upper),
		},
	}
}

func contributionsFor(values map[string]float64) []models.Contribution {
	return []models.Contribution{{Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Values: values}}
}

func TestScoreQuantityOrdering(t *testing.T) {
	s := NewScorer(90, nil)
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	pa := scorableAnalysis("p1", "Daily Greens", 100, 90, 150, 210)
	opps := s.Score([]ProductAnalysis{pa}, contributionsFor(map[string]float64{"p1": 100}), map[string]string{"p1": "Daily Greens"}, now)
	if len(opps) != 1 {
		t.Fatalf("expected one opportunity, got %d", len(opps))
	}
	rec := opps[0].Recommendations
	if rec.Conservative.Quantity > rec.Balanced.Quantity || rec.Balanced.Quantity > rec.Aggressive.Quantity {
		t.Fatalf("quantity ordering violated: %d %d %d",
			rec.Conservative.Quantity, rec.Balanced.Quantity, rec.Aggressive.Quantity)
	}
	if rec.Conservative.Quantity == 0 {
		t.Fatalf("close below middle band should produce a conservative quantity")
	}
}

func TestScoreQuantityZeroAtOrAboveTarget(t *testing.T) {
	s := NewScorer(90, nil)
	opp := &models.Opportunity{CurrentClose: 200, UnitPrice: 10}
	if rec := s.targetQuantity(opp, 150); rec.Quantity != 0 || rec.Value != 0 {
		t.Fatalf("target below close must give zero quantity, got %+v", rec)
	}
	if rec := s.targetQuantity(opp, 200); rec.Quantity != 0 {
		t.Fatalf("target equal to close must give zero quantity, got %+v", rec)
	}
}

func TestScoreSkipsDegenerateBand(t *testing.T) {
	s := NewScorer(90, nil)
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	pa := scorableAnalysis("p1", "Flat Product", 100, 100, 100, 100)
	opps := s.Score([]ProductAnalysis{pa}, contributionsFor(map[string]float64{"p1": 100}), map[string]string{"p1": "Flat Product"}, now)
	if len(opps) != 0 {
		t.Fatalf("degenerate band should be skipped, got %d opportunities", len(opps))
	}
}

func TestScoreSkipsHighRSI(t *testing.T) {
	s := NewScorer(90, nil)
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	pa := scorableAnalysis("p1", "Hot Product", 100, 90, 150, 210)
	pa.Indicators.RSI = constIndicators(len(pa.Candles), 80)
	opps := s.Score([]ProductAnalysis{pa}, contributionsFor(map[string]float64{"p1": 100}), nil, now)
	if len(opps) != 0 {
		t.Fatalf("RSI above 75 should be skipped")
	}
}

func TestScoreNoiseFloor(t *testing.T) {
	s := NewScorer(90, nil)
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	big := scorableAnalysis("big", "Big", 100, 90, 150, 210)
	tiny := scorableAnalysis("tiny", "Tiny", 100, 90, 150, 210)
	opps := s.Score(
		[]ProductAnalysis{big, tiny},
		contributionsFor(map[string]float64{"big": 10000, "tiny": 50}),
		nil, now)
	for _, opp := range opps {
		if opp.ProductID == "tiny" {
			t.Fatalf("contribution below 1%% of max should be dropped")
		}
	}
	if len(opps) != 1 {
		t.Fatalf("expected only the big product, got %d", len(opps))
	}
}

func TestScorePriorityFavorsHigherContribution(t *testing.T) {
	s := NewScorer(90, nil)
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	lead := scorableAnalysis("lead", "Lead Product", 100, 90, 150, 210)
	trail := scorableAnalysis("trail", "Trail Product", 100, 90, 150, 210)
	opps := s.Score(
		[]ProductAnalysis{lead, trail},
		contributionsFor(map[string]float64{"lead": 5000, "trail": 2000}),
		nil, now)
	if len(opps) != 2 {
		t.Fatalf("expected two opportunities, got %d", len(opps))
	}
	if opps[0].ProductID != "lead" {
		t.Fatalf("higher contribution should sort first, got %s", opps[0].ProductID)
	}
	if opps[0].PriorityScore >= opps[1].PriorityScore {
		t.Fatalf("priority score not strictly lower for higher rank: %v vs %v",
			opps[0].PriorityScore, opps[1].PriorityScore)
	}
	if opps[0].ContributionRank != 1 || opps[1].ContributionRank != 2 {
		t.Fatalf("unexpected ranks %d, %d", opps[0].ContributionRank, opps[1].ContributionRank)
	}
}

func TestScoreOrderInterval(t *testing.T) {
	pa := scorableAnalysis("p1", "Daily Greens", 100, 90, 150, 210)
	interval, ok := averageOrderInterval(pa.Candles)
	if !ok {
		t.Fatalf("expected an interval from 4 volume-bearing candles")
	}
	if interval != 3 {
		t.Fatalf("candles every 3 days should yield a 3-day interval, got %d", interval)
	}

	pa.Candles[0].Volume = 0
	pa.Candles[1].Volume = 0
	pa.Candles[2].Volume = 0
	if _, ok := averageOrderInterval(pa.Candles); ok {
		t.Fatalf("one volume-bearing candle cannot define an interval")
	}
}
