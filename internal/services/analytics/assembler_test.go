package analytics

import (
	"strings"
	"testing"
	"time"

	"SellingView/internal/domain/models"
	"SellingView/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testOpportunity(id string, due time.Time, consValue, balValue, aggValue float64) models.Opportunity {
	return models.Opportunity{
		ProductID:    id,
		ProductName:  "Product " + id,
		CurrentClose: 100,
		RSI:          40,
		BandPosition: 20,
		BBLower:      90,
		BBMiddle:     150,
		BBUpper:      210,
		UnitPrice:    10,
		HasInterval:  true,
		NextOrderDue: due,
		Recommendations: models.RecommendationSet{
			Conservative: models.Recommendation{Quantity: int(consValue / 10), Value: consValue},
			Balanced:     models.Recommendation{Quantity: int(balValue / 10), Value: balValue},
			Aggressive:   models.Recommendation{Quantity: int(aggValue / 10), Value: aggValue},
		},
	}
}

func TestAssembleWeekTotalsOrdering(t *testing.T) {
	a := NewAssembler(testLogger(t))
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	opps := []models.Opportunity{
		testOpportunity("p1", now.AddDate(0, 0, 3), 100, 200, 300),
		testOpportunity("p2", now.AddDate(0, 0, 4), 50, 70, 90),
		testOpportunity("p3", now.AddDate(0, 0, 12), 10, 20, 30),
	}
	report := a.Assemble(models.AccountInfo{ID: "a1", Name: "Acme"}, nil, models.IndicatorSet{}, opps, now)

	if len(report.Weeks) != 2 {
		t.Fatalf("expected 2 week buckets, got %d", len(report.Weeks))
	}
	for _, w := range report.Weeks {
		if w.Conservative > w.Balanced || w.Balanced > w.Aggressive {
			t.Fatalf("week totals out of order: %v %v %v", w.Conservative, w.Balanced, w.Aggressive)
		}
		if w.End.Sub(w.Start) != 4*24*time.Hour {
			t.Fatalf("week should span Monday to Friday: %v - %v", w.Start, w.End)
		}
		if w.Start.Weekday() != time.Monday {
			t.Fatalf("week should start on Monday, got %v", w.Start.Weekday())
		}
	}
}

func TestAssembleSkipsUnbucketedOpportunities(t *testing.T) {
	a := NewAssembler(testLogger(t))
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	noInterval := testOpportunity("p1", time.Time{}, 100, 200, 300)
	noInterval.HasInterval = false
	report := a.Assemble(models.AccountInfo{ID: "a1", Name: "Acme"}, nil, models.IndicatorSet{}, []models.Opportunity{noInterval}, now)

	if len(report.Weeks) != 0 {
		t.Fatalf("opportunity without interval must not be bucketed")
	}
	if len(report.Opportunities) != 1 {
		t.Fatalf("opportunity should still be carried on the report")
	}
	if !strings.Contains(report.WeekDetail, "No priority opportunities") {
		t.Fatalf("expected empty-weeks notice in detail:\n%s", report.WeekDetail)
	}
}

func TestAssembleDetailContent(t *testing.T) {
	a := NewAssembler(testLogger(t))
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	opp := testOpportunity("p1", now.AddDate(0, 0, 3), 1000, 2000, 3000)
	report := a.Assemble(models.AccountInfo{ID: "a1", Name: "Acme"}, nil, models.IndicatorSet{}, []models.Opportunity{opp}, now)

	for _, want := range []string{
		"ORDER WEEK: 2024.06.10 - 2024.06.14",
		"Value Range: [$1,000 < $2,000 < $3,000]",
		"Products Due: 1",
		"Product p1",
		"Next Order Due: 2024.06.13",
		"Floor -------- Average -------- Ceiling",
		"- Conservative: 100 units ($1,000.00)",
	} {
		if !strings.Contains(report.WeekDetail, want) {
			t.Fatalf("detail missing %q:\n%s", want, report.WeekDetail)
		}
	}
}

func TestAssembleFormattingFailureIsInline(t *testing.T) {
	a := NewAssembler(testLogger(t))
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	bad := testOpportunity("p1", now.AddDate(0, 0, 3), 100, 200, 300)
	bad.BBLower, bad.BBUpper = 100, 100
	report := a.Assemble(models.AccountInfo{ID: "a1", Name: "Acme"}, nil, models.IndicatorSet{}, []models.Opportunity{bad}, now)

	if !strings.Contains(report.WeekDetail, "Error formatting opportunity") {
		t.Fatalf("expected inline error marker:\n%s", report.WeekDetail)
	}
}

func TestAssembleOverviewSections(t *testing.T) {
	a := NewAssembler(testLogger(t))
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	candles := candlesFromCloses(wavyCloses(60))
	set := NewIndicatorEngine(18, 3).Annotate(candles)
	opps := []models.Opportunity{testOpportunity("p1", now.AddDate(0, 0, 3), 100, 200, 300)}

	report := a.Assemble(models.AccountInfo{ID: "a1", Name: "Acme"}, candles, set, opps, now)
	for _, want := range []string{
		"ACCOUNT OVERVIEW",
		"Current Position in Bollinger Band:",
		"MACD Trend:",
		"Volume Trend:",
		"RSI Signal",
		"TARGET ACCOUNT SPEND (90-Day Period)",
		"ORDER TIMELINE (Next 90 Days)",
		"RECOMMENDED ACTIONS",
		"Total 90-Day Opportunity:",
	} {
		if !strings.Contains(report.Overview, want) {
			t.Fatalf("overview missing %q:\n%s", want, report.Overview)
		}
	}
	if !strings.Contains(report.TotalSummary, "TOTAL OPPORTUNITY SUMMARY") {
		t.Fatalf("totals section missing")
	}
}

func TestBandSpectrum(t *testing.T) {
	mid := bandSpectrum(50)
	if len(mid) != 37 || strings.Count(mid, "x") != 1 {
		t.Fatalf("unexpected spectrum %q", mid)
	}
	if low := bandSpectrum(-5); !strings.HasPrefix(low, "x") {
		t.Fatalf("below-floor position should prepend marker: %q", low)
	}
	if high := bandSpectrum(120); !strings.HasSuffix(high, "x") {
		t.Fatalf("above-ceiling position should append marker: %q", high)
	}
}

func TestVolumeTrendClassification(t *testing.T) {
	if got := volumeTrend([]float64{10, 20, 30, 40, 50}, 5); got != "INCREASING" {
		t.Fatalf("rising volumes: got %s", got)
	}
	if got := volumeTrend([]float64{50, 40, 30, 20, 10}, 5); got != "DECREASING" {
		t.Fatalf("falling volumes: got %s", got)
	}
	if got := volumeTrend([]float64{30, 30, 30, 30, 30}, 5); got != "STABLE" {
		t.Fatalf("flat volumes: got %s", got)
	}
	if got := volumeTrend([]float64{30, 30}, 5); got != "Insufficient volume data" {
		t.Fatalf("short series: got %s", got)
	}
}

func TestRSIDescriptionLevels(t *testing.T) {
	cases := map[float64]string{
		25: "Very open to ordering",
		35: "Open to ordering",
		42: "Neutral",
		47: "Resistant to ordering",
		60: "Strongly resistant to ordering",
	}
	for rsi, want := range cases {
		if got := rsiDescription(rsi); got != want {
			t.Fatalf("rsi %v: got %q want %q", rsi, got, want)
		}
	}
}

func TestMoneyFormatting(t *testing.T) {
	if got := money0(1234567); got != "$1,234,567" {
		t.Fatalf("got %q", got)
	}
	if got := money2(1234.5); got != "$1,234.50" {
		t.Fatalf("got %q", got)
	}
	if got := money0(999); got != "$999" {
		t.Fatalf("got %q", got)
	}
}
