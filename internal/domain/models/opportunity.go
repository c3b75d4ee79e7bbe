package models

import "time"

// Contribution is one grid date of the consolidated per-product view:
// every product's candle close projected onto a shared period grid.
type Contribution struct {
	Date   time.Time
	Values map[string]float64 // product id -> close value
}

// Recommendation is a recommended order at one target level.
type Recommendation struct {
	Quantity int
	Value    float64 // Quantity * UnitPrice
}

// RecommendationSet carries the three target levels. Conservative targets
// the band middle, balanced the 70% point of the band range, aggressive the
// upper band, so Conservative.Value <= Balanced.Value <= Aggressive.Value.
type RecommendationSet struct {
	Conservative Recommendation
	Balanced     Recommendation
	Aggressive   Recommendation
}

// Opportunity is a scored re-order recommendation for one product.
type Opportunity struct {
	ProductID   string
	ProductName string

	CurrentClose float64
	RSI          float64
	BandPosition float64 // percent position of close within the band, 0-100
	BBLower      float64
	BBMiddle     float64
	BBUpper      float64
	UnitPrice    float64

	DaysUntilLowerBreach  int
	DaysUntilMiddleBreach int

	// OrderIntervalDays is the mean gap between periods with non-zero
	// volume. HasInterval is false when fewer than two such periods exist;
	// the opportunity then stays out of the calendar buckets.
	OrderIntervalDays int
	HasInterval       bool
	NextOrderDue      time.Time

	Volumes          []float64 // per-period volumes, for trend context
	AvgContribution  float64
	ContributionRank int
	PriorityScore    float64 // lower is higher priority

	Recommendations RecommendationSet
}
