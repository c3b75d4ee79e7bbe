package models

import "time"

// Candle summarizes one fixed-width period of the rolling trend value.
// Open/Close are the trend at the period boundaries; High/Low the extremes
// within it. A live candle's period end extends past the latest available
// day: its close is the most recent trend value and it is recomputed on
// every run, while closed candles never change.
type Candle struct {
	PeriodStart time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64 // units ordered within the period
	UnitPrice   float64 // mean unit price within the period, carried forward
	IsLive      bool
}
