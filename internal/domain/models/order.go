package models

import "time"

// Order is a single shipped order line, the atomic input of every analysis.
// Orders are immutable once loaded; the distributor derives new Order values
// from fulfillment-partner lump sums instead of mutating them.
type Order struct {
	ID          string
	ShippedAt   time.Time
	Amount      float64 // total currency amount, signed
	AccountID   string
	AccountName string
	ProductID   string // empty for account-level order rows
	ProductName string
	Quantity    float64
	UnitPrice   float64
}

// AccountInfo holds resolved account metadata.
type AccountInfo struct {
	ID            string
	Name          string
	OwnerUsername string
}

// DailyPoint is one day of the gap-filled daily series for an account or
// product: summed amount and quantity, carried-forward mean unit price, and
// the rolling trend value once computed.
type DailyPoint struct {
	Date      time.Time
	Amount    float64
	Quantity  float64
	UnitPrice float64
	Trend     float64
}
