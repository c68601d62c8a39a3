package domain

import "github.com/shopspring/decimal"

// LoyaltyAccount is the loyalty projection of a customer. It is mutated
// only by the commit pipeline and only by addition.
type LoyaltyAccount struct {
	CustomerID string
	Points     int64
	TotalSpent decimal.Decimal
	Category   string
}

// LoyaltyRule maps a customer category to its automatic discount
// percentage.
type LoyaltyRule struct {
	Category    string
	DiscountPct decimal.Decimal
}
