package domain

import "github.com/shopspring/decimal"

// DiscountResult is computed, never stored. Percentages combine
// additively; FinalTotal is clamped at zero.
type DiscountResult struct {
	Subtotal       decimal.Decimal
	LoyaltyPct     decimal.Decimal
	ManualPct      decimal.Decimal
	CombinedPct    decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalTotal     decimal.Decimal
}
