package service

import (
	"github.com/shopspring/decimal"

	"github.com/rinkworks/venuepos/internal/core/domain"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeDiscount resolves the loyalty-tier discount for the given account
// and combines it additively with the manual discount. Pure function: safe
// to call on every recompute, deterministic for its inputs.
//
// account may be nil (no customer selected); its category then contributes
// a zero loyalty percentage, as does a category with no matching rule.
func ComputeDiscount(lines []domain.CartLine, account *domain.LoyaltyAccount, manualPct decimal.Decimal, rules []domain.LoyaltyRule) domain.DiscountResult {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Subtotal)
	}

	loyaltyPct := decimal.Zero
	if account != nil {
		for _, rule := range rules {
			if rule.Category == account.Category {
				loyaltyPct = rule.DiscountPct
				break
			}
		}
	}

	combined := loyaltyPct.Add(manualPct)
	amount := subtotal.Mul(combined).Div(oneHundred).Round(2)
	final := subtotal.Sub(amount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return domain.DiscountResult{
		Subtotal:       subtotal,
		LoyaltyPct:     loyaltyPct,
		ManualPct:      manualPct,
		CombinedPct:    combined,
		DiscountAmount: amount,
		FinalTotal:     final,
	}
}
