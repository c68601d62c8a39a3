package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rinkworks/venuepos/internal/core/domain"
)

var testRules = []domain.LoyaltyRule{
	{Category: "Bronze", DiscountPct: decimal.Zero},
	{Category: "Prata", DiscountPct: decimal.NewFromInt(5)},
	{Category: "Ouro", DiscountPct: decimal.NewFromInt(10)},
	{Category: "Diamante", DiscountPct: decimal.NewFromInt(15)},
}

func TestComputeDiscount_LoyaltyPlusManual(t *testing.T) {
	cart := NewCart()
	cart.AddOrIncrement(merchItem("skate", "25.00", 10))
	cart.SetQuantity("skate", 2)

	account := &domain.LoyaltyAccount{CustomerID: "c1", Category: "Ouro"}
	result := ComputeDiscount(cart.Lines(), account, decimal.NewFromInt(5), testRules)

	assert.True(t, result.Subtotal.Equal(decimal.RequireFromString("50.00")), "subtotal %s", result.Subtotal)
	assert.True(t, result.LoyaltyPct.Equal(decimal.NewFromInt(10)))
	assert.True(t, result.CombinedPct.Equal(decimal.NewFromInt(15)))
	assert.True(t, result.DiscountAmount.Equal(decimal.RequireFromString("7.50")), "discount %s", result.DiscountAmount)
	assert.True(t, result.FinalTotal.Equal(decimal.RequireFromString("42.50")), "final %s", result.FinalTotal)
	assert.Equal(t, int64(42), result.FinalTotal.IntPart())
}

func TestComputeDiscount_NoCustomer(t *testing.T) {
	cart := NewCart()
	cart.AddOrIncrement(merchItem("skate", "25.00", 10))

	result := ComputeDiscount(cart.Lines(), nil, decimal.Zero, testRules)

	assert.True(t, result.LoyaltyPct.IsZero())
	assert.True(t, result.CombinedPct.IsZero())
	assert.True(t, result.FinalTotal.Equal(decimal.RequireFromString("25.00")))
}

func TestComputeDiscount_UnknownCategory(t *testing.T) {
	cart := NewCart()
	cart.AddOrIncrement(merchItem("skate", "25.00", 10))

	account := &domain.LoyaltyAccount{CustomerID: "c1", Category: "Platina"}
	result := ComputeDiscount(cart.Lines(), account, decimal.Zero, testRules)

	assert.True(t, result.LoyaltyPct.IsZero())
}

func TestComputeDiscount_FinalTotalClampedAtZero(t *testing.T) {
	cart := NewCart()
	cart.AddOrIncrement(merchItem("skate", "25.00", 10))

	account := &domain.LoyaltyAccount{CustomerID: "c1", Category: "Diamante"}
	result := ComputeDiscount(cart.Lines(), account, decimal.NewFromInt(95), testRules)

	assert.True(t, result.CombinedPct.Equal(decimal.NewFromInt(110)))
	assert.True(t, result.FinalTotal.IsZero(), "final %s", result.FinalTotal)
}

func TestComputeDiscount_EmptyCart(t *testing.T) {
	result := ComputeDiscount(nil, nil, decimal.Zero, testRules)
	assert.True(t, result.Subtotal.IsZero())
	assert.True(t, result.FinalTotal.IsZero())
}

func TestComputeDiscount_Deterministic(t *testing.T) {
	cart := NewCart()
	cart.AddOrIncrement(merchItem("skate", "19.90", 10))
	account := &domain.LoyaltyAccount{CustomerID: "c1", Category: "Prata"}

	first := ComputeDiscount(cart.Lines(), account, decimal.NewFromInt(3), testRules)
	second := ComputeDiscount(cart.Lines(), account, decimal.NewFromInt(3), testRules)

	assert.True(t, first.FinalTotal.Equal(second.FinalTotal))
	assert.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
}
