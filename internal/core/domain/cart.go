package domain

import "github.com/shopspring/decimal"

// CartLine references a catalog item by identifier and captures its unit
// price and availability at add time. Subtotal is recomputed on every
// quantity change so the displayed and committed values never diverge.
type CartLine struct {
	ItemID    string
	Kind      ItemKind
	RefID     string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Available int
	Subtotal  decimal.Decimal
}
