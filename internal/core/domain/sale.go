package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is the durable record of a completed transaction. It is created
// exactly once per commit and never updated or deleted.
type Sale struct {
	ID         string
	CustomerID string
	OperatorID string
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	FinalTotal decimal.Decimal
	CreatedAt  time.Time
}

// SaleLine is one committed cart line. For event tickets RefID is the
// event identifier, not the synthetic catalog item identifier.
type SaleLine struct {
	SaleID    string
	Kind      ItemKind
	RefID     string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}
