package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinkworks/venuepos/internal/core/domain"
)

// SaleEvent is the message emitted after a sale commits.
type SaleEvent struct {
	SaleID      string            `json:"sale_id"`
	CustomerID  string            `json:"customer_id"`
	OperatorID  string            `json:"operator_id"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	Discount    decimal.Decimal   `json:"discount"`
	FinalTotal  decimal.Decimal   `json:"final_total"`
	Lines       []domain.SaleLine `json:"lines"`
	Warnings    int               `json:"warnings"`
	CommittedAt time.Time         `json:"committed_at"`
}

type EventPublisher interface {
	PublishSaleCommitted(ctx context.Context, event SaleEvent) error
}
