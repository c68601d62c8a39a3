package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinkworks/venuepos/internal/core/domain"
)

type CatalogStore interface {
	// ListMerchandise retrieves the sellable merchandise catalog
	ListMerchandise(ctx context.Context) ([]domain.Merchandise, error)

	// ListScheduledEvents retrieves upcoming events with capacity figures
	ListScheduledEvents(ctx context.Context) ([]domain.Event, error)
}

type SaleStore interface {
	// CreateSale persists the sale header; the first durable write of a commit
	CreateSale(ctx context.Context, sale domain.Sale) error

	// CreateSaleLines persists all lines of a sale as one write
	CreateSaleLines(ctx context.Context, saleID string, lines []domain.SaleLine) error

	// FindOrphanSales returns sales older than the cutoff that have no lines
	FindOrphanSales(ctx context.Context, olderThan time.Time) ([]domain.Sale, error)
}

type InventoryStore interface {
	// DecrementStock atomically decreases merchandise stock, returns false if insufficient
	DecrementStock(ctx context.Context, merchandiseID string, quantity int) (bool, error)

	// IncrementTicketsSold atomically raises tickets_sold, returns false if over capacity
	IncrementTicketsSold(ctx context.Context, eventID string, quantity int) (bool, error)
}

type LoyaltyStore interface {
	// GetLoyaltyAccount retrieves a customer's loyalty projection; nil if unknown
	GetLoyaltyAccount(ctx context.Context, customerID string) (*domain.LoyaltyAccount, error)

	// AddLoyalty credits points and lifetime spend as a single additive write
	AddLoyalty(ctx context.Context, customerID string, points int64, spent decimal.Decimal) error

	// ListLoyaltyRules retrieves the category -> discount percentage table
	ListLoyaltyRules(ctx context.Context) ([]domain.LoyaltyRule, error)
}
