package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind discriminates the two sellable item variants. It is resolved
// once when the catalog is loaded; downstream code switches on Kind and
// never re-parses identifiers.
type ItemKind string

const (
	KindMerchandise ItemKind = "merchandise"
	KindEventTicket ItemKind = "event_ticket"
)

// EventItemPrefix namespaces synthesized ticket item identifiers so they
// can never collide with merchandise identifiers.
const EventItemPrefix = "event:"

// Merchandise is a physical stock item as stored.
type Merchandise struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Stock     int
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event is a scheduled session with a fixed capacity. Remaining ticket
// availability is derived, never stored.
type Event struct {
	ID          string
	Name        string
	TicketPrice decimal.Decimal
	Capacity    int
	TicketsSold int
	Date        time.Time
	StartTime   string
}

func (e Event) Remaining() int {
	return e.Capacity - e.TicketsSold
}

// CatalogItem is one sellable entry of the merged catalog. RefID is the
// identifier of the underlying merchandise or event row.
type CatalogItem struct {
	ID        string
	Kind      ItemKind
	RefID     string
	Name      string
	UnitPrice decimal.Decimal
	Available int
	Category  string
}

// MerchandiseItem projects a merchandise row into the catalog.
func MerchandiseItem(m Merchandise) CatalogItem {
	return CatalogItem{
		ID:        m.ID,
		Kind:      KindMerchandise,
		RefID:     m.ID,
		Name:      m.Name,
		UnitPrice: m.UnitPrice,
		Available: m.Stock,
		Category:  m.Category,
	}
}

// EventTicketItem synthesizes a ticket pseudo-item from an event. Its
// availability is the event's remaining capacity.
func EventTicketItem(e Event) CatalogItem {
	return CatalogItem{
		ID:        EventItemPrefix + e.ID,
		Kind:      KindEventTicket,
		RefID:     e.ID,
		Name:      e.Name,
		UnitPrice: e.TicketPrice,
		Available: e.Remaining(),
		Category:  "tickets",
	}
}
